package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	appLog "schedics/internal/log"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Builds the .ics feed and writes it to a file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		output, _ := cmd.Flags().GetString("output")

		gen, _, err := newGenerator(cmd)
		if err != nil {
			return err
		}

		f, err := gen.Generate(cmd.Context())
		if err != nil {
			return err
		}

		if err := writeFileAtomic(output, f.Body); err != nil {
			return fmt.Errorf("%w: %v", errWriteOutput, err)
		}

		appLog.Info("feed written", "output", output, "bytes", len(f.Body))
		return nil
	},
}

func init() {
	buildCmd.Flags().String("output", "", "output .ics file path (required)")
	_ = buildCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(buildCmd)
}

// writeFileAtomic writes via a temp file plus rename so a failed build
// never leaves a truncated feed on disk.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".schedics-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
