// Package cli implements the schedics command line: build, print and
// serve.
package cli

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"schedics/internal/config"
	"schedics/internal/feed"
	"schedics/internal/schedule"
	"schedics/internal/source"
)

// Exit codes, one per failure kind, so cron wrappers can tell a
// transient source outage from a broken sheet layout.
const (
	ExitOK                = 0
	ExitUsage             = 1
	ExitSourceUnavailable = 2
	ExitFormatChanged     = 3
	ExitUnparseableEntry  = 4
	ExitWriteFailure      = 5
)

// errWriteOutput tags failures of the final file write.
var errWriteOutput = errors.New("write output")

var rootCmd = &cobra.Command{
	Use:           "schedics",
	Short:         "Builds an iCalendar feed from a cloud-hosted schedule spreadsheet",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.yml", "path to the YAML config file")
}

// ExecuteContext runs the CLI and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	// Credentials (SCHEDICS_TOKEN) may live in a .env file next to the
	// binary; absence is fine.
	_ = godotenv.Load()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return exitCode(err)
	}
	return ExitOK
}

func exitCode(err error) int {
	var entryErr *schedule.EntryError
	switch {
	case errors.Is(err, source.ErrUnavailable):
		return ExitSourceUnavailable
	case errors.Is(err, source.ErrFormatChanged):
		return ExitFormatChanged
	case errors.As(err, &entryErr):
		return ExitUnparseableEntry
	case errors.Is(err, errWriteOutput):
		return ExitWriteFailure
	default:
		return ExitUsage
	}
}

// newGenerator loads the config named by --config and wires the
// production pipeline.
func newGenerator(cmd *cobra.Command) (*feed.Generator, *config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	reader := feed.DefaultReader(cfg, os.Getenv("SCHEDICS_TOKEN"))
	return feed.New(cfg, reader), cfg, nil
}
