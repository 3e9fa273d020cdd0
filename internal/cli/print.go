package cli

import (
	"github.com/spf13/cobra"
)

var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Builds the .ics feed and writes it to stdout",
	RunE: func(cmd *cobra.Command, _ []string) error {
		gen, _, err := newGenerator(cmd)
		if err != nil {
			return err
		}

		f, err := gen.Generate(cmd.Context())
		if err != nil {
			return err
		}

		_, err = cmd.OutOrStdout().Write(f.Body)
		return err
	},
}

func init() {
	rootCmd.AddCommand(printCmd)
}
