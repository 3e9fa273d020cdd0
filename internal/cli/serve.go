package cli

import (
	"github.com/spf13/cobra"

	"schedics/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the feed over HTTP with a manual refresh endpoint",
	RunE: func(cmd *cobra.Command, _ []string) error {
		gen, cfg, err := newGenerator(cmd)
		if err != nil {
			return err
		}
		return web.NewServer(cfg, gen).Start(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
