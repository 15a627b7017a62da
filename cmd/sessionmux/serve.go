package main

import (
	"github.com/aretw0/sessionmux/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin HTTP server",
	Long: `Starts the admin server (health, migration toggles, routing explanations and
Prometheus metrics) and keeps the migration state in sync with the shared state backend.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		quiet, _ := cmd.Flags().GetBool("quiet")

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		return cli.Serve(sigCtx, cli.ServeOptions{
			Options: options(cmd),
			Addr:    addr,
			Quiet:   quiet,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (default admin.addr)")
	serveCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
