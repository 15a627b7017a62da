package main

import (
	"github.com/aretw0/sessionmux/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and remove stored sessions",
}

var sessionExistsCmd = &cobra.Command{
	Use:   "exists <session-key>",
	Short: "Report which stores hold a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.SessionExists(cmd.Context(), options(cmd), args[0])
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-key>",
	Short: "Show the routing decision and payload of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("output")
		redact, _ := cmd.Flags().GetStringSlice("redact")
		return cli.InspectSession(cmd.Context(), options(cmd), args[0], format, redact)
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-key>...",
	Short: "Remove one or more sessions from every store",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.RemoveSessions(cmd.Context(), options(cmd), args)
	},
}

var shardCmd = &cobra.Command{
	Use:   "shard <session-key>",
	Short: "Show where a session key is routed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Shard(cmd.Context(), options(cmd), args[0])
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd, shardCmd)
	sessionCmd.AddCommand(sessionExistsCmd, sessionInspectCmd, sessionRmCmd)
	sessionInspectCmd.Flags().StringP("output", "o", "yaml", "Output format (yaml, json)")
	sessionInspectCmd.Flags().StringSlice("redact", nil, "Mask payload fields matching these regular expressions")
}
