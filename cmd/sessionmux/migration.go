package main

import (
	"fmt"

	"github.com/aretw0/sessionmux/internal/cli"
	"github.com/spf13/cobra"
)

var migrationCmd = &cobra.Command{
	Use:   "migration",
	Short: "Inspect and drive a store migration",
}

var migrationStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the migration state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.MigrationStatus(cmd.Context(), options(cmd))
	},
}

var migrationModeCmd = &cobra.Command{
	Use:       "mode on|off",
	Short:     "Route new sessions to the alternative store",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseSwitch(args[0])
		if err != nil {
			return err
		}
		return cli.SetMigrationMode(cmd.Context(), options(cmd), on)
	},
}

var migrationDropCmd = &cobra.Command{
	Use:       "drop-original on|off",
	Short:     "Send every request to the alternative store",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseSwitch(args[0])
		if err != nil {
			return err
		}
		return cli.SetDropOriginal(cmd.Context(), options(cmd), on)
	},
}

var migrationCompleteCmd = &cobra.Command{
	Use:   "complete",
	Short: "Swap the store roles of a migration in progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.CompleteMigration(cmd.Context(), options(cmd))
	},
}

func parseSwitch(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func init() {
	rootCmd.AddCommand(migrationCmd)
	migrationCmd.AddCommand(migrationStatusCmd, migrationModeCmd, migrationDropCmd, migrationCompleteCmd)
}
