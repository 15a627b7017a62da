package main

import (
	"fmt"
	"os"

	"github.com/aretw0/sessionmux/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sessionmux",
	Short: "sessionmux routes sessions across Redis stores and migrates them",
	Long: `sessionmux stores signed sessions in Redis (single node, URL, unix socket,
sentinel or a weighted shard pool) and moves them from one store to another
without losing anyone's session.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("env-prefix", "", "Prefix of environment overrides (default SESSIONMUX)")
	rootCmd.PersistentFlags().String("log-level", "", "Override log.level (debug, info, warn, error)")
}

func options(cmd *cobra.Command) cli.Options {
	path, _ := cmd.Flags().GetString("config")
	prefix, _ := cmd.Flags().GetString("env-prefix")
	level, _ := cmd.Flags().GetString("log-level")
	return cli.Options{
		ConfigPath: path,
		EnvPrefix:  prefix,
		LogLevel:   level,
		Out:        cmd.OutOrStdout(),
	}
}
