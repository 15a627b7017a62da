package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/sessionmux"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of sessionmux",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sessionmux version %s\n", strings.TrimSpace(sessionmux.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
