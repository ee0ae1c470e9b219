package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	AppName    = "Porter"
	AppID      = "io.porter.shell"
	AppVersion = "1.0.0"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", AppName, AppVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
