package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"devgraph/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show full version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Current())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
