package main

import (
	"devgraph/internal/version"

	"github.com/spf13/cobra"
)

var (
	// workspaceFlag is the CLI --workspace flag value; empty means the
	// current directory.
	workspaceFlag string
	// verboseFlag enables debug logging.
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "devgraph",
	Short: "devgraph - module graph engine for developer activity",
	Long: `devgraph builds a typed, weighted graph over the files of a workspace from
captured developer activity: import relationships, edit sequences, attention
switches, assistant context inclusions, and tool interactions. The graph can
be filtered, measured, partitioned into communities, and diffed across builds.`,
	Version: version.Current().Short(),
}

func init() {
	rootCmd.SetVersionTemplate("devgraph version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "",
		"Workspace directory (default: current directory)")
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false,
		"Enable debug logging")
}
