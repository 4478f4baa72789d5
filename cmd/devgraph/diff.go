package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Diff the current graph against the last archived snapshot",
	Long: `Structurally compare the current module graph against the most recently
archived snapshot: added, removed, and field-level modified nodes and edges.

Requires the snapshot archive to be enabled and to hold at least one
snapshot from a previous build.

Examples:
  devgraph diff`,
	Args: cobra.NoArgs,
	Run:  runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) {
	logger := newLogger()
	root := mustWorkspaceRoot()
	svc, cleanup := mustService(root, logger)
	defer cleanup()

	result, err := svc.GetDiff(newContext(), root, nil, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error diffing snapshots: %v\n", err)
		os.Exit(1)
	}
	printJSON(result)
}
