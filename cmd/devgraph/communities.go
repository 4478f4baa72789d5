package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var communitiesCmd = &cobra.Command{
	Use:   "communities",
	Short: "Partition the graph into communities",
	Long: `Partition the current module graph into communities by iterative modularity
optimization, falling back to connected components when configured.

Examples:
  devgraph communities`,
	Args: cobra.NoArgs,
	Run:  runCommunities,
}

func init() {
	rootCmd.AddCommand(communitiesCmd)
}

func runCommunities(cmd *cobra.Command, args []string) {
	logger := newLogger()
	root := mustWorkspaceRoot()
	svc, cleanup := mustService(root, logger)
	defer cleanup()

	result, err := svc.GetCommunities(newContext(), root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error detecting communities: %v\n", err)
		os.Exit(1)
	}
	printJSON(result)
}
