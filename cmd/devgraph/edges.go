package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"devgraph/internal/graph"
	"devgraph/internal/query"
)

var (
	edgesType      string
	edgesSource    string
	edgesTarget    string
	edgesMinWeight int
)

var edgesCmd = &cobra.Command{
	Use:   "edges",
	Short: "List the graph's edges, optionally filtered",
	Long: `List the edges of the current module graph.

Edge types: IMPORT, EDIT_SEQUENCE, NAVIGATE, MODEL_CONTEXT, TOOL_INTERACTION.

Examples:
  devgraph edges
  devgraph edges --type IMPORT
  devgraph edges --source file:src/main.ts --min-weight 2`,
	Args: cobra.NoArgs,
	Run:  runEdges,
}

func init() {
	edgesCmd.Flags().StringVar(&edgesType, "type", "", "Filter by edge type")
	edgesCmd.Flags().StringVar(&edgesSource, "source", "", "Filter by source node id")
	edgesCmd.Flags().StringVar(&edgesTarget, "target", "", "Filter by target node id")
	edgesCmd.Flags().IntVar(&edgesMinWeight, "min-weight", 0, "Minimum edge weight")
	rootCmd.AddCommand(edgesCmd)
}

func runEdges(cmd *cobra.Command, args []string) {
	logger := newLogger()
	root := mustWorkspaceRoot()
	svc, cleanup := mustService(root, logger)
	defer cleanup()

	edges, err := svc.GetEdges(newContext(), root, query.EdgeFilter{
		Type:      graph.EdgeType(edgesType),
		Source:    edgesSource,
		Target:    edgesTarget,
		MinWeight: edgesMinWeight,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing edges: %v\n", err)
		os.Exit(1)
	}

	printJSON(map[string]interface{}{
		"count": len(edges),
		"edges": edges,
	})
}
