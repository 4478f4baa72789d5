package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"devgraph/internal/graph"
	"devgraph/internal/query"
)

var (
	nodesLanguage  string
	nodesPath      string
	nodesMinDegree int
	nodesEdgeType  string
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List the graph's file nodes, optionally filtered",
	Long: `List the file nodes of the current module graph.

Examples:
  devgraph nodes
  devgraph nodes --language typescript
  devgraph nodes --path '^src/' --min-degree 2
  devgraph nodes --edge-type IMPORT`,
	Args: cobra.NoArgs,
	Run:  runNodes,
}

func init() {
	nodesCmd.Flags().StringVar(&nodesLanguage, "language", "", "Filter by detected language")
	nodesCmd.Flags().StringVar(&nodesPath, "path", "", "Filter by path regexp")
	nodesCmd.Flags().IntVar(&nodesMinDegree, "min-degree", 0, "Minimum total degree")
	nodesCmd.Flags().StringVar(&nodesEdgeType, "edge-type", "", "Only nodes touching an edge of this type")
	rootCmd.AddCommand(nodesCmd)
}

func runNodes(cmd *cobra.Command, args []string) {
	logger := newLogger()
	root := mustWorkspaceRoot()
	svc, cleanup := mustService(root, logger)
	defer cleanup()

	nodes, err := svc.GetNodes(newContext(), root, query.NodeFilter{
		Language:    nodesLanguage,
		PathPattern: nodesPath,
		MinDegree:   nodesMinDegree,
		HasEdgeType: graph.EdgeType(nodesEdgeType),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing nodes: %v\n", err)
		os.Exit(1)
	}

	printJSON(map[string]interface{}{
		"count": len(nodes),
		"nodes": nodes,
	})
}
