package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"devgraph/internal/service"
)

var queryCmd = &cobra.Command{
	Use:   "query <query-json>",
	Short: "Run a node/edge query against the graph",
	Long: `Run node and/or edge filters against the current module graph. The query is
one JSON object with optional "nodes" and "edges" filter blocks.

Examples:
  devgraph query '{"nodes":{"language":"typescript"}}'
  devgraph query '{"nodes":{"pathPattern":"^src/","minDegree":2}}'
  devgraph query '{"edges":{"type":"IMPORT","minWeight":2}}'`,
	Args: cobra.ExactArgs(1),
	Run:  runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) {
	logger := newLogger()
	root := mustWorkspaceRoot()

	var q service.Query
	if err := json.Unmarshal([]byte(args[0]), &q); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing query: %v\n", err)
		os.Exit(1)
	}
	if q.Nodes == nil && q.Edges == nil {
		fmt.Fprintln(os.Stderr, "Error: query needs a \"nodes\" or \"edges\" block")
		os.Exit(1)
	}

	svc, cleanup := mustService(root, logger)
	defer cleanup()

	result, err := svc.ExecuteQuery(newContext(), root, q)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error executing query: %v\n", err)
		os.Exit(1)
	}
	printJSON(result)
}
