package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var metricsForce bool

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Compute graph metrics for the current snapshot",
	Long: `Compute metrics over the current module graph: node/edge counts, density,
degree centrality, sampled betweenness, closeness, clustering, cycles, and
connected components.

Betweenness is approximated by sampling, which trades accuracy for speed on
large graphs.

Examples:
  devgraph metrics
  devgraph metrics --force`,
	Args: cobra.NoArgs,
	Run:  runMetrics,
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsForce, "force", false, "Recalculate even if memoized")
	rootCmd.AddCommand(metricsCmd)
}

func runMetrics(cmd *cobra.Command, args []string) {
	logger := newLogger()
	root := mustWorkspaceRoot()
	svc, cleanup := mustService(root, logger)
	defer cleanup()

	result, err := svc.GetMetrics(newContext(), root, metricsForce)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing metrics: %v\n", err)
		os.Exit(1)
	}
	printJSON(result)
}
