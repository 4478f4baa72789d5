package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"devgraph/internal/service"
)

var (
	buildForce       bool
	buildIncremental bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build (or refresh) the module graph for a workspace",
	Long: `Build the module graph from the captured activity of a workspace.

Examples:
  devgraph build
  devgraph build --force
  devgraph build -w /path/to/project`,
	Args: cobra.NoArgs,
	Run:  runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "Bypass the cache and rebuild")
	buildCmd.Flags().BoolVar(&buildIncremental, "incremental", false, "Request an incremental update (currently performs a full rebuild)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) {
	logger := newLogger()
	root := mustWorkspaceRoot()
	svc, cleanup := mustService(root, logger)
	defer cleanup()

	g, err := svc.GetModuleGraph(newContext(), root, service.Options{
		ForceRefresh: buildForce,
		Incremental:  buildIncremental,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building graph: %v\n", err)
		os.Exit(1)
	}

	printJSON(map[string]interface{}{
		"snapshotId": g.Metadata.SnapshotID,
		"workspace":  g.Metadata.Workspace,
		"builtAt":    g.Metadata.BuiltAt,
		"nodes":      len(g.Nodes),
		"edges":      len(g.Edges),
		"events":     len(g.Events),
	})
}
