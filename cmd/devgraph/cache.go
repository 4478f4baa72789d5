package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the snapshot cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache hit/miss/eviction counters and build times",
	Args:  cobra.NoArgs,
	Run:   runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop the cached snapshot for this workspace",
	Args:  cobra.NoArgs,
	Run:   runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) {
	logger := newLogger()
	root := mustWorkspaceRoot()
	svc, cleanup := mustService(root, logger)
	defer cleanup()

	printJSON(map[string]interface{}{
		"cache":       svc.GetCacheStats(),
		"performance": svc.GetPerformanceMetrics(),
	})
}

func runCacheClear(cmd *cobra.Command, args []string) {
	logger := newLogger()
	root := mustWorkspaceRoot()
	svc, cleanup := mustService(root, logger)
	defer cleanup()

	svc.ClearCache(root)
	fmt.Println("cache cleared")
}
