package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"devgraph/internal/archive"
	"devgraph/internal/config"
	"devgraph/internal/logging"
	"devgraph/internal/service"
	"devgraph/internal/storage"
)

// mustWorkspaceRoot resolves the workspace directory from the --workspace
// flag or the current directory, as an absolute path.
func mustWorkspaceRoot() string {
	root := workspaceFlag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return abs
}

func newLogger() *logging.Logger {
	level := logging.InfoLevel
	if verboseFlag {
		level = logging.DebugLevel
	}
	return logging.NewLogger(logging.Config{
		Format: logging.HumanFormat,
		Level:  level,
	})
}

// mustService wires the full engine for one workspace: config, the sqlite
// activity store as extractor, the snapshot archive, and the service on top.
// The returned cleanup closes the store.
func mustService(root string, logger *logging.Logger) (*service.Service, func()) {
	cfg, err := config.LoadConfig(root)
	if err != nil {
		logger.Warn("Failed to load config, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		cfg = config.DefaultConfig()
		cfg.WorkspaceRoot = root
	}

	db, err := storage.Open(filepath.Join(root, filepath.FromSlash(cfg.Storage.Path)), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening activity store: %v\n", err)
		os.Exit(1)
	}

	var arch *archive.Archive
	if cfg.Archive.Enabled {
		arch, err = archive.New(filepath.Join(root, filepath.FromSlash(cfg.Archive.Dir)), cfg.Archive.MaxSnapshots, logger)
		if err != nil {
			db.Close()
			fmt.Fprintf(os.Stderr, "Error opening snapshot archive: %v\n", err)
			os.Exit(1)
		}
	}

	svc := service.New(cfg, storage.NewStore(db), arch, logger)
	return svc, func() { db.Close() }
}

func newContext() context.Context {
	return context.Background()
}

// printJSON writes the response as indented JSON on stdout.
func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding response: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
