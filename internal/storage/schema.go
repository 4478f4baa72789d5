package storage

import (
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 1

func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		statements := []string{
			`CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER PRIMARY KEY,
				applied_at INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS file_snapshots (
				workspace TEXT NOT NULL,
				path TEXT NOT NULL,
				content TEXT NOT NULL DEFAULT '',
				views INTEGER NOT NULL DEFAULT 0,
				created INTEGER NOT NULL DEFAULT 0,
				deleted INTEGER NOT NULL DEFAULT 0,
				captured_at INTEGER NOT NULL,
				PRIMARY KEY (workspace, path)
			)`,
			`CREATE TABLE IF NOT EXISTS file_renames (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				workspace TEXT NOT NULL,
				path TEXT NOT NULL,
				old_path TEXT NOT NULL,
				observed_at INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS edit_events (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				workspace TEXT NOT NULL,
				path TEXT NOT NULL,
				edit_id TEXT NOT NULL,
				ts INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS context_inclusions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				workspace TEXT NOT NULL,
				target_path TEXT NOT NULL,
				context_path TEXT NOT NULL,
				ts INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS tool_events (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				workspace TEXT NOT NULL,
				type TEXT NOT NULL,
				tool TEXT NOT NULL,
				command TEXT NOT NULL,
				ts INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_edit_events_workspace_path ON edit_events(workspace, path)`,
			`CREATE INDEX IF NOT EXISTS idx_edit_events_ts ON edit_events(ts)`,
			`CREATE INDEX IF NOT EXISTS idx_context_inclusions_target ON context_inclusions(workspace, target_path)`,
			`CREATE INDEX IF NOT EXISTS idx_tool_events_ts ON tool_events(ts)`,
		}
		for _, stmt := range statements {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("failed to create schema: %w", err)
			}
		}

		if _, err := tx.Exec(
			`INSERT INTO schema_version (version, applied_at) VALUES (?, strftime('%s','now'))`,
			currentSchemaVersion,
		); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}

		db.logger.Info("Activity database schema initialized", map[string]interface{}{
			"version": currentSchemaVersion,
		})
		return nil
	})
}

func (db *DB) runMigrations() error {
	var version int
	err := db.conn.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Activity database schema is up to date", map[string]interface{}{
			"version": version,
		})
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	// Migrations are applied sequentially as the schema evolves.
	return nil
}
