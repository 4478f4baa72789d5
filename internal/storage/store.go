package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"devgraph/internal/extract"
)

// Store records captured developer activity and plays it back as one
// extracted dataset. It implements extract.Extractor.
type Store struct {
	db *DB
}

// NewStore wraps an open activity database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// RecordFileSnapshot upserts the latest captured content for a file. Views
// accumulate across snapshots; a re-captured file is no longer deleted.
func (s *Store) RecordFileSnapshot(ctx context.Context, workspace, path, content string, capturedAt time.Time) error {
	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO file_snapshots (workspace, path, content, captured_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(workspace, path) DO UPDATE SET
			content = excluded.content,
			deleted = 0,
			captured_at = excluded.captured_at`,
		workspace, path, content, capturedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record file snapshot: %w", err)
	}
	return nil
}

// RecordView bumps the view counter for a tracked file.
func (s *Store) RecordView(ctx context.Context, workspace, path string) error {
	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE file_snapshots SET views = views + 1 WHERE workspace = ? AND path = ?`,
		workspace, path)
	if err != nil {
		return fmt.Errorf("failed to record view: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no tracked file %q in workspace %q", path, workspace)
	}
	return nil
}

// MarkCreated flags a file as first created during the captured window.
func (s *Store) MarkCreated(ctx context.Context, workspace, path string) error {
	_, err := s.db.conn.ExecContext(ctx,
		`UPDATE file_snapshots SET created = 1 WHERE workspace = ? AND path = ?`,
		workspace, path)
	if err != nil {
		return fmt.Errorf("failed to mark file created: %w", err)
	}
	return nil
}

// MarkDeleted flags a tracked file as removed.
func (s *Store) MarkDeleted(ctx context.Context, workspace, path string) error {
	_, err := s.db.conn.ExecContext(ctx,
		`UPDATE file_snapshots SET deleted = 1 WHERE workspace = ? AND path = ?`,
		workspace, path)
	if err != nil {
		return fmt.Errorf("failed to mark file deleted: %w", err)
	}
	return nil
}

// RecordRename moves a tracked file to a new path, keeping the prior path in
// the rename history.
func (s *Store) RecordRename(ctx context.Context, workspace, oldPath, newPath string, observedAt time.Time) error {
	return s.db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`UPDATE file_snapshots SET path = ? WHERE workspace = ? AND path = ?`,
			newPath, workspace, oldPath); err != nil {
			return fmt.Errorf("failed to move file snapshot: %w", err)
		}
		if _, err := tx.Exec(
			`UPDATE file_renames SET path = ? WHERE workspace = ? AND path = ?`,
			newPath, workspace, oldPath); err != nil {
			return fmt.Errorf("failed to update rename history: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO file_renames (workspace, path, old_path, observed_at) VALUES (?, ?, ?, ?)`,
			workspace, newPath, oldPath, observedAt.UnixMilli()); err != nil {
			return fmt.Errorf("failed to record rename: %w", err)
		}
		if _, err := tx.Exec(
			`UPDATE edit_events SET path = ? WHERE workspace = ? AND path = ?`,
			newPath, workspace, oldPath); err != nil {
			return fmt.Errorf("failed to move edit events: %w", err)
		}
		return nil
	})
}

// RecordEdit appends one edit event for a tracked file.
func (s *Store) RecordEdit(ctx context.Context, workspace, path, editID string, ts time.Time) error {
	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO edit_events (workspace, path, edit_id, ts) VALUES (?, ?, ?, ?)`,
		workspace, path, editID, ts.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record edit: %w", err)
	}
	return nil
}

// RecordContextInclusion records that contextPath was included when the
// assistant produced targetPath.
func (s *Store) RecordContextInclusion(ctx context.Context, workspace, targetPath, contextPath string, ts time.Time) error {
	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO context_inclusions (workspace, target_path, context_path, ts) VALUES (?, ?, ?, ?)`,
		workspace, targetPath, contextPath, ts.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record context inclusion: %w", err)
	}
	return nil
}

// RecordToolInteraction appends one captured tool invocation.
func (s *Store) RecordToolInteraction(ctx context.Context, workspace string, ti extract.ToolInteraction) error {
	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO tool_events (workspace, type, tool, command, ts) VALUES (?, ?, ?, ?, ?)`,
		workspace, ti.Type, ti.Tool, ti.Command, ti.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record tool interaction: %w", err)
	}
	return nil
}

// ExtractAll plays captured activity back as one dataset. An empty
// workspacePath selects all captured activity regardless of workspace.
func (s *Store) ExtractAll(ctx context.Context, workspacePath string) (*extract.Data, error) {
	data := &extract.Data{
		FileMetadata: make(map[string]extract.FileMetadata),
		ModelContext: make(map[string][]string),
	}

	if err := s.loadFiles(ctx, workspacePath, data); err != nil {
		return nil, err
	}
	if err := s.loadRenames(ctx, workspacePath, data); err != nil {
		return nil, err
	}
	if err := s.loadEdits(ctx, workspacePath, data); err != nil {
		return nil, err
	}
	if err := s.loadContext(ctx, workspacePath, data); err != nil {
		return nil, err
	}
	if err := s.loadTools(ctx, workspacePath, data); err != nil {
		return nil, err
	}

	return data, nil
}

// workspaceClause builds the optional workspace filter shared by every load
// query. The returned args always start with the workspace when filtered.
func workspaceClause(workspacePath string) (string, []interface{}) {
	if workspacePath == "" {
		return "", nil
	}
	return " WHERE workspace = ?", []interface{}{workspacePath}
}

func (s *Store) loadFiles(ctx context.Context, workspacePath string, data *extract.Data) error {
	clause, args := workspaceClause(workspacePath)
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT path, content, views, created, deleted FROM file_snapshots`+clause+` ORDER BY path`, args...)
	if err != nil {
		return fmt.Errorf("failed to load file snapshots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var path, content string
		var views int
		var created, deleted bool
		if err := rows.Scan(&path, &content, &views, &created, &deleted); err != nil {
			return fmt.Errorf("failed to scan file snapshot: %w", err)
		}
		data.FileMetadata[path] = extract.FileMetadata{
			Content: content,
			Views:   views,
			Created: created,
			Deleted: deleted,
		}
	}
	return rows.Err()
}

func (s *Store) loadRenames(ctx context.Context, workspacePath string, data *extract.Data) error {
	clause, args := workspaceClause(workspacePath)
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT path, old_path FROM file_renames`+clause+` ORDER BY observed_at, id`, args...)
	if err != nil {
		return fmt.Errorf("failed to load renames: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var path, oldPath string
		if err := rows.Scan(&path, &oldPath); err != nil {
			return fmt.Errorf("failed to scan rename: %w", err)
		}
		meta, ok := data.FileMetadata[path]
		if !ok {
			continue
		}
		meta.Renames = append(meta.Renames, oldPath)
		data.FileMetadata[path] = meta
	}
	return rows.Err()
}

func (s *Store) loadEdits(ctx context.Context, workspacePath string, data *extract.Data) error {
	clause, args := workspaceClause(workspacePath)
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT path, edit_id, ts FROM edit_events`+clause+` ORDER BY ts, id`, args...)
	if err != nil {
		return fmt.Errorf("failed to load edit events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var path, editID string
		var ts int64
		if err := rows.Scan(&path, &editID, &ts); err != nil {
			return fmt.Errorf("failed to scan edit event: %w", err)
		}
		meta, ok := data.FileMetadata[path]
		if !ok {
			continue
		}
		meta.Edits = append(meta.Edits, extract.EditEvent{
			EditID:    editID,
			Timestamp: time.UnixMilli(ts).UTC(),
		})
		data.FileMetadata[path] = meta
	}
	return rows.Err()
}

func (s *Store) loadContext(ctx context.Context, workspacePath string, data *extract.Data) error {
	clause, args := workspaceClause(workspacePath)
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT target_path, context_path FROM context_inclusions`+clause+` ORDER BY ts, id`, args...)
	if err != nil {
		return fmt.Errorf("failed to load context inclusions: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var target, contextPath string
		if err := rows.Scan(&target, &contextPath); err != nil {
			return fmt.Errorf("failed to scan context inclusion: %w", err)
		}
		key := target + "|" + contextPath
		if seen[key] {
			continue
		}
		seen[key] = true
		data.ModelContext[target] = append(data.ModelContext[target], contextPath)
	}
	return rows.Err()
}

func (s *Store) loadTools(ctx context.Context, workspacePath string, data *extract.Data) error {
	clause, args := workspaceClause(workspacePath)
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT type, tool, command, ts FROM tool_events`+clause+` ORDER BY ts, id`, args...)
	if err != nil {
		return fmt.Errorf("failed to load tool events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var typ, tool, command string
		var ts int64
		if err := rows.Scan(&typ, &tool, &command, &ts); err != nil {
			return fmt.Errorf("failed to scan tool event: %w", err)
		}
		data.ToolInteractions = append(data.ToolInteractions, extract.ToolInteraction{
			Type:      typ,
			Tool:      tool,
			Command:   command,
			Timestamp: time.UnixMilli(ts).UTC(),
		})
	}
	return rows.Err()
}
