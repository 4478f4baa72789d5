// Package extract defines the contract between the module graph engine and
// whatever captured the developer activity. The engine never reads activity
// storage directly; it consumes Data produced by an Extractor.
package extract

import (
	"context"
	"time"
)

// EditEvent is one observed edit to a file.
type EditEvent struct {
	EditID    string    `json:"editId"`
	Timestamp time.Time `json:"timestamp"`
}

// FileMetadata holds everything captured about one tracked file.
type FileMetadata struct {
	// Content is the latest captured file content, used for import extraction.
	Content string `json:"content"`
	// Edits are ordered oldest-first.
	Edits []EditEvent `json:"edits"`
	// Views counts focus/open events for the file.
	Views int `json:"views"`
	// Renames holds prior paths, most recent last, when the file moved.
	Renames []string `json:"renames,omitempty"`
	// Created marks files first created during the captured window.
	Created bool `json:"created,omitempty"`
	// Deleted marks files that were tracked and later removed.
	Deleted bool `json:"deleted,omitempty"`
}

// ToolInteraction is one captured tool invocation (terminal command, etc.).
type ToolInteraction struct {
	Type      string    `json:"type"` // "terminal", "debugger", ...
	Tool      string    `json:"tool"`
	Command   string    `json:"command"`
	Timestamp time.Time `json:"timestamp"`
}

// Data is the full extracted activity dataset for one workspace.
type Data struct {
	// FileMetadata is keyed by workspace-relative path.
	FileMetadata map[string]FileMetadata `json:"fileMetadata"`
	// ModelContext maps a generation target file to the context files that
	// were included when the assistant produced it.
	ModelContext map[string][]string `json:"modelContext"`
	// ToolInteractions are ordered oldest-first.
	ToolInteractions []ToolInteraction `json:"toolInteractions"`
}

// Extractor produces the activity dataset for a workspace. workspacePath ""
// means "all captured activity regardless of workspace".
type Extractor interface {
	ExtractAll(ctx context.Context, workspacePath string) (*Data, error)
}
