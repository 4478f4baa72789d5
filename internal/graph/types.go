// Package graph defines the module graph data model: typed nodes and edges,
// the directory hierarchy, structural events, and the immutable snapshot that
// the rest of the engine caches, diffs, queries, and analyzes.
package graph

import (
	"fmt"
	"sort"
	"time"
)

// EdgeType is one of the five relationship kinds tracked between files.
type EdgeType string

const (
	// EdgeImport links a file to one it imports.
	EdgeImport EdgeType = "IMPORT"
	// EdgeEditSequence links files edited within a short window of each other.
	EdgeEditSequence EdgeType = "EDIT_SEQUENCE"
	// EdgeNavigate links files between which attention switched.
	EdgeNavigate EdgeType = "NAVIGATE"
	// EdgeModelContext links a context file to the file it informed.
	EdgeModelContext EdgeType = "MODEL_CONTEXT"
	// EdgeToolInteraction links a file to a tool that touched it.
	EdgeToolInteraction EdgeType = "TOOL_INTERACTION"
)

// EdgeTypes lists every edge type in a stable order.
var EdgeTypes = []EdgeType{EdgeImport, EdgeEditSequence, EdgeNavigate, EdgeModelContext, EdgeToolInteraction}

// SizeBucket classifies a file's content size.
type SizeBucket string

const (
	// SizeSmall is under 2 KiB
	SizeSmall SizeBucket = "small"
	// SizeMedium is 2 KiB to 32 KiB
	SizeMedium SizeBucket = "medium"
	// SizeLarge is over 32 KiB
	SizeLarge SizeBucket = "large"
)

// BucketForSize maps a byte count to its size bucket.
func BucketForSize(bytes int) SizeBucket {
	switch {
	case bytes < 2*1024:
		return SizeSmall
	case bytes < 32*1024:
		return SizeMedium
	default:
		return SizeLarge
	}
}

// Node is one tracked source file. Immutable within a snapshot.
type Node struct {
	ID         string                 `json:"id"`
	Path       string                 `json:"path"` // workspace-relative
	Language   string                 `json:"language"`
	SizeBucket SizeBucket             `json:"sizeBucket"`
	EditCount  int                    `json:"editCount"`
	ViewCount  int                    `json:"viewCount"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Edge is a typed, directed, weighted relationship between two node ids (or a
// node and a synthetic tool id for TOOL_INTERACTION). Weight counts
// occurrences; Timestamps records each observation in order.
type Edge struct {
	ID         string                 `json:"id"`
	Type       EdgeType               `json:"type"`
	Subtype    string                 `json:"subtype,omitempty"`
	Source     string                 `json:"source"`
	Target     string                 `json:"target"`
	Weight     int                    `json:"weight"`
	Timestamps []time.Time            `json:"timestamps,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Key is the composite deduplication key: at most one edge per key exists in a
// snapshot when dedup is on.
func (e *Edge) Key() string {
	return fmt.Sprintf("%s|%s|%s", e.Source, e.Target, e.Type)
}

// DirNode is one level of the snapshot's directory hierarchy view.
type DirNode struct {
	Name     string     `json:"name"`
	Path     string     `json:"path"` // workspace-relative, "" for the root
	Files    []string   `json:"files,omitempty"`
	Children []*DirNode `json:"children,omitempty"`
}

// EventKind classifies a structural event.
type EventKind string

const (
	// EventCreate marks a file first seen during the captured window.
	EventCreate EventKind = "create"
	// EventRename marks a file that moved.
	EventRename EventKind = "rename"
	// EventDelete marks a file removed after being tracked.
	EventDelete EventKind = "delete"
)

// StructuralEvent records a create/rename/delete observed for a tracked file.
type StructuralEvent struct {
	Kind     EventKind `json:"kind"`
	Path     string    `json:"path"`
	OldPath  string    `json:"oldPath,omitempty"`
	Observed time.Time `json:"observed"`
}

// Metadata describes one snapshot.
type Metadata struct {
	SnapshotID string    `json:"snapshotId"`
	Workspace  string    `json:"workspace"`
	BuiltAt    time.Time `json:"builtAt"`
	NodeCount  int       `json:"nodeCount"`
	EdgeCount  int       `json:"edgeCount"`
}

// Graph is one immutable built snapshot of the module graph.
type Graph struct {
	Nodes     []*Node           `json:"nodes"`
	Edges     []*Edge           `json:"edges"`
	Hierarchy *DirNode          `json:"hierarchy"`
	Events    []StructuralEvent `json:"events"`
	Metadata  Metadata          `json:"metadata"`
}

// Size is the node+edge count the adaptive cache TTL scales on.
func (g *Graph) Size() int {
	return len(g.Nodes) + len(g.Edges)
}

// NodeByID returns the node with the given id, or nil.
func (g *Graph) NodeByID(id string) *Node {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// EdgesByType returns the edges of one type, preserving order.
func (g *Graph) EdgesByType(t EdgeType) []*Edge {
	var out []*Edge
	for _, e := range g.Edges {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// SortNodes orders nodes by path for deterministic output.
func SortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Path < nodes[j].Path })
}

// SortEdges orders edges by composite key for deterministic output.
func SortEdges(edges []*Edge) {
	sort.Slice(edges, func(i, j int) bool { return edges[i].Key() < edges[j].Key() })
}
