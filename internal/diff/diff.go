// Package diff structurally compares two graph snapshots.
package diff

import (
	"fmt"
	"reflect"
	"sync"

	"devgraph/internal/graph"
	"devgraph/internal/logging"
)

// FieldChange records one differing field on a modified node or edge.
type FieldChange struct {
	Field string      `json:"field"`
	Old   interface{} `json:"old"`
	New   interface{} `json:"new"`
}

// ModifiedNode pairs a node id with its changed fields.
type ModifiedNode struct {
	ID      string        `json:"id"`
	Changes []FieldChange `json:"changes"`
}

// ModifiedEdge pairs an edge key with its changed fields.
type ModifiedEdge struct {
	Key     string        `json:"key"` // source:target:type
	Changes []FieldChange `json:"changes"`
}

// NodeDiff groups node-level changes.
type NodeDiff struct {
	Added    []*graph.Node  `json:"added"`
	Removed  []*graph.Node  `json:"removed"`
	Modified []ModifiedNode `json:"modified"`
}

// EdgeDiff groups edge-level changes.
type EdgeDiff struct {
	Added    []*graph.Edge  `json:"added"`
	Removed  []*graph.Edge  `json:"removed"`
	Modified []ModifiedEdge `json:"modified"`
}

// Summary holds the change counts.
type Summary struct {
	NodesAdded    int `json:"nodesAdded"`
	NodesRemoved  int `json:"nodesRemoved"`
	NodesModified int `json:"nodesModified"`
	EdgesAdded    int `json:"edgesAdded"`
	EdgesRemoved  int `json:"edgesRemoved"`
	EdgesModified int `json:"edgesModified"`
}

// Result is a full structural diff between two snapshots.
type Result struct {
	Nodes    NodeDiff      `json:"nodes"`
	Edges    EdgeDiff      `json:"edges"`
	Metadata []FieldChange `json:"metadata"`
	Summary  Summary       `json:"summary"`
}

// Differ compares snapshots and memoizes results by build-timestamp pair.
type Differ struct {
	logger *logging.Logger

	mu   sync.Mutex
	memo map[string]*Result
}

// NewDiffer creates a graph differ.
func NewDiffer(logger *logging.Logger) *Differ {
	return &Differ{logger: logger.Named("diff"), memo: make(map[string]*Result)}
}

// ClearCache drops all memoized diffs.
func (d *Differ) ClearCache() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.memo = make(map[string]*Result)
}

// Diff compares older against newer. Nodes match by id, edges by the
// source:target:type composite key.
func (d *Differ) Diff(older, newer *graph.Graph) *Result {
	key := fmt.Sprintf("%d|%d", older.Metadata.BuiltAt.UnixNano(), newer.Metadata.BuiltAt.UnixNano())

	d.mu.Lock()
	if r, ok := d.memo[key]; ok {
		d.mu.Unlock()
		return r
	}
	d.mu.Unlock()

	r := &Result{
		Nodes:    diffNodes(older, newer),
		Edges:    diffEdges(older, newer),
		Metadata: diffMetadata(older, newer),
	}
	r.Summary = Summary{
		NodesAdded:    len(r.Nodes.Added),
		NodesRemoved:  len(r.Nodes.Removed),
		NodesModified: len(r.Nodes.Modified),
		EdgesAdded:    len(r.Edges.Added),
		EdgesRemoved:  len(r.Edges.Removed),
		EdgesModified: len(r.Edges.Modified),
	}

	d.mu.Lock()
	d.memo[key] = r
	d.mu.Unlock()

	return r
}

func diffNodes(older, newer *graph.Graph) NodeDiff {
	oldByID := make(map[string]*graph.Node, len(older.Nodes))
	for _, n := range older.Nodes {
		oldByID[n.ID] = n
	}

	var out NodeDiff
	seen := make(map[string]bool, len(newer.Nodes))

	for _, n := range newer.Nodes {
		seen[n.ID] = true
		old, ok := oldByID[n.ID]
		if !ok {
			out.Added = append(out.Added, n)
			continue
		}
		if changes := nodeChanges(old, n); len(changes) > 0 {
			out.Modified = append(out.Modified, ModifiedNode{ID: n.ID, Changes: changes})
		}
	}

	for _, n := range older.Nodes {
		if !seen[n.ID] {
			out.Removed = append(out.Removed, n)
		}
	}

	return out
}

func nodeChanges(old, cur *graph.Node) []FieldChange {
	var changes []FieldChange
	if old.Language != cur.Language {
		changes = append(changes, FieldChange{Field: "language", Old: old.Language, New: cur.Language})
	}
	if old.Path != cur.Path {
		changes = append(changes, FieldChange{Field: "path", Old: old.Path, New: cur.Path})
	}
	if old.SizeBucket != cur.SizeBucket {
		changes = append(changes, FieldChange{Field: "sizeBucket", Old: old.SizeBucket, New: cur.SizeBucket})
	}
	if old.EditCount != cur.EditCount {
		changes = append(changes, FieldChange{Field: "editCount", Old: old.EditCount, New: cur.EditCount})
	}
	if old.ViewCount != cur.ViewCount {
		changes = append(changes, FieldChange{Field: "viewCount", Old: old.ViewCount, New: cur.ViewCount})
	}
	if !reflect.DeepEqual(old.Metadata, cur.Metadata) {
		changes = append(changes, FieldChange{Field: "metadata", Old: old.Metadata, New: cur.Metadata})
	}
	return changes
}

func diffEdges(older, newer *graph.Graph) EdgeDiff {
	oldByKey := make(map[string]*graph.Edge, len(older.Edges))
	for _, e := range older.Edges {
		oldByKey[e.Key()] = e
	}

	var out EdgeDiff
	seen := make(map[string]bool, len(newer.Edges))

	for _, e := range newer.Edges {
		key := e.Key()
		seen[key] = true
		old, ok := oldByKey[key]
		if !ok {
			out.Added = append(out.Added, e)
			continue
		}
		if changes := edgeChanges(old, e); len(changes) > 0 {
			out.Modified = append(out.Modified, ModifiedEdge{Key: key, Changes: changes})
		}
	}

	for _, e := range older.Edges {
		if !seen[e.Key()] {
			out.Removed = append(out.Removed, e)
		}
	}

	return out
}

func edgeChanges(old, cur *graph.Edge) []FieldChange {
	var changes []FieldChange
	if old.Weight != cur.Weight {
		changes = append(changes, FieldChange{Field: "weight", Old: old.Weight, New: cur.Weight})
	}
	if old.Subtype != cur.Subtype {
		changes = append(changes, FieldChange{Field: "subtype", Old: old.Subtype, New: cur.Subtype})
	}
	if !reflect.DeepEqual(old.Metadata, cur.Metadata) {
		changes = append(changes, FieldChange{Field: "metadata", Old: old.Metadata, New: cur.Metadata})
	}
	return changes
}

// diffMetadata flat-compares the two snapshots' descriptive metadata. Build
// timestamps and snapshot ids always differ between rebuilds, so only the
// workspace and counts participate.
func diffMetadata(older, newer *graph.Graph) []FieldChange {
	var changes []FieldChange
	if older.Metadata.Workspace != newer.Metadata.Workspace {
		changes = append(changes, FieldChange{Field: "workspace", Old: older.Metadata.Workspace, New: newer.Metadata.Workspace})
	}
	if older.Metadata.NodeCount != newer.Metadata.NodeCount {
		changes = append(changes, FieldChange{Field: "nodeCount", Old: older.Metadata.NodeCount, New: newer.Metadata.NodeCount})
	}
	if older.Metadata.EdgeCount != newer.Metadata.EdgeCount {
		changes = append(changes, FieldChange{Field: "edgeCount", Old: older.Metadata.EdgeCount, New: newer.Metadata.EdgeCount})
	}
	return changes
}
