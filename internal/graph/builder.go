package graph

import (
	"path"
	"sort"
	"time"

	"github.com/google/uuid"

	"devgraph/internal/detect"
	"devgraph/internal/extract"
	"devgraph/internal/logging"
)

// EdgeDetector produces all edges for a snapshot from extracted activity.
// nodeIDs maps workspace-relative paths to node ids.
type EdgeDetector interface {
	Detect(data *extract.Data, nodeIDs map[string]string) []*Edge
}

// Builder assembles snapshots from extracted activity data.
type Builder struct {
	detector EdgeDetector
	logger   *logging.Logger
}

// NewBuilder creates a graph builder using the given edge detector.
func NewBuilder(detector EdgeDetector, logger *logging.Logger) *Builder {
	return &Builder{detector: detector, logger: logger.Named("builder")}
}

// Build assembles one snapshot: nodes from file metadata, edges from the
// detector, plus the directory hierarchy and structural events.
func (b *Builder) Build(data *extract.Data, workspace string) *Graph {
	nodes := buildNodes(data)
	SortNodes(nodes)

	nodeIDs := make(map[string]string, len(nodes))
	for _, n := range nodes {
		nodeIDs[n.Path] = n.ID
	}

	edges := b.detector.Detect(data, nodeIDs)
	SortEdges(edges)

	g := &Graph{
		Nodes:     nodes,
		Edges:     edges,
		Hierarchy: buildHierarchy(nodes),
		Events:    buildEvents(data),
		Metadata: Metadata{
			SnapshotID: uuid.NewString(),
			Workspace:  workspace,
			BuiltAt:    time.Now().UTC(),
			NodeCount:  len(nodes),
			EdgeCount:  len(edges),
		},
	}

	b.logger.Info("graph built", map[string]interface{}{
		"workspace": workspace,
		"nodes":     len(nodes),
		"edges":     len(edges),
		"events":    len(g.Events),
	})

	return g
}

// NodeIDForPath derives the stable node id for a workspace-relative path.
// Ids only need to be unique within one snapshot, so the path itself anchors
// them across rebuilds.
func NodeIDForPath(p string) string {
	return "file:" + p
}

func buildNodes(data *extract.Data) []*Node {
	nodes := make([]*Node, 0, len(data.FileMetadata))
	for filePath, meta := range data.FileMetadata {
		if meta.Deleted {
			continue
		}
		nodes = append(nodes, &Node{
			ID:         NodeIDForPath(filePath),
			Path:       filePath,
			Language:   string(detect.LanguageFromPath(filePath)),
			SizeBucket: BucketForSize(len(meta.Content)),
			EditCount:  len(meta.Edits),
			ViewCount:  meta.Views,
		})
	}
	return nodes
}

// buildHierarchy folds the node paths into a directory tree.
func buildHierarchy(nodes []*Node) *DirNode {
	root := &DirNode{Name: "", Path: ""}
	dirs := map[string]*DirNode{"": root}

	ensureDir := func(dirPath string) *DirNode {
		if d, ok := dirs[dirPath]; ok {
			return d
		}
		// Create missing ancestors from the top down.
		var build func(p string) *DirNode
		build = func(p string) *DirNode {
			if d, ok := dirs[p]; ok {
				return d
			}
			parent := build(parentDir(p))
			d := &DirNode{Name: path.Base(p), Path: p}
			parent.Children = append(parent.Children, d)
			dirs[p] = d
			return d
		}
		return build(dirPath)
	}

	for _, n := range nodes {
		dir := ensureDir(parentDir(n.Path))
		dir.Files = append(dir.Files, n.Path)
	}

	for _, d := range dirs {
		sort.Strings(d.Files)
		sort.Slice(d.Children, func(i, j int) bool { return d.Children[i].Name < d.Children[j].Name })
	}

	return root
}

func parentDir(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

func buildEvents(data *extract.Data) []StructuralEvent {
	var events []StructuralEvent

	for filePath, meta := range data.FileMetadata {
		observed := time.Time{}
		if len(meta.Edits) > 0 {
			observed = meta.Edits[0].Timestamp
		}

		if meta.Created {
			events = append(events, StructuralEvent{Kind: EventCreate, Path: filePath, Observed: observed})
		}
		for i, old := range meta.Renames {
			ts := observed
			if len(meta.Edits) > i+1 {
				ts = meta.Edits[i+1].Timestamp
			}
			events = append(events, StructuralEvent{Kind: EventRename, Path: filePath, OldPath: old, Observed: ts})
		}
		if meta.Deleted {
			ts := observed
			if len(meta.Edits) > 0 {
				ts = meta.Edits[len(meta.Edits)-1].Timestamp
			}
			events = append(events, StructuralEvent{Kind: EventDelete, Path: filePath, Observed: ts})
		}
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Observed.Equal(events[j].Observed) {
			return events[i].Path < events[j].Path
		}
		return events[i].Observed.Before(events[j].Observed)
	})

	return events
}
