// Package query answers ad-hoc questions about one graph snapshot: node and
// edge filtering, neighbor lookup, bounded path search, and subgraph
// extraction. An Engine indexes a snapshot once at construction; snapshots are
// immutable, so the indexes never need invalidation.
package query

import (
	"fmt"
	"regexp"

	"devgraph/internal/graph"
	"devgraph/internal/logging"
)

// Direction selects which edges count as neighbors.
type Direction string

const (
	DirectionIn   Direction = "in"
	DirectionOut  Direction = "out"
	DirectionBoth Direction = "both"
)

const (
	defaultMaxDepth = 5
	defaultMaxPaths = 10
)

// NodeFilter narrows FindNodes results. Zero-valued fields are ignored; set
// fields intersect.
type NodeFilter struct {
	Language    string                 `json:"language,omitempty"`
	PathPattern string                 `json:"pathPattern,omitempty"` // regexp on the workspace-relative path
	SizeBucket  graph.SizeBucket       `json:"sizeBucket,omitempty"`
	MinDegree   int                    `json:"minDegree,omitempty"`
	MaxDegree   int                    `json:"maxDegree,omitempty"` // 0 means unbounded
	HasEdgeType graph.EdgeType         `json:"hasEdgeType,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// EdgeFilter narrows FindEdges results.
type EdgeFilter struct {
	Type      graph.EdgeType `json:"type,omitempty"`
	Source    string         `json:"source,omitempty"`
	Target    string         `json:"target,omitempty"`
	MinWeight int            `json:"minWeight,omitempty"`
	MaxWeight int            `json:"maxWeight,omitempty"` // 0 means unbounded
}

// PathOptions bounds FindPaths. Zero values take the defaults (depth 5,
// 10 paths, all edge types).
type PathOptions struct {
	MaxDepth  int              `json:"maxDepth,omitempty"`
	EdgeTypes []graph.EdgeType `json:"edgeTypes,omitempty"`
	MaxPaths  int              `json:"maxPaths,omitempty"`
}

// NeighborOptions selects direction and allowed edge types for Neighbors.
type NeighborOptions struct {
	Direction Direction        `json:"direction,omitempty"` // defaults to both
	EdgeTypes []graph.EdgeType `json:"edgeTypes,omitempty"`
}

// SubgraphOptions controls Subgraph extraction.
type SubgraphOptions struct {
	IncludeNeighbors bool             `json:"includeNeighbors,omitempty"`
	EdgeTypes        []graph.EdgeType `json:"edgeTypes,omitempty"`
}

// Engine runs queries against one snapshot.
type Engine struct {
	g      *graph.Graph
	logger *logging.Logger

	nodeByID map[string]*graph.Node
	outgoing map[string][]*graph.Edge
	incoming map[string][]*graph.Edge
}

// NewEngine indexes the snapshot for querying.
func NewEngine(g *graph.Graph, logger *logging.Logger) *Engine {
	e := &Engine{
		g:        g,
		logger:   logger.Named("query"),
		nodeByID: make(map[string]*graph.Node, len(g.Nodes)),
		outgoing: make(map[string][]*graph.Edge),
		incoming: make(map[string][]*graph.Edge),
	}
	for _, n := range g.Nodes {
		e.nodeByID[n.ID] = n
	}
	for _, ed := range g.Edges {
		e.outgoing[ed.Source] = append(e.outgoing[ed.Source], ed)
		e.incoming[ed.Target] = append(e.incoming[ed.Target], ed)
	}
	return e
}

// FindNodes returns the nodes matching every set filter, in snapshot order.
// An invalid path pattern is the only error case.
func (e *Engine) FindNodes(f NodeFilter) ([]*graph.Node, error) {
	var pathRe *regexp.Regexp
	if f.PathPattern != "" {
		re, err := regexp.Compile(f.PathPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid path pattern %q: %w", f.PathPattern, err)
		}
		pathRe = re
	}

	var out []*graph.Node
	for _, n := range e.g.Nodes {
		if f.Language != "" && n.Language != f.Language {
			continue
		}
		if f.SizeBucket != "" && n.SizeBucket != f.SizeBucket {
			continue
		}
		if pathRe != nil && !pathRe.MatchString(n.Path) {
			continue
		}
		deg := len(e.outgoing[n.ID]) + len(e.incoming[n.ID])
		if deg < f.MinDegree {
			continue
		}
		if f.MaxDegree > 0 && deg > f.MaxDegree {
			continue
		}
		if f.HasEdgeType != "" && !e.touchesType(n.ID, f.HasEdgeType) {
			continue
		}
		if !metadataMatches(n.Metadata, f.Metadata) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (e *Engine) touchesType(nodeID string, t graph.EdgeType) bool {
	for _, ed := range e.outgoing[nodeID] {
		if ed.Type == t {
			return true
		}
	}
	for _, ed := range e.incoming[nodeID] {
		if ed.Type == t {
			return true
		}
	}
	return false
}

func metadataMatches(have, want map[string]interface{}) bool {
	for k, v := range want {
		got, ok := have[k]
		if !ok || got != v {
			return false
		}
	}
	return true
}

// FindEdges returns the edges matching every set filter, in snapshot order.
func (e *Engine) FindEdges(f EdgeFilter) []*graph.Edge {
	var out []*graph.Edge
	for _, ed := range e.g.Edges {
		if f.Type != "" && ed.Type != f.Type {
			continue
		}
		if f.Source != "" && ed.Source != f.Source {
			continue
		}
		if f.Target != "" && ed.Target != f.Target {
			continue
		}
		if ed.Weight < f.MinWeight {
			continue
		}
		if f.MaxWeight > 0 && ed.Weight > f.MaxWeight {
			continue
		}
		out = append(out, ed)
	}
	return out
}

// FindPaths enumerates simple directed paths from one node to another, each
// path a sequence of node ids. The per-branch visited set keeps the search
// finite on cyclic graphs; MaxDepth counts edges, not nodes.
func (e *Engine) FindPaths(from, to string, opts PathOptions) [][]string {
	if _, ok := e.nodeByID[from]; !ok {
		return nil
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	maxPaths := opts.MaxPaths
	if maxPaths <= 0 {
		maxPaths = defaultMaxPaths
	}

	allowed := typeSet(opts.EdgeTypes)
	var paths [][]string
	visited := map[string]bool{from: true}

	var walk func(at string, trail []string)
	walk = func(at string, trail []string) {
		if len(paths) >= maxPaths {
			return
		}
		if at == to {
			p := make([]string, len(trail))
			copy(p, trail)
			paths = append(paths, p)
			return
		}
		if len(trail)-1 >= maxDepth {
			return
		}
		for _, ed := range e.outgoing[at] {
			if allowed != nil && !allowed[ed.Type] {
				continue
			}
			if visited[ed.Target] {
				continue
			}
			visited[ed.Target] = true
			walk(ed.Target, append(trail, ed.Target))
			delete(visited, ed.Target)
		}
	}
	walk(from, []string{from})

	return paths
}

// Neighbors returns the distinct nodes adjacent to nodeId in the requested
// direction, restricted to the allowed edge types. Synthetic endpoints with no
// node (tool targets) are skipped.
func (e *Engine) Neighbors(nodeID string, opts NeighborOptions) []*graph.Node {
	dir := opts.Direction
	if dir == "" {
		dir = DirectionBoth
	}
	allowed := typeSet(opts.EdgeTypes)

	seen := make(map[string]bool)
	var out []*graph.Node
	add := func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		if n, ok := e.nodeByID[id]; ok {
			out = append(out, n)
		}
	}

	if dir == DirectionOut || dir == DirectionBoth {
		for _, ed := range e.outgoing[nodeID] {
			if allowed == nil || allowed[ed.Type] {
				add(ed.Target)
			}
		}
	}
	if dir == DirectionIn || dir == DirectionBoth {
		for _, ed := range e.incoming[nodeID] {
			if allowed == nil || allowed[ed.Type] {
				add(ed.Source)
			}
		}
	}
	return out
}

// Subgraph extracts the induced subgraph on the given node ids, optionally
// widened by one hop of neighbors. Edges are kept only when both endpoints
// land in the final node set and the type is allowed.
func (e *Engine) Subgraph(nodeIDs []string, opts SubgraphOptions) *graph.Graph {
	allowed := typeSet(opts.EdgeTypes)

	include := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		if _, ok := e.nodeByID[id]; ok {
			include[id] = true
		}
	}

	if opts.IncludeNeighbors {
		for _, id := range nodeIDs {
			for _, n := range e.Neighbors(id, NeighborOptions{EdgeTypes: opts.EdgeTypes}) {
				include[n.ID] = true
			}
		}
	}

	sub := &graph.Graph{Metadata: e.g.Metadata}
	for _, n := range e.g.Nodes {
		if include[n.ID] {
			sub.Nodes = append(sub.Nodes, n)
		}
	}
	for _, ed := range e.g.Edges {
		if allowed != nil && !allowed[ed.Type] {
			continue
		}
		if include[ed.Source] && include[ed.Target] {
			sub.Edges = append(sub.Edges, ed)
		}
	}
	sub.Metadata.NodeCount = len(sub.Nodes)
	sub.Metadata.EdgeCount = len(sub.Edges)
	return sub
}

func typeSet(types []graph.EdgeType) map[graph.EdgeType]bool {
	if len(types) == 0 {
		return nil
	}
	set := make(map[graph.EdgeType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}
