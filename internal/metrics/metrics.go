// Package metrics computes centrality, clustering, and structural measures
// over one graph snapshot.
//
// Betweenness is deliberately approximate: paths are only enumerated between
// a capped sample of nodes (default 100), trading accuracy for bounded cost on
// large graphs. The cap is part of the engine's contract and is not an exact
// Brandes computation.
package metrics

import (
	"fmt"
	"sort"
	"sync"

	"devgraph/internal/config"
	"devgraph/internal/graph"
	"devgraph/internal/logging"
)

// BasicMetrics holds graph-level counts.
type BasicMetrics struct {
	NodeCount     int                    `json:"nodeCount"`
	EdgeCount     int                    `json:"edgeCount"`
	EdgesByType   map[graph.EdgeType]int `json:"edgesByType"`
	AverageDegree float64                `json:"averageDegree"`
	Density       float64                `json:"density"`
}

// DegreeCentrality holds per-node degree measures.
type DegreeCentrality struct {
	In         int     `json:"in"`
	Out        int     `json:"out"`
	Total      int     `json:"total"`
	Normalized float64 `json:"normalized"` // total / (n-1)
}

// ClusteringMetrics holds per-node coefficients and the graph average.
type ClusteringMetrics struct {
	PerNode map[string]float64 `json:"perNode"`
	Average float64            `json:"average"`
}

// StructureMetrics holds cycle and component structure.
type StructureMetrics struct {
	HasCycle         bool `json:"hasCycle"`
	ComponentCount   int  `json:"componentCount"`
	LargestComponent int  `json:"largestComponent"`
}

// Result is one full metrics bundle for a snapshot.
type Result struct {
	Basic       BasicMetrics                `json:"basic"`
	Degree      map[string]DegreeCentrality `json:"degree,omitempty"`
	Betweenness map[string]float64          `json:"betweenness,omitempty"`
	Closeness   map[string]float64          `json:"closeness,omitempty"`
	Clustering  *ClusteringMetrics          `json:"clustering,omitempty"`
	Structure   StructureMetrics            `json:"structure"`
}

// Calculator computes and memoizes metrics per snapshot identity.
type Calculator struct {
	cfg    config.MetricsConfig
	perf   config.PerformanceConfig
	logger *logging.Logger

	mu   sync.Mutex
	memo map[string]*Result
}

// NewCalculator creates a metrics calculator. The performance thresholds cap
// the level of detail: graphs past them skip the quadratic measures.
func NewCalculator(cfg config.MetricsConfig, perf config.PerformanceConfig, logger *logging.Logger) *Calculator {
	return &Calculator{
		cfg:    cfg,
		perf:   perf,
		logger: logger.Named("metrics"),
		memo:   make(map[string]*Result),
	}
}

// snapshotKey identifies a snapshot by its counts and build timestamp.
func snapshotKey(g *graph.Graph) string {
	return fmt.Sprintf("%d:%d:%d", len(g.Nodes), len(g.Edges), g.Metadata.BuiltAt.UnixNano())
}

// ClearCache drops all memoized results.
func (c *Calculator) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memo = make(map[string]*Result)
}

// Calculate returns the metrics bundle for g, memoized until ClearCache or a
// forced recalculation. Never errors; an empty graph yields zero values.
func (c *Calculator) Calculate(g *graph.Graph, force bool) *Result {
	key := snapshotKey(g)

	c.mu.Lock()
	if !force {
		if r, ok := c.memo[key]; ok {
			c.mu.Unlock()
			return r
		}
	}
	c.mu.Unlock()

	r := c.compute(g)

	c.mu.Lock()
	c.memo[key] = r
	c.mu.Unlock()

	return r
}

// adjacency holds the index structures every measure works over. Edges whose
// endpoint is not a tracked node (synthetic tool ids) are excluded from
// traversals but still counted in the basics.
type adjacency struct {
	ids        []string // sorted for determinism
	out        map[string][]string
	in         map[string][]string
	undirected map[string]map[string]bool
}

func buildAdjacency(g *graph.Graph) *adjacency {
	a := &adjacency{
		out:        make(map[string][]string),
		in:         make(map[string][]string),
		undirected: make(map[string]map[string]bool),
	}

	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n.ID] = true
		a.ids = append(a.ids, n.ID)
		a.undirected[n.ID] = make(map[string]bool)
	}
	sort.Strings(a.ids)

	for _, e := range g.Edges {
		if !known[e.Source] || !known[e.Target] || e.Source == e.Target {
			continue
		}
		a.out[e.Source] = append(a.out[e.Source], e.Target)
		a.in[e.Target] = append(a.in[e.Target], e.Source)
		a.undirected[e.Source][e.Target] = true
		a.undirected[e.Target][e.Source] = true
	}

	return a
}

func (c *Calculator) compute(g *graph.Graph) *Result {
	adj := buildAdjacency(g)
	n := len(adj.ids)

	r := &Result{
		Basic:     basicMetrics(g, adj),
		Structure: structureMetrics(adj),
	}

	if c.cfg.EnableCentrality {
		r.Degree = degreeCentrality(adj)
	}

	// Past the performance thresholds only the linear measures run.
	large := (c.perf.LargeGraphNodes > 0 && n > c.perf.LargeGraphNodes) ||
		(c.perf.LargeGraphEdges > 0 && len(g.Edges) > c.perf.LargeGraphEdges)
	if large {
		c.logger.Info("large graph, skipping expensive metrics", map[string]interface{}{
			"nodes": n,
			"edges": len(g.Edges),
		})
	}

	if c.cfg.EnableBetweenness && !large {
		limit := c.cfg.BetweennessSampleCap
		if limit <= 0 {
			limit = 100
		}
		r.Betweenness = approxBetweenness(adj, limit)
	}
	if c.cfg.EnableCloseness && !large {
		r.Closeness = closeness(adj)
	}
	if c.cfg.EnableClustering && !large {
		r.Clustering = clustering(adj)
	}

	c.logger.Debug("metrics computed", map[string]interface{}{
		"nodes": n,
		"edges": len(g.Edges),
	})

	return r
}

func basicMetrics(g *graph.Graph, adj *adjacency) BasicMetrics {
	n := len(adj.ids)

	byType := make(map[graph.EdgeType]int)
	for _, e := range g.Edges {
		byType[e.Type]++
	}

	b := BasicMetrics{
		NodeCount:   n,
		EdgeCount:   len(g.Edges),
		EdgesByType: byType,
	}

	if n > 1 {
		b.AverageDegree = float64(2*len(g.Edges)) / float64(n)
		b.Density = float64(len(g.Edges)) / (float64(n) * float64(n-1) / 2)
	}

	return b
}

func degreeCentrality(adj *adjacency) map[string]DegreeCentrality {
	n := len(adj.ids)
	out := make(map[string]DegreeCentrality, n)

	for _, id := range adj.ids {
		d := DegreeCentrality{
			In:  len(adj.in[id]),
			Out: len(adj.out[id]),
		}
		d.Total = d.In + d.Out
		if n > 1 {
			d.Normalized = float64(d.Total) / float64(n-1)
		}
		out[id] = d
	}

	return out
}

// approxBetweenness samples up to limit nodes and counts, per node, how many
// sampled shortest paths pass through it.
func approxBetweenness(adj *adjacency, limit int) map[string]float64 {
	scores := make(map[string]float64, len(adj.ids))
	for _, id := range adj.ids {
		scores[id] = 0
	}

	sample := adj.ids
	if len(sample) > limit {
		sample = sample[:limit]
	}

	for _, source := range sample {
		parents := bfsParents(adj.out, source)
		for _, target := range sample {
			if target == source {
				continue
			}
			// Walk one shortest path back from target, crediting the
			// intermediate nodes.
			cur, ok := parents[target]
			for ok && cur != source {
				scores[cur]++
				cur, ok = parents[cur]
			}
		}
	}

	return scores
}

// bfsParents returns a parent pointer per reached node over the given
// directed adjacency.
func bfsParents(out map[string][]string, source string) map[string]string {
	parents := make(map[string]string)
	visited := map[string]bool{source: true}
	queue := []string{source}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range out[cur] {
			if visited[next] {
				continue
			}
			visited[next] = true
			parents[next] = cur
			queue = append(queue, next)
		}
	}

	return parents
}

// closeness computes (reachable count) / (sum of distances) per node over the
// undirected adjacency. Isolated nodes score 0.
func closeness(adj *adjacency) map[string]float64 {
	scores := make(map[string]float64, len(adj.ids))

	for _, id := range adj.ids {
		dist := map[string]int{id: 0}
		queue := []string{id}
		sum, reached := 0, 0

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for next := range adj.undirected[cur] {
				if _, seen := dist[next]; seen {
					continue
				}
				dist[next] = dist[cur] + 1
				sum += dist[next]
				reached++
				queue = append(queue, next)
			}
		}

		if sum > 0 {
			scores[id] = float64(reached) / float64(sum)
		} else {
			scores[id] = 0
		}
	}

	return scores
}

func clustering(adj *adjacency) *ClusteringMetrics {
	perNode := make(map[string]float64, len(adj.ids))
	total, counted := 0.0, 0

	for _, id := range adj.ids {
		neighbors := make([]string, 0, len(adj.undirected[id]))
		for n := range adj.undirected[id] {
			neighbors = append(neighbors, n)
		}

		k := len(neighbors)
		if k < 2 {
			perNode[id] = 0
			continue
		}

		links := 0
		for i := 0; i < k; i++ {
			for j := i + 1; j < k; j++ {
				if adj.undirected[neighbors[i]][neighbors[j]] {
					links++
				}
			}
		}

		coeff := float64(links) / (float64(k) * float64(k-1) / 2)
		perNode[id] = coeff
		total += coeff
		counted++
	}

	avg := 0.0
	if counted > 0 {
		avg = total / float64(counted)
	}

	return &ClusteringMetrics{PerNode: perNode, Average: avg}
}

func structureMetrics(adj *adjacency) StructureMetrics {
	s := StructureMetrics{
		HasCycle: hasCycle(adj),
	}
	s.ComponentCount, s.LargestComponent = components(adj)
	return s
}

// hasCycle runs DFS with a recursion stack over the directed adjacency.
func hasCycle(adj *adjacency) bool {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(adj.ids))

	var visit func(id string) bool
	visit = func(id string) bool {
		state[id] = inStack
		for _, next := range adj.out[id] {
			switch state[next] {
			case inStack:
				return true
			case unvisited:
				if visit(next) {
					return true
				}
			}
		}
		state[id] = done
		return false
	}

	for _, id := range adj.ids {
		if state[id] == unvisited && visit(id) {
			return true
		}
	}
	return false
}

// components counts connected components over the undirected adjacency and
// returns the largest component's size.
func components(adj *adjacency) (int, int) {
	visited := make(map[string]bool, len(adj.ids))
	count, largest := 0, 0

	for _, id := range adj.ids {
		if visited[id] {
			continue
		}
		count++

		size := 0
		queue := []string{id}
		visited[id] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			size++
			for next := range adj.undirected[cur] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}

		if size > largest {
			largest = size
		}
	}

	return count, largest
}
