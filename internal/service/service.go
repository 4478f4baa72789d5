// Package service orchestrates the module graph engine: extraction, graph
// building, the workspace-keyed snapshot cache, and the analysis surface
// (metrics, communities, diffs, queries) the routing layer calls into.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"devgraph/internal/archive"
	"devgraph/internal/community"
	"devgraph/internal/config"
	"devgraph/internal/detect"
	"devgraph/internal/diff"
	"devgraph/internal/edges"
	"devgraph/internal/extract"
	"devgraph/internal/graph"
	"devgraph/internal/logging"
	"devgraph/internal/metrics"
	"devgraph/internal/query"
	"devgraph/internal/resolve"
)

// globalKey is the cache key for requests that name no workspace.
const globalKey = "__global__"

// Options controls one getModuleGraph request.
type Options struct {
	// ForceRefresh bypasses the cache and rebuilds.
	ForceRefresh bool
	// Incremental is accepted for forward compatibility but currently always
	// performs a full rebuild.
	Incremental bool
}

// CacheStats reports cache effectiveness counters.
type CacheStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int   `json:"entries"`
	MaxSize   int   `json:"maxSize"`
}

// WorkspaceStats tracks build performance for one workspace.
type WorkspaceStats struct {
	Version    int           `json:"version"`
	Builds     int           `json:"builds"`
	MinBuild   time.Duration `json:"minBuild"`
	MaxBuild   time.Duration `json:"maxBuild"`
	AvgBuild   time.Duration `json:"avgBuild"`
	totalBuild time.Duration
}

// Query bundles the filters for one executeQuery call.
type Query struct {
	Nodes *query.NodeFilter `json:"nodes,omitempty"`
	Edges *query.EdgeFilter `json:"edges,omitempty"`
}

// QueryResult holds the matches for one executeQuery call.
type QueryResult struct {
	Nodes []*graph.Node `json:"nodes,omitempty"`
	Edges []*graph.Edge `json:"edges,omitempty"`
}

type cacheEntry struct {
	graph    *graph.Graph
	engine   *query.Engine
	cachedAt time.Time
}

// Service is the module graph service. All cache state sits behind one mutex;
// a build holds the lock, so a long extraction blocks concurrent requests
// rather than racing them.
type Service struct {
	cfg       *config.Config
	extractor extract.Extractor
	imports   *detect.Detector
	metrics   *metrics.Calculator
	community *community.Detector
	differ    *diff.Differ
	archive   *archive.Archive // nil when archiving is disabled
	logger    *logging.Logger

	mu        sync.Mutex
	cache     map[string]*cacheEntry
	order     []string // LRU order, least recently used first
	hits      int64
	misses    int64
	evictions int64
	stats     map[string]*WorkspaceStats
}

// New builds a service around an extractor. arch may be nil.
func New(cfg *config.Config, extractor extract.Extractor, arch *archive.Archive, logger *logging.Logger) *Service {
	return &Service{
		cfg:       cfg,
		extractor: extractor,
		imports:   detect.NewDetector(cfg.Imports, logger),
		metrics:   metrics.NewCalculator(cfg.Metrics, cfg.Performance, logger),
		community: community.NewDetector(cfg.Community, logger),
		differ:    diff.NewDiffer(logger),
		archive:   arch,
		logger:    logger.Named("service"),
		cache:     make(map[string]*cacheEntry),
		stats:     make(map[string]*WorkspaceStats),
	}
}

func cacheKey(workspace string) string {
	if workspace == "" {
		return globalKey
	}
	return workspace
}

// adaptiveTTL scales the base TTL with snapshot size: small graphs get the
// base, large graphs 2x, with linear interpolation between the thresholds.
func (s *Service) adaptiveTTL(size int) time.Duration {
	base := time.Duration(s.cfg.Cache.BaseTtlSeconds) * time.Second
	small := s.cfg.Cache.SmallGraphSize
	large := s.cfg.Cache.LargeGraphSize
	switch {
	case large <= small || size <= small:
		return base
	case size >= large:
		return 2 * base
	default:
		frac := float64(size-small) / float64(large-small)
		return base + time.Duration(frac*float64(base))
	}
}

// GetModuleGraph returns the snapshot for a workspace, rebuilding when the
// cache misses or the caller forces a refresh. Extractor errors propagate
// unchanged; the service never substitutes a partial graph.
func (s *Service) GetModuleGraph(ctx context.Context, workspace string, opts Options) (*graph.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, g, err := s.getLocked(ctx, workspace, opts)
	return g, err
}

func (s *Service) getLocked(ctx context.Context, workspace string, opts Options) (*cacheEntry, *graph.Graph, error) {
	key := cacheKey(workspace)

	if !opts.ForceRefresh {
		if entry, ok := s.cache[key]; ok {
			if time.Since(entry.cachedAt) < s.adaptiveTTL(entry.graph.Size()) {
				s.hits++
				s.touch(key)
				return entry, entry.graph, nil
			}
		}
	}
	s.misses++

	if opts.Incremental {
		// Incremental updates are a configuration surface only; the build is
		// always full. Documented limitation.
		s.logger.Debug("Incremental update requested, performing full rebuild", map[string]interface{}{
			"workspace": workspace,
		})
	}

	data, err := s.extractor.ExtractAll(ctx, workspace)
	if err != nil {
		return nil, nil, err
	}

	root := workspace
	if root == "" {
		root = s.cfg.WorkspaceRoot
	}
	resolver := resolve.NewResolver(root, s.cfg.Imports, s.logger)
	detector := edges.NewDetector(s.cfg.Edges, root, s.imports, resolver, s.logger)
	builder := graph.NewBuilder(detector, s.logger)

	start := time.Now()
	g := builder.Build(data, workspace)
	duration := time.Since(start)

	s.recordBuild(key, duration)

	if prev, ok := s.cache[key]; ok && s.archive != nil {
		if _, err := s.archive.Store(prev.graph); err != nil {
			s.logger.Warn("Failed to archive previous snapshot", map[string]interface{}{
				"workspace": workspace,
				"error":     err.Error(),
			})
		}
	}

	entry := &cacheEntry{
		graph:    g,
		engine:   query.NewEngine(g, s.logger),
		cachedAt: time.Now(),
	}
	s.insert(key, entry)

	s.logger.Info("Built module graph", map[string]interface{}{
		"workspace": workspace,
		"nodes":     len(g.Nodes),
		"edges":     len(g.Edges),
		"duration":  duration.String(),
		"version":   s.stats[key].Version,
	})

	return entry, g, nil
}

func (s *Service) recordBuild(key string, d time.Duration) {
	ws := s.stats[key]
	if ws == nil {
		ws = &WorkspaceStats{}
		s.stats[key] = ws
	}
	ws.Version++
	ws.Builds++
	ws.totalBuild += d
	if ws.Builds == 1 || d < ws.MinBuild {
		ws.MinBuild = d
	}
	if d > ws.MaxBuild {
		ws.MaxBuild = d
	}
	ws.AvgBuild = ws.totalBuild / time.Duration(ws.Builds)
}

// insert adds or replaces a cache entry, evicting the least recently used
// entry when the cache is full.
func (s *Service) insert(key string, entry *cacheEntry) {
	if _, ok := s.cache[key]; !ok && len(s.cache) >= s.cfg.Cache.MaxEntries {
		victim := s.order[0]
		s.order = s.order[1:]
		delete(s.cache, victim)
		s.evictions++
		s.logger.Debug("Evicted cached snapshot", map[string]interface{}{"workspace": victim})
	}
	s.cache[key] = entry
	s.touch(key)
}

// touch moves a key to the most-recently-used end of the LRU order.
func (s *Service) touch(key string) {
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.order = append(s.order, key)
}

// GetNodes returns the current snapshot's nodes after applying the filter.
func (s *Service) GetNodes(ctx context.Context, workspace string, filter query.NodeFilter) ([]*graph.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, _, err := s.getLocked(ctx, workspace, Options{})
	if err != nil {
		return nil, err
	}
	return entry.engine.FindNodes(filter)
}

// GetEdges returns the current snapshot's edges after applying the filter.
func (s *Service) GetEdges(ctx context.Context, workspace string, filter query.EdgeFilter) ([]*graph.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, _, err := s.getLocked(ctx, workspace, Options{})
	if err != nil {
		return nil, err
	}
	return entry.engine.FindEdges(filter), nil
}

// GetEvents returns the snapshot's structural events, optionally restricted
// to one kind.
func (s *Service) GetEvents(ctx context.Context, workspace string, kind graph.EventKind) ([]graph.StructuralEvent, error) {
	g, err := s.GetModuleGraph(ctx, workspace, Options{})
	if err != nil {
		return nil, err
	}
	if kind == "" {
		return g.Events, nil
	}
	var out []graph.StructuralEvent
	for _, ev := range g.Events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out, nil
}

// GetHierarchy returns the snapshot's directory hierarchy view.
func (s *Service) GetHierarchy(ctx context.Context, workspace string) (*graph.DirNode, error) {
	g, err := s.GetModuleGraph(ctx, workspace, Options{})
	if err != nil {
		return nil, err
	}
	return g.Hierarchy, nil
}

// GetMetrics computes (or returns memoized) metrics for the current snapshot.
func (s *Service) GetMetrics(ctx context.Context, workspace string, force bool) (*metrics.Result, error) {
	g, err := s.GetModuleGraph(ctx, workspace, Options{})
	if err != nil {
		return nil, err
	}
	return s.metrics.Calculate(g, force), nil
}

// GetCommunities partitions the current snapshot into communities.
func (s *Service) GetCommunities(ctx context.Context, workspace string) (*community.Result, error) {
	g, err := s.GetModuleGraph(ctx, workspace, Options{})
	if err != nil {
		return nil, err
	}
	return s.community.Detect(g), nil
}

// GetDiff compares two snapshots. Nil arguments default to the most recent
// archived snapshot (older) and the current snapshot (newer).
func (s *Service) GetDiff(ctx context.Context, workspace string, older, newer *graph.Graph) (*diff.Result, error) {
	if newer == nil {
		g, err := s.GetModuleGraph(ctx, workspace, Options{})
		if err != nil {
			return nil, err
		}
		newer = g
	}
	if older == nil {
		if s.archive == nil {
			return nil, fmt.Errorf("no baseline snapshot: archiving is disabled")
		}
		g, err := s.archive.Latest()
		if err != nil {
			return nil, fmt.Errorf("failed to load baseline snapshot: %w", err)
		}
		if g == nil {
			return nil, fmt.Errorf("no baseline snapshot archived yet")
		}
		older = g
	}
	return s.differ.Diff(older, newer), nil
}

// ExecuteQuery runs node and/or edge filters against the current snapshot.
func (s *Service) ExecuteQuery(ctx context.Context, workspace string, q Query) (*QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, _, err := s.getLocked(ctx, workspace, Options{})
	if err != nil {
		return nil, err
	}

	result := &QueryResult{}
	if q.Nodes != nil {
		nodes, err := entry.engine.FindNodes(*q.Nodes)
		if err != nil {
			return nil, err
		}
		result.Nodes = nodes
	}
	if q.Edges != nil {
		result.Edges = entry.engine.FindEdges(*q.Edges)
	}
	return result, nil
}

// FindPaths enumerates bounded simple paths in the current snapshot.
func (s *Service) FindPaths(ctx context.Context, workspace, from, to string, opts query.PathOptions) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, _, err := s.getLocked(ctx, workspace, Options{})
	if err != nil {
		return nil, err
	}
	return entry.engine.FindPaths(from, to, opts), nil
}

// Neighbors returns a node's neighbors in the current snapshot.
func (s *Service) Neighbors(ctx context.Context, workspace, nodeID string, opts query.NeighborOptions) ([]*graph.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, _, err := s.getLocked(ctx, workspace, Options{})
	if err != nil {
		return nil, err
	}
	return entry.engine.Neighbors(nodeID, opts), nil
}

// Subgraph extracts an induced subgraph from the current snapshot.
func (s *Service) Subgraph(ctx context.Context, workspace string, nodeIDs []string, opts query.SubgraphOptions) (*graph.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, _, err := s.getLocked(ctx, workspace, Options{})
	if err != nil {
		return nil, err
	}
	return entry.engine.Subgraph(nodeIDs, opts), nil
}

// ClearCache drops one workspace's cached snapshot, or everything (including
// memoized metrics and diffs) when workspace is empty.
func (s *Service) ClearCache(workspace string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if workspace != "" {
		key := cacheKey(workspace)
		delete(s.cache, key)
		for i, k := range s.order {
			if k == key {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		return
	}

	s.cache = make(map[string]*cacheEntry)
	s.order = nil
	s.metrics.ClearCache()
	s.differ.ClearCache()
}

// GetCacheStats reports hit/miss/eviction counters and occupancy.
func (s *Service) GetCacheStats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CacheStats{
		Hits:      s.hits,
		Misses:    s.misses,
		Evictions: s.evictions,
		Entries:   len(s.cache),
		MaxSize:   s.cfg.Cache.MaxEntries,
	}
}

// GetPerformanceMetrics reports per-workspace build versions and durations.
func (s *Service) GetPerformanceMetrics() map[string]WorkspaceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]WorkspaceStats, len(s.stats))
	for k, v := range s.stats {
		out[k] = *v
	}
	return out
}
