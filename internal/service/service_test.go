package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"devgraph/internal/config"
	"devgraph/internal/extract"
	"devgraph/internal/graph"
	"devgraph/internal/logging"
	"devgraph/internal/query"
)

type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeExtractor) ExtractAll(ctx context.Context, workspacePath string) (*extract.Data, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &extract.Data{
		FileMetadata: map[string]extract.FileMetadata{
			"src/main.ts": {Content: `import "./util"`},
			"src/util.ts": {Content: "export {}"},
		},
		ModelContext: map[string][]string{},
	}, nil
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.WorkspaceRoot = "/ws"
	cfg.Cache.MaxEntries = 2
	return cfg
}

func newTestService(t *testing.T, ext *fakeExtractor) *Service {
	t.Helper()
	return New(testConfig(), ext, nil, logging.Nop())
}

func TestCacheHitCallsExtractorOnce(t *testing.T) {
	ctx := context.Background()
	ext := &fakeExtractor{}
	svc := newTestService(t, ext)

	g1, err := svc.GetModuleGraph(ctx, "/ws", Options{})
	if err != nil {
		t.Fatalf("GetModuleGraph: %v", err)
	}
	g2, err := svc.GetModuleGraph(ctx, "/ws", Options{})
	if err != nil {
		t.Fatalf("GetModuleGraph: %v", err)
	}

	if ext.callCount() != 1 {
		t.Errorf("extractor called %d times, want 1", ext.callCount())
	}
	if g1 != g2 {
		t.Error("second call should return the cached snapshot")
	}

	stats := svc.GetCacheStats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit / 1 miss", stats)
	}
}

func TestForceRefreshRebuilds(t *testing.T) {
	ctx := context.Background()
	ext := &fakeExtractor{}
	svc := newTestService(t, ext)

	if _, err := svc.GetModuleGraph(ctx, "/ws", Options{}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetModuleGraph(ctx, "/ws", Options{ForceRefresh: true}); err != nil {
		t.Fatal(err)
	}

	if ext.callCount() != 2 {
		t.Errorf("extractor called %d times, want 2", ext.callCount())
	}

	perf := svc.GetPerformanceMetrics()
	if ws := perf["/ws"]; ws.Version != 2 || ws.Builds != 2 {
		t.Errorf("workspace stats = %+v, want version/builds 2", ws)
	}
}

func TestIncrementalPerformsFullRebuild(t *testing.T) {
	ctx := context.Background()
	ext := &fakeExtractor{}
	svc := newTestService(t, ext)

	g, err := svc.GetModuleGraph(ctx, "/ws", Options{ForceRefresh: true, Incremental: true})
	if err != nil {
		t.Fatalf("GetModuleGraph: %v", err)
	}
	if len(g.Nodes) != 2 {
		t.Errorf("incremental build produced %d nodes, want a full 2-node build", len(g.Nodes))
	}
}

func TestExtractorErrorPropagates(t *testing.T) {
	ctx := context.Background()
	wantErr := errors.New("activity store unavailable")
	svc := newTestService(t, &fakeExtractor{err: wantErr})

	if _, err := svc.GetModuleGraph(ctx, "/ws", Options{}); !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v unchanged", err, wantErr)
	}
}

func TestLRUEviction(t *testing.T) {
	ctx := context.Background()
	ext := &fakeExtractor{}
	svc := newTestService(t, ext) // MaxEntries 2

	for _, ws := range []string{"/ws-1", "/ws-2", "/ws-3"} {
		if _, err := svc.GetModuleGraph(ctx, ws, Options{}); err != nil {
			t.Fatalf("build %s: %v", ws, err)
		}
	}

	stats := svc.GetCacheStats()
	if stats.Evictions != 1 || stats.Entries != 2 {
		t.Fatalf("stats = %+v, want 1 eviction, 2 entries", stats)
	}

	// /ws-1 was least recently used, so it should be the one gone.
	before := ext.callCount()
	if _, err := svc.GetModuleGraph(ctx, "/ws-2", Options{}); err != nil {
		t.Fatal(err)
	}
	if ext.callCount() != before {
		t.Error("/ws-2 should still be cached")
	}
	if _, err := svc.GetModuleGraph(ctx, "/ws-1", Options{}); err != nil {
		t.Fatal(err)
	}
	if ext.callCount() != before+1 {
		t.Error("/ws-1 should have been evicted and rebuilt")
	}
}

func TestLRUAccessPromotes(t *testing.T) {
	ctx := context.Background()
	ext := &fakeExtractor{}
	svc := newTestService(t, ext)

	if _, err := svc.GetModuleGraph(ctx, "/ws-1", Options{}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetModuleGraph(ctx, "/ws-2", Options{}); err != nil {
		t.Fatal(err)
	}
	// Touch /ws-1 so /ws-2 becomes least recently used.
	if _, err := svc.GetModuleGraph(ctx, "/ws-1", Options{}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetModuleGraph(ctx, "/ws-3", Options{}); err != nil {
		t.Fatal(err)
	}

	before := ext.callCount()
	if _, err := svc.GetModuleGraph(ctx, "/ws-1", Options{}); err != nil {
		t.Fatal(err)
	}
	if ext.callCount() != before {
		t.Error("recently accessed /ws-1 should have survived the eviction")
	}
}

func TestGlobalWorkspaceUsesSentinelKey(t *testing.T) {
	ctx := context.Background()
	ext := &fakeExtractor{}
	svc := newTestService(t, ext)

	if _, err := svc.GetModuleGraph(ctx, "", Options{}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetModuleGraph(ctx, "", Options{}); err != nil {
		t.Fatal(err)
	}
	if ext.callCount() != 1 {
		t.Errorf("global requests should share one cache entry, extractor called %d times", ext.callCount())
	}
	if _, ok := svc.cache[globalKey]; !ok {
		t.Error("global entry should sit under the sentinel key")
	}
}

func TestAdaptiveTTL(t *testing.T) {
	svc := newTestService(t, &fakeExtractor{})
	base := time.Duration(svc.cfg.Cache.BaseTtlSeconds) * time.Second
	small := svc.cfg.Cache.SmallGraphSize
	large := svc.cfg.Cache.LargeGraphSize

	if got := svc.adaptiveTTL(small - 1); got != base {
		t.Errorf("small graph TTL = %v, want %v", got, base)
	}
	if got := svc.adaptiveTTL(large + 1); got != 2*base {
		t.Errorf("large graph TTL = %v, want %v", got, 2*base)
	}
	mid := svc.adaptiveTTL((small + large) / 2)
	if mid <= base || mid >= 2*base {
		t.Errorf("mid-size TTL = %v, want strictly between %v and %v", mid, base, 2*base)
	}
}

func TestFilteredViews(t *testing.T) {
	ctx := context.Background()

	// Import resolution probes the filesystem, so back the workspace with
	// real files.
	ws := t.TempDir()
	if err := os.MkdirAll(filepath.Join(ws, "src"), 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range map[string]string{
		"src/main.ts": `import "./util"`,
		"src/util.ts": "export {}",
	} {
		if err := os.WriteFile(filepath.Join(ws, filepath.FromSlash(name)), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	ext := &fakeExtractor{}
	svc := newTestService(t, ext)

	nodes, err := svc.GetNodes(ctx, ws, query.NodeFilter{Language: "typescript"})
	if err != nil {
		t.Fatalf("GetNodes: %v", err)
	}
	if len(nodes) != 2 {
		t.Errorf("typescript nodes = %d, want 2", len(nodes))
	}

	edges, err := svc.GetEdges(ctx, ws, query.EdgeFilter{Type: graph.EdgeImport})
	if err != nil {
		t.Fatalf("GetEdges: %v", err)
	}
	if len(edges) != 1 {
		t.Errorf("import edges = %d, want 1 (main -> util)", len(edges))
	}

	hierarchy, err := svc.GetHierarchy(ctx, ws)
	if err != nil {
		t.Fatalf("GetHierarchy: %v", err)
	}
	if hierarchy == nil {
		t.Fatal("hierarchy should not be nil")
	}

	events, err := svc.GetEvents(ctx, ws, "")
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("events = %+v, want none for plain snapshots", events)
	}

	// All views share the one cached snapshot.
	if ext.callCount() != 1 {
		t.Errorf("extractor called %d times across views, want 1", ext.callCount())
	}
}

func TestClearCache(t *testing.T) {
	ctx := context.Background()
	ext := &fakeExtractor{}
	svc := newTestService(t, ext)

	if _, err := svc.GetModuleGraph(ctx, "/ws-1", Options{}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetModuleGraph(ctx, "/ws-2", Options{}); err != nil {
		t.Fatal(err)
	}

	svc.ClearCache("/ws-1")
	if svc.GetCacheStats().Entries != 1 {
		t.Error("clearing one workspace should leave the other cached")
	}

	svc.ClearCache("")
	if svc.GetCacheStats().Entries != 0 {
		t.Error("clearing all should empty the cache")
	}
}

func TestGetDiffWithoutBaseline(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, &fakeExtractor{})

	if _, err := svc.GetDiff(ctx, "/ws", nil, nil); err == nil {
		t.Error("expected an error when no archive is configured")
	}
}
