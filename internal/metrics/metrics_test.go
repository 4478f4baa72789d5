package metrics

import (
	"testing"
	"time"

	"devgraph/internal/config"
	"devgraph/internal/graph"
	"devgraph/internal/logging"
)

func allMetricsConfig() config.MetricsConfig {
	return config.MetricsConfig{
		EnableCentrality:     true,
		EnableBetweenness:    true,
		EnableCloseness:      true,
		EnableClustering:     true,
		BetweennessSampleCap: 100,
	}
}

func testGraph(nodeIDs []string, edges [][2]string) *graph.Graph {
	g := &graph.Graph{
		Metadata: graph.Metadata{BuiltAt: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, id := range nodeIDs {
		g.Nodes = append(g.Nodes, &graph.Node{ID: id, Path: id})
	}
	for i, e := range edges {
		g.Edges = append(g.Edges, &graph.Edge{
			ID:     string(rune('a' + i)),
			Type:   graph.EdgeImport,
			Source: e[0],
			Target: e[1],
			Weight: 1,
		})
	}
	g.Metadata.NodeCount = len(g.Nodes)
	g.Metadata.EdgeCount = len(g.Edges)
	return g
}

func TestEmptyGraph(t *testing.T) {
	c := NewCalculator(allMetricsConfig(), config.PerformanceConfig{}, logging.Nop())
	r := c.Calculate(testGraph(nil, nil), false)

	if r.Basic.Density != 0 {
		t.Errorf("density = %f, want 0", r.Basic.Density)
	}
	if r.Basic.NodeCount != 0 || r.Basic.AverageDegree != 0 {
		t.Errorf("basic = %+v", r.Basic)
	}
	if r.Structure.ComponentCount != 0 || r.Structure.HasCycle {
		t.Errorf("structure = %+v", r.Structure)
	}
}

func TestSingleNodeNoDivideByZero(t *testing.T) {
	c := NewCalculator(allMetricsConfig(), config.PerformanceConfig{}, logging.Nop())
	r := c.Calculate(testGraph([]string{"a"}, nil), false)

	if r.Basic.Density != 0 {
		t.Errorf("density = %f, want 0", r.Basic.Density)
	}
	if r.Degree["a"].Normalized != 0 {
		t.Errorf("normalized degree = %f, want 0", r.Degree["a"].Normalized)
	}
	if r.Closeness["a"] != 0 {
		t.Errorf("closeness = %f, want 0", r.Closeness["a"])
	}
	if r.Structure.ComponentCount != 1 || r.Structure.LargestComponent != 1 {
		t.Errorf("structure = %+v", r.Structure)
	}
}

func TestDegreeCentrality(t *testing.T) {
	// b has in=1 (a->b) and out=1 (b->c).
	g := testGraph([]string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}})
	c := NewCalculator(allMetricsConfig(), config.PerformanceConfig{}, logging.Nop())
	r := c.Calculate(g, false)

	d := r.Degree["b"]
	if d.In != 1 || d.Out != 1 || d.Total != 2 {
		t.Errorf("degree b = %+v", d)
	}
	if d.Normalized != 1.0 { // 2 / (3-1)
		t.Errorf("normalized = %f, want 1.0", d.Normalized)
	}
}

func TestDensity(t *testing.T) {
	g := testGraph([]string{"a", "b", "c"}, [][2]string{{"a", "b"}})
	c := NewCalculator(allMetricsConfig(), config.PerformanceConfig{}, logging.Nop())
	r := c.Calculate(g, false)

	want := 1.0 / 3.0 // 1 edge / (3*2/2)
	if diff := r.Basic.Density - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("density = %f, want %f", r.Basic.Density, want)
	}
}

func TestBetweennessMiddleOfChain(t *testing.T) {
	g := testGraph([]string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}})
	c := NewCalculator(allMetricsConfig(), config.PerformanceConfig{}, logging.Nop())
	r := c.Calculate(g, false)

	if r.Betweenness["b"] <= r.Betweenness["a"] || r.Betweenness["b"] <= r.Betweenness["c"] {
		t.Errorf("middle node should score highest: %+v", r.Betweenness)
	}
}

func TestCloseness(t *testing.T) {
	// Chain a-b-c (undirected view). b reaches both at distance 1: 2/2 = 1.
	// a reaches b at 1 and c at 2: 2/3.
	g := testGraph([]string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}})
	c := NewCalculator(allMetricsConfig(), config.PerformanceConfig{}, logging.Nop())
	r := c.Calculate(g, false)

	if r.Closeness["b"] != 1.0 {
		t.Errorf("closeness b = %f, want 1.0", r.Closeness["b"])
	}
	want := 2.0 / 3.0
	if diff := r.Closeness["a"] - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("closeness a = %f, want %f", r.Closeness["a"], want)
	}
}

func TestClusteringTriangle(t *testing.T) {
	g := testGraph([]string{"a", "b", "c"},
		[][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}})
	c := NewCalculator(allMetricsConfig(), config.PerformanceConfig{}, logging.Nop())
	r := c.Calculate(g, false)

	for _, id := range []string{"a", "b", "c"} {
		if r.Clustering.PerNode[id] != 1.0 {
			t.Errorf("clustering %s = %f, want 1.0", id, r.Clustering.PerNode[id])
		}
	}
	if r.Clustering.Average != 1.0 {
		t.Errorf("average clustering = %f, want 1.0", r.Clustering.Average)
	}
}

func TestCycleDetection(t *testing.T) {
	cyclic := testGraph([]string{"a", "b", "c"},
		[][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}})
	acyclic := testGraph([]string{"a", "b", "c"},
		[][2]string{{"a", "b"}, {"a", "c"}})

	c := NewCalculator(allMetricsConfig(), config.PerformanceConfig{}, logging.Nop())
	if !c.Calculate(cyclic, false).Structure.HasCycle {
		t.Error("directed triangle should have a cycle")
	}
	if c.Calculate(acyclic, false).Structure.HasCycle {
		t.Error("fan-out should be acyclic")
	}
}

func TestComponents(t *testing.T) {
	g := testGraph([]string{"a", "b", "c", "d", "e"},
		[][2]string{{"a", "b"}, {"b", "c"}, {"d", "e"}})
	c := NewCalculator(allMetricsConfig(), config.PerformanceConfig{}, logging.Nop())
	r := c.Calculate(g, false)

	if r.Structure.ComponentCount != 2 {
		t.Errorf("components = %d, want 2", r.Structure.ComponentCount)
	}
	if r.Structure.LargestComponent != 3 {
		t.Errorf("largest = %d, want 3", r.Structure.LargestComponent)
	}
}

func TestSyntheticEndpointsExcludedFromTraversal(t *testing.T) {
	g := testGraph([]string{"a"}, nil)
	g.Edges = append(g.Edges, &graph.Edge{
		ID: "e1", Type: graph.EdgeToolInteraction, Source: "a", Target: "tool:go", Weight: 1,
	})

	c := NewCalculator(allMetricsConfig(), config.PerformanceConfig{}, logging.Nop())
	r := c.Calculate(g, false)

	if r.Basic.EdgeCount != 1 {
		t.Errorf("edge still counted in basics, got %d", r.Basic.EdgeCount)
	}
	if r.Degree["a"].Out != 0 {
		t.Errorf("synthetic endpoint must not contribute degree, got %+v", r.Degree["a"])
	}
}

func TestMemoization(t *testing.T) {
	g := testGraph([]string{"a", "b"}, [][2]string{{"a", "b"}})
	c := NewCalculator(allMetricsConfig(), config.PerformanceConfig{}, logging.Nop())

	first := c.Calculate(g, false)
	second := c.Calculate(g, false)
	if first != second {
		t.Error("same snapshot should return the memoized result")
	}

	forced := c.Calculate(g, true)
	if forced == first {
		t.Error("forced recalculation should produce a fresh result")
	}

	c.ClearCache()
	cleared := c.Calculate(g, false)
	if cleared == forced {
		t.Error("cache clear should drop the memo")
	}
}

func TestTogglesDisableGroups(t *testing.T) {
	g := testGraph([]string{"a", "b"}, [][2]string{{"a", "b"}})
	c := NewCalculator(config.MetricsConfig{}, config.PerformanceConfig{}, logging.Nop())
	r := c.Calculate(g, false)

	if r.Degree != nil || r.Betweenness != nil || r.Closeness != nil || r.Clustering != nil {
		t.Errorf("disabled groups should be nil: %+v", r)
	}
	if r.Basic.NodeCount != 2 {
		t.Error("basics always computed")
	}
}

func TestLargeGraphSkipsExpensiveMetrics(t *testing.T) {
	g := testGraph([]string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}})
	c := NewCalculator(allMetricsConfig(), config.PerformanceConfig{LargeGraphNodes: 2}, logging.Nop())
	r := c.Calculate(g, false)

	if r.Betweenness != nil || r.Closeness != nil || r.Clustering != nil {
		t.Errorf("graph over the node threshold should skip quadratic measures: %+v", r)
	}
	if r.Degree == nil || r.Basic.NodeCount != 3 {
		t.Errorf("degree and basics still computed: %+v", r)
	}

	// Edge threshold gates independently.
	c = NewCalculator(allMetricsConfig(), config.PerformanceConfig{LargeGraphEdges: 1}, logging.Nop())
	if r := c.Calculate(g, false); r.Closeness != nil {
		t.Errorf("graph over the edge threshold should skip closeness: %+v", r)
	}

	// Below both thresholds everything runs.
	c = NewCalculator(allMetricsConfig(), config.PerformanceConfig{LargeGraphNodes: 100, LargeGraphEdges: 100}, logging.Nop())
	if r := c.Calculate(g, false); r.Betweenness == nil || r.Closeness == nil || r.Clustering == nil {
		t.Errorf("small graph should compute all enabled measures: %+v", r)
	}
}
