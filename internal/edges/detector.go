// Package edges turns extracted activity data into the snapshot's typed,
// weighted, deduplicated edge set. The five detection passes are independent
// and run concurrently over the same read-only dataset; only the merge into
// the dedup map is serialized.
package edges

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"devgraph/internal/config"
	"devgraph/internal/detect"
	"devgraph/internal/extract"
	"devgraph/internal/graph"
	"devgraph/internal/logging"
	"devgraph/internal/paths"
	"devgraph/internal/resolve"
)

// Detector produces all edges for one snapshot build.
type Detector struct {
	cfg           config.EdgesConfig
	workspaceRoot string
	imports       *detect.Detector
	resolver      *resolve.Resolver
	logger        *logging.Logger
}

// NewDetector creates an edge detector.
func NewDetector(cfg config.EdgesConfig, workspaceRoot string, imports *detect.Detector, resolver *resolve.Resolver, logger *logging.Logger) *Detector {
	return &Detector{
		cfg:           cfg,
		workspaceRoot: workspaceRoot,
		imports:       imports,
		resolver:      resolver,
		logger:        logger.Named("edges"),
	}
}

// detection is one observed relationship before merging.
type detection struct {
	edgeType graph.EdgeType
	subtype  string
	source   string
	target   string
	observed time.Time
	metadata map[string]interface{}
}

// edgeSet merges detections under the at-most-one-edge-per-(source,target,type)
// invariant. Concurrent passes funnel through its lock.
type edgeSet struct {
	mu    sync.Mutex
	dedup bool
	byKey map[string]*graph.Edge
	order []*graph.Edge
}

func newEdgeSet(dedup bool) *edgeSet {
	return &edgeSet{dedup: dedup, byKey: make(map[string]*graph.Edge)}
}

func (s *edgeSet) add(d detection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &graph.Edge{
		Type:       d.edgeType,
		Subtype:    d.subtype,
		Source:     d.source,
		Target:     d.target,
		Weight:     1,
		Timestamps: []time.Time{d.observed},
		Metadata:   d.metadata,
	}

	if !s.dedup {
		s.order = append(s.order, e)
		return
	}

	key := e.Key()
	if existing, ok := s.byKey[key]; ok {
		existing.Weight++
		existing.Timestamps = append(existing.Timestamps, d.observed)
		// Later detections win on conflicting metadata keys.
		for k, v := range d.metadata {
			if existing.Metadata == nil {
				existing.Metadata = make(map[string]interface{})
			}
			existing.Metadata[k] = v
		}
		return
	}

	s.byKey[key] = e
	s.order = append(s.order, e)
}

func (s *edgeSet) finalize() []*graph.Edge {
	for i, e := range s.order {
		e.ID = fmt.Sprintf("e%d", i+1)
	}
	return s.order
}

// Detect runs every enabled pass and returns the merged edge set. Disabled
// passes cost nothing.
func (d *Detector) Detect(data *extract.Data, nodeIDs map[string]string) []*graph.Edge {
	set := newEdgeSet(d.cfg.Deduplicate)

	var wg sync.WaitGroup
	run := func(enabled bool, pass func(*extract.Data, map[string]string, *edgeSet)) {
		if !enabled {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			pass(data, nodeIDs, set)
		}()
	}

	run(d.cfg.EnableImport, d.detectImports)
	run(d.cfg.EnableModelContext, d.detectModelContext)
	run(d.cfg.EnableEditSequence, d.detectEditSequence)
	run(d.cfg.EnableNavigate, d.detectNavigation)
	run(d.cfg.EnableToolInteraction, d.detectToolInteractions)
	wg.Wait()

	return set.finalize()
}

// detectImports extracts each file's imports, resolves them, and links files
// whose resolved target is tracked. Unresolvable imports are dropped.
func (d *Detector) detectImports(data *extract.Data, nodeIDs map[string]string, set *edgeSet) {
	for filePath, meta := range data.FileMetadata {
		if meta.Content == "" {
			continue
		}

		absFrom := filepath.Join(d.workspaceRoot, filepath.FromSlash(filePath))
		observed := lastEditTime(meta)

		for _, ref := range d.imports.Extract(filePath, meta.Content) {
			resolved, ok := d.resolver.Resolve(ref.Path, absFrom)
			if !ok {
				continue
			}
			rel, err := paths.Canonicalize(resolved, d.workspaceRoot)
			if err != nil {
				continue
			}
			targetID, tracked := nodeIDs[rel]
			if !tracked {
				continue
			}
			sourceID := nodeIDs[filePath]
			if sourceID == "" || sourceID == targetID {
				continue
			}

			set.add(detection{
				edgeType: graph.EdgeImport,
				subtype:  "import_out",
				source:   sourceID,
				target:   targetID,
				observed: observed,
				metadata: map[string]interface{}{
					"import":   ref.Path,
					"resolved": rel,
					"line":     ref.Line,
				},
			})
		}
	}
}

// detectModelContext links each included context file to the file it informed.
func (d *Detector) detectModelContext(data *extract.Data, nodeIDs map[string]string, set *edgeSet) {
	for target, contextFiles := range data.ModelContext {
		targetID, ok := nodeIDs[target]
		if !ok {
			continue
		}
		observed := lastEditTime(data.FileMetadata[target])

		for _, ctx := range contextFiles {
			ctxID, ok := nodeIDs[ctx]
			if !ok || ctxID == targetID {
				continue
			}
			set.add(detection{
				edgeType: graph.EdgeModelContext,
				subtype:  "ctx_out",
				source:   ctxID,
				target:   targetID,
				observed: observed,
				metadata: map[string]interface{}{"target": target},
			})
		}
	}
}

// flatEdit is one edit event tagged with its file.
type flatEdit struct {
	path   string
	editID string
	ts     time.Time
}

func flattenEdits(data *extract.Data) []flatEdit {
	var edits []flatEdit
	for filePath, meta := range data.FileMetadata {
		for _, e := range meta.Edits {
			edits = append(edits, flatEdit{path: filePath, editID: e.EditID, ts: e.Timestamp})
		}
	}
	sort.Slice(edits, func(i, j int) bool {
		if edits[i].ts.Equal(edits[j].ts) {
			return edits[i].path < edits[j].path
		}
		return edits[i].ts.Before(edits[j].ts)
	})
	return edits
}

// detectEditSequence links adjacent edits of different files within the
// configured window: earlier file -> later file.
func (d *Detector) detectEditSequence(data *extract.Data, nodeIDs map[string]string, set *edgeSet) {
	d.scanAdjacent(data, nodeIDs, set, graph.EdgeEditSequence, "",
		time.Duration(d.cfg.EditSequenceWindowSeconds)*time.Second)
}

// detectNavigation applies the same temporal-adjacency scan framed as
// attention switching between files.
func (d *Detector) detectNavigation(data *extract.Data, nodeIDs map[string]string, set *edgeSet) {
	d.scanAdjacent(data, nodeIDs, set, graph.EdgeNavigate, "nav_out",
		time.Duration(d.cfg.NavigateWindowSeconds)*time.Second)
}

func (d *Detector) scanAdjacent(data *extract.Data, nodeIDs map[string]string, set *edgeSet, edgeType graph.EdgeType, subtype string, window time.Duration) {
	edits := flattenEdits(data)

	for i := 1; i < len(edits); i++ {
		prev, cur := edits[i-1], edits[i]
		if prev.path == cur.path {
			continue
		}
		gap := cur.ts.Sub(prev.ts)
		if gap < 0 || gap > window {
			continue
		}
		sourceID, okS := nodeIDs[prev.path]
		targetID, okT := nodeIDs[cur.path]
		if !okS || !okT {
			continue
		}

		set.add(detection{
			edgeType: edgeType,
			subtype:  subtype,
			source:   sourceID,
			target:   targetID,
			observed: cur.ts,
			metadata: map[string]interface{}{
				"gapSeconds": gap.Seconds(),
				"fromEdit":   prev.editID,
				"toEdit":     cur.editID,
			},
		})
	}
}

// pathTokenRe matches file-path-like tokens inside command strings.
var pathTokenRe = regexp.MustCompile(`[\w@./\\-]+\.[A-Za-z]\w*`)

// detectToolInteractions links files mentioned in terminal commands to a
// synthetic tool id.
func (d *Detector) detectToolInteractions(data *extract.Data, nodeIDs map[string]string, set *edgeSet) {
	for _, ti := range data.ToolInteractions {
		if ti.Type != "terminal" {
			continue
		}

		for _, token := range pathTokenRe.FindAllString(ti.Command, -1) {
			rel := paths.Normalize(token)
			fileID, ok := nodeIDs[rel]
			if !ok {
				// Commands often name paths relative to a subdirectory; fall
				// back to a unique suffix match.
				fileID, ok = matchBySuffix(nodeIDs, rel)
			}
			if !ok {
				continue
			}

			set.add(detection{
				edgeType: graph.EdgeToolInteraction,
				subtype:  "tool_out",
				source:   fileID,
				target:   "tool:" + ti.Tool,
				observed: ti.Timestamp,
				metadata: map[string]interface{}{
					"tool":    ti.Tool,
					"command": ti.Command,
				},
			})
		}
	}
}

// matchBySuffix finds the tracked path ending in rel, if exactly one does.
func matchBySuffix(nodeIDs map[string]string, rel string) (string, bool) {
	var found string
	count := 0
	for p, id := range nodeIDs {
		if p == rel || strings.HasSuffix(p, "/"+rel) {
			found = id
			count++
		}
	}
	return found, count == 1
}

func lastEditTime(meta extract.FileMetadata) time.Time {
	if len(meta.Edits) == 0 {
		return time.Time{}
	}
	return meta.Edits[len(meta.Edits)-1].Timestamp
}
