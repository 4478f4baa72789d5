// Package archive keeps previous graph snapshots on disk as zstd-compressed
// JSON, so a diff can compare the current build against the last archived one.
package archive

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"

	"devgraph/internal/graph"
	"devgraph/internal/logging"
)

const snapshotExt = ".json.zst"

// Archive stores snapshots under one directory, pruning the oldest once the
// configured maximum is exceeded.
type Archive struct {
	dir          string
	maxSnapshots int
	logger       *logging.Logger

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// New opens (or creates) a snapshot archive directory. maxSnapshots <= 0
// disables pruning.
func New(dir string, maxSnapshots int, logger *logging.Logger) (*Archive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Archive{
		dir:          dir,
		maxSnapshots: maxSnapshots,
		logger:       logger.Named("archive"),
		encoder:      encoder,
		decoder:      decoder,
	}, nil
}

// Store writes one snapshot and prunes old ones. The filename carries the
// build timestamp for ordering and a content hash for identity; re-archiving
// an identical snapshot overwrites the same file.
func (a *Archive) Store(g *graph.Graph) (string, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	sum := blake2b.Sum256(raw)
	name := fmt.Sprintf("%016x-%s%s", g.Metadata.BuiltAt.UnixMilli(), hex.EncodeToString(sum[:8]), snapshotExt)
	path := filepath.Join(a.dir, name)

	compressed := a.encoder.EncodeAll(raw, nil)
	if err := os.WriteFile(path, compressed, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	a.logger.Debug("Archived snapshot", map[string]interface{}{
		"name":        name,
		"rawBytes":    len(raw),
		"storedBytes": len(compressed),
	})

	if err := a.prune(); err != nil {
		return name, err
	}
	return name, nil
}

// Load reads one archived snapshot by name.
func (a *Archive) Load(name string) (*graph.Graph, error) {
	compressed, err := os.ReadFile(filepath.Join(a.dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", name, err)
	}

	raw, err := a.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot %s: %w", name, err)
	}

	var g graph.Graph
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", name, err)
	}
	return &g, nil
}

// List returns archived snapshot names, oldest first. The timestamp prefix
// makes lexical order chronological.
func (a *Archive) List() ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), snapshotExt) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Latest loads the most recently built archived snapshot, or nil when the
// archive is empty.
func (a *Archive) Latest() (*graph.Graph, error) {
	names, err := a.List()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	return a.Load(names[len(names)-1])
}

func (a *Archive) prune() error {
	if a.maxSnapshots <= 0 {
		return nil
	}
	names, err := a.List()
	if err != nil {
		return err
	}
	for len(names) > a.maxSnapshots {
		victim := names[0]
		names = names[1:]
		if err := os.Remove(filepath.Join(a.dir, victim)); err != nil {
			return fmt.Errorf("failed to prune snapshot %s: %w", victim, err)
		}
		a.logger.Debug("Pruned snapshot", map[string]interface{}{"name": victim})
	}
	return nil
}
