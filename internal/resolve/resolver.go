// Package resolve turns raw import specifiers into concrete file paths inside
// a workspace. Resolution tries a fixed ladder of strategies (relative,
// absolute, package, tsconfig path mapping) and reports "not found" rather
// than erroring; most unresolved imports are legitimately external.
package resolve

import (
	"path/filepath"
	"strings"
	"sync"

	"devgraph/internal/config"
	"devgraph/internal/logging"
	"devgraph/internal/paths"
)

// sourceExtensions is the fixed probe order for extensionless imports.
var sourceExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".py", ".go"}

type cachedResult struct {
	path string
	ok   bool
}

// Resolver resolves import specifiers for one workspace. Caches live for the
// lifetime of the instance; Reset clears them. Safe for concurrent use.
type Resolver struct {
	workspaceRoot string
	cfg           config.ImportsConfig
	logger        *logging.Logger

	mu        sync.Mutex
	resolved  map[string]cachedResult
	manifests map[string]*Manifest        // dir -> manifest (nil = none)
	tsconfigs map[string]*tsconfigMapping // dir -> mapping (nil = none)
}

// NewResolver creates a resolver rooted at workspaceRoot.
func NewResolver(workspaceRoot string, cfg config.ImportsConfig, logger *logging.Logger) *Resolver {
	return &Resolver{
		workspaceRoot: workspaceRoot,
		cfg:           cfg,
		logger:        logger.Named("resolve"),
		resolved:      make(map[string]cachedResult),
		manifests:     make(map[string]*Manifest),
		tsconfigs:     make(map[string]*tsconfigMapping),
	}
}

// Reset clears all per-instance caches.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = make(map[string]cachedResult)
	r.manifests = make(map[string]*Manifest)
	r.tsconfigs = make(map[string]*tsconfigMapping)
}

// Resolve maps an import specifier written in fromFile to an absolute path
// inside the workspace. The second return is false when the import is
// external or otherwise unresolvable. Never errors.
func (r *Resolver) Resolve(importStr string, fromFile string) (string, bool) {
	if importStr == "" {
		return "", false
	}

	fromDir := filepath.Dir(fromFile)
	cacheKey := importStr + "\x00" + fromDir

	r.mu.Lock()
	if res, ok := r.resolved[cacheKey]; ok {
		r.mu.Unlock()
		return res.path, res.ok
	}
	r.mu.Unlock()

	path, ok := r.resolveUncached(importStr, fromFile, fromDir)

	r.mu.Lock()
	r.resolved[cacheKey] = cachedResult{path: path, ok: ok}
	r.mu.Unlock()

	return path, ok
}

func (r *Resolver) resolveUncached(importStr, fromFile, fromDir string) (string, bool) {
	specifier := stripKnownExtension(importStr)

	// Python writes module paths with dots. Leading dots are relative: one
	// means the current package, each further dot climbs one parent.
	if strings.HasSuffix(fromFile, ".py") && !strings.ContainsAny(specifier, "/\\") {
		dots := 0
		for dots < len(specifier) && specifier[dots] == '.' {
			dots++
		}
		rest := strings.ReplaceAll(specifier[dots:], ".", "/")
		if dots > 0 {
			base := fromDir
			for i := 1; i < dots; i++ {
				base = filepath.Dir(base)
			}
			if p, ok := r.probe(filepath.Join(base, rest)); ok {
				return p, true
			}
			return "", false
		}
		specifier = rest
	}

	switch {
	case strings.HasPrefix(importStr, "."):
		if p, ok := r.probe(filepath.Join(fromDir, specifier)); ok {
			return p, true
		}
	case strings.HasPrefix(importStr, "/"):
		if p, ok := r.probe(filepath.Join(r.workspaceRoot, specifier)); ok {
			return p, true
		}
	default:
		if p, ok := r.resolvePackage(specifier, fromDir); ok {
			return p, true
		}
		if r.cfg.ResolveTsPaths {
			if p, ok := r.resolveTsPaths(importStr, fromDir); ok {
				return p, true
			}
		}
	}

	return "", false
}

// probe checks a candidate path verbatim, then with each source extension,
// then as a directory holding an index file.
func (r *Resolver) probe(candidate string) (string, bool) {
	if paths.IsFile(candidate) {
		return candidate, true
	}

	for _, ext := range sourceExtensions {
		if p := candidate + ext; paths.IsFile(p) {
			return p, true
		}
	}

	if paths.IsDir(candidate) {
		for _, ext := range sourceExtensions {
			if p := filepath.Join(candidate, "index"+ext); paths.IsFile(p) {
				return p, true
			}
		}
		// Python packages mark themselves with __init__.py.
		if p := filepath.Join(candidate, "__init__.py"); paths.IsFile(p) {
			return p, true
		}
	}

	return "", false
}

// resolvePackage walks upward from the importing file to the nearest package
// manifest, probes declared workspace sub-packages, then searches dependency
// directories (node_modules) from the manifest upward. The walk never passes
// the workspace root.
func (r *Resolver) resolvePackage(specifier string, fromDir string) (string, bool) {
	manifest := r.nearestManifest(fromDir)

	if manifest != nil {
		// Multi-package workspace: a declared sub-package may own the import.
		for _, wsDir := range r.workspaceDirs(manifest) {
			first, rest := splitFirstSegment(specifier)
			if filepath.Base(wsDir) != first {
				continue
			}
			target := wsDir
			if rest != "" {
				target = filepath.Join(wsDir, rest)
			} else if wm := r.manifestAt(wsDir); wm != nil && wm.Main != "" {
				if p, ok := r.probe(filepath.Join(wsDir, wm.Main)); ok {
					return p, true
				}
			}
			if p, ok := r.probe(target); ok {
				return p, true
			}
		}
	}

	if !r.cfg.ResolveNodeModules {
		return "", false
	}

	// Search node_modules next to the manifest, then keep walking up.
	start := fromDir
	if manifest != nil {
		start = manifest.Dir
	}
	for dir := start; ; dir = filepath.Dir(dir) {
		if p, ok := r.probeNodeModules(filepath.Join(dir, "node_modules"), specifier); ok {
			return p, true
		}
		if !paths.IsWithinWorkspace(dir, r.workspaceRoot) || dir == r.workspaceRoot || dir == filepath.Dir(dir) {
			break
		}
	}

	return "", false
}

// probeNodeModules looks the specifier up inside one node_modules directory. A bare
// package name honors the package's declared entry point first.
func (r *Resolver) probeNodeModules(nodeModules string, specifier string) (string, bool) {
	if !paths.IsDir(nodeModules) {
		return "", false
	}

	if !strings.Contains(specifier, "/") {
		if pm := r.manifestAt(filepath.Join(nodeModules, specifier)); pm != nil && pm.Main != "" {
			if p, ok := r.probe(filepath.Join(pm.Dir, pm.Main)); ok {
				return p, true
			}
		}
	}

	return r.probe(filepath.Join(nodeModules, specifier))
}

// resolveTsPaths applies the nearest tsconfig.json "paths" wildcard table.
func (r *Resolver) resolveTsPaths(importStr string, fromDir string) (string, bool) {
	mapping := r.nearestTsconfig(fromDir)
	if mapping == nil {
		return "", false
	}

	for pattern, targets := range mapping.Paths {
		capture, ok := matchWildcard(pattern, importStr)
		if !ok {
			continue
		}
		for _, target := range targets {
			substituted := strings.Replace(target, "*", capture, 1)
			if p, ok := r.probe(filepath.Join(mapping.BaseDir, substituted)); ok {
				return p, true
			}
		}
	}

	return "", false
}

// nearestManifest finds the closest package manifest at or above dir, bounded
// by the workspace root.
func (r *Resolver) nearestManifest(dir string) *Manifest {
	for d := dir; ; d = filepath.Dir(d) {
		if m := r.manifestAt(d); m != nil {
			return m
		}
		if d == r.workspaceRoot || d == filepath.Dir(d) || !paths.IsWithinWorkspace(d, r.workspaceRoot) {
			return nil
		}
	}
}

func (r *Resolver) manifestAt(dir string) *Manifest {
	r.mu.Lock()
	m, ok := r.manifests[dir]
	r.mu.Unlock()
	if ok {
		return m
	}

	m = loadManifest(dir)

	r.mu.Lock()
	r.manifests[dir] = m
	r.mu.Unlock()
	return m
}

func (r *Resolver) nearestTsconfig(dir string) *tsconfigMapping {
	for d := dir; ; d = filepath.Dir(d) {
		r.mu.Lock()
		m, ok := r.tsconfigs[d]
		r.mu.Unlock()
		if !ok {
			m = loadTsconfig(d)
			r.mu.Lock()
			r.tsconfigs[d] = m
			r.mu.Unlock()
		}
		if m != nil {
			return m
		}
		if d == r.workspaceRoot || d == filepath.Dir(d) || !paths.IsWithinWorkspace(d, r.workspaceRoot) {
			return nil
		}
	}
}

// workspaceDirs expands a manifest's workspace globs into existing dirs.
func (r *Resolver) workspaceDirs(m *Manifest) []string {
	var dirs []string
	for _, glob := range m.Workspaces {
		matches, err := filepath.Glob(filepath.Join(m.Dir, glob))
		if err != nil {
			continue
		}
		for _, match := range matches {
			if paths.IsDir(match) {
				dirs = append(dirs, match)
			}
		}
	}
	return dirs
}

// stripKnownExtension removes a recognized source extension from the specifier.
func stripKnownExtension(specifier string) string {
	ext := filepath.Ext(specifier)
	for _, known := range sourceExtensions {
		if ext == known {
			return strings.TrimSuffix(specifier, ext)
		}
	}
	return specifier
}

func splitFirstSegment(specifier string) (string, string) {
	if i := strings.Index(specifier, "/"); i >= 0 {
		return specifier[:i], specifier[i+1:]
	}
	return specifier, ""
}

// matchWildcard matches an import against one tsconfig paths pattern with at
// most one "*", returning the captured segment.
func matchWildcard(pattern, importStr string) (string, bool) {
	star := strings.Index(pattern, "*")
	if star < 0 {
		if pattern == importStr {
			return "", true
		}
		return "", false
	}

	prefix, suffix := pattern[:star], pattern[star+1:]
	if !strings.HasPrefix(importStr, prefix) || !strings.HasSuffix(importStr, suffix) {
		return "", false
	}
	if len(importStr) < len(prefix)+len(suffix) {
		return "", false
	}
	return importStr[len(prefix) : len(importStr)-len(suffix)], true
}
