package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"devgraph/internal/config"
	"devgraph/internal/logging"
)

func newTestResolver(root string) *Resolver {
	cfg := config.ImportsConfig{Mode: "regex", ResolveNodeModules: true, ResolveTsPaths: true}
	return NewResolver(root, cfg, logging.Nop())
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestResolveRelativeFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "a.js"), "")
	writeFile(t, filepath.Join(root, "src", "util.js"), "")

	r := newTestResolver(root)
	got, ok := r.Resolve("./util", filepath.Join(root, "src", "a.js"))
	if !ok {
		t.Fatal("expected resolution")
	}
	if got != filepath.Join(root, "src", "util.js") {
		t.Errorf("got %q", got)
	}
}

func TestResolveRelativeIndexFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "a.js"), "")
	writeFile(t, filepath.Join(root, "src", "util", "index.js"), "")

	r := newTestResolver(root)
	got, ok := r.Resolve("./util", filepath.Join(root, "src", "a.js"))
	if !ok {
		t.Fatal("expected index resolution")
	}
	if got != filepath.Join(root, "src", "util", "index.js") {
		t.Errorf("got %q", got)
	}
}

func TestResolveFilePreferredOverIndex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "a.js"), "")
	writeFile(t, filepath.Join(root, "src", "util.js"), "")
	writeFile(t, filepath.Join(root, "src", "util", "index.js"), "")

	r := newTestResolver(root)
	got, _ := r.Resolve("./util", filepath.Join(root, "src", "a.js"))
	if got != filepath.Join(root, "src", "util.js") {
		t.Errorf("file should win over directory index, got %q", got)
	}
}

func TestResolveMissing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "a.js"), "")

	r := newTestResolver(root)
	if _, ok := r.Resolve("./nothing", filepath.Join(root, "src", "a.js")); ok {
		t.Error("expected unresolved")
	}
}

func TestResolveStripsExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "a.ts"), "")
	writeFile(t, filepath.Join(root, "src", "util.ts"), "")

	r := newTestResolver(root)
	got, ok := r.Resolve("./util.js", filepath.Join(root, "src", "a.ts"))
	if !ok || got != filepath.Join(root, "src", "util.ts") {
		t.Errorf("got %q ok=%v, want util.ts via extension strip + probe", got, ok)
	}
}

func TestResolveAbsolute(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "lib", "shared.js"), "")
	writeFile(t, filepath.Join(root, "src", "a.js"), "")

	r := newTestResolver(root)
	got, ok := r.Resolve("/lib/shared", filepath.Join(root, "src", "a.js"))
	if !ok || got != filepath.Join(root, "lib", "shared.js") {
		t.Errorf("got %q ok=%v", got, ok)
	}
}

func TestResolveNodeModules(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"name": "app"}`)
	writeFile(t, filepath.Join(root, "node_modules", "leftpad", "package.json"), `{"name": "leftpad", "main": "lib/pad.js"}`)
	writeFile(t, filepath.Join(root, "node_modules", "leftpad", "lib", "pad.js"), "")
	writeFile(t, filepath.Join(root, "src", "a.js"), "")

	r := newTestResolver(root)
	got, ok := r.Resolve("leftpad", filepath.Join(root, "src", "a.js"))
	if !ok || got != filepath.Join(root, "node_modules", "leftpad", "lib", "pad.js") {
		t.Errorf("got %q ok=%v, want package main", got, ok)
	}
}

func TestResolveNodeModulesSubpath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"name": "app"}`)
	writeFile(t, filepath.Join(root, "node_modules", "lodash", "merge.js"), "")
	writeFile(t, filepath.Join(root, "src", "a.js"), "")

	r := newTestResolver(root)
	got, ok := r.Resolve("lodash/merge", filepath.Join(root, "src", "a.js"))
	if !ok || got != filepath.Join(root, "node_modules", "lodash", "merge.js") {
		t.Errorf("got %q ok=%v", got, ok)
	}
}

func TestResolveNodeModulesWalkUp(t *testing.T) {
	root := t.TempDir()
	// Manifest sits in a sub-package; node_modules lives at the root.
	writeFile(t, filepath.Join(root, "node_modules", "shared", "index.js"), "")
	writeFile(t, filepath.Join(root, "apps", "web", "package.json"), `{"name": "web"}`)
	writeFile(t, filepath.Join(root, "apps", "web", "src", "a.js"), "")

	r := newTestResolver(root)
	got, ok := r.Resolve("shared", filepath.Join(root, "apps", "web", "src", "a.js"))
	if !ok || got != filepath.Join(root, "node_modules", "shared", "index.js") {
		t.Errorf("got %q ok=%v, want root node_modules hit via walk-up", got, ok)
	}
}

func TestResolveWorkspacePackage(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"name": "mono", "workspaces": ["packages/*"]}`)
	writeFile(t, filepath.Join(root, "packages", "core", "package.json"), `{"name": "core", "main": "src/main.js"}`)
	writeFile(t, filepath.Join(root, "packages", "core", "src", "main.js"), "")
	writeFile(t, filepath.Join(root, "apps", "a.js"), "")

	r := newTestResolver(root)
	got, ok := r.Resolve("core", filepath.Join(root, "apps", "a.js"))
	if !ok || got != filepath.Join(root, "packages", "core", "src", "main.js") {
		t.Errorf("got %q ok=%v, want workspace package main", got, ok)
	}
}

func TestResolvePnpmWorkspacePackage(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"name": "mono"}`)
	writeFile(t, filepath.Join(root, "pnpm-workspace.yaml"), "packages:\n  - packages/*\n")
	writeFile(t, filepath.Join(root, "packages", "ui", "index.ts"), "")
	writeFile(t, filepath.Join(root, "apps", "a.ts"), "")

	r := newTestResolver(root)
	got, ok := r.Resolve("ui", filepath.Join(root, "apps", "a.ts"))
	if !ok || got != filepath.Join(root, "packages", "ui", "index.ts") {
		t.Errorf("got %q ok=%v", got, ok)
	}
}

func TestResolveTsconfigPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{"compilerOptions": {"baseUrl": ".", "paths": {"@app/*": ["src/app/*"]}}}`)
	writeFile(t, filepath.Join(root, "src", "app", "store.ts"), "")
	writeFile(t, filepath.Join(root, "src", "a.ts"), "")

	r := newTestResolver(root)
	got, ok := r.Resolve("@app/store", filepath.Join(root, "src", "a.ts"))
	if !ok || got != filepath.Join(root, "src", "app", "store.ts") {
		t.Errorf("got %q ok=%v", got, ok)
	}
}

func TestResolveTsPathsDisabled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{"compilerOptions": {"paths": {"@app/*": ["src/app/*"]}}}`)
	writeFile(t, filepath.Join(root, "src", "app", "store.ts"), "")
	writeFile(t, filepath.Join(root, "src", "a.ts"), "")

	cfg := config.ImportsConfig{Mode: "regex", ResolveNodeModules: true, ResolveTsPaths: false}
	r := NewResolver(root, cfg, logging.Nop())
	if _, ok := r.Resolve("@app/store", filepath.Join(root, "src", "a.ts")); ok {
		t.Error("tsconfig paths should be off")
	}
}

func TestResolvePythonRelativeModule(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pkg", "mod.py"), "")
	writeFile(t, filepath.Join(root, "pkg", "util.py"), "")

	r := newTestResolver(root)
	got, ok := r.Resolve("./util", filepath.Join(root, "pkg", "mod.py"))
	if !ok || got != filepath.Join(root, "pkg", "util.py") {
		t.Errorf("got %q ok=%v", got, ok)
	}
}

func TestResolvePythonDottedRelative(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pkg", "util.py"), "")
	writeFile(t, filepath.Join(root, "pkg", "sub", "mod.py"), "")
	writeFile(t, filepath.Join(root, "pkg", "sub", "util.py"), "")

	r := newTestResolver(root)

	// One leading dot stays in the current package.
	got, ok := r.Resolve(".util", filepath.Join(root, "pkg", "sub", "mod.py"))
	if !ok || got != filepath.Join(root, "pkg", "sub", "util.py") {
		t.Errorf(".util: got %q ok=%v", got, ok)
	}

	// Two leading dots climb to the parent package, even with a sibling
	// util.py present next to the importer.
	got, ok = r.Resolve("..util", filepath.Join(root, "pkg", "sub", "mod.py"))
	if !ok || got != filepath.Join(root, "pkg", "util.py") {
		t.Errorf("..util: got %q ok=%v", got, ok)
	}
}

func TestResolvePythonDottedPackageInit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pkg", "__init__.py"), "")
	writeFile(t, filepath.Join(root, "pkg", "sub", "mod.py"), "")

	r := newTestResolver(root)
	got, ok := r.Resolve("..", filepath.Join(root, "pkg", "sub", "mod.py"))
	if !ok || got != filepath.Join(root, "pkg", "__init__.py") {
		t.Errorf("got %q ok=%v", got, ok)
	}
}

func TestResolveCachesResults(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src", "a.js")
	writeFile(t, src, "")
	writeFile(t, filepath.Join(root, "src", "util.js"), "")

	r := newTestResolver(root)
	first, _ := r.Resolve("./util", src)

	// Deleting the target does not change the cached answer.
	if err := os.Remove(filepath.Join(root, "src", "util.js")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	second, ok := r.Resolve("./util", src)
	if !ok || second != first {
		t.Errorf("cached result should persist, got %q ok=%v", second, ok)
	}

	// Reset drops the cache; resolution now misses.
	r.Reset()
	if _, ok := r.Resolve("./util", src); ok {
		t.Error("after Reset the deleted target should not resolve")
	}
}

func TestResolveNeverEscapesWorkspace(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "ws")
	writeFile(t, filepath.Join(root, "node_modules", "outside", "index.js"), "")
	writeFile(t, filepath.Join(sub, "src", "a.js"), "")

	r := newTestResolver(sub)
	if _, ok := r.Resolve("outside", filepath.Join(sub, "src", "a.js")); ok {
		t.Error("walk-up must stop at the workspace root")
	}
}
