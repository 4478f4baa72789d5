package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "src", "app.ts")
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(file, []byte("export {}"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rel, err := Canonicalize(file, root)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if rel != "src/app.ts" {
		t.Errorf("rel = %q, want src/app.ts", rel)
	}
}

func TestCanonicalizeMissingFile(t *testing.T) {
	root := t.TempDir()
	rel, err := Canonicalize(filepath.Join(root, "not", "yet.go"), root)
	if err != nil {
		t.Fatalf("Canonicalize on missing file: %v", err)
	}
	if rel != "not/yet.go" {
		t.Errorf("rel = %q, want not/yet.go", rel)
	}
}

func TestIsWithinWorkspace(t *testing.T) {
	root := t.TempDir()
	if !IsWithinWorkspace(filepath.Join(root, "a.go"), root) {
		t.Error("path inside root should be within workspace")
	}
	if IsWithinWorkspace(filepath.Join(root, "..", "escape.go"), root) {
		t.Error("path above root should not be within workspace")
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("./src/util.js"); got != "src/util.js" {
		t.Errorf("Normalize = %q", got)
	}
	if got := Normalize(`src\win\path.ts`); got != "src/win/path.ts" {
		t.Errorf("Normalize = %q", got)
	}
}
