package detect

import (
	"testing"

	"devgraph/internal/config"
	"devgraph/internal/logging"
)

func regexDetector() *Detector {
	return NewDetector(config.ImportsConfig{Mode: "regex"}, logging.Nop())
}

func astDetector() *Detector {
	return NewDetector(config.ImportsConfig{Mode: "ast"}, logging.Nop())
}

func TestLanguageFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Language
	}{
		{"src/app.js", LangJavaScript},
		{"src/app.jsx", LangJavaScript},
		{"src/app.ts", LangTypeScript},
		{"src/App.tsx", LangTSX},
		{"lib/util.py", LangPython},
		{"main.go", LangGo},
		{"README.md", LangUnknown},
		{"styles.css", LangUnknown},
	}
	for _, tt := range tests {
		if got := LanguageFromPath(tt.path); got != tt.want {
			t.Errorf("LanguageFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestExtractJavaScript(t *testing.T) {
	content := `import React from 'react';
import { thing } from './lib/thing';
const fs = require('fs');
export { helper } from './helper';
const mod = await import('./dynamic');
`
	refs := regexDetector().Extract("app.js", content)

	wantPaths := map[string]ImportKind{
		"react":       KindImport,
		"./lib/thing": KindImport,
		"fs":          KindImport,
		"./helper":    KindExport,
		"./dynamic":   KindImport,
	}
	got := make(map[string]ImportKind)
	for _, r := range refs {
		got[r.Path] = r.Kind
	}
	for path, kind := range wantPaths {
		if got[path] != kind {
			t.Errorf("path %q: kind = %q, want %q (refs: %+v)", path, got[path], kind, refs)
		}
	}
}

func TestExtractPython(t *testing.T) {
	content := `import os
from collections import defaultdict
import numpy
`
	refs := regexDetector().Extract("script.py", content)

	want := []string{"os", "collections", "numpy"}
	if len(refs) != len(want) {
		t.Fatalf("got %d refs, want %d: %+v", len(refs), len(want), refs)
	}
	for i, path := range want {
		if refs[i].Path != path {
			t.Errorf("refs[%d].Path = %q, want %q", i, refs[i].Path, path)
		}
	}
	if refs[0].Line != 1 || refs[1].Line != 2 {
		t.Errorf("line numbers wrong: %+v", refs)
	}
}

func TestExtractGo(t *testing.T) {
	content := `package main

import (
	"fmt"
	myos "os"
)

import "strings"
`
	refs := regexDetector().Extract("main.go", content)

	got := make(map[string]bool)
	for _, r := range refs {
		got[r.Path] = true
	}
	for _, path := range []string{"fmt", "os", "strings"} {
		if !got[path] {
			t.Errorf("missing import %q in %+v", path, refs)
		}
	}
}

func TestExtractUnknownLanguageUsesRegexOnly(t *testing.T) {
	content := `import something from './other';`
	refs := astDetector().Extract("page.svelte", content)

	if len(refs) != 1 || refs[0].Path != "./other" {
		t.Errorf("unknown language should still yield regex matches, got %+v", refs)
	}
}

func TestExtractUnknownLanguageMixedForms(t *testing.T) {
	// The import-from statement must not also trip the bare-import pattern
	// and surface its binding name as a second ref.
	content := `import widget from './widget';
from helpers import clamp
`
	refs := astDetector().Extract("page.vue", content)

	want := []string{"./widget", "helpers"}
	if len(refs) != len(want) {
		t.Fatalf("got %d refs, want %d: %+v", len(refs), len(want), refs)
	}
	for i, path := range want {
		if refs[i].Path != path {
			t.Errorf("refs[%d].Path = %q, want %q", i, refs[i].Path, path)
		}
	}
}

func TestExtractASTModeRecoversFromGarbage(t *testing.T) {
	// Unparseable as TypeScript. The AST pass must not abort extraction;
	// the regex fallback still sees the import line.
	content := "import { x } from './valid';\n)))((( not typescript at all {{{\n"
	refs := astDetector().Extract("broken.ts", content)

	found := false
	for _, r := range refs {
		if r.Path == "./valid" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected './valid' from fallback extraction, got %+v", refs)
	}
}

func TestExtractSkipsOversizedContent(t *testing.T) {
	content := `import { u } from './util';`
	d := NewDetector(config.ImportsConfig{Mode: "regex", MaxFileSizeBytes: 10}, logging.Nop())

	if refs := d.Extract("big.js", content); len(refs) != 0 {
		t.Errorf("content over the size limit should be skipped, got %+v", refs)
	}

	// Zero disables the limit.
	d = NewDetector(config.ImportsConfig{Mode: "regex"}, logging.Nop())
	if refs := d.Extract("big.js", content); len(refs) != 1 {
		t.Errorf("no limit set, want 1 ref, got %+v", refs)
	}
}

func TestExtractEmptyContent(t *testing.T) {
	if refs := astDetector().Extract("empty.ts", ""); len(refs) != 0 {
		t.Errorf("empty content should yield no refs, got %+v", refs)
	}
}
