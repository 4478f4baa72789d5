// Package detect extracts import and export statements from source files.
// Supported languages get a tree-sitter pass when built with cgo; everything
// else, and any file that fails to parse, goes through a regex line scan that
// never errors.
package detect

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"devgraph/internal/config"
	"devgraph/internal/logging"
)

// Language identifies a supported source language.
type Language string

const (
	// LangJavaScript covers .js, .jsx, .mjs, .cjs
	LangJavaScript Language = "javascript"
	// LangTypeScript covers .ts, .mts, .cts
	LangTypeScript Language = "typescript"
	// LangTSX covers .tsx
	LangTSX Language = "tsx"
	// LangPython covers .py, .pyw
	LangPython Language = "python"
	// LangGo covers .go
	LangGo Language = "go"
	// LangUnknown gets the regex-only strategy
	LangUnknown Language = ""
)

// LanguageFromPath returns the Language for a file path's extension.
func LanguageFromPath(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return LangJavaScript
	case ".ts", ".mts", ".cts":
		return LangTypeScript
	case ".tsx":
		return LangTSX
	case ".py", ".pyw":
		return LangPython
	case ".go":
		return LangGo
	default:
		return LangUnknown
	}
}

// ImportKind distinguishes import from re-export statements.
type ImportKind string

const (
	// KindImport is a plain import/require
	KindImport ImportKind = "import"
	// KindExport is a re-export ("export ... from")
	KindExport ImportKind = "export"
)

// ImportRef is one extracted import or export reference.
type ImportRef struct {
	Path string     `json:"path"` // literal specifier as written
	Kind ImportKind `json:"kind"`
	Line int        `json:"line"` // 1-indexed
}

// Detector extracts import references from file content.
type Detector struct {
	cfg    config.ImportsConfig
	logger *logging.Logger
}

// NewDetector creates an import detector.
func NewDetector(cfg config.ImportsConfig, logger *logging.Logger) *Detector {
	return &Detector{cfg: cfg, logger: logger.Named("detect")}
}

// Extract returns the ordered import references found in content. It never
// returns an error: an AST parse failure falls back to the regex scan.
func (d *Detector) Extract(filePath string, content string) []ImportRef {
	if d.cfg.MaxFileSizeBytes > 0 && len(content) > d.cfg.MaxFileSizeBytes {
		d.logger.Debug("skipping oversized file", map[string]interface{}{
			"file":  filePath,
			"bytes": len(content),
			"limit": d.cfg.MaxFileSizeBytes,
		})
		return nil
	}

	lang := LanguageFromPath(filePath)

	if d.cfg.Mode == "ast" && lang != LangUnknown {
		refs, err := extractAST(lang, content)
		if err == nil {
			return refs
		}
		d.logger.Warn("AST import extraction failed, using regex fallback", map[string]interface{}{
			"file":  filePath,
			"error": err.Error(),
		})
	}

	return extractRegex(lang, content)
}

// languagePatterns holds the regex fallback patterns per language. The first
// capture group of each pattern is the import specifier.
type languagePatterns struct {
	imports []*regexp.Regexp
	exports []*regexp.Regexp
}

var jsFamilyPatterns = languagePatterns{
	imports: []*regexp.Regexp{
		regexp.MustCompile(`import\s+.*?from\s+['"]([^'"]+)['"]`),
		regexp.MustCompile(`^\s*import\s+['"]([^'"]+)['"]`),
		regexp.MustCompile(`require\s*\(\s*['"]([^'"]+)['"]\s*\)`),
		regexp.MustCompile(`import\s*\(\s*['"]([^'"]+)['"]\s*\)`), // Dynamic import
	},
	exports: []*regexp.Regexp{
		regexp.MustCompile(`export\s+.*?from\s+['"]([^'"]+)['"]`),
	},
}

var builtinPatterns = map[Language]languagePatterns{
	LangJavaScript: jsFamilyPatterns,
	LangTypeScript: jsFamilyPatterns,
	LangTSX:        jsFamilyPatterns,
	LangPython: {
		imports: []*regexp.Regexp{
			regexp.MustCompile(`^\s*from\s+([^\s]+)\s+import`),
			regexp.MustCompile(`^\s*import\s+([^\s,;]+)`),
		},
	},
	LangGo: {
		imports: []*regexp.Regexp{
			regexp.MustCompile(`^\s*import\s+(?:\w+\s+)?"([^"]+)"`),
			regexp.MustCompile(`^\s*(?:\w+\s+|\.\s+|_\s+)?"([^"]+)"\s*$`),
		},
	},
	// Regex-only strategy for unrecognized languages: the JS-family forms
	// plus python-style imports cover most of what shows up in practice.
	LangUnknown: {
		imports: []*regexp.Regexp{
			regexp.MustCompile(`import\s+.*?from\s+['"]([^'"]+)['"]`),
			regexp.MustCompile(`require\s*\(\s*['"]([^'"]+)['"]\s*\)`),
			regexp.MustCompile(`import\s*\(\s*['"]([^'"]+)['"]\s*\)`),
			regexp.MustCompile(`^\s*from\s+([^\s]+)\s+import`),
			regexp.MustCompile(`^\s*import\s+([^\s,;]+)`),
		},
	},
}

// extractRegex line-scans content with the per-language pattern set. It always
// terminates and never errors.
func extractRegex(lang Language, content string) []ImportRef {
	patterns, ok := builtinPatterns[lang]
	if !ok {
		patterns = builtinPatterns[LangUnknown]
	}

	var refs []ImportRef
	seen := make(map[string]bool) // line:path, multiple patterns can match one statement

	for i, line := range strings.Split(content, "\n") {
		lineNum := i + 1
		for _, re := range patterns.exports {
			for _, m := range re.FindAllStringSubmatch(line, -1) {
				addRef(&refs, seen, m, KindExport, lineNum)
			}
		}
		// First matching import form wins the line: the python-style bare
		// pattern would otherwise re-capture the binding name of a JS
		// import-from statement.
		for _, re := range patterns.imports {
			matches := re.FindAllStringSubmatch(line, -1)
			for _, m := range matches {
				addRef(&refs, seen, m, KindImport, lineNum)
			}
			if len(matches) > 0 {
				break
			}
		}
	}

	return refs
}

func addRef(refs *[]ImportRef, seen map[string]bool, match []string, kind ImportKind, line int) {
	if len(match) < 2 {
		return
	}
	path := strings.TrimSpace(match[1])
	if path == "" {
		return
	}
	key := strconv.Itoa(line) + ":" + path
	if seen[key] {
		return
	}
	seen[key] = true
	*refs = append(*refs, ImportRef{Path: path, Kind: kind, Line: line})
}
