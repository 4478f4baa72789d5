//go:build !cgo

package detect

import "fmt"

// extractAST is unavailable without cgo; callers fall back to the regex scan.
func extractAST(lang Language, content string) ([]ImportRef, error) {
	return nil, fmt.Errorf("tree-sitter not available: built without cgo")
}
