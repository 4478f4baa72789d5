//go:build cgo

package detect

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// extractAST parses content with tree-sitter and walks import/export nodes.
// Returns an error on parse failure so the caller can fall back to regex.
func extractAST(lang Language, content string) ([]ImportRef, error) {
	tsLang, err := getLanguage(lang)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	parser.SetLanguage(tsLang)

	source := []byte(content)
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("syntax errors in parse tree")
	}

	switch lang {
	case LangJavaScript, LangTypeScript, LangTSX:
		return walkJSFamily(root, source), nil
	case LangPython:
		return walkPython(root, source), nil
	case LangGo:
		return walkGo(root, source), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

func getLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangPython:
		return python.GetLanguage(), nil
	case LangGo:
		return golang.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

func nodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// stringValue strips the quotes from a string literal node.
func stringValue(node *sitter.Node, source []byte) string {
	return strings.Trim(nodeText(node, source), `'"`+"`")
}

func walkJSFamily(root *sitter.Node, source []byte) []ImportRef {
	var refs []ImportRef

	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}

		switch node.Type() {
		case "import_statement":
			if src := node.ChildByFieldName("source"); src != nil {
				refs = append(refs, ImportRef{
					Path: stringValue(src, source),
					Kind: KindImport,
					Line: int(node.StartPoint().Row) + 1,
				})
			}
		case "export_statement":
			if src := node.ChildByFieldName("source"); src != nil {
				refs = append(refs, ImportRef{
					Path: stringValue(src, source),
					Kind: KindExport,
					Line: int(node.StartPoint().Row) + 1,
				})
			}
		case "call_expression":
			// require("x") and dynamic import("x")
			fn := node.ChildByFieldName("function")
			args := node.ChildByFieldName("arguments")
			if fn != nil && args != nil && args.NamedChildCount() > 0 {
				callee := nodeText(fn, source)
				if callee == "require" || callee == "import" {
					arg := args.NamedChild(0)
					if arg.Type() == "string" {
						refs = append(refs, ImportRef{
							Path: stringValue(arg, source),
							Kind: KindImport,
							Line: int(node.StartPoint().Row) + 1,
						})
					}
				}
			}
		}

		for i := uint32(0); i < node.ChildCount(); i++ {
			walk(node.Child(int(i)))
		}
	}

	walk(root)
	return refs
}

func walkPython(root *sitter.Node, source []byte) []ImportRef {
	var refs []ImportRef

	for i := uint32(0); i < root.NamedChildCount(); i++ {
		node := root.NamedChild(int(i))
		line := int(node.StartPoint().Row) + 1

		switch node.Type() {
		case "import_statement":
			// import a.b, c
			for j := uint32(0); j < node.NamedChildCount(); j++ {
				child := node.NamedChild(int(j))
				switch child.Type() {
				case "dotted_name":
					refs = append(refs, ImportRef{Path: nodeText(child, source), Kind: KindImport, Line: line})
				case "aliased_import":
					if name := child.ChildByFieldName("name"); name != nil {
						refs = append(refs, ImportRef{Path: nodeText(name, source), Kind: KindImport, Line: line})
					}
				}
			}
		case "import_from_statement":
			// from a.b import c
			if mod := node.ChildByFieldName("module_name"); mod != nil {
				refs = append(refs, ImportRef{Path: nodeText(mod, source), Kind: KindImport, Line: line})
			}
		}
	}

	return refs
}

func walkGo(root *sitter.Node, source []byte) []ImportRef {
	var refs []ImportRef

	var collect func(node *sitter.Node)
	collect = func(node *sitter.Node) {
		if node.Type() == "import_spec" {
			if path := node.ChildByFieldName("path"); path != nil {
				refs = append(refs, ImportRef{
					Path: stringValue(path, source),
					Kind: KindImport,
					Line: int(node.StartPoint().Row) + 1,
				})
			}
			return
		}
		for i := uint32(0); i < node.NamedChildCount(); i++ {
			collect(node.NamedChild(int(i)))
		}
	}

	for i := uint32(0); i < root.NamedChildCount(); i++ {
		node := root.NamedChild(int(i))
		if node.Type() == "import_declaration" {
			collect(node)
		}
	}

	return refs
}
