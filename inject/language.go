package inject

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language selects a grammar.
type Language string

const (
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
)

// LanguageFor picks the grammar from a file extension. Anything that is not
// TypeScript parses as JavaScript (which covers .js, .jsx, .mjs and .cjs).
func LanguageFor(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return TypeScript
	case ".tsx":
		return TSX
	default:
		return JavaScript
	}
}

func (l Language) grammar() *sitter.Language {
	switch l {
	case TypeScript:
		return typescript.GetLanguage()
	case TSX:
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// syntaxTree is a parsed source with its bytes. Close releases the C tree.
type syntaxTree struct {
	tree *sitter.Tree
	src  []byte
}

func (t *syntaxTree) root() *sitter.Node { return t.tree.RootNode() }

func (t *syntaxTree) Close() { t.tree.Close() }

func parse(ctx context.Context, lang Language, src []byte) (*syntaxTree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang.grammar())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, err
	}
	return &syntaxTree{tree: tree, src: src}, nil
}

// firstError returns the 1-based position of the first error or missing
// node, or ok=false when the tree is clean.
func firstError(n *sitter.Node) (line, column int, ok bool) {
	if !n.HasError() {
		return 0, 0, false
	}
	var found *sitter.Node
	walk(n, func(c *sitter.Node) bool {
		if found != nil {
			return false
		}
		if c.IsError() || c.IsMissing() {
			found = c
			return false
		}
		return c.HasError()
	})
	if found == nil {
		found = n
	}
	p := found.StartPoint()
	return int(p.Row) + 1, int(p.Column) + 1, true
}

// walk visits n and its descendants in pre-order. fn returns whether to
// descend into the node's children.
func walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), fn)
	}
}
