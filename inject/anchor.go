package inject

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// statementLists are the node types whose named children are statements.
var statementLists = map[string]bool{
	"program":         true,
	"statement_block": true,
	"switch_case":     true,
	"switch_default":  true,
}

// Anchor locates the anchor call inside a parsed file. The nodes are only
// read, never modified.
type Anchor struct {
	// List is the statement-list node holding the anchor statement.
	List *sitter.Node
	// Index is the anchor statement's position among List's named children.
	Index int
	// Statement is the statement that contains the anchor call.
	Statement *sitter.Node
	// Call is the matching call_expression.
	Call *sitter.Node
	Name string
}

// AnchorInfo is the serializable part of an Anchor.
type AnchorInfo struct {
	Name   string `json:"name"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Index  int    `json:"index"`
}

// Info summarizes the anchor position, 1-based.
func (a *Anchor) Info() *AnchorInfo {
	p := a.Call.StartPoint()
	return &AnchorInfo{
		Name:   a.Name,
		Line:   int(p.Row) + 1,
		Column: int(p.Column) + 1,
		Index:  a.Index,
	}
}

// FindAnchor searches root depth-first for the first call to anchorCall and
// returns the enclosing statement-list position.
func FindAnchor(root *sitter.Node, src []byte, anchorCall string) (*Anchor, bool) {
	var call *sitter.Node
	var name string
	walk(root, func(n *sitter.Node) bool {
		if call != nil {
			return false
		}
		if n.Type() == "call_expression" {
			if callee := calleeName(n.ChildByFieldName("function"), src); matchesAnchor(callee, anchorCall) {
				call, name = n, callee
				return false
			}
		}
		return true
	})
	if call == nil {
		return nil, false
	}

	stmt := call
	for stmt.Parent() != nil && !statementLists[stmt.Parent().Type()] {
		stmt = stmt.Parent()
	}
	list := stmt.Parent()
	if list == nil {
		return nil, false
	}

	index := -1
	for i := 0; i < int(list.NamedChildCount()); i++ {
		if sameNode(list.NamedChild(i), stmt) {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, false
	}
	return &Anchor{List: list, Index: index, Statement: stmt, Call: call, Name: name}, true
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil &&
		a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// calleeName renders a callee as a dotted name ("cy.startRecording"). Callees
// that are not plain identifiers or member chains of identifiers render "".
func calleeName(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "identifier", "property_identifier", "this":
		return n.Content(src)
	case "member_expression":
		object := calleeName(n.ChildByFieldName("object"), src)
		property := n.ChildByFieldName("property")
		if object == "" || property == nil {
			return ""
		}
		return object + "." + property.Content(src)
	}
	return ""
}

func matchesAnchor(callee, anchorCall string) bool {
	if callee == "" || anchorCall == "" {
		return false
	}
	if callee == anchorCall {
		return true
	}
	if !strings.Contains(anchorCall, ".") {
		return lastSegment(callee) == anchorCall
	}
	return false
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// callNames collects the method or function name of every call in the tree,
// so cy.get("#a").click() yields "get" and "click".
func callNames(root *sitter.Node, src []byte) []string {
	seen := map[string]bool{}
	var names []string
	walk(root, func(n *sitter.Node) bool {
		if n.Type() != "call_expression" {
			return true
		}
		fn := n.ChildByFieldName("function")
		var name string
		switch {
		case fn == nil:
		case fn.Type() == "member_expression":
			if p := fn.ChildByFieldName("property"); p != nil {
				name = p.Content(src)
			}
		case fn.Type() == "identifier":
			name = fn.Content(src)
		}
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		return true
	})
	return names
}
