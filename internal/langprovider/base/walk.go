// Package base provides tree-sitter plumbing shared by every language
// provider: parsing, location conversion, and a pre-order walk helper. It
// mirrors the teacher's providers/base package, generalized from DSL query
// matching to node/edge extraction.
package base

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/codegraph/codegraph/internal/graph"
)

// Parse runs a tree-sitter parse of content using lang and returns the
// parsed tree. Callers must call Close on the returned tree when done.
func Parse(lang *sitter.Language, content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	return parser.ParseCtx(context.Background(), nil, content)
}

// Walk visits every node in the tree in pre-order, calling visit(node,
// parent). Stops descending into a subtree when visit returns false.
func Walk(node, parent *sitter.Node, visit func(node, parent *sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visit(node, parent) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		Walk(node.Child(i), node, visit)
	}
}

// Location converts a tree-sitter node's start point into a graph.Location
// (1-based line and column, matching spec §3's "line, column").
func Location(n *sitter.Node) *graph.Location {
	if n == nil {
		return nil
	}
	pt := n.StartPoint()
	return &graph.Location{Line: int(pt.Row) + 1, Column: int(pt.Column) + 1}
}

// Text returns the source slice covered by n.
func Text(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	return string(source[n.StartByte():n.EndByte()])
}

// HasSyntaxErrors reports whether the tree contains any ERROR nodes.
func HasSyntaxErrors(root *sitter.Node) bool {
	found := false
	Walk(root, nil, func(n, _ *sitter.Node) bool {
		if found {
			return false
		}
		if n.IsError() || n.IsMissing() {
			found = true
			return false
		}
		return true
	})
	return found
}
