// Package golang implements the Go language provider: extraction of file,
// function, method, type, import, and variable nodes from Go source via
// tree-sitter, grounded on the teacher's providers/golang config (the same
// node-type aliasing table, repurposed from DSL query matching to graph
// extraction).
package golang

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tsgolang "github.com/smacker/go-tree-sitter/golang"

	"github.com/codegraph/codegraph/internal/graph"
	"github.com/codegraph/codegraph/internal/langprovider/base"
)

// Provider extracts a code graph from Go source.
type Provider struct{}

// New returns a Go language provider.
func New() *Provider { return &Provider{} }

func (p *Provider) Lang() string           { return "go" }
func (p *Provider) Aliases() []string      { return []string{"golang"} }
func (p *Provider) Extensions() []string   { return []string{".go"} }
func (p *Provider) CanParse(path string, sample []byte) bool {
	return strings.Contains(string(sample), "package ") && bytesLooksLikeGo(sample)
}

func bytesLooksLikeGo(sample []byte) bool {
	s := string(sample)
	return strings.Contains(s, "func ") || strings.Contains(s, "package ")
}

// Parse extracts nodes and relationships from Go source.
func (p *Provider) Parse(path string, content []byte) *graph.ParseResult {
	pr := graph.NewParseResult(path, p.Lang())

	fileName := filepath.Base(path)
	fileLocal := pr.AddNode(&graph.LocalNode{
		Kind:    graph.KindFile,
		Name:    fileName,
		Path:    path,
		Language: p.Lang(),
		Summary: fmt.Sprintf("Go file: %s", fileName),
	})
	pr.FileNodeLocalID = fileLocal

	tree, err := base.Parse(tsgolang.GetLanguage(), content)
	if err != nil || tree == nil {
		return pr.Fail(fmt.Sprintf("failed to parse: %v", err))
	}
	defer tree.Close()

	root := tree.RootNode()
	if base.HasSyntaxErrors(root) {
		// Soft failure: keep the file node, record the error, stop extracting.
		pr.Success = false
		pr.Error = "syntax errors in Go source"
		return pr
	}

	// currentFunc tracks the enclosing function/method local ID while walking,
	// so call expressions can be attributed to their caller; it is cleared
	// once the walk passes the end of that declaration.
	var currentFunc *int
	var currentFuncEnd uint32

	base.Walk(root, nil, func(n, parent *sitter.Node) bool {
		if currentFunc != nil && n.StartByte() >= currentFuncEnd {
			currentFunc = nil
		}
		switch n.Type() {
		case "import_spec":
			path := importPath(n, content)
			if path != "" {
				imp := pr.AddNode(&graph.LocalNode{
					Kind:     graph.KindImport,
					Name:     path,
					Path:     fileName,
					Language: p.Lang(),
					Location: base.Location(n),
					Summary:  "Import: " + path,
				})
				pr.AddEdge(fileLocal, imp, graph.EdgeContains)
			}
		case "function_declaration":
			name := childFieldText(n, "name", content)
			if name == "" {
				break
			}
			fn := pr.AddNode(&graph.LocalNode{
				Kind:     graph.KindFunction,
				Name:     name,
				Path:     fileName,
				Language: p.Lang(),
				Location: base.Location(n),
				Summary:  "Function: " + name,
			})
			pr.AddEdge(fileLocal, fn, graph.EdgeContains)
			localFn := fn
			currentFunc = &localFn
			currentFuncEnd = n.EndByte()
		case "method_declaration":
			name := childFieldText(n, "name", content)
			owner := receiverTypeName(n, content)
			qualified := graph.QualifyMethod(owner, name)
			if name == "" {
				break
			}
			m := pr.AddNode(&graph.LocalNode{
				Kind:     graph.KindMethod,
				Name:     qualified,
				Path:     fileName,
				Language: p.Lang(),
				Location: base.Location(n),
				Summary:  "Method: " + qualified,
			})
			pr.AddEdge(fileLocal, m, graph.EdgeContains)
			localM := m
			currentFunc = &localM
			currentFuncEnd = n.EndByte()
		case "type_spec":
			name := childFieldText(n, "name", content)
			typeNode := n.ChildByFieldName("type")
			if name == "" || typeNode == nil {
				break
			}
			kind := graph.KindClass
			if typeNode.Type() == "interface_type" {
				kind = graph.KindInterface
			}
			t := pr.AddNode(&graph.LocalNode{
				Kind:     kind,
				Name:     name,
				Path:     fileName,
				Language: p.Lang(),
				Location: base.Location(n),
				Summary:  capitalize(string(kind)) + ": " + name,
			})
			pr.AddEdge(fileLocal, t, graph.EdgeContains)
		case "var_declaration", "short_var_declaration", "const_declaration":
			names := varNames(n, content)
			scope := "local"
			if parent != nil && parent.Type() == "source_file" {
				scope = "global"
			}
			for _, name := range names {
				v := pr.AddNode(&graph.LocalNode{
					Kind:     graph.KindVariable,
					Name:     name,
					Path:     fileName,
					Language: p.Lang(),
					Location: base.Location(n),
					Summary:  "Variable: " + name,
					UsageStats: map[string]any{"scope": scope},
				})
				pr.AddEdge(fileLocal, v, graph.EdgeContains)
			}
		case "call_expression":
			callee := calleeName(n, content)
			if callee != "" && currentFunc != nil {
				pr.AddPendingCall(*currentFunc, callee)
			}
		}
		return true
	})

	return pr
}

func importPath(n *sitter.Node, source []byte) string {
	pathNode := n.ChildByFieldName("path")
	if pathNode == nil {
		return ""
	}
	raw := base.Text(pathNode, source)
	unquoted, err := strconv.Unquote(raw)
	if err != nil {
		return strings.Trim(raw, "\"`")
	}
	return unquoted
}

func childFieldText(n *sitter.Node, field string, source []byte) string {
	c := n.ChildByFieldName(field)
	if c == nil {
		return ""
	}
	return base.Text(c, source)
}

func receiverTypeName(n *sitter.Node, source []byte) string {
	recv := n.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	name := ""
	base.Walk(recv, nil, func(c, _ *sitter.Node) bool {
		if c.Type() == "type_identifier" {
			name = base.Text(c, source)
			return false
		}
		return true
	})
	return name
}

func varNames(n *sitter.Node, source []byte) []string {
	var names []string
	base.Walk(n, nil, func(c, parent *sitter.Node) bool {
		if c.Type() == "identifier" && parent != nil &&
			(parent.Type() == "var_spec" || parent.Type() == "const_spec" || parent.Type() == "expression_list" || n.Type() == "short_var_declaration") {
			names = append(names, base.Text(c, source))
		}
		return true
	})
	return names
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func calleeName(n *sitter.Node, source []byte) string {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return base.Text(fn, source)
	case "selector_expression":
		field := fn.ChildByFieldName("field")
		if field != nil {
			return base.Text(field, source)
		}
	}
	return ""
}
