// Package python implements the Python language provider, grounded on
// claude_code_indexer's original AST walk (ast.Import/ImportFrom/ClassDef/
// FunctionDef handling in code_graph_indexer.py) and on the teacher's
// providers/python node-type aliasing.
package python

import (
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tspython "github.com/smacker/go-tree-sitter/python"

	"github.com/codegraph/codegraph/internal/graph"
	"github.com/codegraph/codegraph/internal/langprovider/base"
)

// Provider extracts a code graph from Python source.
type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) Lang() string         { return "python" }
func (p *Provider) Aliases() []string    { return []string{"py"} }
func (p *Provider) Extensions() []string { return []string{".py", ".pyw", ".pyi"} }
func (p *Provider) CanParse(path string, sample []byte) bool {
	s := string(sample)
	return strings.Contains(s, "def ") || strings.Contains(s, "import ")
}

func (p *Provider) Parse(path string, content []byte) *graph.ParseResult {
	pr := graph.NewParseResult(path, p.Lang())

	fileName := filepath.Base(path)
	fileLocal := pr.AddNode(&graph.LocalNode{
		Kind:     graph.KindFile,
		Name:     fileName,
		Path:     path,
		Language: p.Lang(),
		Summary:  fmt.Sprintf("Python file: %s", fileName),
	})
	pr.FileNodeLocalID = fileLocal

	tree, err := base.Parse(tspython.GetLanguage(), content)
	if err != nil || tree == nil {
		return pr.Fail(fmt.Sprintf("failed to parse: %v", err))
	}
	defer tree.Close()

	root := tree.RootNode()
	if base.HasSyntaxErrors(root) {
		pr.Success = false
		pr.Error = "syntax errors in Python source"
		return pr
	}

	var currentFunc *int

	base.Walk(root, nil, func(n, parent *sitter.Node) bool {
		switch n.Type() {
		case "import_statement":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				if child.Type() == "dotted_name" || child.Type() == "aliased_import" {
					name := moduleName(child, content)
					if name != "" {
						imp := pr.AddNode(&graph.LocalNode{
							Kind: graph.KindImport, Name: name, Path: fileName,
							Language: p.Lang(), Location: base.Location(n),
							Summary: "Import: " + name,
						})
						pr.AddEdge(fileLocal, imp, graph.EdgeContains)
					}
				}
			}
		case "import_from_statement":
			moduleNode := n.ChildByFieldName("module_name")
			if moduleNode != nil {
				name := base.Text(moduleNode, content)
				imp := pr.AddNode(&graph.LocalNode{
					Kind: graph.KindImport, Name: name, Path: fileName,
					Language: p.Lang(), Location: base.Location(n),
					Summary: "Import from: " + name,
				})
				pr.AddEdge(fileLocal, imp, graph.EdgeContains)
			}
		case "class_definition":
			name := fieldText(n, "name", content)
			if name == "" {
				break
			}
			cls := pr.AddNode(&graph.LocalNode{
				Kind: graph.KindClass, Name: name, Path: fileName,
				Language: p.Lang(), Location: base.Location(n),
				Summary: "Class: " + name,
			})
			pr.AddEdge(fileLocal, cls, graph.EdgeContains)
		case "function_definition":
			name := fieldText(n, "name", content)
			if name == "" {
				break
			}
			owner := enclosingClassName(n, content)
			var fn int
			if owner != "" {
				qualified := graph.QualifyMethod(owner, name)
				fn = pr.AddNode(&graph.LocalNode{
					Kind: graph.KindMethod, Name: qualified, Path: fileName,
					Language: p.Lang(), Location: base.Location(n),
					Summary: "Method: " + qualified,
				})
			} else {
				fn = pr.AddNode(&graph.LocalNode{
					Kind: graph.KindFunction, Name: name, Path: fileName,
					Language: p.Lang(), Location: base.Location(n),
					Summary: "Function: " + name,
				})
			}
			pr.AddEdge(fileLocal, fn, graph.EdgeContains)
			localFn := fn
			currentFunc = &localFn
		case "assignment":
			left := n.ChildByFieldName("left")
			if left != nil && left.Type() == "identifier" {
				scope := "local"
				if parent != nil && (parent.Type() == "module" || parent.Type() == "expression_statement" && isTopLevel(n)) {
					scope = "global"
				}
				name := base.Text(left, content)
				v := pr.AddNode(&graph.LocalNode{
					Kind: graph.KindVariable, Name: name, Path: fileName,
					Language: p.Lang(), Location: base.Location(n),
					Summary:    "Variable: " + name,
					UsageStats: map[string]any{"scope": scope},
				})
				pr.AddEdge(fileLocal, v, graph.EdgeContains)
			}
		case "call":
			fn := n.ChildByFieldName("function")
			if fn != nil && currentFunc != nil {
				callee := calleeName(fn, content)
				if callee != "" {
					pr.AddPendingCall(*currentFunc, callee)
				}
			}
		}
		return true
	})

	return pr
}

func fieldText(n *sitter.Node, field string, source []byte) string {
	c := n.ChildByFieldName(field)
	if c == nil {
		return ""
	}
	return base.Text(c, source)
}

func moduleName(n *sitter.Node, source []byte) string {
	if n.Type() == "aliased_import" {
		name := n.ChildByFieldName("name")
		if name != nil {
			return base.Text(name, source)
		}
		return ""
	}
	return base.Text(n, source)
}

// enclosingClassName walks up parent pointers (tree-sitter nodes expose
// Parent()) to find the nearest class_definition ancestor's name, if any.
func enclosingClassName(n *sitter.Node, source []byte) string {
	cur := n.Parent()
	for cur != nil {
		if cur.Type() == "class_definition" {
			return fieldText(cur, "name", source)
		}
		cur = cur.Parent()
	}
	return ""
}

func isTopLevel(n *sitter.Node) bool {
	p := n.Parent()
	return p != nil && p.Parent() != nil && p.Parent().Type() == "module"
}

func calleeName(n *sitter.Node, source []byte) string {
	switch n.Type() {
	case "identifier":
		return base.Text(n, source)
	case "attribute":
		attr := n.ChildByFieldName("attribute")
		if attr != nil {
			return base.Text(attr, source)
		}
	}
	return ""
}
