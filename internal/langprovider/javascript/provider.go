// Package javascript implements the JavaScript/TypeScript family provider,
// grounded on the teacher's providers/javascript node-type aliasing. The
// typescript package embeds Provider with its own tree-sitter grammar.
package javascript

import (
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tsjavascript "github.com/smacker/go-tree-sitter/javascript"

	"github.com/codegraph/codegraph/internal/graph"
	"github.com/codegraph/codegraph/internal/langprovider/base"
)

// Provider extracts a code graph from JavaScript source. lang/ext/grammar
// are overridable so the typescript package can reuse the same walker.
type Provider struct {
	lang string
	exts []string
	grammar *sitter.Language
}

func New() *Provider {
	return &Provider{
		lang: "javascript",
		exts: []string{".js", ".jsx", ".mjs", ".cjs"},
		grammar: tsjavascript.GetLanguage(),
	}
}

// NewWith lets a sibling provider (typescript) reuse this walker against a
// different grammar and extension set.
func NewWith(lang string, exts []string, grammar *sitter.Language) *Provider {
	return &Provider{lang: lang, exts: exts, grammar: grammar}
}

func (p *Provider) Lang() string         { return p.lang }
func (p *Provider) Aliases() []string    { if p.lang == "javascript" { return []string{"js"} }; return []string{"ts"} }
func (p *Provider) Extensions() []string { return p.exts }
func (p *Provider) CanParse(path string, sample []byte) bool {
	s := string(sample)
	return strings.Contains(s, "function ") || strings.Contains(s, "=>") || strings.Contains(s, "require(")
}

func (p *Provider) Parse(path string, content []byte) *graph.ParseResult {
	pr := graph.NewParseResult(path, p.lang)

	fileName := filepath.Base(path)
	fileLocal := pr.AddNode(&graph.LocalNode{
		Kind: graph.KindFile, Name: fileName, Path: path,
		Language: p.lang, Summary: fmt.Sprintf("%s file: %s", capitalize(p.lang), fileName),
	})
	pr.FileNodeLocalID = fileLocal

	tree, err := base.Parse(p.grammar, content)
	if err != nil || tree == nil {
		return pr.Fail(fmt.Sprintf("failed to parse: %v", err))
	}
	defer tree.Close()

	root := tree.RootNode()
	if base.HasSyntaxErrors(root) {
		pr.Success = false
		pr.Error = fmt.Sprintf("syntax errors in %s source", p.lang)
		return pr
	}

	var currentFunc *int

	base.Walk(root, nil, func(n, parent *sitter.Node) bool {
		switch n.Type() {
		case "import_statement":
			src := n.ChildByFieldName("source")
			if src != nil {
				name := strings.Trim(base.Text(src, content), "\"'`")
				imp := pr.AddNode(&graph.LocalNode{
					Kind: graph.KindImport, Name: name, Path: fileName,
					Language: p.lang, Location: base.Location(n),
					Summary: "Import: " + name,
				})
				pr.AddEdge(fileLocal, imp, graph.EdgeContains)
			}
		case "class_declaration":
			name := fieldText(n, "name", content)
			if name == "" {
				break
			}
			cls := pr.AddNode(&graph.LocalNode{
				Kind: graph.KindClass, Name: name, Path: fileName,
				Language: p.lang, Location: base.Location(n),
				Summary: "Class: " + name,
			})
			pr.AddEdge(fileLocal, cls, graph.EdgeContains)
		case "interface_declaration":
			name := fieldText(n, "name", content)
			if name == "" {
				break
			}
			iface := pr.AddNode(&graph.LocalNode{
				Kind: graph.KindInterface, Name: name, Path: fileName,
				Language: p.lang, Location: base.Location(n),
				Summary: "Interface: " + name,
			})
			pr.AddEdge(fileLocal, iface, graph.EdgeContains)
		case "function_declaration":
			name := fieldText(n, "name", content)
			if name == "" {
				break
			}
			fn := pr.AddNode(&graph.LocalNode{
				Kind: graph.KindFunction, Name: name, Path: fileName,
				Language: p.lang, Location: base.Location(n),
				Summary: "Function: " + name,
			})
			pr.AddEdge(fileLocal, fn, graph.EdgeContains)
			localFn := fn
			currentFunc = &localFn
		case "method_definition":
			name := fieldText(n, "name", content)
			owner := enclosingClassName(n, content)
			if name == "" {
				break
			}
			qualified := graph.QualifyMethod(owner, name)
			m := pr.AddNode(&graph.LocalNode{
				Kind: graph.KindMethod, Name: qualified, Path: fileName,
				Language: p.lang, Location: base.Location(n),
				Summary: "Method: " + qualified,
			})
			pr.AddEdge(fileLocal, m, graph.EdgeContains)
			localM := m
			currentFunc = &localM
		case "variable_declarator":
			name := fieldText(n, "name", content)
			if name == "" {
				break
			}
			scope := "local"
			if isProgramLevel(n) {
				scope = "global"
			}
			v := pr.AddNode(&graph.LocalNode{
				Kind: graph.KindVariable, Name: name, Path: fileName,
				Language: p.lang, Location: base.Location(n),
				Summary:    "Variable: " + name,
				UsageStats: map[string]any{"scope": scope},
			})
			pr.AddEdge(fileLocal, v, graph.EdgeContains)
		case "call_expression":
			fnNode := n.ChildByFieldName("function")
			if fnNode != nil && currentFunc != nil {
				if callee := calleeName(fnNode, content); callee != "" {
					pr.AddPendingCall(*currentFunc, callee)
				}
			}
		}
		return true
	})

	return pr
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func fieldText(n *sitter.Node, field string, source []byte) string {
	c := n.ChildByFieldName(field)
	if c == nil {
		return ""
	}
	return base.Text(c, source)
}

func enclosingClassName(n *sitter.Node, source []byte) string {
	cur := n.Parent()
	for cur != nil {
		if cur.Type() == "class_declaration" || cur.Type() == "class_body" {
			if cur.Type() == "class_declaration" {
				return fieldText(cur, "name", source)
			}
		}
		cur = cur.Parent()
	}
	return ""
}

func isProgramLevel(n *sitter.Node) bool {
	cur := n.Parent()
	for cur != nil {
		if cur.Type() == "function_declaration" || cur.Type() == "arrow_function" ||
			cur.Type() == "method_definition" || cur.Type() == "function_expression" {
			return false
		}
		if cur.Type() == "program" {
			return true
		}
		cur = cur.Parent()
	}
	return false
}

func calleeName(n *sitter.Node, source []byte) string {
	switch n.Type() {
	case "identifier":
		return base.Text(n, source)
	case "member_expression":
		prop := n.ChildByFieldName("property")
		if prop != nil {
			return base.Text(prop, source)
		}
	}
	return ""
}
