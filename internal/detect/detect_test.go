package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph/codegraph/internal/graph"
)

func node(kind graph.NodeKind, name string) *graph.LocalNode {
	return &graph.LocalNode{Kind: kind, Name: name}
}

func TestDetectSingletonByInstanceAccessor(t *testing.T) {
	pr := graph.NewParseResult("db.go", "go")
	pr.AddNode(node(graph.KindClass, "DatabaseConnection"))
	pr.AddNode(node(graph.KindMethod, "GetInstance"))

	Run(pr)

	require.NotEmpty(t, pr.Patterns)
	var kinds []string
	for _, p := range pr.Patterns {
		kinds = append(kinds, p.Kind)
	}
	assert.Contains(t, kinds, "singleton")
}

func TestDetectBuilderByChainedWithMethods(t *testing.T) {
	pr := graph.NewParseResult("builder.go", "go")
	pr.AddNode(node(graph.KindMethod, "WithEngine"))
	pr.AddNode(node(graph.KindMethod, "WithColor"))
	pr.AddNode(node(graph.KindMethod, "Build"))

	Run(pr)

	var found bool
	for _, p := range pr.Patterns {
		if p.Kind == "builder" {
			found = true
			assert.Greater(t, p.Confidence, 0.0)
			assert.Less(t, p.Confidence, 1.0)
		}
	}
	assert.True(t, found, "expected a builder pattern match")
}

func TestDetectNoPatternsOnUnrelatedNames(t *testing.T) {
	pr := graph.NewParseResult("util.go", "go")
	pr.AddNode(node(graph.KindFunction, "Add"))
	pr.AddNode(node(graph.KindFunction, "Subtract"))

	Run(pr)

	assert.Empty(t, pr.Patterns)
}

func TestDetectLibraryFromImport(t *testing.T) {
	pr := graph.NewParseResult("main.go", "go")
	pr.AddNode(node(graph.KindImport, "gorm.io/gorm"))
	pr.AddNode(node(graph.KindImport, "github.com/gin-gonic/gin"))

	Run(pr)

	require.Len(t, pr.Libraries, 2)
	var kinds []string
	for _, l := range pr.Libraries {
		kinds = append(kinds, l.Kind)
	}
	assert.Contains(t, kinds, "database")
	assert.Contains(t, kinds, "web-framework")
}

func TestDetectLibraryIgnoresUnknownImports(t *testing.T) {
	pr := graph.NewParseResult("main.go", "go")
	pr.AddNode(node(graph.KindImport, "github.com/acme/widgets"))

	Run(pr)

	assert.Empty(t, pr.Libraries)
}

func TestPatternConfidenceNeverReachesOne(t *testing.T) {
	pr := graph.NewParseResult("builder.go", "go")
	for i := 0; i < 20; i++ {
		pr.AddNode(node(graph.KindMethod, "With"))
	}
	pr.AddNode(node(graph.KindMethod, "Build"))

	Run(pr)

	for _, p := range pr.Patterns {
		assert.LessOrEqual(t, p.Confidence, 0.9)
	}
}
