package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph/codegraph/internal/graph"
)

func fileResult(path string, funcs ...string) *graph.ParseResult {
	pr := graph.NewParseResult(path, "go")
	fileID := pr.AddNode(&graph.LocalNode{Kind: graph.KindFile, Name: path, Path: path})
	pr.FileNodeLocalID = fileID
	for _, fn := range funcs {
		id := pr.AddNode(&graph.LocalNode{Kind: graph.KindFunction, Name: fn, Path: path})
		pr.AddEdge(fileID, id, graph.EdgeContains)
	}
	return pr
}

func TestIntegrateDedupsFileNodes(t *testing.T) {
	a := New()
	a.Integrate(fileResult("a.go", "Foo"))
	a.Integrate(fileResult("a.go", "Bar"))

	asm := a.Finish()
	fileCount := 0
	for _, n := range asm.Nodes {
		if n.Kind == graph.KindFile {
			fileCount++
		}
	}
	assert.Equal(t, 1, fileCount, "re-integrating the same path should not duplicate the file node")
}

func TestSkipsFailedParseResult(t *testing.T) {
	a := New()
	pr := fileResult("broken.go", "Foo")
	pr.Fail("syntax error")
	a.Integrate(pr)

	asm := a.Finish()
	assert.Empty(t, asm.Nodes)
}

func TestResolvesSameFileCall(t *testing.T) {
	pr := fileResult("a.go", "Caller", "Callee")
	var callerID int
	for id, n := range pr.Nodes {
		if n.Name == "Caller" {
			callerID = id
		}
	}
	pr.AddPendingCall(callerID, "Callee")

	a := New()
	a.Integrate(pr)
	asm := a.Finish()

	found := false
	for _, e := range asm.Edges {
		if e.Kind == graph.EdgeCalls && e.Weight == 1.0 {
			found = true
		}
	}
	assert.True(t, found, "expected a same-file call edge at weight 1.0")
}

func TestResolvesUnambiguousCrossFileCall(t *testing.T) {
	callerResult := fileResult("caller.go", "Caller")
	var callerID int
	for id, n := range callerResult.Nodes {
		if n.Name == "Caller" {
			callerID = id
		}
	}
	callerResult.AddPendingCall(callerID, "Helper")

	calleeResult := fileResult("callee.go", "Helper")

	a := New()
	a.Integrate(callerResult)
	a.Integrate(calleeResult)
	asm := a.Finish()

	found := false
	for _, e := range asm.Edges {
		if e.Kind == graph.EdgeCalls && e.Weight == 0.6 {
			found = true
		}
	}
	assert.True(t, found, "expected an unambiguous cross-file call edge at weight 0.6")
}

func TestAmbiguousCrossFileCallPicksAlphabeticallyFirstPath(t *testing.T) {
	callerResult := fileResult("caller.go", "Caller")
	var callerID int
	for id, n := range callerResult.Nodes {
		if n.Name == "Caller" {
			callerID = id
		}
	}
	callerResult.AddPendingCall(callerID, "Helper")

	zResult := fileResult("zzz.go", "Helper")
	aResult := fileResult("aaa.go", "Helper")

	a := New()
	a.Integrate(callerResult)
	a.Integrate(zResult)
	a.Integrate(aResult)
	asm := a.Finish()

	byID := make(map[int]*graph.LocalNode)
	for _, n := range asm.Nodes {
		byID[n.LocalID] = n
	}

	var target *graph.LocalNode
	for _, e := range asm.Edges {
		if e.Kind == graph.EdgeCalls {
			target = byID[e.TargetLocalID]
		}
	}
	require.NotNil(t, target)
	assert.Equal(t, "aaa.go", target.Path)
}

func TestIntegrateCarriesDetectionsThrough(t *testing.T) {
	pr := fileResult("a.go", "Foo")
	pr.Patterns = append(pr.Patterns, graph.Pattern{Kind: "singleton", Confidence: 0.5, Path: "a.go"})
	pr.Libraries = append(pr.Libraries, graph.Library{Kind: "database", Name: "GORM", Confidence: 0.7})

	a := New()
	a.Integrate(pr)
	asm := a.Finish()

	require.Len(t, asm.Patterns, 1)
	assert.Equal(t, "singleton", asm.Patterns[0].Kind)
	require.Len(t, asm.Libraries, 1)
	assert.Equal(t, "GORM", asm.Libraries[0].Name)
}

func TestUnresolvableCalleeProducesNoEdge(t *testing.T) {
	pr := fileResult("a.go", "Caller")
	var callerID int
	for id, n := range pr.Nodes {
		if n.Name == "Caller" {
			callerID = id
		}
	}
	pr.AddPendingCall(callerID, "NeverDefined")

	a := New()
	a.Integrate(pr)
	asm := a.Finish()

	for _, e := range asm.Edges {
		assert.NotEqual(t, graph.EdgeCalls, e.Kind)
	}
}
