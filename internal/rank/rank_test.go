package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph/codegraph/internal/assemble"
	"github.com/codegraph/codegraph/internal/graph"
)

func node(id int, kind graph.NodeKind, name string) *graph.LocalNode {
	return &graph.LocalNode{LocalID: id, Kind: kind, Name: name, Path: name}
}

func TestComputeEmptyGraph(t *testing.T) {
	assert.Nil(t, Compute(&assemble.Assembled{}))
}

func TestHighInDegreeNodeRanksAbovePeripheralNode(t *testing.T) {
	// A hub function called by four others should outrank a leaf no one calls.
	hub := node(0, graph.KindFunction, "Hub")
	leaf := node(1, graph.KindFunction, "Leaf")
	callers := []*graph.LocalNode{
		node(2, graph.KindFunction, "C1"),
		node(3, graph.KindFunction, "C2"),
		node(4, graph.KindFunction, "C3"),
		node(5, graph.KindFunction, "C4"),
	}

	nodes := append([]*graph.LocalNode{hub, leaf}, callers...)
	var edges []graph.LocalEdge
	for _, c := range callers {
		edges = append(edges, graph.LocalEdge{SourceLocalID: c.LocalID, TargetLocalID: hub.LocalID, Kind: graph.EdgeCalls, Weight: 1})
	}

	scores := Compute(&assemble.Assembled{Nodes: nodes, Edges: edges})

	var hubScore, leafScore Score
	for _, s := range scores {
		if s.NodeID == hub.LocalID {
			hubScore = s
		}
		if s.NodeID == leaf.LocalID {
			leafScore = s
		}
	}

	assert.Greater(t, hubScore.Importance, leafScore.Importance)
	assert.Equal(t, 4, hubScore.InDegree)
	assert.Contains(t, hubScore.Tags, "highly-used")
}

func TestFileNodeTaggedModule(t *testing.T) {
	f := node(0, graph.KindFile, "main.go")
	scores := Compute(&assemble.Assembled{Nodes: []*graph.LocalNode{f}})
	require.Len(t, scores, 1)
	assert.Contains(t, scores[0].Tags, "module")
	assert.NotContains(t, scores[0].Tags, "structural", "only classes are tagged structural")
}

func TestClassNodeTaggedStructural(t *testing.T) {
	c := node(0, graph.KindClass, "Widget")
	scores := Compute(&assemble.Assembled{Nodes: []*graph.LocalNode{c}})
	require.Len(t, scores, 1)
	assert.Contains(t, scores[0].Tags, "structural")
}

func TestTestFileTagged(t *testing.T) {
	f := node(0, graph.KindFile, "store_test.go")
	scores := Compute(&assemble.Assembled{Nodes: []*graph.LocalNode{f}})
	require.Len(t, scores, 1)
	assert.Contains(t, scores[0].Tags, "test")
}

func TestMethodNameContainingTestIsTagged(t *testing.T) {
	m := node(0, graph.KindMethod, "C.testThing")
	scores := Compute(&assemble.Assembled{Nodes: []*graph.LocalNode{m}})
	require.Len(t, scores, 1)
	assert.Contains(t, scores[0].Tags, "test")
}

func TestImportanceStaysWithinUnitRange(t *testing.T) {
	a := node(0, graph.KindFunction, "A")
	b := node(1, graph.KindFunction, "B")
	scores := Compute(&assemble.Assembled{
		Nodes: []*graph.LocalNode{a, b},
		Edges: []graph.LocalEdge{{SourceLocalID: 0, TargetLocalID: 1, Kind: graph.EdgeCalls, Weight: 1}},
	})
	for _, s := range scores {
		assert.GreaterOrEqual(t, s.Importance, 0.0)
		assert.LessOrEqual(t, s.Importance, 1.0)
	}
}
