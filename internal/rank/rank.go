// Package rank computes node importance over the assembled graph: in/out
// degree centrality combined with PageRank into one score. Deliberately
// built on a compact adjacency-list representation with only the standard
// library — no graph library from the pack is pulled in here, since the
// whole point of this component is a purpose-built iterative numeric
// algorithm, not general graph traversal.
package rank

import (
	"math"
	"strings"

	"github.com/codegraph/codegraph/internal/assemble"
	"github.com/codegraph/codegraph/internal/graph"
)

const (
	damping    = 0.85
	tolerance  = 1e-6
	maxIters   = 100
)

// Score holds the computed importance for one node, plus the raw signals
// combined to produce it.
type Score struct {
	NodeID     int
	InDegree   int
	OutDegree  int
	PageRank   float64
	Importance float64
	Tags       []string
}

// adjacency is a CSR-like compact representation: outEdges[i] lists the
// node indices reachable directly from node i.
type adjacency struct {
	ids     []int       // ids[i] = original node id at index i
	index   map[int]int // original id -> compact index
	outEdges [][]int
	inEdges  [][]int
}

func buildAdjacency(nodes []*graph.LocalNode, edges []graph.LocalEdge) *adjacency {
	adj := &adjacency{index: make(map[int]int, len(nodes))}
	for i, n := range nodes {
		adj.index[n.LocalID] = i
		adj.ids = append(adj.ids, n.LocalID)
	}
	adj.outEdges = make([][]int, len(nodes))
	adj.inEdges = make([][]int, len(nodes))

	for _, e := range edges {
		si, sok := adj.index[e.SourceLocalID]
		ti, tok := adj.index[e.TargetLocalID]
		if !sok || !tok {
			continue
		}
		adj.outEdges[si] = append(adj.outEdges[si], ti)
		adj.inEdges[ti] = append(adj.inEdges[ti], si)
	}
	return adj
}

// Compute returns one Score per node in a.Nodes, in the same order.
func Compute(a *assemble.Assembled) []Score {
	n := len(a.Nodes)
	if n == 0 {
		return nil
	}
	adj := buildAdjacency(a.Nodes, a.Edges)
	pr := pageRank(adj)

	scores := make([]Score, n)
	maxIn, maxOut := 1, 1
	for i := range a.Nodes {
		if d := len(adj.inEdges[i]); d > maxIn {
			maxIn = d
		}
		if d := len(adj.outEdges[i]); d > maxOut {
			maxOut = d
		}
	}

	for i, node := range a.Nodes {
		inDeg := len(adj.inEdges[i])
		outDeg := len(adj.outEdges[i])
		inNorm := float64(inDeg) / float64(maxIn)
		outNorm := float64(outDeg) / float64(maxOut)

		combined := clamp01(0.4*inNorm + 0.2*outNorm + 0.4*pr[i])
		scores[i] = Score{
			NodeID:     node.LocalID,
			InDegree:   inDeg,
			OutDegree:  outDeg,
			PageRank:   pr[i],
			Importance: combined,
			Tags:       tagsFor(node, inDeg, outDeg, combined),
		}
	}
	return scores
}

// pageRank runs the standard power-iteration PageRank with damping=0.85,
// stopping at convergence (tolerance) or maxIters, whichever comes first.
// If it fails to converge, the last iteration's values are returned rather
// than erroring — importance ranking degrades gracefully, it never blocks
// an index run.
func pageRank(adj *adjacency) []float64 {
	n := len(adj.ids)
	if n == 0 {
		return nil
	}
	rank := make([]float64, n)
	for i := range rank {
		rank[i] = 1.0 / float64(n)
	}

	outDegree := make([]int, n)
	for i := range adj.outEdges {
		outDegree[i] = len(adj.outEdges[i])
	}

	danglingMass := func(r []float64) float64 {
		var sum float64
		for i, d := range outDegree {
			if d == 0 {
				sum += r[i]
			}
		}
		return sum
	}

	for iter := 0; iter < maxIters; iter++ {
		next := make([]float64, n)
		base := (1 - damping) / float64(n)
		dangling := damping * danglingMass(rank) / float64(n)

		for i := range next {
			next[i] = base + dangling
		}
		for i := 0; i < n; i++ {
			if outDegree[i] == 0 {
				continue
			}
			share := damping * rank[i] / float64(outDegree[i])
			for _, j := range adj.outEdges[i] {
				next[j] += share
			}
		}

		if converged(rank, next) {
			return next
		}
		rank = next
	}
	return rank
}

func converged(prev, next []float64) bool {
	var delta float64
	for i := range prev {
		d := next[i] - prev[i]
		if d < 0 {
			d = -d
		}
		delta += d
	}
	return delta < tolerance
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// tagsFor assigns the spec's importance-tagging rules.
func tagsFor(n *graph.LocalNode, inDeg, outDeg int, importance float64) []string {
	var tags []string
	if n.Kind == graph.KindClass {
		tags = append(tags, "structural")
	}
	if inDeg > 3 {
		tags = append(tags, "highly-used")
	}
	if outDeg > 3 {
		tags = append(tags, "complex")
	}
	if strings.Contains(strings.ToLower(n.Name), "test") {
		tags = append(tags, "test")
	}
	if n.Kind == graph.KindFile {
		tags = append(tags, "module")
	}
	return tags
}
