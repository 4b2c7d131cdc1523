// Package assemble integrates per-file graph.ParseResult values into one
// project-wide graph: monotonic global IDs, local-ID remapping, dedup on
// (kind, name, path), and best-effort cross-file call/import resolution.
// Grounded on core/transaction.go's stage-then-apply pattern: the whole
// assembled graph is built in memory first and handed to internal/store as
// one replacement set, never written incrementally.
package assemble

import (
	"sort"
	"strings"

	"github.com/codegraph/codegraph/internal/graph"
)

// Assembled is the project-wide graph ready for persistence.
type Assembled struct {
	Nodes     []*graph.LocalNode // LocalID here is the final GLOBAL id
	Edges     []graph.LocalEdge  // SourceLocalID/TargetLocalID are global ids
	Patterns  []graph.Pattern
	Libraries []graph.Library
}

type dedupKey struct {
	kind graph.NodeKind
	name string
	path string
}

// Assembler accumulates ParseResults across an index run.
type Assembler struct {
	nextID int

	nodes    []*graph.LocalNode
	seen     map[dedupKey]int // dedupKey -> global id
	edges    []graph.LocalEdge
	fileByName map[string]int // file basename -> global file node id

	// funcsByName indexes function/method nodes by their bare (unqualified)
	// name for cross-file call resolution.
	funcsByName map[string][]int
	// pendingCalls accumulates (callerGlobalID, callee, caller's file node ID)
	// until Finish resolves them, once every file has been integrated.
	pendingCalls []pendingCall

	patterns  []graph.Pattern
	libraries []graph.Library
}

type pendingCall struct {
	callerGlobal int
	callee       string
	fileGlobal   int
}

// New returns an empty Assembler.
func New() *Assembler {
	return &Assembler{
		seen:        make(map[dedupKey]int),
		fileByName:  make(map[string]int),
		funcsByName: make(map[string][]int),
	}
}

// Integrate folds one file's ParseResult into the running assembly. Safe to
// call sequentially as each worker finishes a file (the orchestrator
// serializes calls through a single integrator goroutine).
func (a *Assembler) Integrate(pr *graph.ParseResult) {
	if pr == nil || !pr.Success {
		return
	}

	a.patterns = append(a.patterns, pr.Patterns...)
	a.libraries = append(a.libraries, pr.Libraries...)

	localToGlobal := make(map[int]int, len(pr.Nodes))

	ids := make([]int, 0, len(pr.Nodes))
	for id := range pr.Nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, localID := range ids {
		n := pr.Nodes[localID]
		key := dedupKey{kind: n.Kind, name: n.Name, path: n.Path}
		if existing, ok := a.seen[key]; ok {
			localToGlobal[localID] = existing
			continue
		}
		global := a.nextID
		a.nextID++

		copyNode := *n
		copyNode.LocalID = global
		a.nodes = append(a.nodes, &copyNode)
		a.seen[key] = global
		localToGlobal[localID] = global

		switch n.Kind {
		case graph.KindFile:
			a.fileByName[n.Name] = global
		case graph.KindFunction, graph.KindMethod:
			bare := n.Name
			if idx := strings.LastIndex(bare, "."); idx >= 0 {
				bare = bare[idx+1:]
			}
			a.funcsByName[bare] = append(a.funcsByName[bare], global)
		}
	}

	for _, e := range pr.Relationships {
		src, srcOK := localToGlobal[e.SourceLocalID]
		dst, dstOK := localToGlobal[e.TargetLocalID]
		if !srcOK || !dstOK {
			continue
		}
		a.edges = append(a.edges, graph.LocalEdge{
			SourceLocalID: src,
			TargetLocalID: dst,
			Kind:          e.Kind,
			Weight:        e.Weight,
		})
	}

	fileGlobal, hasFile := localToGlobal[pr.FileNodeLocalID]
	for _, pc := range pr.PendingCalls {
		callerGlobal, ok := localToGlobal[pc.CallerLocalID]
		if !ok {
			continue
		}
		pcFile := -1
		if hasFile {
			pcFile = fileGlobal
		}
		a.pendingCalls = append(a.pendingCalls, pendingCall{
			callerGlobal: callerGlobal,
			callee:       pc.Callee,
			fileGlobal:   pcFile,
		})
	}

	// Resolve file->file imports: an import node's Name may match another
	// integrated file's basename (best-effort, since module-path-to-file
	// resolution is language/build-system specific and out of scope).
	if hasFile {
		for _, localID := range ids {
			n := pr.Nodes[localID]
			if n.Kind != graph.KindImport {
				continue
			}
			base := n.Name
			if idx := strings.LastIndex(base, "/"); idx >= 0 {
				base = base[idx+1:]
			}
			for candidateName, targetGlobal := range a.fileByName {
				if strings.Contains(candidateName, base) || strings.Contains(base, strings.TrimSuffix(candidateName, extOf(candidateName))) {
					a.edges = append(a.edges, graph.LocalEdge{
						SourceLocalID: fileGlobal,
						TargetLocalID: targetGlobal,
						Kind:          graph.EdgeImports,
						Weight:        0.5,
					})
				}
			}
		}
	}
}

func extOf(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx:]
	}
	return ""
}

// Finish resolves every pending call by unqualified-name match and returns
// the completed graph. Same-file matches get full weight; an unambiguous
// cross-file match gets a reduced weight; an ambiguous cross-file match
// (more than one candidate file) picks the alphabetically-first candidate
// path at a further-reduced weight (documented Open Question resolution:
// deterministic over "first seen", since integration order is walk order).
func (a *Assembler) Finish() *Assembled {
	for _, pc := range a.pendingCalls {
		candidates := a.funcsByName[pc.callee]
		if len(candidates) == 0 {
			continue
		}

		var sameFile, crossFile []int
		callerPath := ""
		for _, n := range a.nodes {
			if n.LocalID == pc.callerGlobal {
				callerPath = n.Path
				break
			}
		}
		for _, cid := range candidates {
			for _, n := range a.nodes {
				if n.LocalID == cid {
					if n.Path == callerPath {
						sameFile = append(sameFile, cid)
					} else {
						crossFile = append(crossFile, cid)
					}
					break
				}
			}
		}

		switch {
		case len(sameFile) > 0:
			a.edges = append(a.edges, graph.LocalEdge{
				SourceLocalID: pc.callerGlobal, TargetLocalID: sameFile[0],
				Kind: graph.EdgeCalls, Weight: 1.0,
			})
		case len(crossFile) == 1:
			a.edges = append(a.edges, graph.LocalEdge{
				SourceLocalID: pc.callerGlobal, TargetLocalID: crossFile[0],
				Kind: graph.EdgeCalls, Weight: 0.6,
			})
		case len(crossFile) > 1:
			target := alphabeticallyFirstByPath(a.nodes, crossFile)
			a.edges = append(a.edges, graph.LocalEdge{
				SourceLocalID: pc.callerGlobal, TargetLocalID: target,
				Kind: graph.EdgeCalls, Weight: 0.4,
			})
		}
	}

	return &Assembled{Nodes: a.nodes, Edges: a.edges, Patterns: a.patterns, Libraries: a.libraries}
}

func alphabeticallyFirstByPath(nodes []*graph.LocalNode, ids []int) int {
	byID := make(map[int]*graph.LocalNode, len(nodes))
	for _, n := range nodes {
		byID[n.LocalID] = n
	}
	best := ids[0]
	bestPath := byID[best].Path
	for _, id := range ids[1:] {
		if p := byID[id].Path; p < bestPath {
			best, bestPath = id, p
		}
	}
	return best
}
