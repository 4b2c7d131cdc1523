// Package graph defines the in-memory, pre-persistence representation of
// code entities and relationships produced by language parsers and consumed
// by the graph assembler.
package graph

import "time"

// NodeKind enumerates the kinds of code entities a parser can emit.
type NodeKind string

const (
	KindFile        NodeKind = "file"
	KindClass       NodeKind = "class"
	KindFunction    NodeKind = "function"
	KindMethod      NodeKind = "method"
	KindImport      NodeKind = "import"
	KindVariable    NodeKind = "variable"
	KindInterface   NodeKind = "interface"
	KindGUIControl  NodeKind = "gui_control"
	KindCOMObject   NodeKind = "com_object"
	KindHotkey      NodeKind = "hotkey"
	KindProject     NodeKind = "project"
)

// EdgeKind enumerates the directed relationship types between nodes.
type EdgeKind string

const (
	EdgeContains   EdgeKind = "contains"
	EdgeImports    EdgeKind = "imports"
	EdgeCalls      EdgeKind = "calls"
	EdgeInherits   EdgeKind = "inherits"
	EdgeImplements EdgeKind = "implements"
	EdgeReferences EdgeKind = "references"
)

// Location is an optional source position.
type Location struct {
	Line   int
	Column int
}

// LocalNode is a node emitted by a parser before global ID assignment. The ID
// field is only meaningful within the ParseResult that produced it.
type LocalNode struct {
	LocalID       int
	Kind          NodeKind
	Name          string
	Path          string
	Language      string
	Location      *Location
	Summary       string
	RelevanceTags []string
	Weight        *float64
	Frequency     *float64
	UsageStats    map[string]any
	CreatedAt     time.Time
}

// LocalEdge is an edge emitted by a parser, referencing LocalNode IDs from
// the same ParseResult.
type LocalEdge struct {
	SourceLocalID int
	TargetLocalID int
	Kind          EdgeKind
	Weight        float64
}

// QualifyMethod returns the "Owner.method" name required by spec §3.
func QualifyMethod(owner, method string) string {
	if owner == "" {
		return method
	}
	return owner + "." + method
}
