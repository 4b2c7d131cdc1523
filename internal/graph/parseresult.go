package graph

// Pattern is a file-scoped detector record: a recognized design pattern or
// infrastructure signature, reported with a confidence never asserted as fact.
type Pattern struct {
	Kind        string
	Confidence  float64
	Description string
	Path        string
	References  []string
}

// Library is a detected third-party library/infrastructure usage.
type Library struct {
	Kind       string // "database", "web-framework", "message-queue", "cloud-sdk", "cache", ...
	Name       string
	Confidence float64
	Metadata   map[string]any
}

// PendingCall records a call site whose callee could not be resolved to a
// local node at parse time; the assembler resolves it by unqualified name
// once the whole graph is integrated (spec §4.5 cross-file call resolution).
type PendingCall struct {
	CallerLocalID int
	Callee        string
}

// ParseResult is one parser's output for one file.
type ParseResult struct {
	Success       bool
	Language      string
	Path          string
	Nodes         map[int]*LocalNode
	Relationships []LocalEdge
	Patterns      []Pattern
	Libraries     []Library
	PendingCalls  []PendingCall
	Error         string

	// FileNodeLocalID identifies which node in Nodes is the file's own node
	// (kind=file), required by the per-parser contract in spec §4.1.
	FileNodeLocalID int
}

// NewParseResult returns an empty, successful result scaffold for path/lang.
func NewParseResult(path, language string) *ParseResult {
	return &ParseResult{
		Success:  true,
		Language: language,
		Path:     path,
		Nodes:    make(map[int]*LocalNode),
	}
}

// AddNode appends a node and returns its assigned LocalID.
func (pr *ParseResult) AddNode(n *LocalNode) int {
	id := len(pr.Nodes)
	n.LocalID = id
	pr.Nodes[id] = n
	return id
}

// AddEdge appends a relationship between two already-added local nodes.
func (pr *ParseResult) AddEdge(src, dst int, kind EdgeKind) {
	pr.Relationships = append(pr.Relationships, LocalEdge{
		SourceLocalID: src,
		TargetLocalID: dst,
		Kind:          kind,
		Weight:        1.0,
	})
}

// AddPendingCall records an unresolved call site from the node callerLocal.
func (pr *ParseResult) AddPendingCall(callerLocal int, callee string) {
	pr.PendingCalls = append(pr.PendingCalls, PendingCall{CallerLocalID: callerLocal, Callee: callee})
}

// Fail marks the result as a soft parse failure, per spec §4.1: the file
// node (if already created) is preserved, everything else is discarded.
func (pr *ParseResult) Fail(err string) *ParseResult {
	pr.Success = false
	pr.Error = err
	for id, n := range pr.Nodes {
		if id != pr.FileNodeLocalID || n.Kind != KindFile {
			delete(pr.Nodes, id)
		}
	}
	pr.Relationships = nil
	pr.PendingCalls = nil
	pr.Patterns = nil
	pr.Libraries = nil
	return pr
}
