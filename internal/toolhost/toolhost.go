// Package toolhost exposes the engine's query surface over the Model
// Context Protocol, grounded on mcp.StdioServer's request loop (kept far
// thinner here: this engine's core is the graph, not a tool-call server,
// so the bridge only wires query/index operations through as MCP tools
// rather than reimplementing sampling, elicitation, or resource
// subscriptions).
package toolhost

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codegraph/codegraph/internal/index"
	"github.com/codegraph/codegraph/internal/query"
)

// Host wraps an MCP server exposing codegraph's query and indexing
// operations as callable tools.
type Host struct {
	server      *mcp.Server
	surface     *query.Surface
	projectPath string
	indexFn     func(ctx context.Context) (index.Summary, error)
}

// New constructs a Host bound to one project's query surface. indexFn
// triggers a fresh index run (wired in by cmd/codegraph-tool).
func New(name, version, projectPath string, surface *query.Surface, indexFn func(ctx context.Context) (index.Summary, error)) *Host {
	h := &Host{
		server:      mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		surface:     surface,
		projectPath: projectPath,
		indexFn:     indexFn,
	}
	h.registerTools()
	return h
}

// Serve runs the server over stdio until the client disconnects or ctx is
// canceled.
func (h *Host) Serve(ctx context.Context) error {
	return h.server.Run(ctx, &mcp.StdioTransport{})
}

func (h *Host) registerTools() {
	h.server.AddTool(&mcp.Tool{
		Name:        "important",
		Description: "Return the most important nodes in the code graph, ranked by centrality and PageRank.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"limit":       {Type: "integer", Description: "Maximum results"},
				"path_prefix": {Type: "string", Description: "Restrict results to paths under this prefix"},
				"kind":        {Type: "string", Description: "Restrict results to one node kind"},
				"min_score":   {Type: "number", Description: "Minimum importance score"},
			},
		},
	}, h.handleImportant)

	h.server.AddTool(&mcp.Tool{
		Name:        "search",
		Description: "Full-text search over indexed node names and summaries.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query":   {Type: "string", Description: "Search text"},
				"limit":   {Type: "integer", Description: "Maximum results"},
				"mode":    {Type: "string", Description: "Token match mode: any or all"},
				"kind":    {Type: "string", Description: "Restrict results to one node kind"},
				"use_fts": {Type: "boolean", Description: "Use the FTS index when available"},
			},
			Required: []string{"query"},
		},
	}, h.handleSearch)

	h.server.AddTool(&mcp.Tool{
		Name:        "stats",
		Description: "Return node/edge counts for the indexed project.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, h.handleStats)

	h.server.AddTool(&mcp.Tool{
		Name:        "related",
		Description: "Return nodes directly connected to a given node id.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"node_id": {Type: "integer", Description: "Node id"},
				"limit":   {Type: "integer", Description: "Maximum results"},
			},
			Required: []string{"node_id"},
		},
	}, h.handleRelated)

	h.server.AddTool(&mcp.Tool{
		Name:        "reindex",
		Description: "Run a fresh indexing pass over the configured project root.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, h.handleReindex)
}

type importantArgs struct {
	Limit      int     `json:"limit"`
	PathPrefix string  `json:"path_prefix"`
	Kind       string  `json:"kind"`
	MinScore   float64 `json:"min_score"`
}

func (h *Host) handleImportant(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args importantArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err), nil
	}
	if args.Limit <= 0 {
		args.Limit = 20
	}
	nodes, err := h.surface.Important(ctx, h.projectPath, args.Limit, args.PathPrefix, args.Kind, args.MinScore)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(nodes)
}

type searchArgs struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
	Mode   string `json:"mode"`
	Kind   string `json:"kind"`
	UseFTS *bool  `json:"use_fts"`
}

func (h *Host) handleSearch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args searchArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err), nil
	}
	if args.Limit <= 0 {
		args.Limit = 20
	}
	useFTS := true
	if args.UseFTS != nil {
		useFTS = *args.UseFTS
	}
	nodes, err := h.surface.Search(ctx, h.projectPath, args.Query, args.Mode, args.Kind, args.Limit, useFTS)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(nodes)
}

func (h *Host) handleStats(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.surface.Stats(ctx, h.projectPath)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(stats)
}

type relatedArgs struct {
	NodeID int64 `json:"node_id"`
	Limit  int   `json:"limit"`
}

func (h *Host) handleRelated(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args relatedArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err), nil
	}
	if args.Limit <= 0 {
		args.Limit = 20
	}
	nodes, err := h.surface.Related(ctx, args.NodeID, args.Limit)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(nodes)
}

func (h *Host) handleReindex(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.indexFn == nil {
		return errorResult(fmt.Errorf("reindex not configured for this host")), nil
	}
	summary, err := h.indexFn(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	h.surface.Invalidate()
	return jsonResult(summary)
}

func decodeArgs(req *mcp.CallToolRequest, out any) error {
	if req == nil || len(req.Params.Arguments) == 0 {
		return nil
	}
	return json.Unmarshal(req.Params.Arguments, out)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(err), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}
