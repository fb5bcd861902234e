package api

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/voxsearch/pkg/kit"
)

// RegisterMCPTools registers the voxsearch MCP tools on the server.
func RegisterMCPTools(srv *server.MCPServer, d Deps) {
	ep := newEndpoints(d)
	registerSearchRecords(srv, ep)
	registerNormalizeText(srv, ep)
	registerMatchText(srv, ep)
	registerListDatasets(srv, ep)
}

func registerSearchRecords(srv *server.MCPServer, ep *endpoints) {
	tool := mcp.NewTool("search_records",
		mcp.WithDescription("Filter a dataset with a spoken or typed query. Returns every record containing all query words, in dataset order."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The query, e.g. \"ten mm glass\"")),
		mcp.WithString("dataset", mcp.Description("Dataset ID (default: the server's default dataset)")),
	)

	kit.RegisterMCPTool(srv, tool, ep.search, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		query, _ := args["query"].(string)
		id, _ := args["dataset"].(string)
		return &kit.MCPDecodeResult{Request: &searchReq{Dataset: id, Query: query}}, nil
	})
}

func registerNormalizeText(srv *server.MCPServer, ep *endpoints) {
	tool := mcp.NewTool("normalize_text",
		mcp.WithDescription("Show the canonical form of a text: spoken numbers to digits, lowercase, punctuation except periods removed, spaces collapsed."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The text to normalize")),
		mcp.WithString("mode", mcp.Description("Normalization mode: spoken (default) or spoken_fold")),
	)

	kit.RegisterMCPTool(srv, tool, ep.normalize, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		text, _ := args["text"].(string)
		mode, _ := args["mode"].(string)
		return &kit.MCPDecodeResult{Request: &normalizeReq{Text: text, Mode: mode}}, nil
	})
}

func registerMatchText(srv *server.MCPServer, ep *endpoints) {
	tool := mcp.NewTool("match_text",
		mcp.WithDescription("Check whether a single candidate text matches a query."),
		mcp.WithString("candidate", mcp.Required(), mcp.Description("The record text")),
		mcp.WithString("query", mcp.Required(), mcp.Description("The query")),
		mcp.WithString("mode", mcp.Description("Normalization mode: spoken (default) or spoken_fold")),
	)

	kit.RegisterMCPTool(srv, tool, ep.match, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		r := &matchReq{}
		r.Candidate, _ = args["candidate"].(string)
		r.Query, _ = args["query"].(string)
		r.Mode, _ = args["mode"].(string)
		return &kit.MCPDecodeResult{Request: r}, nil
	})
}

func registerListDatasets(srv *server.MCPServer, ep *endpoints) {
	tool := mcp.NewTool("list_datasets",
		mcp.WithDescription("List all loaded datasets with metadata (record count, source, normalization mode)."),
	)

	kit.RegisterMCPTool(srv, tool, ep.listDatasets, func(_ mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	})
}
