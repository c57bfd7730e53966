// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/vitals/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the vitals MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager, locker contract.Locker, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"Vitals Analytics Server",
		version,
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
		locker:  locker,
	}

	// --- 1. Tool: run_pipeline ---
	s.AddTool(mcp.NewTool("run_pipeline",
		mcp.WithDescription("Process a health export for a client and replace the client's cached analytics table."),
		mcp.WithString("client_id", mcp.Description("The client whose export is processed."), mcp.Required()),
		mcp.WithString("export_path", mcp.Description("Path to export.xml, export.zip or a CSV sample stream."), mcp.Required()),
		mcp.WithString("format", mcp.Description("Export format. Inferred from the file extension when omitted."), mcp.Enum("xml", "zip", "csv")),
		mcp.WithNumber("window_days", mcp.Description("Keep only rows within this many days of the latest date (0 keeps all).")),
	), h.handleRunPipeline)

	// --- 2. Tool: get_artifact ---
	s.AddTool(mcp.NewTool("get_artifact",
		mcp.WithDescription("Return the cached analytics table of a client with its metadata."),
		mcp.WithString("client_id", mcp.Description("The client whose artifact is returned."), mcp.Required()),
	), h.handleGetArtifact)

	// --- 3. Tool: list_metrics ---
	s.AddTool(mcp.NewTool("list_metrics",
		mcp.WithDescription("List the registered metrics with their aggregation policy, unit, scoring goal and composite weight."),
	), h.handleListMetrics)

	// --- 4. Tool: list_runs ---
	s.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List recent pipeline runs, most recent first."),
		mcp.WithString("client_id", mcp.Description("Only list runs of this client.")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of runs returned. Defaults to 20.")),
	), h.handleListRuns)

	return s
}

// StartMCPServer starts the vitals MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager, locker contract.Locker, version string) error {
	s := NewMCPServer(baseCfg, mgr, locker, version)
	return server.ServeStdio(s)
}
