// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/huangsam/actimerge/internal/contract"
)

// NewMCPServer initializes and configures the actimerge MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, store contract.RunStore, logger *zap.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"Actimerge Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		store:   store,
		logger:  contract.LoggerOrNop(logger),
	}

	// --- 1. Tool: merge_actigraphy ---
	s.AddTool(mcp.NewTool("merge_actigraphy",
		mcp.WithDescription("Merge an actigraphy signal with its imputation flags and write the imputed and orig exports. Returns the run summary as JSON."),
		mcp.WithString("meta_path", mcp.Description("Path to the metadata workspace holding M$metashort and M$metalong."), mcp.Required()),
		mcp.WithString("ms2_path", mcp.Description("Path to the workspace holding IMP$rout."), mcp.Required()),
		mcp.WithString("csv_path", mcp.Description("Path to the pre-imputed signal CSV."), mcp.Required()),
		mcp.WithString("output_prefix", mcp.Description("Prefix of the written files, e.g. 'out/p01_'.")),
		mcp.WithString("format", mcp.Description("Export format. Defaults to 'csv'."), mcp.Enum("csv", "parquet")),
	), h.handleMergeActigraphy)

	// --- 2. Tool: inspect_rdata ---
	s.AddTool(mcp.NewTool("inspect_rdata",
		mcp.WithDescription("List the objects stored in an R workspace (.RData/.rds): path, type, class, length and data frame columns."),
		mcp.WithString("path", mcp.Description("Path to the workspace file."), mcp.Required()),
		mcp.WithNumber("depth", mcp.Description("How many levels of nested lists to descend. Defaults to 2.")),
	), h.handleInspectRData)

	return s
}

// StartMCPServer starts the actimerge MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, store contract.RunStore, logger *zap.Logger) error {
	s := NewMCPServer(baseCfg, store, logger)
	return server.ServeStdio(s)
}
