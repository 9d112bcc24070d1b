package mcp

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/huangsam/actimerge/core"
	"github.com/huangsam/actimerge/internal/contract"
	"github.com/huangsam/actimerge/schema"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	store   contract.RunStore
	logger  *zap.Logger
}

func (h *toolHandler) handleMergeActigraphy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	inputs := schema.Inputs{
		MetaPath:     request.GetString("meta_path", ""),
		MS2Path:      request.GetString("ms2_path", ""),
		CSVPath:      request.GetString("csv_path", ""),
		OutputPrefix: request.GetString("output_prefix", ""),
	}
	if err := contract.ValidateInputs(inputs); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid merge parameters: %v", err)), nil
	}
	if f := request.GetString("format", ""); f != "" {
		format := schema.ExportFormat(f)
		if _, ok := schema.ValidExportFormats[format]; !ok {
			return mcp.NewToolResultError(fmt.Sprintf("invalid merge parameters: unknown format %q", f)), nil
		}
		cfg.Format = format
	}

	if h.store != nil {
		ctx = core.WithRunStore(ctx, h.store)
	}
	summary, err := core.ProcessFiles(ctx, inputs, cfg, h.logger)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("merge failed: %v", err)), nil
	}

	jsonData, err := sonic.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode run summary: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleInspectRData(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("invalid inspect parameters: path is required"), nil
	}

	objects, err := core.InspectWorkspace(path, request.GetInt("depth", 0))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("inspect failed: %v", err)), nil
	}

	jsonData, err := sonic.MarshalIndent(objects, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode object listing: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
