package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/vitals/core"
	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultRunLimit is the number of runs list_runs returns without a limit.
const defaultRunLimit = 20

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.StoreManager
	locker  contract.Locker
}

// runSummary is what run_pipeline returns. The full table is available through get_artifact.
type runSummary struct {
	RunID       string                    `json:"run_id"`
	ClientID    string                    `json:"client_id"`
	Stats       schema.ExtractStats       `json:"stats"`
	Rows        int                       `json:"rows"`
	ContentHash string                    `json:"content_hash"`
	UpdatedAt   time.Time                 `json:"updated_at"`
	Latest      *schema.AnalyticsRow      `json:"latest_day,omitempty"`
	Periods     []schema.MacrocyclePeriod `json:"periods"`
}

func (h *toolHandler) handleRunPipeline(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clientID := request.GetString("client_id", "")
	exportPath := request.GetString("export_path", "")
	if clientID == "" || exportPath == "" {
		return mcp.NewToolResultError("client_id and export_path are required"), nil
	}

	cfg := h.baseCfg.Clone()
	if w := request.GetInt("window_days", -1); w >= 0 {
		if w > contract.MaxWindowDays {
			return mcp.NewToolResultError(fmt.Sprintf("window_days must be between 0 and %d", contract.MaxWindowDays)), nil
		}
		cfg.WindowDays = w
	}

	req := core.RunRequest{
		ClientID:   clientID,
		ExportPath: exportPath,
		Format:     schema.SourceFormat(request.GetString("format", "")),
	}
	result, runID, err := core.RunClient(ctx, cfg, h.mgr, h.locker, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run failed: %v", err)), nil
	}

	summary := runSummary{
		RunID:       runID,
		ClientID:    result.ClientID,
		Stats:       result.Stats,
		Rows:        len(result.Rows),
		ContentHash: result.Artifact.ContentHash,
		UpdatedAt:   result.Artifact.UpdatedAt,
		Periods:     result.Periods,
	}
	if n := len(result.Rows); n > 0 {
		summary.Latest = &result.Rows[n-1]
	}
	return jsonResult(summary)
}

func (h *toolHandler) handleGetArtifact(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clientID := request.GetString("client_id", "")
	if clientID == "" {
		return mcp.NewToolResultError("client_id is required"), nil
	}
	store := h.mgr.GetArtifactStore()
	if store == nil {
		return mcp.NewToolResultError("no artifact store configured"), nil
	}

	artifact, err := store.Get(ctx, clientID)
	if errors.Is(err, contract.ErrArtifactNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no cached artifact for %s. Call run_pipeline first", clientID)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read artifact: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"client_id":       artifact.ClientID,
		"format":          artifact.Format,
		"updated_at":      artifact.UpdatedAt,
		"content_hash":    artifact.ContentHash,
		"row_count":       artifact.RowCount,
		"period_count":    artifact.PeriodCount,
		"skipped_records": artifact.SkippedRecords,
		"tabular_data":    string(artifact.Data),
	})
}

func (h *toolHandler) handleListMetrics(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(core.MetricInfos(h.baseCfg.Weights))
}

func (h *toolHandler) handleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store := h.mgr.GetDataStore()
	if store == nil {
		return mcp.NewToolResultError("no client store configured"), nil
	}
	limit := request.GetInt("limit", defaultRunLimit)
	if limit <= 0 {
		limit = defaultRunLimit
	}

	runs, err := store.ListRuns(ctx, request.GetString("client_id", ""), limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list runs: %v", err)), nil
	}
	if runs == nil {
		runs = []schema.RunRecord{}
	}
	return jsonResult(runs)
}

// jsonResult renders v as indented JSON text content.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
