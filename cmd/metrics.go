package cmd

import (
	"github.com/huangsam/vitals/core"
	"github.com/huangsam/vitals/internal/mcp"
	"github.com/huangsam/vitals/internal/outwriter"
	"github.com/spf13/cobra"
)

// metricsCmd displays the metric registry and composite score weights.
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display the tracked metrics and the composite score formula",
	Long: `Show every metric read from exports with its same-day aggregation, unit,
scoring goal and composite weight.

Custom weights come from the weights map of .vitals.yaml or --weights-override.
No export is read - this is purely informational.

Examples:
  vitals metrics
  vitals metrics --weights-override 'steps:0.5,sleep:0.5'`,
	PreRunE: configSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return outwriter.PrintMetrics(core.MetricInfos(cfg.Weights), cfg)
	},
}

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the vitals MCP server",
	Long:  `Launch an MCP server on stdio that lets AI agents run the pipeline and read artifacts via standard tools.`,
	// Progress lines go to stderr, so stdout stays free for the protocol.
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, storeManager, locker, version)
	},
}
