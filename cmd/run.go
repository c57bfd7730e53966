package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/vitals/core"
	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/internal/outwriter"
	"github.com/huangsam/vitals/schema"
	"github.com/spf13/cobra"
)

// runCmd runs the pipeline for one client.
var runCmd = &cobra.Command{
	Use:   "run <export>",
	Short: "Run the analytics pipeline on one client's health export",
	Long: `Read a health export, derive the client's daily analytics table and replace their cached artifact.

The export may be an export.xml, the zipped export from the device, or a flat CSV
with type,timestamp,end,value,unit,source columns. The client's vitamin log, targets,
timezone and program start are loaded from the client store.

Runs of the same client never overlap. With --lock-backend redis this also holds
across machines sharing the store.

Examples:
  # Run on a zipped export
  vitals run ~/Downloads/export.zip --client ana

  # Keep the last 90 days and print JSON
  vitals run export.xml --client ana --window-days 90 --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, args []string) error {
		clientID, _ := cmd.Flags().GetString("client")
		format, _ := cmd.Flags().GetString("format")
		req := core.RunRequest{
			ClientID:   strings.TrimSpace(clientID),
			ExportPath: args[0],
			Format:     schema.SourceFormat(strings.ToLower(format)),
		}
		if req.ClientID == "" {
			return errors.New("--client is required")
		}
		return core.ExecuteRun(rootCtx, cfg, storeManager, locker, req)
	},
}

// batchCmd runs a manifest of exports concurrently.
var batchCmd = &cobra.Command{
	Use:   "batch <manifest.yaml>",
	Short: "Run the pipeline for many clients concurrently",
	Long: `Run every client/export pair of a manifest with a bounded pool of workers.

Manifest format:
  runs:
    - client: ana
      export: exports/ana.zip
    - client: bob
      export: exports/bob.csv
      format: csv

Relative export paths are resolved against the manifest's directory.
Every run is recorded in the run log. The command fails if any run failed.

Examples:
  vitals batch weekly.yaml --workers 4`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		reqs, err := core.LoadManifest(args[0])
		if err != nil {
			return err
		}
		return core.ExecuteBatch(rootCtx, cfg, storeManager, locker, reqs)
	},
}

// showCmd prints a client's cached artifact.
var showCmd = &cobra.Command{
	Use:   "show <client>",
	Short: "Print a client's cached analytics artifact",
	Long: `Print the metadata and the analytics table of the latest successful run of a client.

Examples:
  vitals show ana
  vitals show ana --output csv --output-file ana.csv`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		artifact, err := storeManager.GetArtifactStore().Get(rootCtx, args[0])
		if err != nil {
			if errors.Is(err, contract.ErrArtifactNotFound) {
				return fmt.Errorf("%w %s. Create it with `vitals run <export> --client %s`", err, args[0], args[0])
			}
			return err
		}
		return outwriter.PrintArtifact(artifact, cfg)
	},
}
