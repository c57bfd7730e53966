package iocache

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/internal/parquet"
)

// ExecuteRunLogExport exports the run log of every client to a Parquet file.
func ExecuteRunLogExport(ctx context.Context, store contract.DataStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get store status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no runs found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total runs: %d\n", status.TotalRuns)

	runs, err := store.ListRuns(ctx, "", 0)
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteRunsParquet(parquet.ConvertRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	fmt.Printf("Exported %d runs to: %s\n", len(runs), runsFile)
	return nil
}
