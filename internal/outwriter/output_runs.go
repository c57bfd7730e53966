package outwriter

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/internal/parquet"
	"github.com/huangsam/vitals/schema"
)

// PrintRuns outputs run log entries, dispatching based on the output format configured.
func PrintRuns(runs []schema.RunRecord, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, runs)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVRuns(w, runs)
		}, "Wrote CSV")
	case schema.ParquetOut:
		if cfg.OutputFile == "" {
			return fmt.Errorf("--output-file is required for parquet output")
		}
		path := cfg.OutputFile + ".runs.parquet"
		if err := parquet.WriteRunsParquet(parquet.ConvertRunRecords(runs), path); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
		contract.LogInfo("Wrote %d runs to %s", len(runs), path)
		return nil
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRunsTable(w, runs, cfg)
		}, "Wrote table")
	}
}

// writeRunsTable renders the run log, most recent first.
func writeRunsTable(w io.Writer, runs []schema.RunRecord, cfg *contract.Config) error {
	errWidth := getMaxTextColumnWidth(cfg, 9, 9)
	data := make([][]string, 0, len(runs))
	for _, r := range runs {
		data = append(data, []string{
			shortID(r.RunID),
			r.ClientID,
			r.StartedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			statusLabel(r.Status, cfg.UseColors),
			strconv.Itoa(r.Read),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Rows),
			strconv.Itoa(r.Periods),
			truncateText(r.Error, errWidth),
		})
	}
	headers := []string{"Run", "Client", "Started", "Took", "Status", "Read", "Skipped", "Rows", "Periods", "Error"}
	if err := renderTable(w, headers, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d runs\n", len(runs))
	return err
}

// writeCSVRuns writes the run log in CSV format.
func writeCSVRuns(w io.Writer, runs []schema.RunRecord) error {
	header := []string{"run_id", "client_id", "started_at", "finished_at", "status", "read", "emitted", "skipped", "ignored", "rows", "periods", "content_hash", "error"}
	records := make([][]string, 0, len(runs))
	for _, r := range runs {
		records = append(records, []string{
			r.RunID,
			r.ClientID,
			r.StartedAt.Format(contract.DateTimeFormat),
			r.FinishedAt.Format(contract.DateTimeFormat),
			string(r.Status),
			strconv.Itoa(r.Read),
			strconv.Itoa(r.Emitted),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Ignored),
			strconv.Itoa(r.Rows),
			strconv.Itoa(r.Periods),
			r.ContentHash,
			r.Error,
		})
	}
	return writeRecordsCSV(w, header, records)
}

// PrintBatchResults outputs one line per batch run, dispatching based on the output format configured.
func PrintBatchResults(items []schema.BatchItem, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, items)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVBatch(w, items)
		}, "Wrote CSV")
	default:
		// Parquet has no batch layout; the table goes to stdout
		outputFile := cfg.OutputFile
		if cfg.Output == schema.ParquetOut {
			outputFile = ""
		}
		return writeWithFile(outputFile, func(w io.Writer) error {
			return writeBatchTable(w, items, cfg, duration)
		}, "Wrote table")
	}
}

// writeBatchTable renders the batch outcome and a summary line.
func writeBatchTable(w io.Writer, items []schema.BatchItem, cfg *contract.Config, duration time.Duration) error {
	errWidth := getMaxTextColumnWidth(cfg, 7, 10)
	succeeded := 0
	data := make([][]string, 0, len(items))
	for _, item := range items {
		if item.Status == schema.RunSucceeded {
			succeeded++
		}
		data = append(data, []string{
			item.ClientID,
			truncateText(item.ExportPath, 30),
			statusLabel(item.Status, cfg.UseColors),
			strconv.Itoa(item.Rows),
			strconv.Itoa(item.Periods),
			strconv.Itoa(item.Skipped),
			item.Duration.Round(time.Millisecond).String(),
			truncateText(item.Error, errWidth),
		})
	}
	headers := []string{"Client", "Export", "Status", "Rows", "Periods", "Skipped", "Took", "Error"}
	if err := renderTable(w, headers, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d runs succeeded in %v with %d workers. Cache backend: %s\n",
		succeeded, len(items), duration.Round(time.Millisecond), cfg.Workers, cfg.CacheBackend)
	return err
}

// writeCSVBatch writes the batch outcome in CSV format.
func writeCSVBatch(w io.Writer, items []schema.BatchItem) error {
	header := []string{"client_id", "export", "status", "run_id", "rows", "periods", "skipped", "content_hash", "duration_ms", "error"}
	records := make([][]string, 0, len(items))
	for _, item := range items {
		records = append(records, []string{
			item.ClientID,
			item.ExportPath,
			string(item.Status),
			item.RunID,
			strconv.Itoa(item.Rows),
			strconv.Itoa(item.Periods),
			strconv.Itoa(item.Skipped),
			item.ContentHash,
			strconv.FormatInt(item.Duration.Milliseconds(), 10),
			item.Error,
		})
	}
	return writeRecordsCSV(w, header, records)
}

// shortID keeps the first block of a UUID for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
