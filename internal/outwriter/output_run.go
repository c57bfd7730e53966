package outwriter

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/huangsam/vitals/core/cachewriter"
	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/internal/parquet"
	"github.com/huangsam/vitals/schema"
)

// maxTableMetrics caps the metric columns of the text table; the rest stay in CSV, JSON and Parquet.
const maxTableMetrics = 6

// PrintRunResult outputs the analytics table of a run, dispatching based on the output format configured.
func PrintRunResult(result *schema.AnalyticsResult, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSONRunResult(w, result)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVRunResult(w, result)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := writeParquetRunResult(result, cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRunTables(w, result, cfg, duration)
		}, "Wrote table")
	}
	return nil
}

// writeRunTables renders the daily table, the period table and a summary.
func writeRunTables(w io.Writer, result *schema.AnalyticsResult, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, fmtOptional := createFormatters(cfg.Precision)

	metrics, _, _ := cachewriter.Header(result.Rows, nil)
	if len(metrics) > maxTableMetrics {
		metrics = metrics[:maxTableMetrics]
	}
	recWidth := getMaxTextColumnWidth(cfg, len(metrics)+4, 10)

	// --- 1. Daily rows ---
	headers := []string{"Date"}
	headers = append(headers, metrics...)
	headers = append(headers, "Hydration", "Score", "Label", "Recommendation")

	var data [][]string
	for _, row := range result.Rows {
		rec := []string{schema.FormatDate(row.Date)}
		for _, m := range metrics {
			rec = append(rec, fmtMetric(row.Metrics, m, fmtFloat))
		}
		label := contract.GetPlainLabel(row.CompositeScore)
		if cfg.UseColors {
			label = contract.GetColorLabel(row.CompositeScore)
		}
		rec = append(rec,
			fmtOptional(row.HydrationCompliance),
			fmtOptional(row.CompositeScore),
			label,
			truncateText(row.Recommendation, recWidth),
		)
		data = append(data, rec)
	}
	if err := renderTable(w, headers, data); err != nil {
		return err
	}

	// --- 2. Macrocycle periods ---
	if len(result.Periods) > 0 {
		if err := writePeriodTable(w, result.Periods, metrics, fmtFloat, fmtOptional); err != nil {
			return err
		}
	}

	// --- 3. Summary ---
	s := result.Stats
	if _, err := fmt.Fprintf(w, "Read %d records (%d emitted, %d skipped, %d ignored, %d duplicates) into %d days and %d periods\n",
		s.Read, s.Emitted, s.Skipped, s.Ignored, s.Duplicates, len(result.Rows), len(result.Periods)); err != nil {
		return err
	}
	hash := result.Artifact.ContentHash
	if len(hash) > 12 {
		hash = hash[:12]
	}
	if _, err := fmt.Fprintf(w, "Run completed in %v. Cache backend: %s, artifact %s (%s)\n",
		duration, cfg.CacheBackend, hash, result.Artifact.Format); err != nil {
		return err
	}
	return nil
}

// writePeriodTable renders one line per macrocycle period.
func writePeriodTable(w io.Writer, periods []schema.MacrocyclePeriod, metrics []string, fmtFloat func(float64) string, fmtOptional func(*float64) string) error {
	headers := []string{"Period", "Start", "End", "Days", "With Data", "Hydration", "Days Met", "Score"}
	headers = append(headers, metrics...)

	var data [][]string
	for _, p := range periods {
		days := strconv.Itoa(p.Days)
		if p.Partial {
			days += "*"
		}
		rec := []string{
			p.Label,
			schema.FormatDate(p.Start),
			schema.FormatDate(p.End.AddDate(0, 0, -1)), // Inclusive for display
			days,
			strconv.Itoa(p.DaysWithData),
			fmtOptional(p.HydrationRate),
			strconv.Itoa(p.HydrationDaysMet),
			fmtOptional(p.CompositeMean),
		}
		for _, m := range metrics {
			rec = append(rec, fmtMetric(p.Aggregates, m, fmtFloat))
		}
		data = append(data, rec)
	}
	return renderTable(w, headers, data)
}

// jsonRunResult is the JSON shape of a run. The artifact data is omitted
// since rows and periods already carry it.
type jsonRunResult struct {
	ClientID       string                    `json:"client_id"`
	Stats          schema.ExtractStats       `json:"stats"`
	Format         schema.ArtifactFormat     `json:"format"`
	ContentHash    string                    `json:"content_hash"`
	Fingerprint    string                    `json:"fingerprint"`
	UpdatedAt      time.Time                 `json:"updated_at"`
	Rows           []schema.AnalyticsRow     `json:"rows"`
	Periods        []schema.MacrocyclePeriod `json:"periods"`
	MetricsPresent []string                  `json:"metrics"`
}

// writeJSONRunResult writes the run in JSON format.
func writeJSONRunResult(w io.Writer, result *schema.AnalyticsResult) error {
	present := make(map[string]struct{})
	for _, row := range result.Rows {
		for m := range row.Metrics {
			present[m] = struct{}{}
		}
	}
	return writeJSON(w, jsonRunResult{
		ClientID:       result.ClientID,
		Stats:          result.Stats,
		Format:         result.Artifact.Format,
		ContentHash:    result.Artifact.ContentHash,
		Fingerprint:    fmt.Sprintf("%016x", result.Artifact.Fingerprint),
		UpdatedAt:      result.Artifact.UpdatedAt,
		Rows:           result.Rows,
		Periods:        result.Periods,
		MetricsPresent: slices.Sorted(maps.Keys(present)),
	})
}

// writeCSVRunResult writes the table in the same column layout as a CSV artifact.
func writeCSVRunResult(w io.Writer, result *schema.AnalyticsResult) error {
	data, err := cachewriter.Serialize(schema.CSVArtifact, result.Rows, result.Periods)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// writeParquetRunResult writes days, long-form metrics and periods next to each other.
func writeParquetRunResult(result *schema.AnalyticsResult, outputFile string) error {
	if outputFile == "" {
		return fmt.Errorf("--output-file is required for parquet output")
	}
	days, metrics := parquet.ConvertRows(result.ClientID, result.Rows)

	daysFile := outputFile + ".days.parquet"
	if err := parquet.WriteDaysParquet(days, daysFile); err != nil {
		return fmt.Errorf("failed to write days: %w", err)
	}
	metricsFile := outputFile + ".metrics.parquet"
	if err := parquet.WriteMetricsParquet(metrics, metricsFile); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	periodsFile := outputFile + ".periods.parquet"
	if err := parquet.WritePeriodsParquet(parquet.ConvertPeriods(result.ClientID, result.Periods), periodsFile); err != nil {
		return fmt.Errorf("failed to write periods: %w", err)
	}
	contract.LogInfo("Wrote %d days, %d metric values and %d periods to %s.*.parquet",
		len(days), len(metrics), len(result.Periods), outputFile)
	return nil
}
