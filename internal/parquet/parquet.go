// Package parquet provides data structures and functions for exporting vitals
// analytics and the run log to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/huangsam/vitals/schema"
	"github.com/parquet-go/parquet-go"
)

// DayRecord is the day-level part of one analytics row.
type DayRecord struct {
	// ClientID identifies the client the row belongs to
	ClientID string `parquet:"client_id,snappy"`

	// Date is the client-local calendar date in YYYY-MM-DD form
	Date string `parquet:"date,snappy"`

	HydrationCompliance *float64 `parquet:"hydration_compliance,optional,snappy"`
	CompositeScore      *float64 `parquet:"composite_score,optional,snappy"`
	TrendPctPerWeek     *float64 `parquet:"trend_pct_per_week,optional,snappy"`

	Recommendation string `parquet:"recommendation,snappy"`

	// PeriodIndex is 0 for days before the macrocycle anchor
	PeriodIndex int32 `parquet:"period_index,snappy"`
}

// MetricRecord is one metric of one day. The metric set depends on the
// registry, so metrics are stored in long form.
type MetricRecord struct {
	ClientID string `parquet:"client_id,snappy"`
	Date     string `parquet:"date,snappy"`
	Metric   string `parquet:"metric,snappy"`

	// Value is nil when the metric has a target but no sample that day
	Value        *float64 `parquet:"value,optional,snappy"`
	RollingAvg   *float64 `parquet:"rolling_avg,optional,snappy"`
	Deviation    *float64 `parquet:"deviation,optional,snappy"`
	DeviationPct *float64 `parquet:"deviation_pct,optional,snappy"`
}

// PeriodRecord is one macrocycle period summary.
type PeriodRecord struct {
	ClientID         string   `parquet:"client_id,snappy"`
	PeriodIndex      int32    `parquet:"period_index,snappy"`
	Label            string   `parquet:"label,snappy"`
	StartDate        string   `parquet:"start_date,snappy"`
	EndDate          string   `parquet:"end_date,snappy"`
	Days             int32    `parquet:"days,snappy"`
	Partial          bool     `parquet:"partial,snappy"`
	DaysWithData     int32    `parquet:"days_with_data,snappy"`
	HydrationRate    *float64 `parquet:"hydration_rate,optional,snappy"`
	HydrationDaysMet int32    `parquet:"hydration_days_met,snappy"`
	CompositeMean    *float64 `parquet:"composite_mean,optional,snappy"`
}

// RunRecord is one entry of the run log.
type RunRecord struct {
	RunID      string    `parquet:"run_id,snappy"`
	ClientID   string    `parquet:"client_id,snappy"`
	StartedAt  time.Time `parquet:"started_at,snappy"`
	FinishedAt time.Time `parquet:"finished_at,snappy"`
	Status     string    `parquet:"status,snappy"`
	Read       int32     `parquet:"read,snappy"`
	Emitted    int32     `parquet:"emitted,snappy"`
	Skipped    int32     `parquet:"skipped,snappy"`
	Ignored    int32     `parquet:"ignored,snappy"`
	Rows       int32     `parquet:"rows,snappy"`
	Periods    int32     `parquet:"periods,snappy"`

	ContentHash *string `parquet:"content_hash,optional,snappy"`
	Error       *string `parquet:"error,optional,snappy"`
}

// writeParquet writes data to a new file at outputPath using the struct schema of T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// The schema is derived from the struct tags of T
	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteDaysParquet writes day records to a Parquet file.
func WriteDaysParquet(data []DayRecord, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteMetricsParquet writes metric records to a Parquet file.
func WriteMetricsParquet(data []MetricRecord, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WritePeriodsParquet writes period records to a Parquet file.
func WritePeriodsParquet(data []PeriodRecord, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteRunsParquet writes run log records to a Parquet file.
func WriteRunsParquet(data []RunRecord, outputPath string) error {
	return writeParquet(data, outputPath)
}

// ConvertRows splits analytics rows into day records and long-form metric records.
// A metric appears for a day when it has a value or any derived column.
func ConvertRows(clientID string, rows []schema.AnalyticsRow) ([]DayRecord, []MetricRecord) {
	days := make([]DayRecord, 0, len(rows))
	var metrics []MetricRecord
	for _, row := range rows {
		date := schema.FormatDate(row.Date)
		days = append(days, DayRecord{
			ClientID:            clientID,
			Date:                date,
			HydrationCompliance: row.HydrationCompliance,
			CompositeScore:      row.CompositeScore,
			TrendPctPerWeek:     row.TrendPctPerWeek,
			Recommendation:      row.Recommendation,
			PeriodIndex:         int32(row.PeriodIndex),
		})

		names := make(map[string]struct{}, len(row.Metrics)+len(row.RollingAvg))
		for _, m := range []map[string]float64{row.Metrics, row.RollingAvg, row.Deviation, row.DeviationPct} {
			for name := range m {
				names[name] = struct{}{}
			}
		}
		for _, name := range slices.Sorted(maps.Keys(names)) {
			metrics = append(metrics, MetricRecord{
				ClientID:     clientID,
				Date:         date,
				Metric:       name,
				Value:        lookup(row.Metrics, name),
				RollingAvg:   lookup(row.RollingAvg, name),
				Deviation:    lookup(row.Deviation, name),
				DeviationPct: lookup(row.DeviationPct, name),
			})
		}
	}
	return days, metrics
}

// ConvertPeriods converts macrocycle periods for Parquet export.
func ConvertPeriods(clientID string, periods []schema.MacrocyclePeriod) []PeriodRecord {
	result := make([]PeriodRecord, len(periods))
	for i, p := range periods {
		result[i] = PeriodRecord{
			ClientID:         clientID,
			PeriodIndex:      int32(p.Index),
			Label:            p.Label,
			StartDate:        schema.FormatDate(p.Start),
			EndDate:          schema.FormatDate(p.End),
			Days:             int32(p.Days),
			Partial:          p.Partial,
			DaysWithData:     int32(p.DaysWithData),
			HydrationRate:    p.HydrationRate,
			HydrationDaysMet: int32(p.HydrationDaysMet),
			CompositeMean:    p.CompositeMean,
		}
	}
	return result
}

// ConvertRunRecords converts schema.RunRecord to RunRecord for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []RunRecord {
	result := make([]RunRecord, len(records))
	for i, r := range records {
		result[i] = RunRecord{
			RunID:       r.RunID,
			ClientID:    r.ClientID,
			StartedAt:   r.StartedAt,
			FinishedAt:  r.FinishedAt,
			Status:      string(r.Status),
			Read:        int32(r.Read),
			Emitted:     int32(r.Emitted),
			Skipped:     int32(r.Skipped),
			Ignored:     int32(r.Ignored),
			Rows:        int32(r.Rows),
			Periods:     int32(r.Periods),
			ContentHash: optionalString(r.ContentHash),
			Error:       optionalString(r.Error),
		}
	}
	return result
}

func lookup(m map[string]float64, key string) *float64 {
	if v, ok := m[key]; ok {
		return &v
	}
	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
