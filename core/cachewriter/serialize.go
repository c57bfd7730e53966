package cachewriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/huangsam/vitals/schema"
)

// vitaminColumns are appended after the derived columns, in this order.
var vitaminColumns = []string{
	"vitamin_d", "vitamin_c", "vitamin_b12", "omega3", "magnesium", "zinc", "iron", "vitamin_other", "vitamin_notes",
}

// Table is the JSON layout of an artifact.
type Table struct {
	Rows    []schema.AnalyticsRow     `json:"rows"`
	Periods []schema.MacrocyclePeriod `json:"periods"`
}

// Serialize renders rows and periods in the given format. The output depends only on
// its inputs, so identical runs yield identical bytes.
func Serialize(format schema.ArtifactFormat, rows []schema.AnalyticsRow, periods []schema.MacrocyclePeriod) ([]byte, error) {
	switch format {
	case schema.JSONArtifact:
		table := Table{Rows: rows, Periods: periods}
		if table.Rows == nil {
			table.Rows = []schema.AnalyticsRow{}
		}
		if table.Periods == nil {
			table.Periods = []schema.MacrocyclePeriod{}
		}
		return json.Marshal(table)
	case schema.CSVArtifact, "":
		return serializeCSV(rows, periods)
	default:
		return nil, fmt.Errorf("unsupported artifact format: %s", format)
	}
}

// Record types of the CSV artifact. Day rows come first, in date order,
// followed by one row per period, in index order.
const (
	DayRecord    = "day"
	PeriodRecord = "period"
)

// dayScoreColumns are the day-level scores after the derived columns.
var dayScoreColumns = []string{"hydration_compliance", "composite_score", "trend_pct_per_week", "recommendation"}

// periodColumns are filled only on period rows. The date column of a period
// row holds its start; period_end is exclusive.
var periodColumns = []string{
	"period_end", "period_days", "partial", "days_with_data", "hydration_rate", "hydration_days_met", "composite_mean",
}

// Header returns the CSV header for rows and periods: record type, date, metrics,
// derived columns per target metric, day-level scores, vitamins and period columns.
// Metric columns hold daily values on day rows and period aggregates on period rows.
func Header(rows []schema.AnalyticsRow, periods []schema.MacrocyclePeriod) (metrics, targeted []string, header []string) {
	metricSet := make(map[string]struct{})
	targetSet := make(map[string]struct{})
	for _, row := range rows {
		for m := range row.Metrics {
			metricSet[m] = struct{}{}
		}
		for m := range row.RollingAvg {
			targetSet[m] = struct{}{}
		}
		for m := range row.Deviation {
			targetSet[m] = struct{}{}
		}
	}
	for _, p := range periods {
		for m := range p.Aggregates {
			metricSet[m] = struct{}{}
		}
	}
	metrics = slices.Sorted(maps.Keys(metricSet))
	targeted = slices.Sorted(maps.Keys(targetSet))

	header = append(header, "record_type", "date")
	header = append(header, metrics...)
	for _, m := range targeted {
		header = append(header, m+"_avg", m+"_dev", m+"_dev_pct")
	}
	header = append(header, dayScoreColumns...)
	header = append(header, vitaminColumns...)
	header = append(header, "period_index", "period_label")
	header = append(header, periodColumns...)
	return metrics, targeted, header
}

func serializeCSV(rows []schema.AnalyticsRow, periods []schema.MacrocyclePeriod) ([]byte, error) {
	labels := make(map[int]string, len(periods))
	for _, p := range periods {
		labels[p.Index] = p.Label
	}

	metrics, targeted, header := Header(rows, periods)
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}

	record := make([]string, 0, len(header))
	for _, row := range rows {
		record = record[:0]
		record = append(record, DayRecord, schema.FormatDate(row.Date))
		for _, m := range metrics {
			record = append(record, optional(row.Metrics, m))
		}
		for _, m := range targeted {
			record = append(record, optional(row.RollingAvg, m), optional(row.Deviation, m), optional(row.DeviationPct, m))
		}
		record = append(record,
			FormatOptional(row.HydrationCompliance),
			FormatOptional(row.CompositeScore),
			FormatOptional(row.TrendPctPerWeek),
			row.Recommendation,
		)
		record = append(record, vitaminRecord(row.Vitamins)...)
		if row.PeriodIndex > 0 {
			record = append(record, strconv.Itoa(row.PeriodIndex), labels[row.PeriodIndex])
		} else {
			record = append(record, "", "")
		}
		record = appendBlank(record, len(periodColumns))
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	for _, p := range periods {
		record = record[:0]
		record = append(record, PeriodRecord, schema.FormatDate(p.Start))
		for _, m := range metrics {
			record = append(record, optional(p.Aggregates, m))
		}
		record = appendBlank(record, 3*len(targeted)+len(dayScoreColumns)+len(vitaminColumns))
		record = append(record,
			strconv.Itoa(p.Index),
			p.Label,
			schema.FormatDate(p.End),
			strconv.Itoa(p.Days),
			strconv.FormatBool(p.Partial),
			strconv.Itoa(p.DaysWithData),
			FormatOptional(p.HydrationRate),
			strconv.Itoa(p.HydrationDaysMet),
			FormatOptional(p.CompositeMean),
		)
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func appendBlank(record []string, n int) []string {
	for range n {
		record = append(record, "")
	}
	return record
}

func vitaminRecord(v *schema.VitaminLogEntry) []string {
	if v == nil {
		return make([]string, len(vitaminColumns))
	}
	return []string{
		FormatFloat(v.VitaminD),
		FormatFloat(v.VitaminC),
		FormatFloat(v.VitaminB12),
		FormatFloat(v.Omega3),
		FormatFloat(v.Magnesium),
		FormatFloat(v.Zinc),
		FormatFloat(v.Iron),
		v.Other,
		v.Notes,
	}
}

// FormatFloat renders v in the shortest form that round-trips.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatOptional renders an optional value; undefined is the empty string.
func FormatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return FormatFloat(*v)
}

func optional(m map[string]float64, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	return FormatFloat(v)
}
