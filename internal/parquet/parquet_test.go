package parquet

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/vitals/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructTags(t *testing.T) {
	tests := []struct {
		name    string
		model   any
		columns []string
	}{
		{"day", new(DayRecord), []string{
			"client_id", "date", "hydration_compliance", "composite_score",
			"trend_pct_per_week", "recommendation", "period_index",
		}},
		{"metric", new(MetricRecord), []string{
			"client_id", "date", "metric", "value", "rolling_avg", "deviation", "deviation_pct",
		}},
		{"period", new(PeriodRecord), []string{
			"client_id", "period_index", "label", "start_date", "end_date", "days", "partial",
			"days_with_data", "hydration_rate", "hydration_days_met", "composite_mean",
		}},
		{"run", new(RunRecord), []string{
			"run_id", "client_id", "started_at", "finished_at", "status", "read", "emitted",
			"skipped", "ignored", "rows", "periods", "content_hash", "error",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := parquet.SchemaOf(tt.model)
			require.NotNil(t, s)
			for _, colName := range tt.columns {
				col, ok := s.Lookup(colName)
				require.True(t, ok, "Column %s should exist in schema", colName)
				require.NotNil(t, col, "Column %s should not be nil", colName)
			}
		})
	}
}

func sampleRows() []schema.AnalyticsRow {
	d1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	return []schema.AnalyticsRow{
		{
			Date:                d1,
			Metrics:             map[string]float64{"weight": 70.2, "water": 2000},
			RollingAvg:          map[string]float64{"water": 2000},
			Deviation:           map[string]float64{"water": -500},
			DeviationPct:        map[string]float64{"water": -20},
			HydrationCompliance: schema.Float(0.8),
			CompositeScore:      schema.Float(88.5),
			Recommendation:      "Monitor trend: small adjustments if needed",
			PeriodIndex:         1,
		},
		{
			Date:           d2,
			Metrics:        map[string]float64{},
			RollingAvg:     map[string]float64{"water": 2000},
			Deviation:      map[string]float64{},
			DeviationPct:   map[string]float64{"water": -20},
			Recommendation: "Insufficient data",
			PeriodIndex:    1,
		},
	}
}

func TestConvertRows(t *testing.T) {
	days, metrics := ConvertRows("c1", sampleRows())
	require.Len(t, days, 2)
	assert.Equal(t, "2024-03-01", days[0].Date)
	assert.Equal(t, "c1", days[0].ClientID)
	require.NotNil(t, days[0].CompositeScore)
	assert.Equal(t, 88.5, *days[0].CompositeScore)
	assert.Nil(t, days[1].HydrationCompliance)
	assert.Equal(t, int32(1), days[1].PeriodIndex)

	// day 1: water and weight; day 2: water only through its rolling columns
	require.Len(t, metrics, 3)
	assert.Equal(t, "water", metrics[0].Metric)
	assert.Equal(t, "weight", metrics[1].Metric)
	assert.Nil(t, metrics[1].RollingAvg)
	assert.Equal(t, "2024-03-02", metrics[2].Date)
	assert.Nil(t, metrics[2].Value)
	require.NotNil(t, metrics[2].RollingAvg)
	assert.Equal(t, 2000.0, *metrics[2].RollingAvg)
}

func TestConvertPeriods(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	periods := []schema.MacrocyclePeriod{{
		Index: 1, Label: "Period 1", Start: start, End: start.AddDate(0, 0, 14),
		Days: 14, DaysWithData: 10, HydrationDaysMet: 4, HydrationRate: schema.Float(0.75),
	}}

	got := ConvertPeriods("c1", periods)
	require.Len(t, got, 1)
	assert.Equal(t, "2024-03-15", got[0].EndDate)
	assert.Equal(t, int32(10), got[0].DaysWithData)
	assert.Nil(t, got[0].CompositeMean)
}

func TestConvertRunRecords(t *testing.T) {
	now := time.Now().UTC()
	got := ConvertRunRecords([]schema.RunRecord{
		{RunID: "a", ClientID: "c1", StartedAt: now, FinishedAt: now, Status: schema.RunSucceeded, Rows: 3, ContentHash: "abc"},
		{RunID: "b", ClientID: "c1", StartedAt: now, FinishedAt: now, Status: schema.RunStructuralFailure, Error: "boom"},
	})
	require.Len(t, got, 2)
	require.NotNil(t, got[0].ContentHash)
	assert.Equal(t, "abc", *got[0].ContentHash)
	assert.Nil(t, got[0].Error)
	assert.Nil(t, got[1].ContentHash)
	assert.Equal(t, "structural_failure", got[1].Status)
}

func readAll[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err, "Should be able to open output file")
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	out := make([]T, reader.NumRows())
	n, err := reader.Read(out)
	if err != nil && err != io.EOF {
		require.NoError(t, err, "Should be able to read data")
	}
	return out[:n]
}

func TestWriteMetricsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "metrics.parquet")
	_, data := ConvertRows("c1", sampleRows())

	require.NoError(t, WriteMetricsParquet(data, outputPath))

	readData := readAll[MetricRecord](t, outputPath)
	require.Len(t, readData, len(data))
	for i := range data {
		assert.Equal(t, data[i].Metric, readData[i].Metric)
		assert.Equal(t, data[i].Date, readData[i].Date)
		if data[i].Value == nil {
			assert.Nil(t, readData[i].Value)
		} else {
			require.NotNil(t, readData[i].Value)
			assert.InDelta(t, *data[i].Value, *readData[i].Value, 1e-9)
		}
	}
}

func TestWriteDaysAndPeriodsParquet(t *testing.T) {
	dir := t.TempDir()
	days, _ := ConvertRows("c1", sampleRows())
	require.NoError(t, WriteDaysParquet(days, filepath.Join(dir, "days.parquet")))

	readDays := readAll[DayRecord](t, filepath.Join(dir, "days.parquet"))
	require.Len(t, readDays, 2)
	assert.Equal(t, days[0].Recommendation, readDays[0].Recommendation)
	assert.Nil(t, readDays[1].CompositeScore)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	periods := ConvertPeriods("c1", []schema.MacrocyclePeriod{{Index: 1, Label: "Period 1", Start: start, End: start.AddDate(0, 0, 3), Days: 3, Partial: true}})
	require.NoError(t, WritePeriodsParquet(periods, filepath.Join(dir, "periods.parquet")))

	readPeriods := readAll[PeriodRecord](t, filepath.Join(dir, "periods.parquet"))
	require.Len(t, readPeriods, 1)
	assert.True(t, readPeriods[0].Partial)
	assert.Equal(t, "Period 1", readPeriods[0].Label)
}

func TestWriteRunsParquetTimestamps(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "runs.parquet")
	started := time.Now()
	data := ConvertRunRecords([]schema.RunRecord{
		{RunID: "r1", ClientID: "c1", StartedAt: started, FinishedAt: started.Add(time.Second), Status: schema.RunSucceeded},
	})

	require.NoError(t, WriteRunsParquet(data, outputPath))

	readData := readAll[RunRecord](t, outputPath)
	require.Len(t, readData, 1)
	assert.WithinDuration(t, started, readData[0].StartedAt, time.Nanosecond)
	assert.Nil(t, readData[0].Error)
}

func TestWriteEmptyData(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteRunsParquet([]RunRecord{}, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err, "Output file should exist")
	assert.Greater(t, info.Size(), int64(0), "Output file should contain schema even if empty")
}

func TestWriteInvalidPath(t *testing.T) {
	err := WriteDaysParquet([]DayRecord{{ClientID: "c1"}}, "/nonexistent/directory/output.parquet")
	require.Error(t, err, "Writing to invalid path should produce error")
}
