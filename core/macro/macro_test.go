package macro

import (
	"testing"
	"time"

	"github.com/huangsam/vitals/core/registry"
	"github.com/huangsam/vitals/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, _ := schema.ParseDate(s)
	return d
}

func analyticsRow(date string, metrics map[string]float64) schema.AnalyticsRow {
	return schema.AnalyticsRow{Date: day(date), Metrics: metrics}
}

func TestSegmentPartitionsRange(t *testing.T) {
	tests := []struct {
		name    string
		first   string
		last    string
		periods int
		tail    int
	}{
		{"single day", "2024-03-01", "2024-03-01", 1, 1},
		{"exactly one period", "2024-03-01", "2024-03-14", 1, 14},
		{"one day into the second", "2024-03-01", "2024-03-15", 2, 1},
		{"three full periods", "2024-01-01", "2024-02-11", 3, 14},
		{"partial tail", "2024-01-01", "2024-02-20", 4, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := []schema.AnalyticsRow{
				analyticsRow(tt.first, map[string]float64{"weight": 80}),
				analyticsRow(tt.last, map[string]float64{"weight": 79}),
			}
			periods := New(registry.Default(), 0).Segment(rows, nil)
			require.Len(t, periods, tt.periods)

			assert.Equal(t, day(tt.first), periods[0].Start)
			assert.Equal(t, day(tt.last).AddDate(0, 0, 1), periods[len(periods)-1].End)
			for i, p := range periods {
				assert.Equal(t, i+1, p.Index)
				assert.Equal(t, schema.DaysBetween(p.Start, p.End), p.Days)
				if i > 0 {
					assert.Equal(t, periods[i-1].End, p.Start, "periods are contiguous")
				}
				if i < len(periods)-1 {
					assert.Equal(t, DefaultPeriodDays, p.Days)
					assert.False(t, p.Partial)
				}
			}
			tail := periods[len(periods)-1]
			assert.Equal(t, tt.tail, tail.Days)
			assert.Equal(t, tt.tail < DefaultPeriodDays, tail.Partial)
		})
	}
}

func TestSegmentAggregatesFollowPolicy(t *testing.T) {
	rows := []schema.AnalyticsRow{
		analyticsRow("2024-03-01", map[string]float64{"weight": 80, "steps": 5000, "heart_rate": 120, "body_fat": 22}),
		analyticsRow("2024-03-02", map[string]float64{"weight": 79, "steps": 7000, "heart_rate": 150}),
		analyticsRow("2024-03-05", map[string]float64{"weight": 78, "body_fat": 21}),
		analyticsRow("2024-03-16", map[string]float64{"steps": 1000}),
	}

	periods := New(registry.Default(), 0).Segment(rows, nil)
	require.Len(t, periods, 2)

	first := periods[0]
	assert.Equal(t, "Period 1", first.Label)
	assert.Equal(t, 3, first.DaysWithData)
	assert.InDelta(t, 79.0, first.Aggregates["weight"], 1e-9)
	assert.Equal(t, 12000.0, first.Aggregates["steps"])
	assert.Equal(t, 150.0, first.Aggregates["heart_rate"])
	assert.Equal(t, 21.0, first.Aggregates["body_fat"])

	second := periods[1]
	assert.Equal(t, "Period 2", second.Label)
	assert.True(t, second.Partial)
	assert.Equal(t, 2, second.Days)
	assert.Equal(t, map[string]float64{"steps": 1000}, second.Aggregates)

	assert.Equal(t, []int{1, 1, 1, 2}, []int{rows[0].PeriodIndex, rows[1].PeriodIndex, rows[2].PeriodIndex, rows[3].PeriodIndex})
}

func TestSegmentSumsAreExact(t *testing.T) {
	rows := []schema.AnalyticsRow{
		analyticsRow("2024-03-01", map[string]float64{"water": 0.1}),
		analyticsRow("2024-03-02", map[string]float64{"water": 0.2}),
		analyticsRow("2024-03-03", map[string]float64{"water": 0.3}),
	}

	periods := New(registry.Default(), 0).Segment(rows, nil)
	require.Len(t, periods, 1)
	assert.Equal(t, 0.6, periods[0].Aggregates["water"])
}

func TestSegmentEmitsEmptyPeriods(t *testing.T) {
	rows := []schema.AnalyticsRow{
		analyticsRow("2024-01-01", map[string]float64{"weight": 80}),
		analyticsRow("2024-02-01", map[string]float64{"weight": 78}),
	}

	periods := New(registry.Default(), 0).Segment(rows, nil)
	require.Len(t, periods, 3)
	assert.Equal(t, 0, periods[1].DaysWithData)
	assert.Empty(t, periods[1].Aggregates)
	assert.Nil(t, periods[1].HydrationRate)
	assert.Nil(t, periods[1].CompositeMean)
}

func TestSegmentWithProgramStart(t *testing.T) {
	rows := []schema.AnalyticsRow{
		analyticsRow("2024-02-25", map[string]float64{"weight": 81}),
		analyticsRow("2024-03-01", map[string]float64{"weight": 80}),
		analyticsRow("2024-03-20", map[string]float64{"weight": 79}),
	}
	anchor := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	periods := New(registry.Default(), 0).Segment(rows, &anchor)
	require.Len(t, periods, 2)
	assert.Equal(t, day("2024-03-01"), periods[0].Start)
	assert.Equal(t, 0, rows[0].PeriodIndex, "before the program start")
	assert.Equal(t, 1, rows[1].PeriodIndex)
	assert.Equal(t, 2, rows[2].PeriodIndex)
	assert.Equal(t, 80.0, periods[0].Aggregates["weight"])
}

func TestSegmentAnchorAfterData(t *testing.T) {
	rows := []schema.AnalyticsRow{analyticsRow("2024-03-01", map[string]float64{"weight": 80})}
	anchor := day("2024-04-01")
	assert.Empty(t, New(registry.Default(), 0).Segment(rows, &anchor))
	assert.Equal(t, 0, rows[0].PeriodIndex)
}

func TestSegmentHydrationAndComposite(t *testing.T) {
	rows := []schema.AnalyticsRow{
		{Date: day("2024-03-01"), Metrics: map[string]float64{"water": 2500}, HydrationCompliance: schema.Float(1), CompositeScore: schema.Float(80)},
		{Date: day("2024-03-02"), Metrics: map[string]float64{"water": 1000}, HydrationCompliance: schema.Float(0.5), CompositeScore: schema.Float(60)},
		{Date: day("2024-03-03"), Metrics: map[string]float64{"weight": 80}},
		{Date: day("2024-03-04"), Metrics: map[string]float64{"water": 1850}, HydrationCompliance: schema.Float(0.925)},
	}

	periods := New(registry.Default(), 0).Segment(rows, nil)
	require.Len(t, periods, 1)
	require.NotNil(t, periods[0].HydrationRate)
	assert.InDelta(t, (1+0.5+0.925)/3, *periods[0].HydrationRate, 1e-9, "missing days do not count as zero")
	assert.Equal(t, 2, periods[0].HydrationDaysMet)
	require.NotNil(t, periods[0].CompositeMean)
	assert.InDelta(t, 70.0, *periods[0].CompositeMean, 1e-9)
}

func TestSegmentEmpty(t *testing.T) {
	assert.Empty(t, New(registry.Default(), 0).Segment(nil, nil))
}
