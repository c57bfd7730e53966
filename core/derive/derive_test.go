package derive

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

func dailyRow(date string, metrics map[string]float64) schema.DailyRow {
	return schema.DailyRow{Date: day(date), Metrics: metrics}
}

func TestHydrationComplianceIsCapped(t *testing.T) {
	rows := New(registry.Default(), Config{}).Derive("c1",
		[]schema.DailyRow{dailyRow("2024-03-01", map[string]float64{"water": 2500})},
		nil,
		schema.Targets{"water": 2000},
	)

	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].HydrationCompliance)
	assert.Equal(t, 1.0, *rows[0].HydrationCompliance)
}

func TestHydrationCompliance(t *testing.T) {
	tests := []struct {
		name     string
		metrics  map[string]float64
		targets  schema.Targets
		expected *float64
	}{
		{"partial", map[string]float64{"water": 1500}, schema.Targets{"water": 2000}, schema.Float(0.75)},
		{"zero intake is data", map[string]float64{"water": 0}, schema.Targets{"water": 2000}, schema.Float(0)},
		{"no water logged", map[string]float64{"steps": 100}, schema.Targets{"water": 2000}, nil},
		{"no target", map[string]float64{"water": 1500}, nil, nil},
		{"zero target", map[string]float64{"water": 1500}, schema.Targets{"water": 0}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HydrationCompliance(tt.metrics, tt.targets))
		})
	}
}

func TestDeriveWithoutTargets(t *testing.T) {
	rows := New(registry.Default(), Config{}).Derive("c1", []schema.DailyRow{
		dailyRow("2024-03-01", map[string]float64{"weight": 70, "steps": 5000, "water": 2000}),
		dailyRow("2024-03-02", map[string]float64{"weight": 70.2}),
	}, nil, nil)

	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Empty(t, row.RollingAvg)
		assert.Empty(t, row.Deviation)
		assert.Empty(t, row.DeviationPct)
		assert.Nil(t, row.HydrationCompliance)
		assert.Nil(t, row.CompositeScore)
		assert.Equal(t, InsufficientData, row.Recommendation)
	}
}

func TestRollingAverageUsesDaysWithData(t *testing.T) {
	rows := New(registry.Default(), Config{}).Derive("c1", []schema.DailyRow{
		dailyRow("2024-03-01", map[string]float64{"steps": 4000}),
		dailyRow("2024-03-05", map[string]float64{"steps": 6000}),
		dailyRow("2024-03-10", map[string]float64{"weight": 80}),
		dailyRow("2024-03-14", map[string]float64{"steps": 11000}),
		dailyRow("2024-03-15", map[string]float64{"weight": 79}),
	}, nil, schema.Targets{"steps": 8000})

	byDate := make(map[string]schema.AnalyticsRow)
	for _, row := range rows {
		byDate[schema.FormatDate(row.Date)] = row
	}

	// three days of data inside [03-01, 03-14], not fourteen
	assert.InDelta(t, 7000.0, byDate["2024-03-14"].RollingAvg["steps"], 1e-9)
	assert.InDelta(t, 3000.0, byDate["2024-03-14"].Deviation["steps"], 1e-9)

	// 03-01 fell out of the window on 03-15; deviation uses the latest value in the window
	assert.InDelta(t, 8500.0, byDate["2024-03-15"].RollingAvg["steps"], 1e-9)
	assert.InDelta(t, 3000.0, byDate["2024-03-15"].Deviation["steps"], 1e-9)
	assert.InDelta(t, 6.25, byDate["2024-03-15"].DeviationPct["steps"], 1e-9)

	// weight has no target
	assert.NotContains(t, byDate["2024-03-15"].RollingAvg, "weight")
}

func TestDeviationUndefinedOutsideLookback(t *testing.T) {
	rows := New(registry.Default(), Config{}).Derive("c1", []schema.DailyRow{
		dailyRow("2024-03-01", map[string]float64{"sleep": 7}),
		dailyRow("2024-03-20", map[string]float64{"weight": 80}),
	}, nil, schema.Targets{"sleep": 8})

	require.Len(t, rows, 2)
	assert.InDelta(t, -1.0, rows[0].Deviation["sleep"], 1e-9)
	assert.NotContains(t, rows[1].Deviation, "sleep")
	assert.NotContains(t, rows[1].RollingAvg, "sleep")
}

func TestCompositeScore(t *testing.T) {
	engine := New(registry.Default(), Config{})
	targets := schema.Targets{"weight": 80, "calories": 2000, "steps": 10000, "water": 2000, "sleep": 8}

	tests := []struct {
		name     string
		metrics  map[string]float64
		expected *float64
	}{
		{
			name:     "every metric on target",
			metrics:  map[string]float64{"weight": 80, "calories": 1800, "steps": 12000, "water": 2500, "sleep": 9},
			expected: schema.Float(100),
		},
		{
			name:     "only steps logged, half the goal",
			metrics:  map[string]float64{"steps": 5000},
			expected: schema.Float(50),
		},
		{
			name:     "calories far over the limit saturate at zero",
			metrics:  map[string]float64{"calories": 10000},
			expected: schema.Float(0),
		},
		{
			name:     "weight and water",
			metrics:  map[string]float64{"weight": 88, "water": 1000},
			expected: schema.Float(100 * (0.35*0.9 + 0.15*0.5) / 0.5),
		},
		{
			name:     "no scorable metric",
			metrics:  map[string]float64{"heart_rate": 150},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.composite(tt.metrics, targets)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.expected, *got, 1e-9)
			assert.GreaterOrEqual(t, *got, 0.0)
			assert.LessOrEqual(t, *got, 100.0)
		})
	}
}

func TestCompositeIgnoresZeroTargetsAndWeights(t *testing.T) {
	engine := New(registry.Default(), Config{Weights: map[string]float64{"steps": 0.5, "water": 0.5, "heart_rate": 0}})
	assert.Nil(t, engine.composite(map[string]float64{"steps": 100, "heart_rate": 120}, schema.Targets{"steps": 0, "heart_rate": 100}))

	got := engine.composite(map[string]float64{"steps": 100, "water": 2000}, schema.Targets{"steps": 0, "water": 2000})
	require.NotNil(t, got)
	assert.Equal(t, 100.0, *got)
}

func TestRelativeError(t *testing.T) {
	tests := []struct {
		goal          schema.Goal
		value, target float64
		expected      float64
	}{
		{schema.TargetGoal, 72, 80, 0.1},
		{schema.TargetGoal, 88, 80, 0.1},
		{schema.AtLeastGoal, 12000, 10000, 0},
		{schema.AtLeastGoal, 2500, 10000, 0.75},
		{schema.AtMostGoal, 1500, 2000, 0},
		{schema.AtMostGoal, 2500, 2000, 0.25},
		{schema.AtMostGoal, 9000, 2000, 1},
		{schema.TargetGoal, -1.5, -0.75, 1},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.expected, RelativeError(tt.goal, tt.value, tt.target), 1e-9, "%s %v vs %v", tt.goal, tt.value, tt.target)
	}
}

func TestMerge(t *testing.T) {
	rows := []schema.DailyRow{
		dailyRow("2024-03-02", map[string]float64{"weight": 70}),
		dailyRow("2024-03-01", map[string]float64{"steps": 100}),
	}
	vitamins := []schema.VitaminLogEntry{
		{ClientID: "c1", Date: day("2024-03-02"), VitaminD: 1000},
		{ClientID: "c1", Date: day("2024-03-03"), Omega3: 2, Notes: "fish oil"},
		{ClientID: "other", Date: day("2024-03-04"), Zinc: 15},
	}

	merged := Merge("c1", rows, vitamins)

	require.Len(t, merged, 3)
	assert.Equal(t, day("2024-03-01"), merged[0].Date)
	assert.Nil(t, merged[0].Vitamins)

	assert.Equal(t, map[string]float64{"weight": 70}, merged[1].Metrics)
	require.NotNil(t, merged[1].Vitamins)
	assert.Equal(t, 1000.0, merged[1].Vitamins.VitaminD)

	assert.Empty(t, merged[2].Metrics, "vitamin-only days carry no biometrics")
	assert.Equal(t, "fish oil", merged[2].Vitamins.Notes)
}

func TestWindow(t *testing.T) {
	rows := Merge("c1", []schema.DailyRow{
		dailyRow("2024-01-01", map[string]float64{"weight": 80}),
		dailyRow("2024-03-01", map[string]float64{"weight": 79}),
		dailyRow("2024-03-30", map[string]float64{"weight": 78}),
		dailyRow("2024-03-31", map[string]float64{"weight": 77}),
	}, nil)

	assert.Len(t, Window(rows, 0), 4)
	assert.Len(t, Window(rows, 30), 3)
	assert.Len(t, Window(rows, 1), 2)
	assert.Empty(t, Window(nil, 30))
}

func TestTrendAndRecommendation(t *testing.T) {
	var rows []schema.DailyRow
	start := day("2024-03-01")
	for i := range 28 {
		weight := 100.0
		if i >= 14 {
			weight = 98.0
		}
		rows = append(rows, schema.DailyRow{
			Date:    start.AddDate(0, 0, i),
			Metrics: map[string]float64{"weight": weight, "calories": 2600, "sleep": 8, "water": 2500, "steps": 8000},
		})
	}
	targets := DefaultTargets()
	targets["weight"] = 70

	out := New(registry.Default(), Config{}).Derive("c1", rows, nil, targets)
	require.Len(t, out, 28)

	assert.Nil(t, out[13].TrendPctPerWeek, "no earlier window yet")
	last := out[27]
	require.NotNil(t, last.TrendPctPerWeek)
	assert.InDelta(t, -1.0, *last.TrendPctPerWeek, 1e-9)
	// -1.0 is within 0.3 of -0.75, composite is below 90 because weight is off target
	require.NotNil(t, last.CompositeScore)
	assert.Less(t, *last.CompositeScore, 90.0)
	assert.Equal(t, MonitorTrend, last.Recommendation)
}

func TestRecommend(t *testing.T) {
	targets := schema.Targets{"weight_change_pct_per_week": -0.75}

	tests := []struct {
		name     string
		row      schema.AnalyticsRow
		expected string
	}{
		{"no composite", schema.AnalyticsRow{}, InsufficientData},
		{"aligned", schema.AnalyticsRow{CompositeScore: schema.Float(95), TrendPctPerWeek: schema.Float(2)}, HoldSteady},
		{"too slow", schema.AnalyticsRow{CompositeScore: schema.Float(60), TrendPctPerWeek: schema.Float(0)}, LossTooSlow},
		{"too fast", schema.AnalyticsRow{CompositeScore: schema.Float(60), TrendPctPerWeek: schema.Float(-2)}, LossTooFast},
		{
			"sleep deficit",
			schema.AnalyticsRow{CompositeScore: schema.Float(60), DeviationPct: map[string]float64{"sleep": -25, "water": -40}},
			SleepDeficit,
		},
		{
			"under-hydrated",
			schema.AnalyticsRow{CompositeScore: schema.Float(60), TrendPctPerWeek: schema.Float(-0.8), DeviationPct: map[string]float64{"water": -40}},
			UnderHydrated,
		},
		{"monitor", schema.AnalyticsRow{CompositeScore: schema.Float(60)}, MonitorTrend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Recommend(&tt.row, targets, "weight"))
		})
	}
}
