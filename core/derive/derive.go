// Package derive turns daily rows into the analytics table consumed by the dashboard.
package derive

import (
	"maps"
	"sort"
	"time"

	"github.com/huangsam/vitals/core/registry"
	"github.com/huangsam/vitals/schema"
)

const (
	// DefaultRollingDays is the trailing window used for rolling averages and deviations.
	DefaultRollingDays = 14

	// DefaultTrendMetric is the metric whose weekly change drives recommendations.
	DefaultTrendMetric = "weight"

	// TrendTargetSuffix is appended to the trend metric to form its target key.
	TrendTargetSuffix = "_change_pct_per_week"
)

// DefaultWeights returns the composite score weights used when none are configured.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"weight":   0.35,
		"calories": 0.25,
		"steps":    0.15,
		"water":    0.15,
		"sleep":    0.10,
	}
}

// DefaultTargets returns the targets seeded for a new client.
func DefaultTargets() schema.Targets {
	t := schema.Targets{
		"calories": 2500,
		"steps":    8000,
		"water":    2500,
		"sleep":    7.5,
	}
	t[DefaultTrendMetric+TrendTargetSuffix] = -0.75
	return t
}

// Config holds the knobs of the engine. The zero value is usable.
type Config struct {
	Weights     map[string]float64 // metric -> composite weight; nil means DefaultWeights
	TrendMetric string             // empty means DefaultTrendMetric
	RollingDays int                // 0 means DefaultRollingDays
	WindowDays  int                // keep rows within N days of the latest date; 0 keeps all
}

func (c Config) withDefaults() Config {
	if c.Weights == nil {
		c.Weights = DefaultWeights()
	}
	if c.TrendMetric == "" {
		c.TrendMetric = DefaultTrendMetric
	}
	if c.RollingDays <= 0 {
		c.RollingDays = DefaultRollingDays
	}
	return c
}

// Engine computes derived metrics. It holds no state between calls.
type Engine struct {
	reg *registry.Registry
	cfg Config
}

// New creates an engine.
func New(reg *registry.Registry, cfg Config) *Engine {
	return &Engine{reg: reg, cfg: cfg.withDefaults()}
}

// Derive merges daily rows with the client's vitamin log and computes every derived
// field. Targets may be nil or empty; the affected fields are then left undefined.
func (e *Engine) Derive(clientID string, rows []schema.DailyRow, vitamins []schema.VitaminLogEntry, targets schema.Targets) []schema.AnalyticsRow {
	out := Merge(clientID, rows, vitamins)
	out = Window(out, e.cfg.WindowDays)
	if len(out) == 0 {
		return out
	}

	series := newSeries(out)
	for i := range out {
		row := &out[i]
		e.fillRolling(row, series, targets)
		row.HydrationCompliance = HydrationCompliance(row.Metrics, targets)
		row.CompositeScore = e.composite(row.Metrics, targets)
		row.TrendPctPerWeek = series.trend(e.cfg.TrendMetric, row.Date, e.cfg.RollingDays)
		row.Recommendation = Recommend(row, targets, e.cfg.TrendMetric)
	}
	return out
}

// Merge joins daily rows and vitamin entries by date. Entries of other clients are
// ignored, and for a repeated date the later entry wins. Biometrics are never touched.
func Merge(clientID string, rows []schema.DailyRow, vitamins []schema.VitaminLogEntry) []schema.AnalyticsRow {
	byDate := make(map[time.Time]*schema.AnalyticsRow, len(rows))
	get := func(date time.Time) *schema.AnalyticsRow {
		date = schema.DateOf(date)
		if r, ok := byDate[date]; ok {
			return r
		}
		r := &schema.AnalyticsRow{
			Date:         date,
			Metrics:      make(map[string]float64),
			RollingAvg:   make(map[string]float64),
			Deviation:    make(map[string]float64),
			DeviationPct: make(map[string]float64),
		}
		byDate[date] = r
		return r
	}

	for _, row := range rows {
		maps.Copy(get(row.Date).Metrics, row.Metrics)
	}
	for _, v := range vitamins {
		if v.ClientID != clientID {
			continue
		}
		entry := v
		get(v.Date).Vitamins = &entry
	}

	out := make([]schema.AnalyticsRow, 0, len(byDate))
	for _, r := range byDate {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Window keeps rows dated within days of the latest row. Rows must be sorted by date.
func Window(rows []schema.AnalyticsRow, days int) []schema.AnalyticsRow {
	if days <= 0 || len(rows) == 0 {
		return rows
	}
	cutoff := rows[len(rows)-1].Date.AddDate(0, 0, -days)
	start := sort.Search(len(rows), func(i int) bool {
		return !rows[i].Date.Before(cutoff)
	})
	return rows[start:]
}
