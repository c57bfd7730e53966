// Package agg reduces normalized samples into one sparse row per calendar day.
package agg

import (
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/huangsam/vitals/core/registry"
	"github.com/huangsam/vitals/schema"
)

// groupKey identifies one (date, metric) group.
type groupKey struct {
	date   time.Time
	metric string
}

// group accumulates the samples of one (date, metric) pair.
type group struct {
	sum   Sum
	count int
	max   float64

	lastAt    time.Time
	lastSeq   int
	lastValue float64

	// perSource holds totals for metrics that deduplicate across devices.
	perSource map[string]*Sum
}

// Aggregator groups samples by day and metric. It accepts samples in any order.
// An Aggregator is not safe for concurrent use.
type Aggregator struct {
	reg    *registry.Registry
	groups map[groupKey]*group
}

// New creates an empty aggregator.
func New(reg *registry.Registry) *Aggregator {
	return &Aggregator{reg: reg, groups: make(map[groupKey]*group)}
}

// Add folds one sample into its group. Samples for metrics unknown to the
// registry are dropped.
func (a *Aggregator) Add(s schema.Sample) {
	def, ok := a.reg.Def(s.Metric)
	if !ok {
		return
	}

	key := groupKey{date: s.Date, metric: s.Metric}
	g, ok := a.groups[key]
	if !ok {
		g = &group{max: s.Value, lastAt: s.At, lastSeq: s.Seq, lastValue: s.Value}
		if def.DedupSources {
			g.perSource = make(map[string]*Sum)
		}
		a.groups[key] = g
	}

	g.sum.Add(s.Value)
	g.count++
	if s.Value > g.max {
		g.max = s.Value
	}
	// Later timestamp wins; equal timestamps fall back to stream order.
	if s.At.After(g.lastAt) || (s.At.Equal(g.lastAt) && s.Seq >= g.lastSeq) {
		g.lastAt, g.lastSeq, g.lastValue = s.At, s.Seq, s.Value
	}
	if g.perSource != nil {
		src, ok := g.perSource[s.Source]
		if !ok {
			src = &Sum{}
			g.perSource[s.Source] = src
		}
		src.Add(s.Value)
	}
}

// reduce applies the aggregation policy to one group.
func reduce(def schema.MetricDef, g *group) float64 {
	switch def.Aggregation {
	case schema.MeanAgg:
		return g.sum.Value() / float64(g.count)
	case schema.MaxAgg:
		return g.max
	case schema.LastAgg:
		return g.lastValue
	default: // SumAgg
		if g.perSource != nil {
			return sourceMean(g.perSource)
		}
		return g.sum.Value()
	}
}

// sourceMean averages per-source totals, ignoring sources that reported zero.
func sourceMean(perSource map[string]*Sum) float64 {
	var total Sum
	var n int
	for _, src := range slices.Sorted(maps.Keys(perSource)) {
		if v := perSource[src].Value(); v > 0 {
			total.Add(v)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total.Value() / float64(n)
}

// Rows returns one DailyRow per date seen, ordered by date.
// A metric with no samples on a date has no key in that row.
func (a *Aggregator) Rows() []schema.DailyRow {
	byDate := make(map[time.Time]map[string]float64)
	for key, g := range a.groups {
		def, _ := a.reg.Def(key.metric)
		metrics, ok := byDate[key.date]
		if !ok {
			metrics = make(map[string]float64)
			byDate[key.date] = metrics
		}
		metrics[key.metric] = reduce(def, g)
	}

	rows := make([]schema.DailyRow, 0, len(byDate))
	for date, metrics := range byDate {
		rows = append(rows, schema.DailyRow{Date: date, Metrics: metrics})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
	return rows
}

// Aggregate is a convenience wrapper that reduces a finished slice of samples.
func Aggregate(reg *registry.Registry, samples []schema.Sample) []schema.DailyRow {
	a := New(reg)
	for _, s := range samples {
		a.Add(s)
	}
	return a.Rows()
}
