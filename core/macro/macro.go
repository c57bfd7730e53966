// Package macro partitions analytics rows into fixed-length macrocycle periods.
package macro

import (
	"fmt"
	"math"
	"time"

	"github.com/huangsam/vitals/core/agg"
	"github.com/huangsam/vitals/core/registry"
	"github.com/huangsam/vitals/schema"
)

// DefaultPeriodDays is the length of one macrocycle period.
const DefaultPeriodDays = 14

// ComplianceMet is the hydration compliance a day needs to count as meeting its target.
const ComplianceMet = 0.9

// Segmenter builds macrocycle periods.
type Segmenter struct {
	reg  *registry.Registry
	days int
}

// New creates a segmenter. A non-positive length means DefaultPeriodDays.
func New(reg *registry.Registry, days int) *Segmenter {
	if days <= 0 {
		days = DefaultPeriodDays
	}
	return &Segmenter{reg: reg, days: days}
}

// Segment partitions [anchor, latest row date] into half-open periods and sets each
// row's PeriodIndex in place. Rows must be sorted by date. A nil anchor means the
// first row's date. Rows dated before the anchor keep PeriodIndex 0 and belong to no period.
func (s *Segmenter) Segment(rows []schema.AnalyticsRow, anchor *time.Time) []schema.MacrocyclePeriod {
	if len(rows) == 0 {
		return nil
	}
	start := rows[0].Date
	if anchor != nil {
		start = schema.DateOf(*anchor)
	}
	last := rows[len(rows)-1].Date
	if start.After(last) {
		for i := range rows {
			rows[i].PeriodIndex = 0
		}
		return nil
	}

	span := schema.DaysBetween(start, last) + 1
	count := (span + s.days - 1) / s.days
	periods := make([]schema.MacrocyclePeriod, count)
	members := make([][]*schema.AnalyticsRow, count)
	for k := range periods {
		pStart := start.AddDate(0, 0, k*s.days)
		days := min(s.days, span-k*s.days)
		periods[k] = schema.MacrocyclePeriod{
			Index:   k + 1,
			Label:   fmt.Sprintf("Period %d", k+1),
			Start:   pStart,
			End:     pStart.AddDate(0, 0, days),
			Days:    days,
			Partial: days < s.days,
		}
	}

	for i := range rows {
		offset := schema.DaysBetween(start, rows[i].Date)
		if offset < 0 {
			rows[i].PeriodIndex = 0
			continue
		}
		k := offset / s.days
		rows[i].PeriodIndex = k + 1
		members[k] = append(members[k], &rows[i])
	}

	for k := range periods {
		s.summarize(&periods[k], members[k])
	}
	return periods
}

// summarize fills the aggregates of one period from its member rows, which are in date order.
func (s *Segmenter) summarize(p *schema.MacrocyclePeriod, rows []*schema.AnalyticsRow) {
	type acc struct {
		sum   agg.Sum
		max   float64
		last  float64
		count int
	}
	accs := make(map[string]*acc)

	var hydrationSum, compositeSum agg.Sum
	var hydrationDays, compositeDays int
	for _, row := range rows {
		if len(row.Metrics) > 0 {
			p.DaysWithData++
		}
		for metric, v := range row.Metrics {
			a, ok := accs[metric]
			if !ok {
				a = &acc{max: math.Inf(-1)}
				accs[metric] = a
			}
			a.sum.Add(v)
			a.max = math.Max(a.max, v)
			a.last = v
			a.count++
		}
		if row.HydrationCompliance != nil {
			hydrationSum.Add(*row.HydrationCompliance)
			hydrationDays++
			if *row.HydrationCompliance >= ComplianceMet {
				p.HydrationDaysMet++
			}
		}
		if row.CompositeScore != nil {
			compositeSum.Add(*row.CompositeScore)
			compositeDays++
		}
	}

	p.Aggregates = make(map[string]float64, len(accs))
	for metric, a := range accs {
		policy := schema.MeanAgg
		if def, ok := s.reg.Def(metric); ok {
			policy = def.Aggregation
		}
		switch policy {
		case schema.SumAgg:
			p.Aggregates[metric] = a.sum.Value()
		case schema.MaxAgg:
			p.Aggregates[metric] = a.max
		case schema.LastAgg:
			p.Aggregates[metric] = a.last
		default:
			p.Aggregates[metric] = a.sum.Value() / float64(a.count)
		}
	}
	if hydrationDays > 0 {
		p.HydrationRate = schema.Float(hydrationSum.Value() / float64(hydrationDays))
	}
	if compositeDays > 0 {
		p.CompositeMean = schema.Float(compositeSum.Value() / float64(compositeDays))
	}
}
