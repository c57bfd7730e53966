package derive

import (
	"sort"
	"time"

	"github.com/huangsam/vitals/schema"
)

// point is one day with a value for a metric.
type point struct {
	date  time.Time
	value float64
}

// series indexes the dated values of every metric, sorted by date.
type series map[string][]point

func newSeries(rows []schema.AnalyticsRow) series {
	s := make(series)
	for _, row := range rows {
		for metric, v := range row.Metrics {
			s[metric] = append(s[metric], point{date: row.Date, value: v})
		}
	}
	// rows are sorted, so every slice already is
	return s
}

// window returns the points of metric in [end-days+1, end].
func (s series) window(metric string, end time.Time, days int) []point {
	pts := s[metric]
	start := end.AddDate(0, 0, -(days - 1))
	lo := sort.Search(len(pts), func(i int) bool { return !pts[i].date.Before(start) })
	hi := sort.Search(len(pts), func(i int) bool { return pts[i].date.After(end) })
	return pts[lo:hi]
}

// mean is the trailing average over days with data. The denominator is the
// number of days present, never the window length.
func (s series) mean(metric string, end time.Time, days int) (float64, bool) {
	pts := s.window(metric, end, days)
	if len(pts) == 0 {
		return 0, false
	}
	var sum float64
	for _, p := range pts {
		sum += p.value
	}
	return sum / float64(len(pts)), true
}

// latest returns the most recent value of metric in the trailing window.
func (s series) latest(metric string, end time.Time, days int) (float64, bool) {
	pts := s.window(metric, end, days)
	if len(pts) == 0 {
		return 0, false
	}
	return pts[len(pts)-1].value, true
}

// trend is the weekly percent change between the rolling mean at date and the
// rolling mean one window earlier.
func (s series) trend(metric string, date time.Time, days int) *float64 {
	now, ok := s.mean(metric, date, days)
	if !ok {
		return nil
	}
	before, ok := s.mean(metric, date.AddDate(0, 0, -days), days)
	if !ok || before == 0 {
		return nil
	}
	pct := (now - before) / before * 100 * 7 / float64(days)
	return &pct
}

// fillRolling sets rolling averages and deviations for every metric that has a target.
func (e *Engine) fillRolling(row *schema.AnalyticsRow, s series, targets schema.Targets) {
	for metric, target := range targets {
		if _, known := e.reg.Def(metric); !known {
			continue
		}
		avg, ok := s.mean(metric, row.Date, e.cfg.RollingDays)
		if !ok {
			continue
		}
		row.RollingAvg[metric] = avg
		if target != 0 {
			row.DeviationPct[metric] = (avg - target) / target * 100
		}
		if last, ok := s.latest(metric, row.Date, e.cfg.RollingDays); ok {
			row.Deviation[metric] = last - target
		}
	}
}
