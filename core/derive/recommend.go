package derive

import "github.com/huangsam/vitals/schema"

// Recommendations, in the order their rules are evaluated.
const (
	InsufficientData = "Insufficient data"
	HoldSteady       = "Behaviours aligned: hold steady"
	LossTooSlow      = "Loss too slow: reduce calories slightly"
	LossTooFast      = "Loss too aggressive: increase calories slightly"
	SleepDeficit     = "Sleep deficit detected: prioritise recovery"
	UnderHydrated    = "Under-hydrated: increase daily water intake"
	MonitorTrend     = "Monitor trend: small adjustments if needed"
)

const (
	alignedScore   = 90.0
	trendTolerance = 0.3
	deficitPct     = -20.0
)

// ruleInput is what a recommendation rule can look at.
type ruleInput struct {
	row         *schema.AnalyticsRow
	trendTarget float64
	hasTarget   bool
}

type rule struct {
	message string
	matches func(in ruleInput) bool
}

func trendAbove(in ruleInput) bool {
	return in.hasTarget && in.row.TrendPctPerWeek != nil && *in.row.TrendPctPerWeek > in.trendTarget+trendTolerance
}

func trendBelow(in ruleInput) bool {
	return in.hasTarget && in.row.TrendPctPerWeek != nil && *in.row.TrendPctPerWeek < in.trendTarget-trendTolerance
}

func deficit(metric string) func(ruleInput) bool {
	return func(in ruleInput) bool {
		pct, ok := in.row.DeviationPct[metric]
		return ok && pct < deficitPct
	}
}

var rules = []rule{
	{InsufficientData, func(in ruleInput) bool { return in.row.CompositeScore == nil }},
	{HoldSteady, func(in ruleInput) bool { return *in.row.CompositeScore >= alignedScore }},
	{LossTooSlow, trendAbove},
	{LossTooFast, trendBelow},
	{SleepDeficit, deficit("sleep")},
	{UnderHydrated, deficit("water")},
}

// Recommend returns the coaching message for a fully derived row.
func Recommend(row *schema.AnalyticsRow, targets schema.Targets, trendMetric string) string {
	target, ok := targets[trendMetric+TrendTargetSuffix]
	in := ruleInput{row: row, trendTarget: target, hasTarget: ok}
	for _, r := range rules {
		if r.matches(in) {
			return r.message
		}
	}
	return MonitorTrend
}
