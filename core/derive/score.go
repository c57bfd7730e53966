package derive

import (
	"math"
	"slices"

	"github.com/huangsam/vitals/schema"
)

// HydrationCompliance is water intake over target, capped at 1. It is undefined on
// days without a water value or when no positive target exists.
func HydrationCompliance(metrics map[string]float64, targets schema.Targets) *float64 {
	water, ok := metrics["water"]
	if !ok {
		return nil
	}
	target, ok := targets["water"]
	if !ok || target <= 0 {
		return nil
	}
	return schema.Float(math.Min(1, water/target))
}

// RelativeError is the normalized miss of value against target for a goal, in [0, 1].
func RelativeError(goal schema.Goal, value, target float64) float64 {
	var miss float64
	switch goal {
	case schema.AtLeastGoal:
		miss = math.Max(0, target-value)
	case schema.AtMostGoal:
		miss = math.Max(0, value-target)
	default:
		miss = math.Abs(value - target)
	}
	return math.Min(1, miss/math.Abs(target))
}

// composite is the weighted [0, 100] score of the day's metrics. A metric takes part
// when it has a positive weight, a non-zero target and a value on the day.
func (e *Engine) composite(metrics map[string]float64, targets schema.Targets) *float64 {
	var weighted, total float64
	// fixed order keeps the float sum stable
	names := make([]string, 0, len(e.cfg.Weights))
	for name := range e.cfg.Weights {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		w := e.cfg.Weights[name]
		if w <= 0 {
			continue
		}
		target, ok := targets[name]
		if !ok || target == 0 {
			continue
		}
		value, ok := metrics[name]
		if !ok {
			continue
		}
		goal := schema.TargetGoal
		if def, ok := e.reg.Def(name); ok {
			goal = def.Goal
		}
		weighted += w * (1 - RelativeError(goal, value, target))
		total += w
	}
	if total == 0 {
		return nil
	}
	return schema.Float(100 * weighted / total)
}
