// Package registry maps raw export type identifiers to canonical metrics.
// It is the single place where new biometrics are declared.
package registry

import (
	"slices"
	"sort"

	"github.com/huangsam/vitals/schema"
)

// Apple Health sleep category values that count as time asleep.
var asleepValues = []string{
	"HKCategoryValueSleepAnalysisAsleep",
	"HKCategoryValueSleepAnalysisAsleepCore",
	"HKCategoryValueSleepAnalysisAsleepREM",
	"HKCategoryValueSleepAnalysisAsleepDeep",
	"HKCategoryValueSleepAnalysisAsleepUnspecified",
}

// builtin is keyed by export type identifier.
var builtin = map[string]schema.MetricDef{
	"HKQuantityTypeIdentifierBodyMass": {
		Name: "weight", Aggregation: schema.MeanAgg, Unit: "kg", Kind: schema.QuantityKind, Goal: schema.TargetGoal,
	},
	"HKQuantityTypeIdentifierStepCount": {
		Name: "steps", Aggregation: schema.SumAgg, Unit: "count", Kind: schema.QuantityKind, DedupSources: true, Goal: schema.AtLeastGoal,
	},
	"HKQuantityTypeIdentifierDietaryEnergyConsumed": {
		Name: "calories", Aggregation: schema.SumAgg, Unit: "kcal", Kind: schema.QuantityKind, Goal: schema.AtMostGoal,
	},
	"HKQuantityTypeIdentifierDietaryWater": {
		Name: "water", Aggregation: schema.SumAgg, Unit: "mL", Kind: schema.QuantityKind, Goal: schema.AtLeastGoal,
	},
	"HKCategoryTypeIdentifierSleepAnalysis": {
		Name: "sleep", Aggregation: schema.SumAgg, Unit: "hr", Kind: schema.DurationKind, Categories: asleepValues, Goal: schema.AtLeastGoal,
	},
	"HKQuantityTypeIdentifierHeartRate": {
		Name: "heart_rate", Aggregation: schema.MaxAgg, Unit: "count/min", Kind: schema.QuantityKind, Goal: schema.TargetGoal,
	},
	"HKQuantityTypeIdentifierRestingHeartRate": {
		Name: "resting_heart_rate", Aggregation: schema.MeanAgg, Unit: "count/min", Kind: schema.QuantityKind, Goal: schema.AtMostGoal,
	},
	"HKQuantityTypeIdentifierHeartRateVariabilitySDNN": {
		Name: "hrv", Aggregation: schema.MeanAgg, Unit: "ms", Kind: schema.QuantityKind, Goal: schema.AtLeastGoal,
	},
	"HKQuantityTypeIdentifierDistanceWalkingRunning": {
		Name: "distance", Aggregation: schema.SumAgg, Unit: "km", Kind: schema.QuantityKind, Goal: schema.AtLeastGoal,
	},
	"HKQuantityTypeIdentifierActiveEnergyBurned": {
		Name: "active_energy", Aggregation: schema.SumAgg, Unit: "kcal", Kind: schema.QuantityKind, Goal: schema.AtLeastGoal,
	},
	"HKQuantityTypeIdentifierBodyFatPercentage": {
		Name: "body_fat", Aggregation: schema.LastAgg, Unit: "%", Kind: schema.QuantityKind, Goal: schema.TargetGoal,
	},
}

// Registry is an immutable lookup table of metric definitions.
// It is safe for concurrent use.
type Registry struct {
	byType map[string]schema.MetricDef
	byName map[string]schema.MetricDef
}

var defaultRegistry = New(builtin)

// Default returns the built-in registry.
func Default() *Registry {
	return defaultRegistry
}

// New builds a registry from type identifier entries. Every canonical name is
// also registered as a type identifier of its own, so generic streams can use it.
func New(entries map[string]schema.MetricDef) *Registry {
	r := &Registry{
		byType: make(map[string]schema.MetricDef, len(entries)*2),
		byName: make(map[string]schema.MetricDef, len(entries)),
	}
	for typeID, def := range entries {
		def.Categories = slices.Clone(def.Categories)
		r.byType[typeID] = def
		r.byName[def.Name] = def
	}
	for name, def := range r.byName {
		if _, ok := r.byType[name]; !ok {
			r.byType[name] = def
		}
	}
	return r
}

// Lookup returns the definition for an export type identifier.
// The boolean is false for unknown types, which callers ignore.
func (r *Registry) Lookup(typeID string) (schema.MetricDef, bool) {
	def, ok := r.byType[typeID]
	return def, ok
}

// Def returns the definition for a canonical metric name.
func (r *Registry) Def(name string) (schema.MetricDef, bool) {
	def, ok := r.byName[name]
	return def, ok
}

// Names returns all canonical metric names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TypeIDs returns the export type identifiers mapped to a canonical name, sorted.
func (r *Registry) TypeIDs(name string) []string {
	var ids []string
	for id, def := range r.byType {
		if def.Name == name {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// AcceptsCategory reports whether a category value counts for a duration metric.
func AcceptsCategory(def schema.MetricDef, value string) bool {
	return slices.Contains(def.Categories, value)
}
