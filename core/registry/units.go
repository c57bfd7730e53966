package registry

import (
	"fmt"
	"strings"
)

// conversions maps a canonical unit to the factor that converts each accepted raw unit into it.
var conversions = map[string]map[string]float64{
	"kg": {
		"kg": 1,
		"g":  0.001,
		"lb": 0.45359237,
		"st": 6.35029318,
	},
	"km": {
		"km": 1,
		"m":  0.001,
		"mi": 1.609344,
	},
	"kcal": {
		"kcal": 1,
		"cal":  1, // Apple writes dietary "Cal" for kilocalories
		"kj":   1 / 4.184,
	},
	"ml": {
		"ml":        1,
		"l":         1000,
		"fl_oz_us":  29.5735295625,
		"fl_oz_imp": 28.4130625,
		"cup_us":    236.5882365,
	},
	"hr": {
		"hr":  1,
		"h":   1,
		"min": 1.0 / 60,
		"s":   1.0 / 3600,
	},
	"count":     {"count": 1},
	"count/min": {"count/min": 1, "bpm": 1},
	"ms":        {"ms": 1},
	"%":         {"%": 1},
}

// Normalize converts value from the raw unit to the canonical unit.
// An empty raw unit is taken to already be canonical. Unit names are matched case-insensitively.
func Normalize(value float64, rawUnit, canonical string) (float64, error) {
	table, ok := conversions[strings.ToLower(canonical)]
	if !ok {
		return 0, fmt.Errorf("no conversions declared for unit %q", canonical)
	}
	if rawUnit == "" {
		return value, nil
	}
	factor, ok := table[strings.ToLower(strings.TrimSpace(rawUnit))]
	if !ok {
		return 0, fmt.Errorf("unknown unit %q for %q", rawUnit, canonical)
	}
	return value * factor, nil
}
