// Package schema has models and constants shared by every part of vitals.
package schema

import "time"

// RawSample is one record of a health export before any parsing.
// All fields are kept as text so that malformed records can be counted instead of rejected.
type RawSample struct {
	TypeID    string // Export type identifier, e.g. HKQuantityTypeIdentifierBodyMass
	Timestamp string // Start of the sample
	End       string // End of the sample (used by duration metrics)
	Value     string // Numeric value or category value
	Unit      string // Unit as written by the exporting device
	Source    string // Device or app that produced the sample
}

// MetricDef describes how samples of one export type become a daily metric.
type MetricDef struct {
	Name         string      // Canonical metric name, e.g. "weight"
	Aggregation  Aggregation // Same-day reduction rule
	Unit         string      // Canonical unit after normalization
	Kind         MetricKind  // How the sample value is derived
	Categories   []string    // Accepted category values for duration metrics
	DedupSources bool        // Sum per source, then average across sources
	Goal         Goal        // Direction of deviation penalized by the composite score
}

// Sample is a normalized tuple emitted by the extractor.
type Sample struct {
	Date   time.Time // Client-local calendar date (midnight UTC)
	Metric string    // Canonical metric name
	Value  float64   // Value in the canonical unit
	At     time.Time // Full timestamp, used by the LAST policy
	Source string    // Producing device or app
	Seq    int       // Position in the input stream
}

// DailyRow holds the reduced metrics for one calendar day.
// Metrics is sparse: a metric without samples that day has no key.
type DailyRow struct {
	Date    time.Time
	Metrics map[string]float64
}

// VitaminLogEntry is a manually logged supplement record for one client and day.
type VitaminLogEntry struct {
	ClientID   string    `json:"client_id" yaml:"client_id"`
	Date       time.Time `json:"date" yaml:"date"`
	VitaminD   float64   `json:"vitamin_d" yaml:"vitamin_d"`
	VitaminC   float64   `json:"vitamin_c" yaml:"vitamin_c"`
	VitaminB12 float64   `json:"vitamin_b12" yaml:"vitamin_b12"`
	Omega3     float64   `json:"omega3" yaml:"omega3"`
	Magnesium  float64   `json:"magnesium" yaml:"magnesium"`
	Zinc       float64   `json:"zinc" yaml:"zinc"`
	Iron       float64   `json:"iron" yaml:"iron"`
	Other      string    `json:"other" yaml:"other"`
	Notes      string    `json:"notes" yaml:"notes"`
}

// Targets maps a metric name to the client's target value.
type Targets map[string]float64

// AnalyticsRow is one day of the table consumed by the dashboard.
// Nil pointers and absent map keys mean "undefined", which is distinct from zero.
type AnalyticsRow struct {
	Date                time.Time          `json:"date"`
	Metrics             map[string]float64 `json:"metrics"`
	RollingAvg          map[string]float64 `json:"rolling_avg"`
	Deviation           map[string]float64 `json:"deviation"`
	DeviationPct        map[string]float64 `json:"deviation_pct"`
	HydrationCompliance *float64           `json:"hydration_compliance,omitempty"`
	CompositeScore      *float64           `json:"composite_score,omitempty"`
	TrendPctPerWeek     *float64           `json:"trend_pct_per_week,omitempty"`
	Recommendation      string             `json:"recommendation"`
	Vitamins            *VitaminLogEntry   `json:"vitamins,omitempty"`
	PeriodIndex         int                `json:"period_index"`
}

// MacrocyclePeriod summarizes one fixed-length block of days.
// End is exclusive; Days is the actual span, shorter than the period length when Partial.
type MacrocyclePeriod struct {
	Index            int                `json:"period_index"`
	Label            string             `json:"label"`
	Start            time.Time          `json:"start_date"`
	End              time.Time          `json:"end_date"`
	Days             int                `json:"days"`
	Partial          bool               `json:"partial"`
	DaysWithData     int                `json:"days_with_data"`
	Aggregates       map[string]float64 `json:"aggregates"`
	HydrationRate    *float64           `json:"hydration_rate,omitempty"`
	HydrationDaysMet int                `json:"hydration_days_met"`
	CompositeMean    *float64           `json:"composite_mean,omitempty"`
}

// CachedArtifact is the single serialized table kept per client.
type CachedArtifact struct {
	ClientID       string         `json:"client_id"`
	Format         ArtifactFormat `json:"format"`
	Data           []byte         `json:"tabular_data"`
	ContentHash    string         `json:"content_hash"`
	Fingerprint    uint64         `json:"fingerprint"`
	RowCount       int            `json:"row_count"`
	PeriodCount    int            `json:"period_count"`
	SkippedRecords int            `json:"skipped_records"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ExtractStats summarizes what the extractor did with the input stream.
type ExtractStats struct {
	Read       int  `json:"read"`       // Records seen
	Emitted    int  `json:"emitted"`    // Samples handed to the aggregator
	Skipped    int  `json:"skipped"`    // Malformed records
	Ignored    int  `json:"ignored"`    // Unknown types or category values
	Duplicates int  `json:"duplicates"` // Exact duplicate records dropped
	Truncated  bool `json:"truncated"`  // Stream ended with a syntax error after records were read
}

// AnalyticsResult is everything a successful run produced.
type AnalyticsResult struct {
	ClientID string             `json:"client_id"`
	Rows     []AnalyticsRow     `json:"rows"`
	Periods  []MacrocyclePeriod `json:"periods"`
	Stats    ExtractStats       `json:"stats"`
	Artifact CachedArtifact     `json:"artifact"`
}

// Client is a coached person whose exports are processed.
type Client struct {
	ClientID     string     `json:"client_id" yaml:"client_id"`
	Name         string     `json:"name" yaml:"name"`
	Timezone     string     `json:"timezone" yaml:"timezone"`
	ProgramStart *time.Time `json:"program_start,omitempty" yaml:"program_start,omitempty"`
	Active       bool       `json:"active" yaml:"active"`
}

// RunRecord is one entry of the run log.
type RunRecord struct {
	RunID       string    `json:"run_id"`
	ClientID    string    `json:"client_id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Status      RunStatus `json:"status"`
	Read        int       `json:"read"`
	Emitted     int       `json:"emitted"`
	Skipped     int       `json:"skipped"`
	Ignored     int       `json:"ignored"`
	Rows        int       `json:"rows"`
	Periods     int       `json:"periods"`
	ContentHash string    `json:"content_hash"`
	Error       string    `json:"error,omitempty"`
}
