package schema

import "time"

// CacheStatus represents the status of the artifact cache.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// StoreStatus represents the status of the client data store.
type StoreStatus struct {
	Backend    string           `json:"backend"`
	Connected  bool             `json:"connected"`
	Clients    int              `json:"clients"`
	TotalRuns  int              `json:"total_runs"`
	LastRunID  string           `json:"last_run_id"`
	LastRunAt  time.Time        `json:"last_run_at"`
	TableSizes map[string]int64 `json:"table_sizes"`
}

// BatchItem is the outcome of one client run in a batch.
type BatchItem struct {
	ClientID    string        `json:"client_id"`
	ExportPath  string        `json:"export"`
	Status      RunStatus     `json:"status"`
	RunID       string        `json:"run_id"`
	Rows        int           `json:"rows"`
	Periods     int           `json:"periods"`
	Skipped     int           `json:"skipped"`
	ContentHash string        `json:"content_hash"`
	Duration    time.Duration `json:"duration_ns"`
	Error       string        `json:"error,omitempty"`
}

// MetricInfo describes one registered metric for display.
type MetricInfo struct {
	Name        string      `json:"name"`
	Aggregation Aggregation `json:"aggregation"`
	Unit        string      `json:"unit"`
	Goal        Goal        `json:"goal"`
	Weight      float64     `json:"weight"`
	TypeIDs     []string    `json:"type_ids"`
}
