package contract

import (
	"fmt"
	"maps"
	"math"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/vitals/core/registry"
	"github.com/huangsam/vitals/schema"
)

// Default values for configuration.
const (
	DefaultPrecision  = 1
	DefaultWindowDays = 0
	DefaultLockTTL    = 5 * time.Minute
	DefaultS3Prefix   = "vitals/artifacts"
	DefaultRedisAddr  = "localhost:6379"
	MaxWindowDays     = 3650
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// ProfileConfig holds profiling configuration.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration of the pipeline and its stores.
// This struct is the "final, validated" config.
type Config struct {
	Workers    int
	Precision  int
	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool

	CacheBackend   schema.CacheBackend
	CacheDBConnect string // Please use env var as this is plaintext

	StoreBackend   schema.CacheBackend
	StoreDBConnect string // Please use env var as this is plaintext

	S3Bucket   string
	S3Prefix   string
	S3Region   string
	S3Endpoint string // Optional, for S3-compatible servers

	LockBackend schema.LockBackend
	RedisAddr   string
	LockTTL     time.Duration

	Location       *time.Location // nil means each timestamp keeps its own offset
	ArtifactFormat schema.ArtifactFormat
	WindowDays     int
	DedupExact     bool
	TrendMetric    string

	// Weights is the composite score weight of each metric. Nil means the built-in defaults.
	Weights map[string]float64
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Workers        int    `mapstructure:"workers"`
	Precision      int    `mapstructure:"precision"`
	Output         string `mapstructure:"output"`
	OutputFile     string `mapstructure:"output-file"`
	Width          int    `mapstructure:"width"`
	Color          string `mapstructure:"color"`
	CacheBackend   string `mapstructure:"cache-backend"`
	CacheDBConnect string `mapstructure:"cache-db-connect"`
	StoreBackend   string `mapstructure:"store-backend"`
	StoreDBConnect string `mapstructure:"store-db-connect"`
	S3Bucket       string `mapstructure:"s3-bucket"`
	S3Prefix       string `mapstructure:"s3-prefix"`
	S3Region       string `mapstructure:"s3-region"`
	S3Endpoint     string `mapstructure:"s3-endpoint"`
	LockBackend    string `mapstructure:"lock-backend"`
	RedisAddr      string `mapstructure:"redis-addr"`
	LockTTL        string `mapstructure:"lock-ttl"`

	// --- Pipeline settings ---
	Timezone       string `mapstructure:"timezone"`
	ArtifactFormat string `mapstructure:"artifact-format"`
	WindowDays     int    `mapstructure:"window-days"`
	DedupExact     bool   `mapstructure:"dedup-exact"`
	TrendMetric    string `mapstructure:"trend-metric"`
	WeightsStr     string `mapstructure:"weights-override"`

	// --- Custom weights from config file ---
	Weights map[string]float64 `mapstructure:"weights"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Weights != nil {
		clone.Weights = make(map[string]float64, len(c.Weights))
		maps.Copy(clone.Weights, c.Weights)
	}
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processPipelineSettings(cfg, input); err != nil {
		return err
	}
	if err := processCustomWeights(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.CacheBackend, connStr string) error {
	switch backend {
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateSimpleInputs processes and validates the output related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.Precision < 1 || input.Precision > 3 {
		return fmt.Errorf("precision must be between 1 and 3 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("--output-file is required for parquet output")
	}
	return nil
}

// validateBackendConfigs validates artifact cache, client store and lock configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Artifact Cache Validation ---
	cfg.CacheBackend = schema.CacheBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidCacheBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, badger, s3, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return fmt.Errorf("cache-db-connect: %w", err)
	}

	cfg.S3Bucket = strings.TrimSpace(input.S3Bucket)
	cfg.S3Prefix = strings.Trim(input.S3Prefix, "/")
	if cfg.S3Prefix == "" {
		cfg.S3Prefix = DefaultS3Prefix
	}
	cfg.S3Region = input.S3Region
	cfg.S3Endpoint = input.S3Endpoint
	if cfg.CacheBackend == schema.S3Backend && cfg.S3Bucket == "" {
		return fmt.Errorf("s3-bucket is required when using the s3 cache backend")
	}

	// --- Client Store Validation ---
	cfg.StoreBackend = schema.CacheBackend(strings.ToLower(input.StoreBackend))
	if _, ok := schema.ValidStoreBackends[cfg.StoreBackend]; !ok {
		return fmt.Errorf("invalid store backend '%s'. must be sqlite, mysql, postgresql, none", input.StoreBackend)
	}
	cfg.StoreDBConnect = input.StoreDBConnect
	if err := ValidateDatabaseConnectionString(cfg.StoreBackend, cfg.StoreDBConnect); err != nil {
		return fmt.Errorf("store-db-connect: %w", err)
	}

	// Both SQLite stores open their own connection, so they need their own file.
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.StoreBackend == schema.SQLiteBackend {
		cachePath := cfg.CacheDBConnect
		if cachePath == "" {
			cachePath = GetCacheDBFilePath()
		}
		storePath := cfg.StoreDBConnect
		if storePath == "" {
			storePath = GetStoreDBFilePath()
		}
		if cachePath == storePath {
			return fmt.Errorf("cache and store must use different SQLite database files. Both resolve to %q", cachePath)
		}
	}

	// --- Lock Validation ---
	cfg.LockBackend = schema.LockBackend(strings.ToLower(input.LockBackend))
	if _, ok := schema.ValidLockBackends[cfg.LockBackend]; !ok {
		return fmt.Errorf("invalid lock backend '%s'. must be local, redis", input.LockBackend)
	}
	cfg.RedisAddr = input.RedisAddr
	if cfg.LockBackend == schema.RedisLock && cfg.RedisAddr == "" {
		cfg.RedisAddr = DefaultRedisAddr
	}
	cfg.LockTTL = DefaultLockTTL
	if input.LockTTL != "" {
		ttl, err := time.ParseDuration(input.LockTTL)
		if err != nil || ttl <= 0 {
			return fmt.Errorf("invalid lock-ttl '%s'. expected a positive duration such as 5m", input.LockTTL)
		}
		cfg.LockTTL = ttl
	}
	return nil
}

// processPipelineSettings validates the settings that shape the analytics table.
func processPipelineSettings(cfg *Config, input *ConfigRawInput) error {
	loc, err := LoadLocation(input.Timezone)
	if err != nil {
		return err
	}
	cfg.Location = loc

	cfg.ArtifactFormat = schema.ArtifactFormat(strings.ToLower(input.ArtifactFormat))
	if _, ok := schema.ValidArtifactFormats[cfg.ArtifactFormat]; !ok {
		return fmt.Errorf("invalid artifact format '%s'. must be csv, json", input.ArtifactFormat)
	}

	if input.WindowDays < 0 || input.WindowDays > MaxWindowDays {
		return fmt.Errorf("window-days must be between 0 and %d (received %d)", MaxWindowDays, input.WindowDays)
	}
	cfg.WindowDays = input.WindowDays
	cfg.DedupExact = input.DedupExact

	cfg.TrendMetric = strings.TrimSpace(input.TrendMetric)
	if cfg.TrendMetric != "" {
		if _, ok := registry.Default().Def(cfg.TrendMetric); !ok {
			return fmt.Errorf("unknown trend metric '%s'. must be one of %s", cfg.TrendMetric, strings.Join(registry.Default().Names(), ", "))
		}
	}
	return nil
}

// ProcessWeights validates a metric -> weight map. Every metric must be known,
// every weight non-negative, and when validateSum is true the weights must sum to 1.0.
func ProcessWeights(weights map[string]float64, validateSum bool) (map[string]float64, error) {
	if len(weights) == 0 {
		return nil, nil
	}
	result := make(map[string]float64, len(weights))
	sum := 0.0
	for _, name := range slices.Sorted(maps.Keys(weights)) {
		w := weights[name]
		if _, ok := registry.Default().Def(name); !ok {
			return nil, fmt.Errorf("unknown metric '%s' in weights", name)
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("weight for metric %s must be a non-negative number, got %v", name, w)
		}
		result[name] = w
		sum += w
	}
	if validateSum && (sum < 0.999 || sum > 1.001) {
		return nil, fmt.Errorf("custom weights must sum to 1.0, got %.3f", sum)
	}
	return result, nil
}

// processCustomWeights resolves the composite weights. The --weights-override
// flag takes precedence over the config file.
func processCustomWeights(cfg *Config, input *ConfigRawInput) error {
	raw := input.Weights
	if input.WeightsStr != "" {
		parsed, err := parseWeightsString(input.WeightsStr)
		if err != nil {
			return fmt.Errorf("invalid --weights-override format: %w", err)
		}
		raw = parsed
	}
	weights, err := ProcessWeights(raw, true)
	if err != nil {
		return err
	}
	cfg.Weights = weights
	return nil
}

// parseWeightsString parses a string like "weight:0.5,steps:0.3,water:0.2"
// into a map of metric to weight.
func parseWeightsString(s string) (map[string]float64, error) {
	weights := make(map[string]float64)

	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		keyValue := strings.Split(part, ":")
		if len(keyValue) != 2 {
			return nil, fmt.Errorf("invalid weight format '%s', expected 'metric:value'", part)
		}

		metric := strings.ToLower(strings.TrimSpace(keyValue[0]))
		valueStr := strings.TrimSpace(keyValue[1])

		value, err := strconv.ParseFloat(valueStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight value '%s' for metric %s: %w", valueStr, metric, err)
		}
		weights[metric] = value
	}

	return weights, nil
}

// ProcessProfilingConfig enables profiling when a file prefix is given.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	profilePrefix = strings.TrimSpace(profilePrefix)
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}
