package contract

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/vitals/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validInput returns a raw input that passes validation, mirroring the CLI defaults.
func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Workers:        4,
		Precision:      1,
		Output:         "text",
		Color:          "yes",
		CacheBackend:   "sqlite",
		StoreBackend:   "sqlite",
		LockBackend:    "local",
		ArtifactFormat: "csv",
		DedupExact:     true,
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*ConfigRawInput)
		expectError string
	}{
		{name: "valid minimal config", modify: func(*ConfigRawInput) {}},
		{name: "invalid workers", modify: func(in *ConfigRawInput) { in.Workers = 0 }, expectError: "workers"},
		{name: "invalid precision", modify: func(in *ConfigRawInput) { in.Precision = 5 }, expectError: "precision"},
		{name: "invalid output", modify: func(in *ConfigRawInput) { in.Output = "xml" }, expectError: "output format"},
		{name: "parquet without file", modify: func(in *ConfigRawInput) { in.Output = "parquet" }, expectError: "--output-file"},
		{name: "invalid color", modify: func(in *ConfigRawInput) { in.Color = "maybe" }, expectError: "--color"},
		{name: "invalid cache backend", modify: func(in *ConfigRawInput) { in.CacheBackend = "memcached" }, expectError: "cache backend"},
		{name: "badger cannot hold client data", modify: func(in *ConfigRawInput) { in.StoreBackend = "badger" }, expectError: "store backend"},
		{name: "s3 without bucket", modify: func(in *ConfigRawInput) { in.CacheBackend = "s3" }, expectError: "s3-bucket"},
		{
			name: "s3 with bucket",
			modify: func(in *ConfigRawInput) {
				in.CacheBackend = "s3"
				in.S3Bucket = "coach-artifacts"
			},
		},
		{name: "mysql without connection", modify: func(in *ConfigRawInput) { in.CacheBackend = "mysql" }, expectError: "cache-db-connect"},
		{
			name: "postgres store with connection",
			modify: func(in *ConfigRawInput) {
				in.StoreBackend = "postgresql"
				in.StoreDBConnect = "host=localhost port=5432 user=postgres dbname=vitals"
			},
		},
		{
			name: "same sqlite file",
			modify: func(in *ConfigRawInput) {
				in.CacheDBConnect = "/tmp/vitals.db"
				in.StoreDBConnect = "/tmp/vitals.db"
			},
			expectError: "different SQLite database files",
		},
		{name: "invalid lock backend", modify: func(in *ConfigRawInput) { in.LockBackend = "etcd" }, expectError: "lock backend"},
		{name: "invalid lock ttl", modify: func(in *ConfigRawInput) { in.LockTTL = "soon" }, expectError: "lock-ttl"},
		{name: "invalid timezone", modify: func(in *ConfigRawInput) { in.Timezone = "Mars/Olympus" }, expectError: "timezone"},
		{name: "invalid artifact format", modify: func(in *ConfigRawInput) { in.ArtifactFormat = "xlsx" }, expectError: "artifact format"},
		{name: "negative window", modify: func(in *ConfigRawInput) { in.WindowDays = -1 }, expectError: "window-days"},
		{name: "unknown trend metric", modify: func(in *ConfigRawInput) { in.TrendMetric = "mood" }, expectError: "trend metric"},
		{
			name:        "weights not summing to one",
			modify:      func(in *ConfigRawInput) { in.Weights = map[string]float64{"weight": 0.5, "steps": 0.2} },
			expectError: "sum to 1.0",
		},
		{
			name:        "weights with unknown metric",
			modify:      func(in *ConfigRawInput) { in.Weights = map[string]float64{"mood": 1} },
			expectError: "unknown metric",
		},
		{
			name:        "malformed weights override",
			modify:      func(in *ConfigRawInput) { in.WeightsStr = "weight=1" },
			expectError: "--weights-override",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.modify(input)

			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestProcessAndValidateDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, validInput()))

	assert.Equal(t, schema.SQLiteBackend, cfg.CacheBackend)
	assert.Equal(t, schema.LocalLock, cfg.LockBackend)
	assert.Equal(t, DefaultLockTTL, cfg.LockTTL)
	assert.Equal(t, DefaultS3Prefix, cfg.S3Prefix)
	assert.Nil(t, cfg.Location)
	assert.Nil(t, cfg.Weights, "nil weights select the built-in defaults")
	assert.True(t, cfg.UseColors)
	assert.True(t, cfg.DedupExact)
}

func TestProcessAndValidatePipelineSettings(t *testing.T) {
	input := validInput()
	input.Timezone = "UTC"
	input.WindowDays = 90
	input.TrendMetric = "weight"
	input.ArtifactFormat = "JSON"
	input.LockBackend = "redis"
	input.LockTTL = "30s"
	input.S3Prefix = "/coach/artifacts/"

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 90, cfg.WindowDays)
	assert.Equal(t, schema.JSONArtifact, cfg.ArtifactFormat)
	assert.Equal(t, DefaultRedisAddr, cfg.RedisAddr)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.Equal(t, "coach/artifacts", cfg.S3Prefix)
}

func TestWeightsOverrideTakesPrecedence(t *testing.T) {
	input := validInput()
	input.Weights = map[string]float64{"weight": 1}
	input.WeightsStr = "steps:0.6, water:0.4"

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))
	assert.Equal(t, map[string]float64{"steps": 0.6, "water": 0.4}, cfg.Weights)
}

func TestProcessWeights(t *testing.T) {
	got, err := ProcessWeights(map[string]float64{"weight": 0.7, "sleep": 0.3}, true)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"weight": 0.7, "sleep": 0.3}, got)

	got, err = ProcessWeights(map[string]float64{"weight": 0.7}, false)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = ProcessWeights(map[string]float64{"weight": -0.5, "sleep": 1.5}, true)
	assert.ErrorContains(t, err, "non-negative")

	got, err = ProcessWeights(nil, true)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		backend schema.CacheBackend
		connStr string
		wantErr bool
	}{
		{schema.SQLiteBackend, "", false},
		{schema.NoneBackend, "", false},
		{schema.BadgerBackend, "", false},
		{schema.MySQLBackend, "user:pass@tcp(localhost:3306)/vitals", false},
		{schema.MySQLBackend, "", true},
		{schema.MySQLBackend, "user:pass@localhost/vitals", true},
		{schema.MySQLBackend, "user:pass@tcp(localhost:3306)", true},
		{schema.PostgreSQLBackend, "host=localhost dbname=vitals", false},
		{schema.PostgreSQLBackend, "dbname=vitals", true},
		{schema.PostgreSQLBackend, "host=localhost", true},
	}

	for _, tt := range tests {
		err := ValidateDatabaseConnectionString(tt.backend, tt.connStr)
		if tt.wantErr {
			assert.Error(t, err, "%s %q", tt.backend, tt.connStr)
		} else {
			assert.NoError(t, err, "%s %q", tt.backend, tt.connStr)
		}
	}
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{Workers: 2, Weights: map[string]float64{"weight": 1}}
	clone := cfg.Clone()
	clone.Weights["weight"] = 0.5
	clone.Workers = 8

	assert.Equal(t, 1.0, cfg.Weights["weight"])
	assert.Equal(t, 2, cfg.Workers)
}

func TestDefaultPathsAreDistinct(t *testing.T) {
	paths := []string{GetCacheDBFilePath(), GetStoreDBFilePath(), GetBadgerDir()}
	for _, p := range paths {
		assert.NotEmpty(t, filepath.Base(p))
	}
	assert.NotEqual(t, paths[0], paths[1])
	assert.NotEqual(t, paths[0], paths[2])
}

func TestProcessProfilingConfig(t *testing.T) {
	profile := &ProfileConfig{}
	assert.NoError(t, ProcessProfilingConfig(profile, "  "))
	assert.False(t, profile.Enabled)

	assert.NoError(t, ProcessProfilingConfig(profile, "vitals"))
	assert.True(t, profile.Enabled)
	assert.Equal(t, "vitals", profile.Prefix)
}
