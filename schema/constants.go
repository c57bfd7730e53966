package schema

// Custom string types for type safety.
type (
	// Aggregation is the reduction rule applied to same-day samples of one metric.
	Aggregation string

	// MetricKind tells the extractor how a sample value is derived.
	MetricKind string

	// Goal tells the composite score which direction of deviation is penalized.
	Goal string

	// OutputMode represents the format of the output.
	OutputMode string

	// CacheBackend represents the storage backend for cached artifacts and client data.
	CacheBackend string

	// ArtifactFormat is the serialization used for a cached artifact.
	ArtifactFormat string

	// SourceFormat is the layout of a raw health export.
	SourceFormat string

	// LockBackend selects how per-client runs are serialized.
	LockBackend string

	// RunStatus is the outcome of a single pipeline run.
	RunStatus string
)

// All aggregation policies supported.
const (
	MeanAgg Aggregation = "mean"
	SumAgg  Aggregation = "sum"
	MaxAgg  Aggregation = "max"
	LastAgg Aggregation = "last"
)

// All metric kinds supported.
const (
	QuantityKind MetricKind = "quantity" // numeric value attribute
	DurationKind MetricKind = "duration" // end minus start, in hours
)

// All scoring goals supported.
const (
	TargetGoal  Goal = "target"   // any deviation is penalized
	AtLeastGoal Goal = "at_least" // only shortfall is penalized
	AtMostGoal  Goal = "at_most"  // only excess is penalized
)

// All output modes supported.
const (
	TextOut    OutputMode = "text" // default
	CSVOut     OutputMode = "csv"
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All cache backends supported.
const (
	SQLiteBackend     CacheBackend = "sqlite" // default
	MySQLBackend      CacheBackend = "mysql"
	PostgreSQLBackend CacheBackend = "postgresql"
	BadgerBackend     CacheBackend = "badger"
	S3Backend         CacheBackend = "s3"
	NoneBackend       CacheBackend = "none"
)

// All artifact formats supported.
const (
	CSVArtifact  ArtifactFormat = "csv" // default
	JSONArtifact ArtifactFormat = "json"
)

// All export formats supported.
const (
	XMLSource SourceFormat = "xml"
	ZipSource SourceFormat = "zip"
	CSVSource SourceFormat = "csv"
)

// All lock backends supported.
const (
	LocalLock LockBackend = "local" // default
	RedisLock LockBackend = "redis"
)

// All run statuses recorded in the run log.
const (
	RunSucceeded         RunStatus = "succeeded"
	RunStructuralFailure RunStatus = "structural_failure"
	RunCacheWriteFailure RunStatus = "cache_write_failure"
	RunFailed            RunStatus = "failed"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TextOut:    {},
	CSVOut:     {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidCacheBackends lists all valid artifact cache backends.
var ValidCacheBackends = map[CacheBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	BadgerBackend:     {},
	S3Backend:         {},
	NoneBackend:       {},
}

// ValidStoreBackends lists the backends that can hold client data.
var ValidStoreBackends = map[CacheBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidArtifactFormats lists all valid artifact formats.
var ValidArtifactFormats = map[ArtifactFormat]struct{}{
	CSVArtifact:  {},
	JSONArtifact: {},
}

// ValidLockBackends lists all valid lock backends.
var ValidLockBackends = map[LockBackend]struct{}{
	LocalLock: {},
	RedisLock: {},
}
