// Package cmd defines the command-line interface for vitals.
package cmd

import (
	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(clientsCmd)
	rootCmd.AddCommand(vitaminsCmd)
	rootCmd.AddCommand(targetsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	clientsCmd.AddCommand(clientsAddCmd)
	clientsCmd.AddCommand(clientsListCmd)

	vitaminsCmd.AddCommand(vitaminsAddCmd)
	vitaminsCmd.AddCommand(vitaminsListCmd)

	targetsCmd.AddCommand(targetsSetCmd)
	targetsCmd.AddCommand(targetsListCmd)
	targetsCmd.AddCommand(targetsImportCmd)

	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeMigrateCmd)
	storeCmd.AddCommand(storeRunsCmd)
	storeCmd.AddCommand(storeExportCmd)
	storeCmd.AddCommand(storeClearCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent client runs in a batch")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Artifact cache backend: sqlite or mysql or postgresql or badger or s3 or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Connection string for mysql/postgresql, or the file/directory for sqlite/badger")
	rootCmd.PersistentFlags().String("store-backend", string(schema.SQLiteBackend), "Client store backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("store-db-connect", "", "Connection string for the client store (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("s3-bucket", "", "Bucket of the s3 artifact backend")
	rootCmd.PersistentFlags().String("s3-prefix", contract.DefaultS3Prefix, "Key prefix of the s3 artifact backend")
	rootCmd.PersistentFlags().String("s3-region", "", "Region of the s3 artifact backend")
	rootCmd.PersistentFlags().String("s3-endpoint", "", "Endpoint of an S3-compatible server")
	rootCmd.PersistentFlags().String("lock-backend", string(schema.LocalLock), "Per-client run lock: local or redis")
	rootCmd.PersistentFlags().String("redis-addr", "", "Redis address for the redis lock backend")
	rootCmd.PersistentFlags().String("lock-ttl", contract.DefaultLockTTL.String(), "Expiry of a redis run lock")
	rootCmd.PersistentFlags().String("timezone", "", "Default IANA timezone of clients without one")
	rootCmd.PersistentFlags().String("artifact-format", string(schema.CSVArtifact), "Cached artifact format: csv or json")
	rootCmd.PersistentFlags().Int("window-days", contract.DefaultWindowDays, "Keep only the trailing N days of the analytics table (0 = all)")
	rootCmd.PersistentFlags().Bool("dedup-exact", true, "Drop exact duplicate export records")
	rootCmd.PersistentFlags().String("trend-metric", "", "Metric whose weekly trend drives recommendations")
	rootCmd.PersistentFlags().String("weights-override", "", "Composite score weights (format: 'steps:0.3,sleep:0.3,water:0.4')")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Command-local flags are read directly from cobra, since their names
	// would collide in Viper's flat key space.
	runCmd.Flags().String("client", "", "Client ID to run the pipeline for")
	runCmd.Flags().String("format", "", "Export format: xml or zip or csv (default: by file extension)")

	clientsAddCmd.Flags().String("name", "", "Display name of the client")
	clientsAddCmd.Flags().String("tz", "", "IANA timezone of the client, e.g. Europe/Madrid")
	clientsAddCmd.Flags().String("program-start", "", "Start date of the coaching program (YYYY-MM-DD)")
	clientsAddCmd.Flags().Bool("inactive", false, "Mark the client inactive so runs are refused")
	clientsAddCmd.Flags().Bool("no-default-targets", false, "Do not seed the default targets")

	vitaminsAddCmd.Flags().String("date", "", "Day of the entry (YYYY-MM-DD, default: today)")
	vitaminsAddCmd.Flags().Float64("vitamin-d", 0, "Vitamin D (IU)")
	vitaminsAddCmd.Flags().Float64("vitamin-c", 0, "Vitamin C (mg)")
	vitaminsAddCmd.Flags().Float64("vitamin-b12", 0, "Vitamin B12 (mcg)")
	vitaminsAddCmd.Flags().Float64("omega3", 0, "Omega-3 (g)")
	vitaminsAddCmd.Flags().Float64("magnesium", 0, "Magnesium (mg)")
	vitaminsAddCmd.Flags().Float64("zinc", 0, "Zinc (mg)")
	vitaminsAddCmd.Flags().Float64("iron", 0, "Iron (mg)")
	vitaminsAddCmd.Flags().String("other", "", "Other supplements")
	vitaminsAddCmd.Flags().String("notes", "", "Free-form notes")

	storeRunsCmd.Flags().String("client", "", "Only list runs of this client")
	storeRunsCmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 = all)")

	storeMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
}
