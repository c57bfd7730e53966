package cmd

import (
	"fmt"

	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/internal/iocache"
	"github.com/huangsam/vitals/internal/outwriter"
	"github.com/spf13/cobra"
)

// cacheCmd focused on artifact cache management.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the analytics artifact cache",
	Long: `Manage the cache holding one analytics artifact per client.

Every successful run replaces the client's artifact wholesale. Dashboards read it
together with its updated_at timestamp.

Supported backends: SQLite (default), MySQL, PostgreSQL, Badger, S3, or None

Subcommands:
  status - Show cache statistics and connection info
  clear  - Remove all cached artifacts`,
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached artifacts",
	Long: `Delete every cached artifact from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the artifact table
For Badger: Deletes the database directory
For S3: Deletes the objects under --s3-prefix

Examples:
  # Clear the PostgreSQL cache (set connection string via env variable)
  VITALS_CACHE_BACKEND=postgresql VITALS_CACHE_DB_CONNECT="..." vitals cache clear`,
	PreRunE: configSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := iocache.ClearCache(rootCtx, cfg); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Println("Cache cleared successfully.")
		return nil
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display cache statistics and connection details",
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		status, err := storeManager.GetArtifactStore().GetStatus()
		if err != nil {
			return fmt.Errorf("failed to get cache status: %w", err)
		}
		iocache.PrintCacheStatus(status)
		return nil
	},
}

// storeCmd focused on the client store and run log.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the client store and run log",
	Long: `Manage the database holding clients, vitamin logs, targets and the run log.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None

Subcommands:
  status  - Show store statistics and connection info
  migrate - Run database schema migrations
  runs    - List recorded runs
  export  - Export the run log to Parquet
  clear   - Remove all client data and the run log`,
}

var storeStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display store statistics and connection details",
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		store, err := dataStore()
		if err != nil {
			return err
		}
		status, err := store.GetStatus()
		if err != nil {
			return fmt.Errorf("failed to get store status: %w", err)
		}
		iocache.PrintStoreStatus(status)
		return nil
	},
}

var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Apply or roll back client store migrations.

The store migrates itself to the latest version when opened, so this is only
needed to roll back or to prepare a database ahead of a deploy.

Examples:
  # Migrate to the latest version
  vitals store migrate

  # Roll back to version 1
  vitals store migrate --target-version 1`,
	PreRunE: configSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		target, _ := cmd.Flags().GetInt("target-version")
		if err := iocache.MigrateStore(cfg.StoreBackend, cfg.StoreDBConnect, target); err != nil {
			return err
		}
		fmt.Println("Migrations completed successfully.")
		return nil
	},
}

var storeRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded pipeline runs, most recent first",
	Long: `List the run log. Every run is recorded with its status, even when it failed.

Examples:
  vitals store runs --client ana --limit 5`,
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := dataStore()
		if err != nil {
			return err
		}
		clientID, _ := cmd.Flags().GetString("client")
		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := store.ListRuns(rootCtx, clientID, limit)
		if err != nil {
			return err
		}
		return outwriter.PrintRuns(runs, cfg)
	},
}

var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the run log to a Parquet file",
	Long: `Write every recorded run to <output-file>.runs.parquet.

Examples:
  vitals store export --output-file runlog`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		store, err := dataStore()
		if err != nil {
			return err
		}
		return iocache.ExecuteRunLogExport(rootCtx, store, cfg.OutputFile)
	},
}

var storeClearCmd = &cobra.Command{
	Use:     "clear",
	Short:   "Remove all client data and the run log",
	PreRunE: configSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := iocache.ClearStore(cfg); err != nil {
			return fmt.Errorf("failed to clear store: %w", err)
		}
		contract.LogInfo("Store cleared successfully.")
		return nil
	},
}
