package iocache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/schema"
)

// migrationsTable is the bookkeeping table created by golang-migrate.
const migrationsTable = "schema_migrations"

// Global Manager instance for main logic.
var (
	Manager   = &StoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// openArtifactStore creates the artifact store selected by the config.
func openArtifactStore(ctx context.Context, cfg *contract.Config) (contract.ArtifactStore, error) {
	if cfg.CacheBackend == schema.S3Backend {
		return NewS3ArtifactStore(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region, cfg.S3Endpoint)
	}
	return NewArtifactStore(cfg.CacheBackend, cfg.CacheDBConnect)
}

// InitStores initializes the global manager with the artifact store and the client store.
// An empty backend leaves the matching store unset.
func InitStores(ctx context.Context, cfg *contract.Config) error {
	var initErr error

	initOnce.Do(func() {
		var artifacts contract.ArtifactStore
		if cfg.CacheBackend != "" {
			store, err := openArtifactStore(ctx, cfg)
			if err != nil {
				initErr = fmt.Errorf("failed to initialize artifact cache: %w", err)
				return
			}
			artifacts = store
		}

		var data contract.DataStore
		if cfg.StoreBackend != "" {
			store, err := NewDataStore(cfg.StoreBackend, cfg.StoreDBConnect)
			if err != nil {
				if artifacts != nil {
					_ = artifacts.Close()
				}
				initErr = fmt.Errorf("failed to initialize client store: %w", err)
				return
			}
			data = store
		}

		Manager.Lock()
		defer Manager.Unlock()
		Manager.artifacts = artifacts
		Manager.data = data
	})

	return initErr
}

// CloseStores should be called on application shutdown.
func CloseStores() { // called in main defer
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.artifacts != nil {
			_ = Manager.artifacts.Close()
		}
		if Manager.data != nil {
			_ = Manager.data.Close()
		}
	})
}

// ClearCache removes every cached artifact of the configured backend.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the table.
// For Badger, it deletes the directory. For S3, it deletes the objects under the prefix.
func ClearCache(ctx context.Context, cfg *contract.Config) error {
	switch cfg.CacheBackend {
	case schema.SQLiteBackend:
		return removeFile(cfg.CacheDBConnect, contract.GetCacheDBFilePath())

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return dropSQLTables(cfg.CacheBackend, cfg.CacheDBConnect, artifactTable)

	case schema.BadgerBackend:
		dir := cfg.CacheDBConnect
		if dir == "" {
			dir = contract.GetBadgerDir()
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove Badger directory %s: %w", dir, err)
		}
		return nil

	case schema.S3Backend:
		store, err := NewS3ArtifactStore(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region, cfg.S3Endpoint)
		if err != nil {
			return err
		}
		return store.Clear(ctx)

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported cache backend for clearing: %s", cfg.CacheBackend)
	}
}

// ClearStore removes all client data and the run log of the configured backend.
func ClearStore(cfg *contract.Config) error {
	switch cfg.StoreBackend {
	case schema.SQLiteBackend:
		return removeFile(cfg.StoreDBConnect, contract.GetStoreDBFilePath())

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		tables := append([]string{migrationsTable}, storeTables...)
		return dropSQLTables(cfg.StoreBackend, cfg.StoreDBConnect, tables...)

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported store backend for clearing: %s", cfg.StoreBackend)
	}
}

// removeFile deletes a SQLite database file, ignoring one that does not exist.
func removeFile(path, defaultPath string) error {
	if path == "" {
		path = defaultPath
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove SQLite database file %s: %w", path, err)
	}
	return nil
}

// dropSQLTables connects to the SQL database and drops the tables if they exist.
func dropSQLTables(backend schema.CacheBackend, connStr string, tables ...string) error {
	db, err := openDB(backend, connStr, "")
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return dropTables(db, backend, tables...)
}

func dropTables(db *sql.DB, backend schema.CacheBackend, tables ...string) error {
	for _, table := range tables {
		query := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteTableName(table, backend))
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
