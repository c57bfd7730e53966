package iocache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/schema"
)

// artifactTable holds one cached artifact per client.
const artifactTable = "vitals_artifacts"

// ArtifactStoreImpl keeps cached artifacts in a SQL database.
type ArtifactStoreImpl struct {
	db        *sql.DB
	tableName string
	backend   schema.CacheBackend
	connStr   string
}

var _ contract.ArtifactStore = &ArtifactStoreImpl{} // Compile-time check

// NewArtifactStore initializes and returns a new ArtifactStore based on the backend type.
func NewArtifactStore(backend schema.CacheBackend, connStr string) (contract.ArtifactStore, error) {
	switch backend {
	case schema.NoneBackend:
		// Return a no-op store for disabled caching
		return &ArtifactStoreImpl{tableName: artifactTable, backend: backend}, nil
	case schema.BadgerBackend:
		return NewBadgerArtifactStore(connStr)
	case schema.S3Backend:
		return nil, fmt.Errorf("the s3 backend is created with NewS3ArtifactStore")
	}
	return newSQLArtifactStore(artifactTable, backend, connStr)
}

// newSQLArtifactStore opens the database and creates the artifact table.
func newSQLArtifactStore(tableName string, backend schema.CacheBackend, connStr string) (*ArtifactStoreImpl, error) {
	// Validate table name to prevent SQL injection
	if err := validateTableName(tableName); err != nil {
		return nil, err
	}

	db, err := openDB(backend, connStr, contract.GetCacheDBFilePath())
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(getCreateArtifactTableQuery(tableName, backend)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	return &ArtifactStoreImpl{
		db:        db,
		tableName: tableName,
		backend:   backend,
		connStr:   connStr,
	}, nil
}

// getCreateArtifactTableQuery returns the CREATE TABLE query for the given backend.
func getCreateArtifactTableQuery(tableName string, backend schema.CacheBackend) string {
	quotedTableName := quoteTableName(tableName, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				client_id VARCHAR(255) PRIMARY KEY,
				format VARCHAR(16) NOT NULL,
				tabular_data LONGBLOB NOT NULL,
				content_hash VARCHAR(64) NOT NULL,
				fingerprint VARCHAR(16) NOT NULL,
				row_count INT NOT NULL,
				period_count INT NOT NULL,
				skipped_records INT NOT NULL,
				updated_at BIGINT NOT NULL
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				client_id TEXT PRIMARY KEY,
				format TEXT NOT NULL,
				tabular_data BYTEA NOT NULL,
				content_hash TEXT NOT NULL,
				fingerprint TEXT NOT NULL,
				row_count INTEGER NOT NULL,
				period_count INTEGER NOT NULL,
				skipped_records INTEGER NOT NULL,
				updated_at BIGINT NOT NULL
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				client_id TEXT PRIMARY KEY,
				format TEXT NOT NULL,
				tabular_data BLOB NOT NULL,
				content_hash TEXT NOT NULL,
				fingerprint TEXT NOT NULL,
				row_count INTEGER NOT NULL,
				period_count INTEGER NOT NULL,
				skipped_records INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			);
		`, quotedTableName)
	}
}

// getUpsertQuery returns the single-statement replace for the backend.
func (as *ArtifactStoreImpl) getUpsertQuery() string {
	quotedTableName := quoteTableName(as.tableName, as.backend)
	const columns = `(client_id, format, tabular_data, content_hash, fingerprint, row_count, period_count, skipped_records, updated_at)`
	switch as.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s %s VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE format = new.format, tabular_data = new.tabular_data, content_hash = new.content_hash,
			fingerprint = new.fingerprint, row_count = new.row_count, period_count = new.period_count,
			skipped_records = new.skipped_records, updated_at = new.updated_at`, quotedTableName, columns)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s %s VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (client_id) DO UPDATE SET format = EXCLUDED.format, tabular_data = EXCLUDED.tabular_data,
			content_hash = EXCLUDED.content_hash, fingerprint = EXCLUDED.fingerprint, row_count = EXCLUDED.row_count,
			period_count = EXCLUDED.period_count, skipped_records = EXCLUDED.skipped_records, updated_at = EXCLUDED.updated_at`,
			quotedTableName, columns)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s %s VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, quotedTableName, columns)
	}
}

// Put replaces the client's artifact. The upsert is one statement, so readers
// see either the previous artifact or the new one.
func (as *ArtifactStoreImpl) Put(ctx context.Context, artifact schema.CachedArtifact) error {
	if as.db == nil {
		return nil
	}
	_, err := as.db.ExecContext(ctx, as.getUpsertQuery(),
		artifact.ClientID,
		string(artifact.Format),
		artifact.Data,
		artifact.ContentHash,
		formatFingerprint(artifact.Fingerprint),
		artifact.RowCount,
		artifact.PeriodCount,
		artifact.SkippedRecords,
		artifact.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to write artifact for client %s: %w", artifact.ClientID, err)
	}
	return nil
}

// Get retrieves the client's artifact.
func (as *ArtifactStoreImpl) Get(ctx context.Context, clientID string) (schema.CachedArtifact, error) {
	if as.db == nil {
		return schema.CachedArtifact{}, contract.ErrArtifactNotFound
	}

	query := rebind(as.backend, fmt.Sprintf(`SELECT format, tabular_data, content_hash, fingerprint, row_count, period_count, skipped_records, updated_at
		FROM %s WHERE client_id = ?`, quoteTableName(as.tableName, as.backend)))

	artifact := schema.CachedArtifact{ClientID: clientID}
	var format, fingerprint string
	var updatedAt int64
	err := as.db.QueryRowContext(ctx, query, clientID).Scan(
		&format,
		&artifact.Data,
		&artifact.ContentHash,
		&fingerprint,
		&artifact.RowCount,
		&artifact.PeriodCount,
		&artifact.SkippedRecords,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.CachedArtifact{}, contract.ErrArtifactNotFound
	}
	if err != nil {
		return schema.CachedArtifact{}, fmt.Errorf("failed to read artifact for client %s: %w", clientID, err)
	}

	artifact.Format = schema.ArtifactFormat(format)
	if artifact.Fingerprint, err = parseFingerprint(fingerprint); err != nil {
		return schema.CachedArtifact{}, err
	}
	artifact.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return artifact, nil
}

// Delete removes the client's artifact.
func (as *ArtifactStoreImpl) Delete(ctx context.Context, clientID string) error {
	if as.db == nil {
		return nil
	}
	query := rebind(as.backend, fmt.Sprintf("DELETE FROM %s WHERE client_id = ?", quoteTableName(as.tableName, as.backend)))
	if _, err := as.db.ExecContext(ctx, query, clientID); err != nil {
		return fmt.Errorf("failed to delete artifact for client %s: %w", clientID, err)
	}
	return nil
}

// Close closes the underlying DB connection.
func (as *ArtifactStoreImpl) Close() error {
	if as.db != nil {
		return as.db.Close()
	}
	return nil
}

// GetStatus returns status information about the artifact store.
func (as *ArtifactStoreImpl) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{
		Backend:   string(as.backend),
		Connected: as.db != nil,
	}

	if as.backend == schema.NoneBackend || as.db == nil {
		return status, nil
	}

	quotedTableName := quoteTableName(as.tableName, as.backend)

	row := as.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedTableName))
	if err := row.Scan(&status.TotalEntries); err != nil {
		return status, fmt.Errorf("failed to get total entries: %w", err)
	}

	if status.TotalEntries == 0 {
		return status, nil
	}

	var lastTs, oldestTs int64
	row = as.db.QueryRow(fmt.Sprintf("SELECT MAX(updated_at), MIN(updated_at) FROM %s", quotedTableName))
	if err := row.Scan(&lastTs, &oldestTs); err != nil {
		return status, fmt.Errorf("failed to get entry times: %w", err)
	}
	status.LastEntryTime = time.UnixMilli(lastTs)
	status.OldestEntryTime = time.UnixMilli(oldestTs)

	status.TableSizeBytes = as.tableSize(status.TotalEntries)
	return status, nil
}

// tableSize asks the backend for the table size, or estimates it from the row count.
func (as *ArtifactStoreImpl) tableSize(entries int) int64 {
	estimate := int64(entries) * 1000
	var size int64
	switch as.backend {
	case schema.SQLiteBackend:
		row := as.db.QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
		if err := row.Scan(&size); err != nil {
			return 0
		}
		return size

	case schema.MySQLBackend:
		cfg, err := mysql.ParseDSN(as.connStr)
		if err != nil || cfg.DBName == "" {
			return estimate
		}
		row := as.db.QueryRow("SELECT data_length + index_length FROM information_schema.tables WHERE table_schema = ? AND table_name = ?", cfg.DBName, as.tableName)
		if err := row.Scan(&size); err != nil {
			return estimate
		}
		return size

	case schema.PostgreSQLBackend:
		row := as.db.QueryRow("SELECT pg_total_relation_size($1)", as.tableName)
		if err := row.Scan(&size); err != nil {
			return estimate
		}
		return size
	}
	return estimate
}

// formatFingerprint renders the fingerprint as fixed-width hex so it fits every backend.
func formatFingerprint(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}

func parseFingerprint(s string) (uint64, error) {
	fp, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid stored fingerprint %q: %w", s, err)
	}
	return fp, nil
}
