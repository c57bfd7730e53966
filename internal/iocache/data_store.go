package iocache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/schema"
)

// Table names for the client data store. They are created by the embedded migrations.
const (
	clientsTable     = "vitals_clients"
	vitaminLogsTable = "vitals_vitamin_logs"
	targetsTable     = "vitals_targets"
	runsTable        = "vitals_runs"
)

// storeTables lists every table reported by GetStatus.
var storeTables = []string{clientsTable, vitaminLogsTable, targetsTable, runsTable}

// DataStoreImpl implements the DataStore interface on top of a SQL database.
type DataStoreImpl struct {
	db      *sql.DB
	backend schema.CacheBackend
}

var _ contract.DataStore = &DataStoreImpl{} // Compile-time check

// NewDataStore opens the client store and applies pending migrations.
func NewDataStore(backend schema.CacheBackend, connStr string) (contract.DataStore, error) {
	switch backend {
	case schema.NoneBackend:
		// Return a no-op store for disabled tracking
		return &DataStoreImpl{backend: backend}, nil
	case schema.SQLiteBackend, schema.MySQLBackend, schema.PostgreSQLBackend:
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", backend)
	}

	db, err := openDB(backend, connStr, contract.GetStoreDBFilePath())
	if err != nil {
		return nil, err
	}
	if err := migrateUp(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare client store: %w", err)
	}
	return &DataStoreImpl{db: db, backend: backend}, nil
}

// upsertQuery builds a single-statement insert-or-update for the backend.
func upsertQuery(backend schema.CacheBackend, table string, columns, keys []string) string {
	quoted := quoteTableName(table, backend)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	base := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoted, strings.Join(columns, ", "), placeholders)

	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	var updates []string
	for _, col := range columns {
		if isKey[col] {
			continue
		}
		switch backend {
		case schema.MySQLBackend:
			updates = append(updates, fmt.Sprintf("%s = new.%s", col, col))
		default:
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
		}
	}

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf("%s AS new ON DUPLICATE KEY UPDATE %s", base, strings.Join(updates, ", "))
	case schema.PostgreSQLBackend:
		return rebind(backend, fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s", base, strings.Join(keys, ", "), strings.Join(updates, ", ")))
	default: // SQLite
		return fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)", quoted, strings.Join(columns, ", "), placeholders)
	}
}

// q quotes the table and rebinds placeholders of a single-table query.
func (ds *DataStoreImpl) q(format, table string) string {
	return rebind(ds.backend, fmt.Sprintf(format, quoteTableName(table, ds.backend)))
}

// --- Clients ---

// UpsertClient inserts the client or replaces its profile.
func (ds *DataStoreImpl) UpsertClient(ctx context.Context, client schema.Client) error {
	if ds.db == nil {
		return nil
	}
	if client.ClientID == "" {
		return errors.New("client id cannot be empty")
	}
	query := upsertQuery(ds.backend, clientsTable,
		[]string{"client_id", "name", "timezone", "program_start", "active"},
		[]string{"client_id"})
	_, err := ds.db.ExecContext(ctx, query,
		client.ClientID, client.Name, client.Timezone, nullableDate(client.ProgramStart), boolToInt(client.Active))
	if err != nil {
		return fmt.Errorf("failed to save client %s: %w", client.ClientID, err)
	}
	return nil
}

// GetClient returns one client. Without a store every client is treated as active.
func (ds *DataStoreImpl) GetClient(ctx context.Context, clientID string) (schema.Client, error) {
	if ds.db == nil {
		return schema.Client{ClientID: clientID, Active: true}, nil
	}
	row := ds.db.QueryRowContext(ctx,
		ds.q("SELECT client_id, name, timezone, program_start, active FROM %s WHERE client_id = ?", clientsTable), clientID)
	client, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Client{}, fmt.Errorf("%w: %s", contract.ErrClientNotFound, clientID)
	}
	if err != nil {
		return schema.Client{}, fmt.Errorf("failed to read client %s: %w", clientID, err)
	}
	return client, nil
}

// ListClients returns every client ordered by id.
func (ds *DataStoreImpl) ListClients(ctx context.Context) ([]schema.Client, error) {
	if ds.db == nil {
		return nil, nil
	}
	rows, err := ds.db.QueryContext(ctx,
		ds.q("SELECT client_id, name, timezone, program_start, active FROM %s ORDER BY client_id", clientsTable))
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var clients []schema.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanClient(s scanner) (schema.Client, error) {
	var client schema.Client
	var start sql.NullString
	var active int
	if err := s.Scan(&client.ClientID, &client.Name, &client.Timezone, &start, &active); err != nil {
		return schema.Client{}, err
	}
	programStart, err := scanDate(start)
	if err != nil {
		return schema.Client{}, fmt.Errorf("invalid program start for client %s: %w", client.ClientID, err)
	}
	client.ProgramStart = programStart
	client.Active = active != 0
	return client, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- Vitamin logs ---

// UpsertVitaminLog stores the entry, replacing any entry for the same day.
func (ds *DataStoreImpl) UpsertVitaminLog(ctx context.Context, entry schema.VitaminLogEntry) error {
	if ds.db == nil {
		return nil
	}
	if entry.ClientID == "" || entry.Date.IsZero() {
		return errors.New("vitamin log requires a client id and a date")
	}
	query := upsertQuery(ds.backend, vitaminLogsTable,
		[]string{"client_id", "log_date", "vitamin_d", "vitamin_c", "vitamin_b12", "omega3", "magnesium", "zinc", "iron", "other_supplements", "notes"},
		[]string{"client_id", "log_date"})
	_, err := ds.db.ExecContext(ctx, query,
		entry.ClientID, schema.FormatDate(entry.Date),
		entry.VitaminD, entry.VitaminC, entry.VitaminB12, entry.Omega3, entry.Magnesium, entry.Zinc, entry.Iron,
		entry.Other, entry.Notes)
	if err != nil {
		return fmt.Errorf("failed to save vitamin log for client %s: %w", entry.ClientID, err)
	}
	return nil
}

// ListVitaminLogs returns the client's entries ordered by date.
func (ds *DataStoreImpl) ListVitaminLogs(ctx context.Context, clientID string) ([]schema.VitaminLogEntry, error) {
	if ds.db == nil {
		return nil, nil
	}
	rows, err := ds.db.QueryContext(ctx, ds.q(`SELECT client_id, log_date, vitamin_d, vitamin_c, vitamin_b12, omega3, magnesium, zinc, iron,
		other_supplements, notes FROM %s WHERE client_id = ? ORDER BY log_date`, vitaminLogsTable), clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vitamin logs for client %s: %w", clientID, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []schema.VitaminLogEntry
	for rows.Next() {
		var e schema.VitaminLogEntry
		var date string
		var other, notes sql.NullString
		if err := rows.Scan(&e.ClientID, &date, &e.VitaminD, &e.VitaminC, &e.VitaminB12, &e.Omega3,
			&e.Magnesium, &e.Zinc, &e.Iron, &other, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan vitamin log: %w", err)
		}
		if e.Date, err = schema.ParseDate(date); err != nil {
			return nil, fmt.Errorf("invalid vitamin log date %q: %w", date, err)
		}
		e.Other, e.Notes = other.String, notes.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- Targets ---

// SetTarget stores one metric target for the client.
func (ds *DataStoreImpl) SetTarget(ctx context.Context, clientID, metric string, value float64) error {
	if ds.db == nil {
		return nil
	}
	query := upsertQuery(ds.backend, targetsTable,
		[]string{"client_id", "metric", "target_value"},
		[]string{"client_id", "metric"})
	if _, err := ds.db.ExecContext(ctx, query, clientID, metric, value); err != nil {
		return fmt.Errorf("failed to set target %s for client %s: %w", metric, clientID, err)
	}
	return nil
}

// GetTargets returns every target of the client. The map is never nil.
func (ds *DataStoreImpl) GetTargets(ctx context.Context, clientID string) (schema.Targets, error) {
	targets := make(schema.Targets)
	if ds.db == nil {
		return targets, nil
	}
	rows, err := ds.db.QueryContext(ctx, ds.q("SELECT metric, target_value FROM %s WHERE client_id = ?", targetsTable), clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets for client %s: %w", clientID, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var metric string
		var value float64
		if err := rows.Scan(&metric, &value); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets[metric] = value
	}
	return targets, rows.Err()
}

// --- Run log ---

// RecordRun appends one entry to the run log.
func (ds *DataStoreImpl) RecordRun(ctx context.Context, run schema.RunRecord) error {
	if ds.db == nil {
		return nil
	}
	query := ds.q(`INSERT INTO %s (run_id, client_id, started_at, finished_at, status, read_count, emitted_count,
		skipped_count, ignored_count, row_count, period_count, content_hash, error_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, runsTable)
	_, err := ds.db.ExecContext(ctx, query,
		run.RunID, run.ClientID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), string(run.Status),
		run.Read, run.Emitted, run.Skipped, run.Ignored, run.Rows, run.Periods, run.ContentHash, run.Error)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.RunID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit of zero or less returns all runs.
func (ds *DataStoreImpl) ListRuns(ctx context.Context, clientID string, limit int) ([]schema.RunRecord, error) {
	if ds.db == nil {
		return nil, nil
	}

	query := `SELECT run_id, client_id, started_at, finished_at, status, read_count, emitted_count,
		skipped_count, ignored_count, row_count, period_count, content_hash, error_text FROM %s`
	var args []any
	if clientID != "" {
		query += " WHERE client_id = ?"
		args = append(args, clientID)
	}
	query += " ORDER BY started_at DESC, run_id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := ds.db.QueryContext(ctx, ds.q(query, runsTable), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []schema.RunRecord
	for rows.Next() {
		var r schema.RunRecord
		var started, finished int64
		var status string
		var hash, errText sql.NullString
		if err := rows.Scan(&r.RunID, &r.ClientID, &started, &finished, &status, &r.Read, &r.Emitted,
			&r.Skipped, &r.Ignored, &r.Rows, &r.Periods, &hash, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started).UTC()
		r.FinishedAt = time.UnixMilli(finished).UTC()
		r.Status = schema.RunStatus(status)
		r.ContentHash, r.Error = hash.String, errText.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetStatus returns status information about the client store.
func (ds *DataStoreImpl) GetStatus() (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:    string(ds.backend),
		Connected:  ds.db != nil,
		TableSizes: make(map[string]int64),
	}
	if ds.db == nil {
		return status, nil
	}

	for _, table := range storeTables {
		var count int64
		if err := ds.db.QueryRow(ds.q("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to count rows in %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.Clients = int(status.TableSizes[clientsTable])
	status.TotalRuns = int(status.TableSizes[runsTable])

	if status.TotalRuns > 0 {
		var started int64
		row := ds.db.QueryRow(ds.q("SELECT run_id, started_at FROM %s ORDER BY started_at DESC, run_id DESC LIMIT 1", runsTable))
		if err := row.Scan(&status.LastRunID, &started); err != nil {
			return status, fmt.Errorf("failed to get last run: %w", err)
		}
		status.LastRunAt = time.UnixMilli(started).UTC()
	}
	return status, nil
}

// Close closes the underlying DB connection.
func (ds *DataStoreImpl) Close() error {
	if ds.db != nil {
		return ds.db.Close()
	}
	return nil
}
