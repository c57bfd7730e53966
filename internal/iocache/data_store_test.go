package iocache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteDataStore(t *testing.T) contract.DataStore {
	t.Helper()
	store, err := NewDataStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func date(s string) time.Time {
	d, _ := schema.ParseDate(s)
	return d
}

func TestDataStoreClients(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteDataStore(t)

	_, err := store.GetClient(ctx, "ana")
	assert.ErrorIs(t, err, contract.ErrClientNotFound)

	start := date("2024-03-01")
	require.NoError(t, store.UpsertClient(ctx, schema.Client{ClientID: "ana", Name: "Ana", Timezone: "Europe/Madrid", ProgramStart: &start, Active: true}))
	require.NoError(t, store.UpsertClient(ctx, schema.Client{ClientID: "bob", Name: "Bob", Active: false}))

	got, err := store.GetClient(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Madrid", got.Timezone)
	require.NotNil(t, got.ProgramStart)
	assert.Equal(t, start, *got.ProgramStart)
	assert.True(t, got.Active)

	// Upsert replaces the profile
	require.NoError(t, store.UpsertClient(ctx, schema.Client{ClientID: "ana", Name: "Ana M", Active: true}))
	got, err = store.GetClient(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "Ana M", got.Name)
	assert.Nil(t, got.ProgramStart)

	clients, err := store.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "ana", clients[0].ClientID)
	assert.False(t, clients[1].Active)

	assert.Error(t, store.UpsertClient(ctx, schema.Client{}))
}

func TestDataStoreVitaminLogs(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteDataStore(t)

	require.NoError(t, store.UpsertVitaminLog(ctx, schema.VitaminLogEntry{ClientID: "ana", Date: date("2024-03-02"), VitaminD: 1000}))
	require.NoError(t, store.UpsertVitaminLog(ctx, schema.VitaminLogEntry{ClientID: "ana", Date: date("2024-03-01"), Omega3: 2, Notes: "with breakfast"}))
	require.NoError(t, store.UpsertVitaminLog(ctx, schema.VitaminLogEntry{ClientID: "bob", Date: date("2024-03-01"), Zinc: 15}))
	// Same day replaces the earlier entry
	require.NoError(t, store.UpsertVitaminLog(ctx, schema.VitaminLogEntry{ClientID: "ana", Date: date("2024-03-02"), VitaminD: 2000, Other: "creatine"}))

	entries, err := store.ListVitaminLogs(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, date("2024-03-01"), entries[0].Date)
	assert.Equal(t, "with breakfast", entries[0].Notes)
	assert.Equal(t, 2000.0, entries[1].VitaminD)
	assert.Equal(t, "creatine", entries[1].Other)

	assert.Error(t, store.UpsertVitaminLog(ctx, schema.VitaminLogEntry{ClientID: "ana"}))
}

func TestDataStoreTargets(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteDataStore(t)

	targets, err := store.GetTargets(ctx, "ana")
	require.NoError(t, err)
	assert.NotNil(t, targets)
	assert.Empty(t, targets)

	require.NoError(t, store.SetTarget(ctx, "ana", "water", 2000))
	require.NoError(t, store.SetTarget(ctx, "ana", "water", 2500))
	require.NoError(t, store.SetTarget(ctx, "ana", "weight_change_pct_per_week", -0.75))
	require.NoError(t, store.SetTarget(ctx, "bob", "steps", 10000))

	targets, err = store.GetTargets(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, schema.Targets{"water": 2500, "weight_change_pct_per_week": -0.75}, targets)
}

func TestDataStoreRuns(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteDataStore(t)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	runs := []schema.RunRecord{
		{RunID: "r1", ClientID: "ana", StartedAt: base, FinishedAt: base.Add(time.Second), Status: schema.RunSucceeded, Read: 10, Emitted: 8, Rows: 3, ContentHash: "h1"},
		{RunID: "r2", ClientID: "bob", StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour), Status: schema.RunStructuralFailure, Error: "unreadable"},
		{RunID: "r3", ClientID: "ana", StartedAt: base.Add(2 * time.Hour), FinishedAt: base.Add(2 * time.Hour), Status: schema.RunCacheWriteFailure},
	}
	for _, r := range runs {
		require.NoError(t, store.RecordRun(ctx, r))
	}
	assert.Error(t, store.RecordRun(ctx, runs[0]), "run ids are unique")

	all, err := store.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"r3", "r2", "r1"}, []string{all[0].RunID, all[1].RunID, all[2].RunID})
	assert.Equal(t, "unreadable", all[1].Error)

	ana, err := store.ListRuns(ctx, "ana", 1)
	require.NoError(t, err)
	require.Len(t, ana, 1)
	assert.Equal(t, "r3", ana[0].RunID)

	oldest, err := store.ListRuns(ctx, "ana", 0)
	require.NoError(t, err)
	assert.Equal(t, runs[0], oldest[1])

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 3, status.TotalRuns)
	assert.Equal(t, "r3", status.LastRunID)
	assert.Equal(t, base.Add(2*time.Hour), status.LastRunAt)
	assert.Equal(t, int64(3), status.TableSizes[runsTable])
}

func TestNoneDataStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewDataStore(schema.NoneBackend, "")
	require.NoError(t, err)

	client, err := store.GetClient(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, schema.Client{ClientID: "ana", Active: true}, client)

	targets, err := store.GetTargets(ctx, "ana")
	require.NoError(t, err)
	assert.Empty(t, targets)

	assert.NoError(t, store.RecordRun(ctx, schema.RunRecord{RunID: "r1"}))
	runs, err := store.ListRuns(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)

	_, err = NewDataStore(schema.BadgerBackend, "")
	assert.Error(t, err)
}

func TestDataStoreFailures(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := &DataStoreImpl{db: db, backend: schema.PostgreSQLBackend}

	mock.ExpectQuery(`SELECT client_id, name, timezone, program_start, active FROM "vitals_clients" WHERE client_id = \$1`).
		WithArgs("ana").
		WillReturnError(errors.New("connection refused"))
	_, err = store.GetClient(ctx, "ana")
	require.Error(t, err)
	assert.NotErrorIs(t, err, contract.ErrClientNotFound)

	mock.ExpectExec("INSERT INTO").WillReturnError(errors.New("read-only transaction"))
	assert.ErrorContains(t, store.RecordRun(ctx, schema.RunRecord{RunID: "r1"}), "read-only transaction")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertQueryBuilder(t *testing.T) {
	columns := []string{"client_id", "metric", "target_value"}
	keys := []string{"client_id", "metric"}

	assert.Equal(t,
		`INSERT OR REPLACE INTO "vitals_targets" (client_id, metric, target_value) VALUES (?, ?, ?)`,
		upsertQuery(schema.SQLiteBackend, targetsTable, columns, keys))
	assert.Equal(t,
		"INSERT INTO `vitals_targets` (client_id, metric, target_value) VALUES (?, ?, ?) AS new ON DUPLICATE KEY UPDATE target_value = new.target_value",
		upsertQuery(schema.MySQLBackend, targetsTable, columns, keys))
	assert.Equal(t,
		`INSERT INTO "vitals_targets" (client_id, metric, target_value) VALUES ($1, $2, $3) ON CONFLICT (client_id, metric) DO UPDATE SET target_value = excluded.target_value`,
		upsertQuery(schema.PostgreSQLBackend, targetsTable, columns, keys))
}

func TestMigrateStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate.db")

	require.NoError(t, MigrateStore(schema.SQLiteBackend, path, -1))
	require.NoError(t, MigrateStore(schema.SQLiteBackend, path, -1), "already at latest")
	require.NoError(t, MigrateStore(schema.SQLiteBackend, path, 2))
	require.NoError(t, MigrateStore(schema.SQLiteBackend, path, 0))

	// The store migrates itself back up when opened
	store, err := NewDataStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	require.NoError(t, store.SetTarget(context.Background(), "ana", "steps", 8000))

	assert.Error(t, MigrateStore(schema.NoneBackend, "", -1))
}
