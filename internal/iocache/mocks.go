package iocache

import (
	"context"

	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetArtifactStore implements the StoreManager interface.
func (m *MockStoreManager) GetArtifactStore() contract.ArtifactStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.ArtifactStore)
	return store
}

// GetDataStore implements the StoreManager interface.
func (m *MockStoreManager) GetDataStore() contract.DataStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.DataStore)
	return store
}

// MockArtifactStore is a mock implementation of ArtifactStore for testing.
type MockArtifactStore struct {
	mock.Mock
}

var _ contract.ArtifactStore = &MockArtifactStore{} // Compile-time check

// Put implements the ArtifactStore interface.
func (m *MockArtifactStore) Put(ctx context.Context, artifact schema.CachedArtifact) error {
	args := m.Called(ctx, artifact)
	return args.Error(0)
}

// Get implements the ArtifactStore interface.
func (m *MockArtifactStore) Get(ctx context.Context, clientID string) (schema.CachedArtifact, error) {
	args := m.Called(ctx, clientID)
	return args.Get(0).(schema.CachedArtifact), args.Error(1)
}

// Delete implements the ArtifactStore interface.
func (m *MockArtifactStore) Delete(ctx context.Context, clientID string) error {
	args := m.Called(ctx, clientID)
	return args.Error(0)
}

// GetStatus implements the ArtifactStore interface.
func (m *MockArtifactStore) GetStatus() (schema.CacheStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.CacheStatus), args.Error(1)
}

// Close implements the ArtifactStore interface.
func (m *MockArtifactStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockDataStore is a mock implementation of DataStore for testing.
type MockDataStore struct {
	mock.Mock
}

var _ contract.DataStore = &MockDataStore{} // Compile-time check

// UpsertClient implements the DataStore interface.
func (m *MockDataStore) UpsertClient(ctx context.Context, client schema.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

// GetClient implements the DataStore interface.
func (m *MockDataStore) GetClient(ctx context.Context, clientID string) (schema.Client, error) {
	args := m.Called(ctx, clientID)
	return args.Get(0).(schema.Client), args.Error(1)
}

// ListClients implements the DataStore interface.
func (m *MockDataStore) ListClients(ctx context.Context) ([]schema.Client, error) {
	args := m.Called(ctx)
	clients, _ := args.Get(0).([]schema.Client)
	return clients, args.Error(1)
}

// UpsertVitaminLog implements the DataStore interface.
func (m *MockDataStore) UpsertVitaminLog(ctx context.Context, entry schema.VitaminLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// ListVitaminLogs implements the DataStore interface.
func (m *MockDataStore) ListVitaminLogs(ctx context.Context, clientID string) ([]schema.VitaminLogEntry, error) {
	args := m.Called(ctx, clientID)
	entries, _ := args.Get(0).([]schema.VitaminLogEntry)
	return entries, args.Error(1)
}

// SetTarget implements the DataStore interface.
func (m *MockDataStore) SetTarget(ctx context.Context, clientID, metric string, value float64) error {
	args := m.Called(ctx, clientID, metric, value)
	return args.Error(0)
}

// GetTargets implements the DataStore interface.
func (m *MockDataStore) GetTargets(ctx context.Context, clientID string) (schema.Targets, error) {
	args := m.Called(ctx, clientID)
	targets, _ := args.Get(0).(schema.Targets)
	return targets, args.Error(1)
}

// RecordRun implements the DataStore interface.
func (m *MockDataStore) RecordRun(ctx context.Context, run schema.RunRecord) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// ListRuns implements the DataStore interface.
func (m *MockDataStore) ListRuns(ctx context.Context, clientID string, limit int) ([]schema.RunRecord, error) {
	args := m.Called(ctx, clientID, limit)
	runs, _ := args.Get(0).([]schema.RunRecord)
	return runs, args.Error(1)
}

// GetStatus implements the DataStore interface.
func (m *MockDataStore) GetStatus() (schema.StoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.StoreStatus), args.Error(1)
}

// Close implements the DataStore interface.
func (m *MockDataStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
