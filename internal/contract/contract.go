// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"errors"

	"github.com/huangsam/vitals/schema"
)

// Sentinel errors returned by stores.
var (
	ErrArtifactNotFound = errors.New("no cached artifact for client")
	ErrClientNotFound   = errors.New("client not found")
)

// StoreManager defines the interface for managing the configured stores.
// This allows the storage layer to be mocked for testing.
type StoreManager interface {
	GetArtifactStore() ArtifactStore
	GetDataStore() DataStore
}

// ArtifactStore keeps exactly one cached artifact per client.
type ArtifactStore interface {
	// Put replaces the client's artifact in a single atomic write.
	Put(ctx context.Context, artifact schema.CachedArtifact) error

	// Get returns the client's artifact or ErrArtifactNotFound.
	Get(ctx context.Context, clientID string) (schema.CachedArtifact, error)

	// Delete removes the client's artifact. Deleting a missing artifact is not an error.
	Delete(ctx context.Context, clientID string) error

	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// DataStore holds the coach-managed inputs of a run and the run log.
type DataStore interface {
	// --- Clients ---

	UpsertClient(ctx context.Context, client schema.Client) error
	// GetClient returns the client or ErrClientNotFound.
	GetClient(ctx context.Context, clientID string) (schema.Client, error)
	ListClients(ctx context.Context) ([]schema.Client, error)

	// --- Vitamin logs ---

	// UpsertVitaminLog stores the entry, replacing any entry for the same client and date.
	UpsertVitaminLog(ctx context.Context, entry schema.VitaminLogEntry) error
	ListVitaminLogs(ctx context.Context, clientID string) ([]schema.VitaminLogEntry, error)

	// --- Targets ---

	SetTarget(ctx context.Context, clientID, metric string, value float64) error
	GetTargets(ctx context.Context, clientID string) (schema.Targets, error)

	// --- Run log ---

	RecordRun(ctx context.Context, run schema.RunRecord) error
	// ListRuns returns the most recent runs first. An empty clientID lists every client.
	ListRuns(ctx context.Context, clientID string, limit int) ([]schema.RunRecord, error)

	GetStatus() (schema.StoreStatus, error)
	Close() error
}

// Locker serializes pipeline runs of the same client.
type Locker interface {
	// Lock blocks until key is held or ctx is done. The returned release
	// function must be called exactly once.
	Lock(ctx context.Context, key string) (release func() error, err error)
	Close() error
}
