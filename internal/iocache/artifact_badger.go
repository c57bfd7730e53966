package iocache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/schema"
)

// badgerKeyPrefix namespaces artifact keys inside the Badger directory.
const badgerKeyPrefix = "artifact/"

// BadgerArtifactStore keeps cached artifacts in an embedded Badger database.
type BadgerArtifactStore struct {
	db  *badger.DB
	dir string
}

var _ contract.ArtifactStore = &BadgerArtifactStore{} // Compile-time check

// NewBadgerArtifactStore opens (or creates) a Badger database in dir.
// An empty dir selects the default location in the home directory.
func NewBadgerArtifactStore(dir string) (*BadgerArtifactStore, error) {
	if dir == "" {
		dir = contract.GetBadgerDir()
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open Badger database at %q: %w. Ensure the directory is writable and not used by another process", dir, err)
	}
	return &BadgerArtifactStore{db: db, dir: dir}, nil
}

func badgerKey(clientID string) []byte {
	return []byte(badgerKeyPrefix + clientID)
}

// Put replaces the client's artifact inside one transaction.
func (bs *BadgerArtifactStore) Put(_ context.Context, artifact schema.CachedArtifact) error {
	value, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("failed to encode artifact for client %s: %w", artifact.ClientID, err)
	}
	err = bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(artifact.ClientID), value)
	})
	if err != nil {
		return fmt.Errorf("failed to write artifact for client %s: %w", artifact.ClientID, err)
	}
	return nil
}

// Get retrieves the client's artifact.
func (bs *BadgerArtifactStore) Get(_ context.Context, clientID string) (schema.CachedArtifact, error) {
	var artifact schema.CachedArtifact
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(clientID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &artifact)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return schema.CachedArtifact{}, contract.ErrArtifactNotFound
	}
	if err != nil {
		return schema.CachedArtifact{}, fmt.Errorf("failed to read artifact for client %s: %w", clientID, err)
	}
	return artifact, nil
}

// Delete removes the client's artifact.
func (bs *BadgerArtifactStore) Delete(_ context.Context, clientID string) error {
	err := bs.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(clientID))
	})
	if err != nil {
		return fmt.Errorf("failed to delete artifact for client %s: %w", clientID, err)
	}
	return nil
}

// GetStatus scans the artifact keys and reports their count and age range.
func (bs *BadgerArtifactStore) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{
		Backend:   string(schema.BadgerBackend),
		Connected: bs.db != nil,
	}
	if bs.db == nil {
		return status, nil
	}

	prefix := []byte(badgerKeyPrefix)
	err := bs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var artifact schema.CachedArtifact
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &artifact)
			}); err != nil {
				return err
			}
			status.TotalEntries++
			if artifact.UpdatedAt.After(status.LastEntryTime) {
				status.LastEntryTime = artifact.UpdatedAt
			}
			if status.OldestEntryTime.IsZero() || artifact.UpdatedAt.Before(status.OldestEntryTime) {
				status.OldestEntryTime = artifact.UpdatedAt
			}
		}
		return nil
	})
	if err != nil {
		return status, fmt.Errorf("failed to scan artifacts: %w", err)
	}

	lsm, vlog := bs.db.Size()
	status.TableSizeBytes = lsm + vlog
	return status, nil
}

// Close closes the Badger database.
func (bs *BadgerArtifactStore) Close() error {
	if bs.db != nil {
		return bs.db.Close()
	}
	return nil
}
