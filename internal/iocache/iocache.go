// Package iocache is for the storage behind the pipeline: cached artifacts and client data.
package iocache

import (
	"sync"

	"github.com/huangsam/vitals/internal/contract"
)

// StoreManager holds the artifact store and the client data store.
type StoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	artifacts    contract.ArtifactStore
	data         contract.DataStore
}

var _ contract.StoreManager = &StoreManager{} // Compile-time check

// NewStoreManager wraps already opened stores.
func NewStoreManager(artifacts contract.ArtifactStore, data contract.DataStore) *StoreManager {
	return &StoreManager{artifacts: artifacts, data: data}
}

// GetArtifactStore returns the artifact store.
func (mgr *StoreManager) GetArtifactStore() contract.ArtifactStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.artifacts
}

// GetDataStore returns the client data store.
func (mgr *StoreManager) GetDataStore() contract.DataStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.data
}
