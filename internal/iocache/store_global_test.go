package iocache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobals() {
	initOnce = sync.Once{}
	closeOnce = sync.Once{}
	Manager = &StoreManager{}
}

func TestInitStores(t *testing.T) {
	dir := t.TempDir()
	cfg := &contract.Config{
		CacheBackend:   schema.SQLiteBackend,
		CacheDBConnect: filepath.Join(dir, "cache.db"),
		StoreBackend:   schema.SQLiteBackend,
		StoreDBConnect: filepath.Join(dir, "store.db"),
	}

	t.Run("single setup", func(t *testing.T) {
		resetGlobals()
		require.NoError(t, InitStores(context.Background(), cfg))
		assert.NotNil(t, Manager.GetArtifactStore())
		assert.NotNil(t, Manager.GetDataStore())
		CloseStores()

		_, err := os.Stat(cfg.CacheDBConnect)
		assert.NoError(t, err, "cache database file should exist")
		_, err = os.Stat(cfg.StoreDBConnect)
		assert.NoError(t, err, "store database file should exist")
	})

	t.Run("idempotent setup", func(t *testing.T) {
		resetGlobals()
		require.NoError(t, InitStores(context.Background(), cfg))
		first := Manager.GetArtifactStore()
		require.NoError(t, InitStores(context.Background(), cfg))
		assert.Same(t, first, Manager.GetArtifactStore())
		CloseStores()
		CloseStores()
	})

	t.Run("store failure closes the cache", func(t *testing.T) {
		resetGlobals()
		bad := *cfg
		bad.StoreBackend = "bogus"
		assert.Error(t, InitStores(context.Background(), &bad))
		assert.Nil(t, Manager.GetArtifactStore())
	})

	t.Run("empty backends", func(t *testing.T) {
		resetGlobals()
		require.NoError(t, InitStores(context.Background(), &contract.Config{}))
		assert.Nil(t, Manager.GetArtifactStore())
		assert.Nil(t, Manager.GetDataStore())
	})
	resetGlobals()
}

func TestClearCacheAndStore(t *testing.T) {
	dir := t.TempDir()
	cfg := &contract.Config{
		CacheBackend:   schema.SQLiteBackend,
		CacheDBConnect: filepath.Join(dir, "cache.db"),
		StoreBackend:   schema.SQLiteBackend,
		StoreDBConnect: filepath.Join(dir, "store.db"),
	}
	require.NoError(t, os.WriteFile(cfg.CacheDBConnect, []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(cfg.StoreDBConnect, []byte("x"), 0o600))

	require.NoError(t, ClearCache(context.Background(), cfg))
	require.NoError(t, ClearStore(cfg))
	assert.NoFileExists(t, cfg.CacheDBConnect)
	assert.NoFileExists(t, cfg.StoreDBConnect)

	// Missing files are fine
	require.NoError(t, ClearCache(context.Background(), cfg))

	badgerDir := filepath.Join(dir, "badger")
	require.NoError(t, os.MkdirAll(badgerDir, 0o700))
	require.NoError(t, ClearCache(context.Background(), &contract.Config{CacheBackend: schema.BadgerBackend, CacheDBConnect: badgerDir}))
	assert.NoDirExists(t, badgerDir)

	assert.NoError(t, ClearCache(context.Background(), &contract.Config{CacheBackend: schema.NoneBackend}))
	assert.NoError(t, ClearStore(&contract.Config{StoreBackend: schema.NoneBackend}))
	assert.Error(t, ClearCache(context.Background(), &contract.Config{CacheBackend: "bogus"}))
	assert.Error(t, ClearStore(&contract.Config{StoreBackend: schema.BadgerBackend}))
}

func TestStoreManager(t *testing.T) {
	artifacts := &MockArtifactStore{}
	data := &MockDataStore{}
	mgr := NewStoreManager(artifacts, data)
	assert.Same(t, artifacts, mgr.GetArtifactStore())
	assert.Same(t, data, mgr.GetDataStore())
}
