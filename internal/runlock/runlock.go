// Package runlock serializes pipeline runs of the same client.
package runlock

import (
	"context"
	"fmt"
	"sync"

	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/schema"
)

// ClientKey is the lock key of one client.
func ClientKey(clientID string) string {
	return "vitals:client:" + clientID
}

// New creates the locker selected by the config.
func New(cfg *contract.Config) (contract.Locker, error) {
	switch cfg.LockBackend {
	case schema.RedisLock:
		return NewRedisLocker(cfg.RedisAddr, cfg.LockTTL)
	case schema.LocalLock, "":
		return NewLocalLocker(), nil
	default:
		return nil, fmt.Errorf("unsupported lock backend: %s", cfg.LockBackend)
	}
}

// entry is one held key. Waiters block on ch; refs counts holders plus waiters.
type entry struct {
	ch   chan struct{}
	refs int
}

// LocalLocker is an in-process keyed mutex.
type LocalLocker struct {
	mu   sync.Mutex
	keys map[string]*entry
}

var _ contract.Locker = &LocalLocker{} // Compile-time check

// NewLocalLocker creates an empty keyed mutex.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{keys: make(map[string]*entry)}
}

// Lock blocks until key is free or ctx is done.
func (l *LocalLocker) Lock(ctx context.Context, key string) (func() error, error) {
	l.mu.Lock()
	e, ok := l.keys[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.keys[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, e)
		return nil, fmt.Errorf("waiting for lock %s: %w", key, ctx.Err())
	}

	var once sync.Once
	return func() error {
		once.Do(func() {
			<-e.ch
			l.unref(key, e)
		})
		return nil
	}, nil
}

// unref drops the entry once nobody holds or waits for it.
func (l *LocalLocker) unref(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
}

// Close is a no-op.
func (l *LocalLocker) Close() error {
	return nil
}
