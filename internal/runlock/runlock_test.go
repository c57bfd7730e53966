package runlock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestClientKey(t *testing.T) {
	assert.Equal(t, "vitals:client:ana", ClientKey("ana"))
}

func TestLocalLocker(t *testing.T) {
	t.Run("serializes the same key", func(t *testing.T) {
		locker := NewLocalLocker()
		var active, maxActive int32
		var wg sync.WaitGroup
		for range 8 {
			wg.Go(func() {
				release, err := locker.Lock(context.Background(), "k")
				require.NoError(t, err)
				n := atomic.AddInt32(&active, 1)
				for {
					m := atomic.LoadInt32(&maxActive)
					if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
				assert.NoError(t, release())
			})
		}
		wg.Wait()
		assert.Equal(t, int32(1), maxActive)
		assert.Empty(t, locker.keys, "entries are dropped after release")
	})

	t.Run("different keys do not block", func(t *testing.T) {
		locker := NewLocalLocker()
		releaseA, err := locker.Lock(context.Background(), "a")
		require.NoError(t, err)
		releaseB, err := locker.Lock(context.Background(), "b")
		require.NoError(t, err)
		assert.NoError(t, releaseA())
		assert.NoError(t, releaseB())
	})

	t.Run("context cancels waiting", func(t *testing.T) {
		locker := NewLocalLocker()
		release, err := locker.Lock(context.Background(), "k")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(ctx, "k")
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		assert.NoError(t, release())
		assert.NoError(t, release(), "release is idempotent")
		assert.Empty(t, locker.keys)
		assert.NoError(t, locker.Close())
	})
}

func TestRedisLocker(t *testing.T) {
	t.Run("acquire and release", func(t *testing.T) {
		mr, client := setupTestRedis(t)
		locker := NewRedisLockerWithClient(client, time.Minute)

		release, err := locker.Lock(context.Background(), "vitals:client:ana")
		require.NoError(t, err)
		assert.True(t, mr.Exists("vitals:client:ana"))
		assert.Equal(t, time.Minute, mr.TTL("vitals:client:ana"))

		require.NoError(t, release())
		assert.False(t, mr.Exists("vitals:client:ana"))
	})

	t.Run("waits for the holder", func(t *testing.T) {
		_, client := setupTestRedis(t)
		locker := NewRedisLockerWithClient(client, time.Minute)
		locker.retry = 5 * time.Millisecond

		release, err := locker.Lock(context.Background(), "k")
		require.NoError(t, err)

		acquired := make(chan struct{})
		go func() {
			second, err := locker.Lock(context.Background(), "k")
			if assert.NoError(t, err) {
				close(acquired)
				_ = second()
			}
		}()

		select {
		case <-acquired:
			t.Fatal("second lock acquired while the first was held")
		case <-time.After(30 * time.Millisecond):
		}
		require.NoError(t, release())

		select {
		case <-acquired:
		case <-time.After(2 * time.Second):
			t.Fatal("second lock never acquired")
		}
	})

	t.Run("context cancels waiting", func(t *testing.T) {
		_, client := setupTestRedis(t)
		locker := NewRedisLockerWithClient(client, time.Minute)
		locker.retry = 5 * time.Millisecond

		release, err := locker.Lock(context.Background(), "k")
		require.NoError(t, err)
		defer func() { _ = release() }()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(ctx, "k")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("expired lock is not deleted by the old holder", func(t *testing.T) {
		mr, client := setupTestRedis(t)
		locker := NewRedisLockerWithClient(client, time.Second)

		release, err := locker.Lock(context.Background(), "k")
		require.NoError(t, err)
		mr.FastForward(2 * time.Second)

		next, err := locker.Lock(context.Background(), "k")
		require.NoError(t, err)

		assert.ErrorIs(t, release(), ErrLockLost)
		assert.True(t, mr.Exists("k"), "the new holder keeps the key")
		assert.NoError(t, next())
	})

	t.Run("renews the ttl while held", func(t *testing.T) {
		mr, client := setupTestRedis(t)
		locker := NewRedisLockerWithClient(client, time.Second)
		locker.renew = 10 * time.Millisecond

		release, err := locker.Lock(context.Background(), "k")
		require.NoError(t, err)

		mr.FastForward(900 * time.Millisecond)
		require.Eventually(t, func() bool {
			return mr.TTL("k") > 500*time.Millisecond
		}, 2*time.Second, 5*time.Millisecond)

		mr.FastForward(900 * time.Millisecond)
		assert.True(t, mr.Exists("k"), "a renewed lock outlives its first ttl")
		assert.NoError(t, release())
		assert.False(t, mr.Exists("k"))
	})

	t.Run("renewal never touches a new holder", func(t *testing.T) {
		mr, client := setupTestRedis(t)
		locker := NewRedisLockerWithClient(client, time.Minute)
		locker.renew = 5 * time.Millisecond

		release, err := locker.Lock(context.Background(), "k")
		require.NoError(t, err)

		mr.Del("k")
		require.NoError(t, mr.Set("k", "other"))
		mr.SetTTL("k", 10*time.Second)
		time.Sleep(30 * time.Millisecond)

		assert.ErrorIs(t, release(), ErrLockLost)
		got, err := mr.Get("k")
		require.NoError(t, err)
		assert.Equal(t, "other", got)
		assert.Equal(t, 10*time.Second, mr.TTL("k"))
	})

	t.Run("default ttl", func(t *testing.T) {
		_, client := setupTestRedis(t)
		locker := NewRedisLockerWithClient(client, 0)
		assert.Equal(t, contract.DefaultLockTTL, locker.ttl)
		assert.Equal(t, contract.DefaultLockTTL/3, locker.renew)
	})
}

func TestNew(t *testing.T) {
	locker, err := New(&contract.Config{LockBackend: schema.LocalLock})
	require.NoError(t, err)
	assert.IsType(t, &LocalLocker{}, locker)

	mr := miniredis.RunT(t)
	locker, err = New(&contract.Config{LockBackend: schema.RedisLock, RedisAddr: mr.Addr(), LockTTL: time.Minute})
	require.NoError(t, err)
	assert.IsType(t, &RedisLocker{}, locker)
	assert.NoError(t, locker.Close())

	_, err = New(&contract.Config{LockBackend: "etcd"})
	assert.Error(t, err)
}
