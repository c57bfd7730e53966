package runlock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/vitals/internal/contract"
	"github.com/redis/go-redis/v9"
)

// DefaultRetryInterval is how often a waiting Lock retries the SET.
const DefaultRetryInterval = 100 * time.Millisecond

// ErrLockLost is returned by release when the key expired or was taken over.
var ErrLockLost = errors.New("lock expired before release")

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript pushes the expiry forward only while the key still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker is a lock shared by every process using the same Redis server.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	renew  time.Duration
}

var _ contract.Locker = &RedisLocker{} // Compile-time check

// NewRedisLocker connects to Redis and verifies the connection.
func NewRedisLocker(addr string, ttl time.Duration) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w. Check that the server is running or use --lock-backend local", addr, err)
	}
	return NewRedisLockerWithClient(client, ttl), nil
}

// NewRedisLockerWithClient wraps an existing client.
func NewRedisLockerWithClient(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = contract.DefaultLockTTL
	}
	renew := ttl / 3
	if renew <= 0 {
		renew = ttl
	}
	return &RedisLocker{client: client, ttl: ttl, retry: DefaultRetryInterval, renew: renew}
}

// Lock sets key to a random token with NX and the configured TTL, retrying
// until it succeeds or ctx is done. The TTL bounds how long a crashed holder
// can block other runs; a live holder renews it every third of the TTL until
// release.
func (r *RedisLocker) Lock(ctx context.Context, key string) (func() error, error) {
	token := uuid.NewString()
	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("waiting for lock %s: %w", key, ctx.Err())
			}
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for lock %s: %w", key, ctx.Err())
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	var lost atomic.Bool
	go r.keepAlive(key, token, stop, done, &lost)

	var once sync.Once
	return func() error {
		once.Do(func() {
			close(stop)
			<-done
		})
		if lost.Load() {
			return fmt.Errorf("%w: %s", ErrLockLost, key)
		}
		// Release must work even when the run's context was cancelled
		n, err := releaseScript.Run(context.Background(), r.client, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrLockLost, key)
		}
		return nil
	}, nil
}

// keepAlive renews the key until stop is closed. It gives up and sets lost
// once the key no longer holds token. Transient errors are retried on the next tick.
func (r *RedisLocker) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}, lost *atomic.Bool) {
	defer close(done)
	ticker := time.NewTicker(r.renew)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n, err := renewScript.Run(context.Background(), r.client, []string{key}, token, r.ttl.Milliseconds()).Int()
			if err == nil && n == 0 {
				lost.Store(true)
				return
			}
		}
	}
}

// Close closes the Redis client.
func (r *RedisLocker) Close() error {
	return r.client.Close()
}
