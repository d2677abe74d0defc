package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes work on a named resource. Lock blocks until the lock is
// held or ctx is done; the returned function releases it.
type Locker interface {
	Lock(ctx context.Context, name string) (unlock func() error, err error)
}

// LocalLocker serializes callers within one process.
//
// Thread-safety: LocalLocker is safe for concurrent use.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocalLocker creates an in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]chan struct{})}
}

func (l *LocalLocker) slot(name string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[name]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[name] = ch
	}
	return ch
}

// Lock acquires the named lock.
func (l *LocalLocker) Lock(ctx context.Context, name string) (func() error, error) {
	ch := l.slot(name)
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() error {
			once.Do(func() { <-ch })
			return nil
		}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire lock %s: %w", name, ctx.Err())
	}
}

// Redis lock defaults.
const (
	DefaultLockTTL  = 30 * time.Second
	defaultLockPoll = 50 * time.Millisecond
	lockKeyPrefix   = "wishrank:lock:"
)

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker serializes callers across processes sharing one Redis.
//
// The lock is a SET NX PX key holding a random owner token. The TTL bounds
// how long a crashed holder can block others.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	poll   time.Duration
}

// NewRedisLocker creates a Redis-backed locker. A non-positive ttl selects
// DefaultLockTTL.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl, poll: defaultLockPoll}
}

// Lock acquires the named lock, polling until it is free.
func (l *RedisLocker) Lock(ctx context.Context, name string) (func() error, error) {
	k := lockKeyPrefix + name
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", name, err)
		}
		if ok {
			return func() error {
				// Release with a fresh context so a cancelled caller still
				// frees the lock.
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := releaseScript.Run(ctx, l.client, []string{k}, token).Err(); err != nil {
					return fmt.Errorf("release lock %s: %w", name, err)
				}
				return nil
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", name, ctx.Err())
		case <-time.After(l.poll):
		}
	}
}
