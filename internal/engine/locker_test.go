package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestLocalLocker_MutualExclusion(t *testing.T) {
	l := NewLocalLocker()
	var holders, maxHolders atomic.Int32

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			unlock, err := l.Lock(ctx, "wishes")
			if err != nil {
				return err
			}
			n := holders.Add(1)
			for {
				m := maxHolders.Load()
				if n <= m || maxHolders.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			holders.Add(-1)
			return unlock()
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), maxHolders.Load())
}

func TestLocalLocker_ContextTimeout(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "wishes")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "wishes")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocalLocker_UnlockIsIdempotent(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "wishes")
	require.NoError(t, err)

	require.NoError(t, unlock())
	require.NoError(t, unlock())

	// A second unlock must not free a slot taken by someone else.
	unlock2, err := l.Lock(context.Background(), "wishes")
	require.NoError(t, err)
	require.NoError(t, unlock())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "wishes")
	assert.Error(t, err)
	require.NoError(t, unlock2())
}

func TestLocalLocker_IndependentNames(t *testing.T) {
	l := NewLocalLocker()
	unlockA, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, unlockB())
}

func TestRedisLocker_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	l := NewRedisLocker(client, 0)
	assert.Equal(t, DefaultLockTTL, l.ttl)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := l.Lock(ctx, "wishes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquire lock wishes")
}

func TestRebalance_LockFailureIsReported(t *testing.T) {
	l := NewLocalLocker()
	e, _ := setupTestEngine(t, Config{}, WithLocker(l))
	seedKeys(t, e, "2", "1")

	unlock, err := l.Lock(context.Background(), lockName(testList))
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = e.Rebalance(ctx, testList)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
