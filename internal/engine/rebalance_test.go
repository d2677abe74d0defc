package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/wishrank/internal/key"
)

func keysOf(t *testing.T, e *Engine) []string {
	t.Helper()
	snap, err := e.Snapshot(context.Background(), testList)
	require.NoError(t, err)
	out := make([]string, len(snap.Items))
	for i, it := range snap.Items {
		out[i] = it.Key.String()
	}
	return out
}

func TestRebalance_EvenlySpacesCrowdedList(t *testing.T) {
	e, _ := setupTestEngine(t, Config{})
	ctx := context.Background()
	seedKeys(t, e, "10.000000001", "10.0000000005", "10")

	res, err := e.Rebalance(ctx, testList)
	require.NoError(t, err)

	assert.Equal(t, 3, res.RebalancedCount)
	assert.Equal(t, 3, res.Changed)
	assert.Equal(t, []string{"A", "B", "C"}, snapshotTitles(t, e), "order is preserved")
	assert.Equal(t, []string{
		key.FromInt(3072).String(),
		key.FromInt(2048).String(),
		key.FromInt(1024).String(),
	}, keysOf(t, e))
}

func TestRebalance_Idempotent(t *testing.T) {
	e, _ := setupTestEngine(t, Config{})
	ctx := context.Background()
	seedKeys(t, e, "7", "3", "1")

	_, err := e.Rebalance(ctx, testList)
	require.NoError(t, err)
	before, err := e.Snapshot(ctx, testList)
	require.NoError(t, err)

	res, err := e.Rebalance(ctx, testList)
	require.NoError(t, err)
	assert.Equal(t, 3, res.RebalancedCount)
	assert.Equal(t, 0, res.Changed)

	after, err := e.Snapshot(ctx, testList)
	require.NoError(t, err)
	assert.Equal(t, before.Fingerprint, after.Fingerprint)
}

func TestRebalance_EmptyList(t *testing.T) {
	e, _ := setupTestEngine(t, Config{})

	res, err := e.Rebalance(context.Background(), testList)
	require.NoError(t, err)
	assert.Equal(t, RebalanceResult{}, res)
}

func TestRebalance_SkipsDeletedItems(t *testing.T) {
	e, _ := setupTestEngine(t, Config{})
	ctx := context.Background()
	items := seedKeys(t, e, "3", "2", "1")
	require.NoError(t, e.Delete(ctx, testList, items[1].ID))

	res, err := e.Rebalance(ctx, testList)
	require.NoError(t, err)
	assert.Equal(t, 2, res.RebalancedCount)
	assert.Equal(t, []string{key.FromInt(2048).String(), key.FromInt(1024).String()}, keysOf(t, e))
}

func TestRebalance_CustomStep(t *testing.T) {
	e, _ := setupTestEngine(t, Config{Step: key.FromInt(10)})
	seedKeys(t, e, "0.3", "0.2")

	_, err := e.Rebalance(context.Background(), testList)
	require.NoError(t, err)
	assert.Equal(t, []string{key.FromInt(20).String(), key.FromInt(10).String()}, keysOf(t, e))
}

func TestRebalance_ConcurrentCallsSerialize(t *testing.T) {
	e, _ := setupTestEngine(t, Config{})
	ctx := context.Background()
	seedKeys(t, e, "1.5", "1.25", "1.125", "1")

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			res, err := e.Rebalance(ctx, testList)
			if err != nil {
				return err
			}
			assert.Equal(t, 4, res.RebalancedCount)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, []string{"A", "B", "C", "D"}, snapshotTitles(t, e))
	assert.Equal(t, []string{
		key.FromInt(4096).String(),
		key.FromInt(3072).String(),
		key.FromInt(2048).String(),
		key.FromInt(1024).String(),
	}, keysOf(t, e))
}

func TestRebalance_RestoresPlacementAfterExhaustion(t *testing.T) {
	e, _ := setupTestEngine(t, Config{})
	ctx := context.Background()
	items := seedKeys(t, e, "10.0000000005", "10", "1")

	_, err := e.Move(ctx, testList, items[2].ID, Position{AboveID: items[0].ID, BelowID: items[1].ID})
	require.True(t, IsPrecisionExhausted(err))

	_, err = e.Rebalance(ctx, testList)
	require.NoError(t, err)

	res, err := e.Move(ctx, testList, items[2].ID, Position{AboveID: items[0].ID, BelowID: items[1].ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "B"}, snapshotTitles(t, e))
	assert.True(t, res.Item.Key.Equal(key.FromInt(2560)), "midpoint of 3072 and 2048, got %s", res.Item.Key)
}

func TestRebalance_TiedKeysKeepCreationOrder(t *testing.T) {
	e, _ := setupTestEngine(t, Config{})
	// A is created before B with the same key, so B (newer) ranks first.
	seedKeys(t, e, "10.000000001", "10.000000001", "9.999999999")
	require.Equal(t, []string{"B", "A", "C"}, snapshotTitles(t, e))

	res, err := e.Rebalance(context.Background(), testList)
	require.NoError(t, err)
	assert.Equal(t, 3, res.RebalancedCount)

	assert.Equal(t, []string{"B", "A", "C"}, snapshotTitles(t, e))
	assert.Equal(t, []string{
		key.FromInt(3072).String(),
		key.FromInt(2048).String(),
		key.FromInt(1024).String(),
	}, keysOf(t, e))
}

// unlockHook runs fn every time a lock it handed out is released.
type unlockHook struct {
	Locker
	fn func()
}

func (l *unlockHook) Lock(ctx context.Context, name string) (func() error, error) {
	unlock, err := l.Locker.Lock(ctx, name)
	if err != nil {
		return nil, err
	}
	return func() error {
		err := unlock()
		if l.fn != nil {
			l.fn()
		}
		return err
	}, nil
}

func TestMove_ReloadFailureAfterAutoRebalanceKeepsPlacement(t *testing.T) {
	locker := &unlockHook{Locker: NewLocalLocker()}
	e, _ := setupTestEngine(t, Config{AutoRebalance: true}, WithLocker(locker))
	ctx := context.Background()
	items := seedKeys(t, e, "10.0000000015", "10", "1")

	// The moved item disappears between the rebalance and the reload.
	locker.fn = func() {
		require.NoError(t, e.Delete(ctx, testList, items[2].ID))
	}

	res, err := e.Move(ctx, testList, items[2].ID, Position{AboveID: items[0].ID, BelowID: items[1].ID})
	require.NoError(t, err, "the move itself was committed")
	assert.False(t, res.Rebalanced)
	assert.Equal(t, items[2].ID, res.Item.ID)
	assert.True(t, res.Item.Key.Equal(key.MustParse("10.00000000075")), "key = %s", res.Item.Key)
}
