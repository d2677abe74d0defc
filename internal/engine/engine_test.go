package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wishrank/internal/item"
	"github.com/roach88/wishrank/internal/key"
	"github.com/roach88/wishrank/internal/store"
	"github.com/roach88/wishrank/internal/testutil"
)

const testList = "wishes"

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.Options{DSN: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// setupTestEngine builds an engine with deterministic time and ids.
func setupTestEngine(t *testing.T, cfg Config, opts ...Option) (*Engine, *store.Store) {
	t.Helper()
	s := setupTestStore(t)
	base := []Option{
		WithClock(testutil.NewDeterministicClock()),
		WithIDGenerator(testutil.NewSequentialIDs("item")),
	}
	return New(s, cfg, append(base, opts...)...), s
}

// seedKeys creates one item per key, titled A, B, C, ... in argument order.
func seedKeys(t *testing.T, e *Engine, keys ...string) []item.Item {
	t.Helper()
	out := make([]item.Item, len(keys))
	for i, k := range keys {
		kk := key.MustParse(k)
		it, err := e.Create(context.Background(), testList, string(rune('A'+i)), &kk)
		require.NoError(t, err)
		out[i] = it
	}
	return out
}

func titles(items []item.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func snapshotTitles(t *testing.T, e *Engine) []string {
	t.Helper()
	snap, err := e.Snapshot(context.Background(), testList)
	require.NoError(t, err)
	return titles(snap.Items)
}

func TestEngine_NewDefaults(t *testing.T) {
	e, _ := setupTestEngine(t, Config{})

	assert.True(t, e.Step().Equal(key.FromInt(1024)))
	assert.True(t, e.Epsilon().Equal(key.MustParse("0.000000001")))
	assert.False(t, e.autoRebalance)
}

func TestEngine_NewPanicsOnNegativeConfig(t *testing.T) {
	s := setupTestStore(t)

	assert.Panics(t, func() { New(s, Config{Step: key.FromInt(-1)}) })
	assert.Panics(t, func() { New(s, Config{Epsilon: key.MustParse("-0.1")}) })
}

func TestCreate_DefaultsToBottom(t *testing.T) {
	e, _ := setupTestEngine(t, Config{})
	ctx := context.Background()

	first, err := e.Create(ctx, testList, "first", nil)
	require.NoError(t, err)
	assert.True(t, first.Key.Equal(key.Zero()), "empty list starts at 0")

	second, err := e.Create(ctx, testList, "second", nil)
	require.NoError(t, err)
	assert.True(t, second.Key.Equal(key.FromInt(-1024)))

	third, err := e.Create(ctx, testList, "third", nil)
	require.NoError(t, err)
	assert.True(t, third.Key.Equal(key.FromInt(-2048)))

	assert.Equal(t, []string{"first", "second", "third"}, snapshotTitles(t, e))
}

func TestCreate_ExplicitKey(t *testing.T) {
	e, _ := setupTestEngine(t, Config{})
	ctx := context.Background()

	k := key.MustParse("12.5")
	it, err := e.Create(ctx, testList, "wish", &k)
	require.NoError(t, err)

	assert.Equal(t, "item-0001", it.ID)
	assert.Equal(t, testList, it.ListID)
	assert.True(t, it.Key.Equal(k))
	assert.Equal(t, testutil.Epoch, it.CreatedAt)

	got, err := e.Get(ctx, testList, it.ID)
	require.NoError(t, err)
	assert.True(t, got.Key.Equal(k))
}

func TestCreate_Validation(t *testing.T) {
	e, _ := setupTestEngine(t, Config{})
	ctx := context.Background()

	_, err := e.Create(ctx, testList, "  ", nil)
	assert.True(t, IsInvalidArgument(err))

	_, err = e.Create(ctx, "", "title", nil)
	assert.True(t, IsInvalidArgument(err))
}

func TestDelete(t *testing.T) {
	e, _ := setupTestEngine(t, Config{})
	ctx := context.Background()
	items := seedKeys(t, e, "3072", "2048")

	require.NoError(t, e.Delete(ctx, testList, items[0].ID))
	assert.Equal(t, []string{"B"}, snapshotTitles(t, e))

	_, err := e.Get(ctx, testList, items[0].ID)
	assert.True(t, IsNotFound(err))

	err = e.Delete(ctx, testList, items[0].ID)
	assert.True(t, IsNotFound(err), "deleting twice reports not found")
}

func TestSnapshot_Fingerprint(t *testing.T) {
	e, _ := setupTestEngine(t, Config{})
	ctx := context.Background()
	seedKeys(t, e, "1", "2")

	snap, err := e.Snapshot(ctx, testList)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, titles(snap.Items))
	assert.Equal(t, item.MustFingerprint(snap.Items), snap.Fingerprint)

	empty, err := e.Snapshot(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.NotEmpty(t, empty.Fingerprint)
}

func TestList_Pages(t *testing.T) {
	e, _ := setupTestEngine(t, Config{})
	ctx := context.Background()
	seedKeys(t, e, "5", "4", "3", "2", "1")

	page, err := e.List(ctx, testList, "", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, titles(page.Items))
	require.NotNil(t, page.NextCursor)

	page, err = e.List(ctx, testList, *page.NextCursor, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D", "E"}, titles(page.Items))
	assert.Nil(t, page.NextCursor)
}
