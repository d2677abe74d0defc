package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/wishrank/internal/item"
	"github.com/roach88/wishrank/internal/key"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(Options{DSN: path})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestItem builds a live item of list "wishes" created offsetMs after
// baseTime.
func createTestItem(id, k string, offsetMs int64) item.Item {
	ts := baseTime.Add(time.Duration(offsetMs) * time.Millisecond)
	return item.Item{
		ID:        id,
		ListID:    "wishes",
		Title:     "title " + id,
		Key:       key.MustParse(k),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// seed inserts items and fails the test on error.
func seed(t *testing.T, s *Store, items ...item.Item) {
	t.Helper()
	for _, it := range items {
		if err := s.CreateItem(context.Background(), it); err != nil {
			t.Fatalf("CreateItem(%s) failed: %v", it.ID, err)
		}
	}
}

func itemIDs(items []item.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
