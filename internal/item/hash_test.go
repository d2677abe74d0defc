package item

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wishrank/internal/key"
)

func TestHashWithDomain_Separation(t *testing.T) {
	data := []byte("payload")
	a := hashWithDomain("wishrank/a/v1", data)
	b := hashWithDomain("wishrank/b/v1", data)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprint_Deterministic(t *testing.T) {
	items := []Item{mk("a", "3072", 0), mk("b", "2048", 1), mk("c", "1024", 2)}

	fp1 := MustFingerprint(items)
	fp2 := MustFingerprint([]Item{items[2], items[0], items[1]})

	assert.Equal(t, fp1, fp2, "input order must not matter")
	assert.Equal(t, strings.ToLower(fp1), fp1)
}

func TestFingerprint_EmptySnapshot(t *testing.T) {
	fp, err := Fingerprint(nil)
	require.NoError(t, err)
	assert.Equal(t, MustFingerprint([]Item{}), fp)
}

func TestFingerprint_SensitiveToOrderingState(t *testing.T) {
	items := []Item{mk("a", "3072", 0), mk("b", "2048", 1)}
	original := MustFingerprint(items)

	tests := []struct {
		name   string
		mutate func([]Item) []Item
	}{
		{"key change", func(in []Item) []Item {
			in[1].Key = key.FromInt(2047)
			return in
		}},
		{"updated_at change", func(in []Item) []Item {
			in[0].UpdatedAt = in[0].UpdatedAt.Add(time.Millisecond)
			return in
		}},
		{"id change", func(in []Item) []Item {
			in[0].ID = "z"
			return in
		}},
		{"item added", func(in []Item) []Item {
			return append(in, mk("c", "1024", 2))
		}},
		{"item removed", func(in []Item) []Item {
			return in[:1]
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp := make([]Item, len(items))
			copy(cp, items)
			assert.NotEqual(t, original, MustFingerprint(tt.mutate(cp)))
		})
	}
}

func TestFingerprint_IgnoresTitle(t *testing.T) {
	items := []Item{mk("a", "3072", 0)}
	before := MustFingerprint(items)

	items[0].Title = "renamed"
	assert.Equal(t, before, MustFingerprint(items))
}
