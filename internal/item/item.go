package item

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/roach88/wishrank/internal/key"
)

// Item is one ordered entry of a list.
type Item struct {
	ID        string    `json:"id"`
	ListID    string    `json:"list_id"`
	Title     string    `json:"title"`
	Key       key.Key   `json:"key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Deleted   bool      `json:"deleted,omitempty"`
}

// Compare orders items by (key desc, created_at desc, id desc): it returns a
// negative number when a ranks above b. Timestamps compare at millisecond
// resolution, the precision the store keeps.
//
// Ids are unique within a list, so Compare never returns 0 for two distinct
// items of the same list even when keys and timestamps coincide.
func Compare(a, b Item) int {
	if c := a.Key.Cmp(b.Key); c != 0 {
		return -c
	}
	if c := cmp.Compare(a.CreatedAt.UnixMilli(), b.CreatedAt.UnixMilli()); c != 0 {
		return -c
	}
	return -strings.Compare(a.ID, b.ID)
}

// Sort orders items in place, most important first.
func Sort(items []Item) {
	slices.SortFunc(items, Compare)
}

// Neighbors returns the keys around insertion index idx of a sorted slice:
// prev is the item ranked just above the position, next the one just below.
// Either is nil at a boundary.
func Neighbors(items []Item, idx int) (prev, next *key.Key) {
	if idx > 0 && idx <= len(items) {
		k := items[idx-1].Key
		prev = &k
	}
	if idx >= 0 && idx < len(items) {
		k := items[idx].Key
		next = &k
	}
	return prev, next
}

// IndexOf returns the position of the item with the given id, or -1.
func IndexOf(items []Item, id string) int {
	return slices.IndexFunc(items, func(it Item) bool { return it.ID == id })
}
