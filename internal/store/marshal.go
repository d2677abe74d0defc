package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/wishrank/internal/item"
)

// itemColumns is the column list every item query selects, in scanItem order.
var itemColumns = []string{"id", "list_id", "title", "key", "created_at", "updated_at", "deleted"}

// rowScanner is implemented by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanItem reads one row selected with itemColumns.
func scanItem(row rowScanner) (item.Item, error) {
	var (
		it               item.Item
		created, updated int64
		deleted          int64
	)
	if err := row.Scan(&it.ID, &it.ListID, &it.Title, &it.Key, &created, &updated, &deleted); err != nil {
		return item.Item{}, fmt.Errorf("scan item: %w", err)
	}
	it.CreatedAt = fromMillis(created)
	it.UpdatedAt = fromMillis(updated)
	it.Deleted = deleted != 0
	return it, nil
}

// scanItems drains rows into a non-nil slice.
func scanItems(rows *sql.Rows) ([]item.Item, error) {
	defer rows.Close()

	items := []item.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// Timestamps are stored as unix milliseconds, the resolution of the total
// order.
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
