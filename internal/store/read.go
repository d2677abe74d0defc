package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/wishrank/internal/item"
	"github.com/roach88/wishrank/internal/querysql"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx runs store operations against one transaction (see Store.InTx) or, for
// the Store shortcuts, directly against the database.
type Tx struct {
	q queryer
	s *Store
}

// Direction selects the side searched by Adjacent.
type Direction int

const (
	// Down searches towards lower ranks (smaller keys).
	Down Direction = iota
	// Up searches towards higher ranks (larger keys).
	Up
)

// Page is one page of a list in total order.
type Page struct {
	Items []item.Item `json:"items"`
	// NextCursor is nil on the last page.
	NextCursor *string `json:"next_cursor"`
}

// totalOrder is (key desc, created_at desc, id desc).
var totalOrder = []querysql.Order{
	{Column: "sort_key", Desc: true},
	{Column: "created_at", Desc: true},
	{Column: "id", Desc: true},
}

var reverseOrder = []querysql.Order{
	{Column: "sort_key"},
	{Column: "created_at"},
	{Column: "id"},
}

var orderFields = []string{"sort_key", "created_at", "id"}

func cursorValues(c item.Cursor) []any {
	return []any{c.Key.SortBytes(), c.CreatedAt, c.ID}
}

func liveItems(listID string, extra ...querysql.Predicate) querysql.Predicate {
	preds := []querysql.Predicate{
		querysql.Equals{Field: "list_id", Value: listID},
		querysql.Equals{Field: "deleted", Value: 0},
	}
	return querysql.And{Predicates: append(preds, extra...)}
}

func (t *Tx) selectItems(ctx context.Context, q querysql.Select) ([]item.Item, error) {
	q.From = "items"
	q.Columns = itemColumns

	query, args, err := t.s.compiler.Compile(q)
	if err != nil {
		return nil, err
	}
	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	return scanItems(rows)
}

// GetItem returns a live item. Deleted or unknown ids yield ErrNotFound.
func (t *Tx) GetItem(ctx context.Context, listID, id string) (item.Item, error) {
	items, err := t.selectItems(ctx, querysql.Select{
		Filter:  liveItems(listID, querysql.Equals{Field: "id", Value: id}),
		OrderBy: totalOrder,
		Limit:   1,
	})
	if err != nil {
		return item.Item{}, fmt.Errorf("get item %s: %w", id, err)
	}
	if len(items) == 0 {
		return item.Item{}, fmt.Errorf("get item %s: %w", id, ErrNotFound)
	}
	return items[0], nil
}

// Snapshot returns every live item of the list in total order.
// Returns an empty slice (not nil) for an empty list.
func (t *Tx) Snapshot(ctx context.Context, listID string) ([]item.Item, error) {
	items, err := t.selectItems(ctx, querysql.Select{
		Filter:  liveItems(listID),
		OrderBy: totalOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", listID, err)
	}
	return items, nil
}

// List returns the page of live items that follows cursor.
//
// An empty or malformed cursor starts at the top. limit <= 0 selects the
// default page size and larger requests are clamped to the maximum. One
// extra row is fetched to decide whether a next page exists.
func (t *Tx) List(ctx context.Context, listID, cursor string, limit int) (Page, error) {
	limit = t.s.clampLimit(limit)

	var after []querysql.Predicate
	if c, ok := item.DecodeCursor(cursor); ok {
		after = append(after, querysql.RowLess{Fields: orderFields, Values: cursorValues(c)})
	}

	items, err := t.selectItems(ctx, querysql.Select{
		Filter:  liveItems(listID, after...),
		OrderBy: totalOrder,
		Limit:   limit + 1,
	})
	if err != nil {
		return Page{}, fmt.Errorf("list %s: %w", listID, err)
	}

	page := Page{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		next := item.CursorOf(page.Items[limit-1]).Encode()
		page.NextCursor = &next
	}
	return page, nil
}

// Adjacent returns the first live item strictly below (Down) or above (Up)
// the position from, skipping the item with id exclude. A nil from searches
// from the top for Down and from the bottom for Up. It returns nil when no
// such item exists.
func (t *Tx) Adjacent(ctx context.Context, listID string, from *item.Cursor, dir Direction, exclude string) (*item.Item, error) {
	var extra []querysql.Predicate
	if exclude != "" {
		extra = append(extra, querysql.NotEquals{Field: "id", Value: exclude})
	}

	order := totalOrder
	if dir == Up {
		order = reverseOrder
	}
	if from != nil {
		if dir == Down {
			extra = append(extra, querysql.RowLess{Fields: orderFields, Values: cursorValues(*from)})
		} else {
			extra = append(extra, querysql.RowGreater{Fields: orderFields, Values: cursorValues(*from)})
		}
	}

	items, err := t.selectItems(ctx, querysql.Select{
		Filter:  liveItems(listID, extra...),
		OrderBy: order,
		Limit:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("adjacent in %s: %w", listID, err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (s *Store) clampLimit(limit int) int {
	if limit <= 0 {
		return s.defaultPage
	}
	if limit > s.maxPage {
		return s.maxPage
	}
	return limit
}

// GetItem returns a live item. See Tx.GetItem.
func (s *Store) GetItem(ctx context.Context, listID, id string) (item.Item, error) {
	return s.conn().GetItem(ctx, listID, id)
}

// Snapshot returns every live item of the list in total order.
func (s *Store) Snapshot(ctx context.Context, listID string) ([]item.Item, error) {
	return s.conn().Snapshot(ctx, listID)
}

// List returns one page of the list. See Tx.List.
func (s *Store) List(ctx context.Context, listID, cursor string, limit int) (Page, error) {
	return s.conn().List(ctx, listID, cursor, limit)
}

// Adjacent finds the neighbor of a position. See Tx.Adjacent.
func (s *Store) Adjacent(ctx context.Context, listID string, from *item.Cursor, dir Direction, exclude string) (*item.Item, error) {
	return s.conn().Adjacent(ctx, listID, from, dir, exclude)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
