package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/wishrank/internal/item"
	"github.com/roach88/wishrank/internal/key"
	"github.com/roach88/wishrank/internal/querysql"
)

// CreateItem inserts a new item. The id must not exist yet, in any list.
func (t *Tx) CreateItem(ctx context.Context, it item.Item) error {
	_, err := t.q.ExecContext(ctx, t.rebind(`
		INSERT INTO items
		(id, list_id, title, key, sort_key, created_at, updated_at, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`),
		it.ID,
		it.ListID,
		it.Title,
		it.Key.String(),
		it.Key.SortBytes(),
		toMillis(it.CreatedAt),
		toMillis(it.UpdatedAt),
		boolToInt(it.Deleted),
	)
	if err != nil {
		return fmt.Errorf("create item %s: %w", it.ID, err)
	}
	return nil
}

// UpdateKey moves a live item to k and stamps updated_at. It returns the
// updated item.
func (t *Tx) UpdateKey(ctx context.Context, listID, id string, k key.Key, at time.Time) (item.Item, error) {
	if err := t.setKey(ctx, listID, id, k, at); err != nil {
		return item.Item{}, err
	}
	return t.GetItem(ctx, listID, id)
}

func (t *Tx) setKey(ctx context.Context, listID, id string, k key.Key, at time.Time) error {
	res, err := t.q.ExecContext(ctx, t.rebind(`
		UPDATE items SET key = ?, sort_key = ?, updated_at = ?
		WHERE list_id = ? AND id = ? AND deleted = 0
	`),
		k.String(),
		k.SortBytes(),
		toMillis(at),
		listID,
		id,
	)
	if err != nil {
		return fmt.Errorf("update key %s: %w", id, err)
	}
	return expectOneRow(res, "update key", id)
}

// SoftDelete tombstones a live item. The row is kept so its id is never
// reused.
func (t *Tx) SoftDelete(ctx context.Context, listID, id string, at time.Time) error {
	res, err := t.q.ExecContext(ctx, t.rebind(`
		UPDATE items SET deleted = 1, updated_at = ?
		WHERE list_id = ? AND id = ? AND deleted = 0
	`),
		toMillis(at),
		listID,
		id,
	)
	if err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	return expectOneRow(res, "delete item", id)
}

func expectOneRow(res interface{ RowsAffected() (int64, error) }, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: rows affected: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return nil
}

func (t *Tx) rebind(query string) string {
	return querysql.Rebind(t.s.dialect, query)
}

// CreateItem inserts a new item outside any wider transaction.
func (s *Store) CreateItem(ctx context.Context, it item.Item) error {
	return s.conn().CreateItem(ctx, it)
}

// UpdateKey moves a live item to k. See Tx.UpdateKey.
func (s *Store) UpdateKey(ctx context.Context, listID, id string, k key.Key, at time.Time) (item.Item, error) {
	var updated item.Item
	err := s.InTx(ctx, func(tx *Tx) error {
		var err error
		updated, err = tx.UpdateKey(ctx, listID, id, k, at)
		return err
	})
	return updated, err
}

// SoftDelete tombstones a live item. See Tx.SoftDelete.
func (s *Store) SoftDelete(ctx context.Context, listID, id string, at time.Time) error {
	return s.conn().SoftDelete(ctx, listID, id, at)
}

// RenumberResult summarizes a Renumber call.
type RenumberResult struct {
	// Total is the number of live items that received a key.
	Total int
	// Changed counts the rows actually written; items already at their
	// target key are left untouched.
	Changed int
}

// Renumber rewrites the keys of every live item of a list in one
// transaction. assign receives the items in total order and returns one key
// per item, in the same order. Either every key is written or none is.
func (s *Store) Renumber(ctx context.Context, listID string, at time.Time, assign func(live []item.Item) []key.Key) (RenumberResult, error) {
	var result RenumberResult
	err := s.InTx(ctx, func(tx *Tx) error {
		live, err := tx.Snapshot(ctx, listID)
		if err != nil {
			return err
		}

		keys := assign(live)
		if len(keys) != len(live) {
			return fmt.Errorf("renumber %s: %d keys for %d items", listID, len(keys), len(live))
		}

		result = RenumberResult{Total: len(live)}
		for i, it := range live {
			if it.Key.Equal(keys[i]) {
				continue
			}
			if err := tx.setKey(ctx, listID, it.ID, keys[i], at); err != nil {
				return err
			}
			result.Changed++
		}
		return nil
	})
	if err != nil {
		return RenumberResult{}, fmt.Errorf("renumber %s: %w", listID, err)
	}
	return result, nil
}

// GuardResult is the outcome of InsertGuarded.
type GuardResult struct {
	// Conflict is set when the list changed since the expected fingerprint
	// was taken. Nothing was written.
	Conflict bool
	// Item is the inserted item when Conflict is false.
	Item item.Item
	// Fresh and Fingerprint describe the list as read inside the
	// transaction.
	Fresh       []item.Item
	Fingerprint string
}

// InsertGuarded inserts it only if the list still matches the expected
// fingerprint. The re-read, the comparison and the insert share one
// transaction. place computes the new item's key from the (unchanged) live
// items; an error from place aborts the insert.
func (s *Store) InsertGuarded(ctx context.Context, it item.Item, expected string, place func(live []item.Item) (key.Key, error)) (GuardResult, error) {
	var result GuardResult
	err := s.InTx(ctx, func(tx *Tx) error {
		live, err := tx.Snapshot(ctx, it.ListID)
		if err != nil {
			return err
		}
		fp, err := item.Fingerprint(live)
		if err != nil {
			return err
		}

		result = GuardResult{Fresh: live, Fingerprint: fp}
		if fp != expected {
			result.Conflict = true
			return nil
		}

		k, err := place(live)
		if err != nil {
			return err
		}
		it.Key = k
		if err := tx.CreateItem(ctx, it); err != nil {
			return err
		}
		result.Item = it
		return nil
	})
	if err != nil {
		return GuardResult{}, err
	}
	return result, nil
}
