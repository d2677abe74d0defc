package engine

import (
	"context"

	"github.com/roach88/wishrank/internal/item"
	"github.com/roach88/wishrank/internal/key"
	"github.com/roach88/wishrank/internal/store"
)

// Edge names a list boundary.
type Edge string

const (
	EdgeNone   Edge = ""
	EdgeTop    Edge = "top"
	EdgeBottom Edge = "bottom"
)

// Position is the target of a move.
//
// Either Edge is set, or at least one of AboveID and BelowID. AboveID names
// the item that should end up directly above the moved item, BelowID the
// one directly below. With only one of them the other neighbor is the item
// currently adjacent to it.
type Position struct {
	AboveID string `json:"above_id,omitempty"`
	BelowID string `json:"below_id,omitempty"`
	Edge    Edge   `json:"edge,omitempty"`
}

// MoveResult is the outcome of Move.
type MoveResult struct {
	Item item.Item `json:"item"`
	// Rebalanced is set when the move triggered an automatic rebalance;
	// Item then carries its post-rebalance key.
	Rebalanced bool `json:"rebalanced"`
}

// Move assigns a new key to one item so that it lands at pos. The neighbor
// lookup and the write share one transaction.
//
// Returns an error with ErrCodePrecisionExhausted when the neighbors are
// too close; the list must be rebalanced before retrying.
func (e *Engine) Move(ctx context.Context, listID, id string, pos Position) (MoveResult, error) {
	if err := e.validatePosition(listID, id, pos); err != nil {
		return MoveResult{}, err
	}

	var (
		moved      item.Item
		prev, next *key.Key
	)
	err := e.withRetry(ctx, "move", func(ctx context.Context) error {
		return e.store.InTx(ctx, func(tx *store.Tx) error {
			if _, err := tx.GetItem(ctx, listID, id); err != nil {
				return err
			}

			var err error
			prev, next, err = e.moveNeighbors(ctx, tx, listID, id, pos)
			if err != nil {
				return err
			}

			k, err := key.Between(prev, next, e.step, e.epsilon)
			if err != nil {
				return err
			}
			moved, err = tx.UpdateKey(ctx, listID, id, k, e.clock.Now())
			return err
		})
	})
	if err != nil {
		return MoveResult{}, classify(err, listID, id)
	}

	e.logger.Debug("item moved", "list", listID, "item", id, "key", moved.Key.String())

	result := MoveResult{Item: moved}
	if e.leftDense(prev, moved.Key, next) {
		if rebalanced := e.rebalanceAfterPlacement(ctx, listID, id); rebalanced != nil {
			result = MoveResult{Item: *rebalanced, Rebalanced: true}
		}
	}
	return result, nil
}

func (e *Engine) validatePosition(listID, id string, pos Position) error {
	switch pos.Edge {
	case EdgeNone:
		if pos.AboveID == "" && pos.BelowID == "" {
			return NewInvalidArgumentError(listID, "move needs above_id, below_id or edge")
		}
	case EdgeTop, EdgeBottom:
		if pos.AboveID != "" || pos.BelowID != "" {
			return NewInvalidArgumentError(listID, "edge cannot be combined with above_id or below_id")
		}
	default:
		return NewInvalidArgumentError(listID, "unknown edge %q", pos.Edge)
	}

	if pos.AboveID == id || pos.BelowID == id {
		return NewInvalidArgumentError(listID, "item %s cannot be its own neighbor", id)
	}
	if pos.AboveID != "" && pos.AboveID == pos.BelowID {
		return NewInvalidArgumentError(listID, "above_id and below_id must differ")
	}
	return nil
}

// moveNeighbors resolves pos to the keys just above and below the target
// position, ignoring the moved item itself.
func (e *Engine) moveNeighbors(ctx context.Context, tx *store.Tx, listID, id string, pos Position) (prev, next *key.Key, err error) {
	keyOf := func(it *item.Item) *key.Key {
		if it == nil {
			return nil
		}
		k := it.Key
		return &k
	}

	switch {
	case pos.Edge == EdgeTop:
		top, err := tx.Adjacent(ctx, listID, nil, store.Down, id)
		return nil, keyOf(top), err

	case pos.Edge == EdgeBottom:
		bottom, err := tx.Adjacent(ctx, listID, nil, store.Up, id)
		return keyOf(bottom), nil, err

	case pos.AboveID != "" && pos.BelowID != "":
		above, err := tx.GetItem(ctx, listID, pos.AboveID)
		if err != nil {
			return nil, nil, err
		}
		below, err := tx.GetItem(ctx, listID, pos.BelowID)
		if err != nil {
			return nil, nil, err
		}
		if item.Compare(above, below) >= 0 {
			return nil, nil, NewInvalidArgumentError(listID, "item %s does not rank above %s", above.ID, below.ID)
		}
		return keyOf(&above), keyOf(&below), nil

	case pos.AboveID != "":
		above, err := tx.GetItem(ctx, listID, pos.AboveID)
		if err != nil {
			return nil, nil, err
		}
		c := item.CursorOf(above)
		below, err := tx.Adjacent(ctx, listID, &c, store.Down, id)
		return keyOf(&above), keyOf(below), err

	default:
		below, err := tx.GetItem(ctx, listID, pos.BelowID)
		if err != nil {
			return nil, nil, err
		}
		c := item.CursorOf(below)
		above, err := tx.Adjacent(ctx, listID, &c, store.Up, id)
		return keyOf(above), keyOf(&below), err
	}
}
