package engine

import (
	"context"
	"time"

	"github.com/roach88/wishrank/internal/item"
	"github.com/roach88/wishrank/internal/key"
	"github.com/roach88/wishrank/internal/store"
)

// RebalanceResult is the outcome of Rebalance.
type RebalanceResult struct {
	// RebalancedCount is the number of live items that received a key.
	RebalancedCount int `json:"rebalanced_count"`
	// Changed counts items whose key actually moved.
	Changed int `json:"changed"`
}

// Rebalance reassigns evenly spaced keys to every live item of a list while
// preserving its order: with N items, the item at position i (0-based from
// the top) gets (N-i)*step, so the bottom item lands on step.
//
// All keys are written in one transaction; on failure the previous keys
// stay in place. Items already at their target key are not touched, so
// repeating a rebalance changes nothing.
func (e *Engine) Rebalance(ctx context.Context, listID string) (RebalanceResult, error) {
	unlock, err := e.locker.Lock(ctx, lockName(listID))
	if err != nil {
		return RebalanceResult{}, err
	}
	defer func() {
		if err := unlock(); err != nil {
			e.logger.Warn("failed to release rebalance lock", "list", listID, "error", err)
		}
	}()

	start := time.Now()
	var res store.RenumberResult
	err = e.withRetry(ctx, "rebalance", func(ctx context.Context) error {
		var err error
		res, err = e.store.Renumber(ctx, listID, e.clock.Now(), e.rebalanceKeys)
		return err
	})
	if err != nil {
		return RebalanceResult{}, err
	}

	e.logger.Info("list rebalanced",
		"list", listID,
		"items", res.Total,
		"changed", res.Changed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return RebalanceResult{RebalancedCount: res.Total, Changed: res.Changed}, nil
}

func lockName(listID string) string { return "rebalance:" + listID }

// rebalanceKeys assigns top-down keys N*step, (N-1)*step, ..., step.
func (e *Engine) rebalanceKeys(live []item.Item) []key.Key {
	n := len(live)
	keys := make([]key.Key, n)
	for i := range live {
		keys[i] = e.step.MulInt(int64(n - i))
	}
	return keys
}

// leftDense reports whether placing k between prev and next left a gap
// below epsilon on either side.
func (e *Engine) leftDense(prev *key.Key, k key.Key, next *key.Key) bool {
	if !e.autoRebalance {
		return false
	}
	if prev != nil && key.IsTooDense(*prev, k, e.epsilon) {
		return true
	}
	return next != nil && key.IsTooDense(k, *next, e.epsilon)
}

// rebalanceAfterPlacement rebalances a list proactively and returns the
// placed item as it is afterwards. The placement is already committed, so
// any failure here is only logged and reported as nil.
func (e *Engine) rebalanceAfterPlacement(ctx context.Context, listID, id string) *item.Item {
	if _, err := e.Rebalance(ctx, listID); err != nil {
		e.logger.Warn("proactive rebalance failed", "list", listID, "error", err)
		return nil
	}

	it, err := e.store.GetItem(ctx, listID, id)
	if err != nil {
		e.logger.Warn("failed to reload item after rebalance", "list", listID, "item", id, "error", err)
		return nil
	}
	return &it
}
