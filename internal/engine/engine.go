package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/wishrank/internal/item"
	"github.com/roach88/wishrank/internal/key"
	"github.com/roach88/wishrank/internal/store"
)

// DefaultEpsilon is the smallest gap between adjacent keys that still
// accepts an insertion: 10^-9.
var DefaultEpsilon = key.MustParse("0.000000001")

// Config holds the ordering parameters.
type Config struct {
	// Step is the spacing for boundary inserts and rebalancing.
	// Zero selects key.DefaultStep.
	Step key.Key
	// Epsilon is the density floor. Zero selects DefaultEpsilon.
	Epsilon key.Key
	// AutoRebalance rebalances a list right after a placement leaves a gap
	// below Epsilon next to the placed item.
	AutoRebalance bool
}

// Engine orders the items of lists.
//
// Thread-safety model:
//   - All Engine methods are safe for concurrent use; each write is one
//     store transaction.
//   - Session values are not; a session belongs to one caller.
//   - Rebalances of one list are serialized by the Locker.
type Engine struct {
	store  *store.Store
	clock  Clock
	ids    IDGenerator
	locker Locker
	logger *slog.Logger

	step          key.Key
	epsilon       key.Key
	autoRebalance bool

	maxRetries uint64
	retryBase  time.Duration
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithClock sets the timestamp source. Default: WallClock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator sets the item id source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithLocker sets the rebalance locker. Default: a LocalLocker.
func WithLocker(l Locker) Option {
	return func(e *Engine) { e.locker = l }
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRetry sets how often a transaction failing with a transient store
// error is retried, and the first backoff delay.
func WithRetry(maxRetries uint64, base time.Duration) Option {
	return func(e *Engine) {
		e.maxRetries = maxRetries
		e.retryBase = base
	}
}

// New creates an Engine over s.
//
// Panics if cfg carries a negative step or epsilon; configuration is
// validated before it reaches the engine.
func New(s *store.Store, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		store:         s,
		clock:         WallClock{},
		ids:           UUIDv7Generator{},
		locker:        NewLocalLocker(),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		step:          cfg.Step,
		epsilon:       cfg.Epsilon,
		autoRebalance: cfg.AutoRebalance,
		maxRetries:    DefaultMaxRetries,
		retryBase:     DefaultRetryBase,
	}
	if e.step.Sign() == 0 {
		e.step = key.DefaultStep
	}
	if e.epsilon.Sign() == 0 {
		e.epsilon = DefaultEpsilon
	}
	if e.step.Sign() < 0 || e.epsilon.Sign() < 0 {
		panic(fmt.Sprintf("engine: step %s and epsilon %s must be positive", e.step, e.epsilon))
	}

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Step returns the configured step.
func (e *Engine) Step() key.Key { return e.step }

// Epsilon returns the configured density floor.
func (e *Engine) Epsilon() key.Key { return e.epsilon }

// Snapshot is the full live content of a list with its fingerprint.
type Snapshot struct {
	Items       []item.Item `json:"items"`
	Fingerprint string      `json:"fingerprint"`
}

// Snapshot reads a list in total order and fingerprints it.
func (e *Engine) Snapshot(ctx context.Context, listID string) (Snapshot, error) {
	items, err := e.store.Snapshot(ctx, listID)
	if err != nil {
		return Snapshot{}, err
	}
	fp, err := item.Fingerprint(items)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Items: items, Fingerprint: fp}, nil
}

// List returns one page of a list. See store.Tx.List for cursor and limit
// handling.
func (e *Engine) List(ctx context.Context, listID, cursor string, limit int) (store.Page, error) {
	return e.store.List(ctx, listID, cursor, limit)
}

// Get returns one live item.
func (e *Engine) Get(ctx context.Context, listID, id string) (item.Item, error) {
	it, err := e.store.GetItem(ctx, listID, id)
	return it, classify(err, listID, id)
}

// Create adds an item at an explicit key, or at the bottom of the list when
// k is nil.
func (e *Engine) Create(ctx context.Context, listID, title string, k *key.Key) (item.Item, error) {
	if err := validateNames(listID, title); err != nil {
		return item.Item{}, err
	}

	now := e.clock.Now()
	it := item.Item{
		ID:        e.ids.Generate(),
		ListID:    listID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := e.withRetry(ctx, "create", func(ctx context.Context) error {
		return e.store.InTx(ctx, func(tx *store.Tx) error {
			if k != nil {
				it.Key = *k
			} else {
				bottom, err := tx.Adjacent(ctx, listID, nil, store.Up, "")
				if err != nil {
					return err
				}
				var prev *key.Key
				if bottom != nil {
					prev = &bottom.Key
				}
				it.Key = key.ComputeInsertKey(prev, nil, e.step)
			}
			return tx.CreateItem(ctx, it)
		})
	})
	if err != nil {
		return item.Item{}, classify(err, listID, it.ID)
	}

	e.logger.Debug("item created", "list", listID, "item", it.ID, "key", it.Key.String())
	return it, nil
}

// Delete soft-deletes an item.
func (e *Engine) Delete(ctx context.Context, listID, id string) error {
	err := e.withRetry(ctx, "delete", func(ctx context.Context) error {
		return e.store.SoftDelete(ctx, listID, id, e.clock.Now())
	})
	if err != nil {
		return classify(err, listID, id)
	}
	e.logger.Debug("item deleted", "list", listID, "item", id)
	return nil
}

func validateNames(listID, title string) error {
	if strings.TrimSpace(listID) == "" {
		return NewInvalidArgumentError(listID, "list id must not be empty")
	}
	if strings.TrimSpace(title) == "" {
		return NewInvalidArgumentError(listID, "title must not be empty")
	}
	return nil
}
