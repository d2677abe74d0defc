package engine

import (
	"context"
	"fmt"

	"github.com/roach88/wishrank/internal/insertion"
	"github.com/roach88/wishrank/internal/item"
	"github.com/roach88/wishrank/internal/key"
	"github.com/roach88/wishrank/internal/store"
)

// State is the phase of a ranking session.
type State int

const (
	// StateComparing waits for an answer about Current().
	StateComparing State = iota + 1
	// StateFinalizing has a position and waits for Finalize.
	StateFinalizing
	// StateCommitted inserted the item.
	StateCommitted
	// StateConflict found the list changed; see Restart and FallbackManual.
	StateConflict
	// StateCancelled ended without writing.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateComparing:
		return "comparing"
	case StateFinalizing:
		return "finalizing"
	case StateCommitted:
		return "committed"
	case StateConflict:
		return "conflict"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session places one new item by asking the user to compare it against
// items of a snapshot. Answers are pure in-memory steps; the only I/O is
// the snapshot read in Begin and the guarded insert in Finalize.
//
// A Session is not safe for concurrent use.
type Session struct {
	listID      string
	title       string
	items       []item.Item
	fingerprint string
	search      insertion.Search
	state       State
}

// Begin reads a snapshot of the list and starts a session for a new item
// titled title.
func (e *Engine) Begin(ctx context.Context, listID, title string) (*Session, error) {
	if err := validateNames(listID, title); err != nil {
		return nil, err
	}
	snap, err := e.Snapshot(ctx, listID)
	if err != nil {
		return nil, err
	}
	return newSession(listID, title, snap.Items, snap.Fingerprint), nil
}

func newSession(listID, title string, items []item.Item, fingerprint string) *Session {
	s := &Session{
		listID:      listID,
		title:       title,
		items:       items,
		fingerprint: fingerprint,
		search:      insertion.New(len(items)),
		state:       StateComparing,
	}
	s.settle()
	return s
}

// settle moves a finished search to StateFinalizing.
func (s *Session) settle() {
	if s.search.Done() {
		s.state = StateFinalizing
	} else {
		s.state = StateComparing
	}
}

// ListID returns the list being ranked into.
func (s *Session) ListID() string { return s.listID }

// Title returns the new item's title.
func (s *Session) Title() string { return s.title }

// State returns the current phase.
func (s *Session) State() State { return s.state }

// Items returns the snapshot the session compares against.
func (s *Session) Items() []item.Item { return s.items }

// Fingerprint returns the fingerprint of the snapshot.
func (s *Session) Fingerprint() string { return s.fingerprint }

// Current returns the item the new one must be compared against. ok is
// false outside StateComparing.
func (s *Session) Current() (it item.Item, ok bool) {
	if s.state != StateComparing {
		return item.Item{}, false
	}
	return s.items[s.search.Mid()], true
}

// Progress returns the number of answers given and the worst-case total.
func (s *Session) Progress() (asked, max int) {
	return s.search.Steps(), insertion.MaxQuestions(len(s.items))
}

// Index returns the chosen insertion index: 0 is the top of the list.
// ok is false until the search is finished.
func (s *Session) Index() (idx int, ok bool) {
	if !s.search.Done() {
		return 0, false
	}
	return s.search.Result(), true
}

// Answer records whether the new item ranks above Current().
func (s *Session) Answer(c insertion.Choice) error {
	if s.state != StateComparing {
		return newStateError(s.listID, StateComparing, s.state)
	}
	if c != insertion.ChoiceNew && c != insertion.ChoiceExisting {
		return NewInvalidArgumentError(s.listID, "unknown choice %d", int(c))
	}
	s.search = s.search.Apply(c)
	s.settle()
	return nil
}

// Undo takes back the last answer. It is a no-op before the first answer
// and is allowed until Finalize.
func (s *Session) Undo() error {
	if s.state != StateComparing && s.state != StateFinalizing {
		return newStateError(s.listID, StateComparing, s.state)
	}
	s.search = s.search.Undo()
	s.settle()
	return nil
}

// Cancel ends the session without writing anything.
func (s *Session) Cancel() {
	if s.state == StateComparing || s.state == StateFinalizing {
		s.state = StateCancelled
	}
}

// OutcomeStatus tags an Outcome.
type OutcomeStatus int

const (
	OutcomeCommitted OutcomeStatus = iota + 1
	OutcomeConflict
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeCommitted:
		return "committed"
	case OutcomeConflict:
		return "conflict"
	default:
		return fmt.Sprintf("OutcomeStatus(%d)", int(s))
	}
}

// Outcome is the result of a guarded insert. Exactly one of Item (when
// committed) and Conflict (when stale) is meaningful.
type Outcome struct {
	Status OutcomeStatus
	Item   item.Item
	// Rebalanced is set when the insert triggered an automatic rebalance.
	Rebalanced bool
	Conflict   *Conflict
}

// Conflict describes a list that changed while a session was open.
type Conflict struct {
	ListID      string
	Title       string
	Fresh       []item.Item
	Fingerprint string
}

// Finalize inserts the session's item at the chosen position, unless the
// list changed since Begin. A change yields an OutcomeConflict and the
// session moves to StateConflict; the caller then picks Restart or
// FallbackManual.
func (e *Engine) Finalize(ctx context.Context, s *Session) (Outcome, error) {
	if s.state != StateFinalizing {
		return Outcome{}, newStateError(s.listID, StateFinalizing, s.state)
	}
	idx, _ := s.Index()

	out, err := e.InsertAt(ctx, s.listID, s.title, idx, s.fingerprint)
	if err != nil {
		return Outcome{}, err
	}
	if out.Status == OutcomeConflict {
		s.state = StateConflict
	} else {
		s.state = StateCommitted
	}
	return out, nil
}

// InsertAt inserts a new item at index idx of the snapshot identified by
// fingerprint: 0 is the top, len(snapshot) the bottom. The insert happens
// only if the list still matches the fingerprint.
func (e *Engine) InsertAt(ctx context.Context, listID, title string, idx int, fingerprint string) (Outcome, error) {
	if err := validateNames(listID, title); err != nil {
		return Outcome{}, err
	}
	if idx < 0 {
		return Outcome{}, NewInvalidArgumentError(listID, "index %d out of range", idx)
	}

	now := e.clock.Now()
	it := item.Item{
		ID:        e.ids.Generate(),
		ListID:    listID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var (
		res        store.GuardResult
		prev, next *key.Key
	)
	err := e.withRetry(ctx, "insert", func(ctx context.Context) error {
		var err error
		res, err = e.store.InsertGuarded(ctx, it, fingerprint, func(live []item.Item) (key.Key, error) {
			if idx > len(live) {
				return key.Key{}, NewInvalidArgumentError(listID, "index %d out of range for %d items", idx, len(live))
			}
			prev, next = item.Neighbors(live, idx)
			return key.Between(prev, next, e.step, e.epsilon)
		})
		return err
	})
	if err != nil {
		return Outcome{}, classify(err, listID, it.ID)
	}

	if res.Conflict {
		e.logger.Warn("stale snapshot refused", "list", listID, "title", title)
		return Outcome{
			Status: OutcomeConflict,
			Conflict: &Conflict{
				ListID:      listID,
				Title:       title,
				Fresh:       res.Fresh,
				Fingerprint: res.Fingerprint,
			},
		}, nil
	}

	e.logger.Debug("item ranked", "list", listID, "item", res.Item.ID, "index", idx, "key", res.Item.Key.String())

	out := Outcome{Status: OutcomeCommitted, Item: res.Item}
	if e.leftDense(prev, res.Item.Key, next) {
		if rebalanced := e.rebalanceAfterPlacement(ctx, listID, res.Item.ID); rebalanced != nil {
			out.Item = *rebalanced
			out.Rebalanced = true
		}
	}
	return out, nil
}

// Restart opens a new session for the same item against the fresh snapshot
// carried by a conflict. No I/O is needed.
func (e *Engine) Restart(c *Conflict) *Session {
	return newSession(c.ListID, c.Title, c.Fresh, c.Fingerprint)
}

// FallbackManual gives up on ranking and inserts the conflicted item at k,
// or at the bottom of the list when k is nil.
func (e *Engine) FallbackManual(ctx context.Context, c *Conflict, k *key.Key) (item.Item, error) {
	return e.Create(ctx, c.ListID, c.Title, k)
}
