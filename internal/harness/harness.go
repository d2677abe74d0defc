package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/wishrank/internal/engine"
	"github.com/roach88/wishrank/internal/insertion"
	"github.com/roach88/wishrank/internal/key"
	"github.com/roach88/wishrank/internal/store"
	"github.com/roach88/wishrank/internal/testutil"
)

// Harness executes one scenario against a real engine and store.
// It runs with a deterministic clock and sequential item ids.
type Harness struct {
	engine *engine.Engine
	listID string

	session  *engine.Session
	conflict *engine.Conflict
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database and engine
// 2. Create the setup items
// 3. Execute flow steps with expect validation
// 4. Evaluate assertions against the trace and final list
//
// A returned error means the scenario itself could not run, for example a
// step that needs an open session when there is none. Failed expectations
// are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(store.Options{DSN: ":memory:"})
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	cfg, err := engineConfig(scenario.Ordering)
	if err != nil {
		return nil, err
	}
	eng := engine.New(st, cfg,
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithIDGenerator(testutil.NewSequentialIDs("item")),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	h := &Harness{engine: eng, listID: scenario.ListID()}
	ctx := context.Background()
	result := NewResult()

	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	snap, err := eng.Snapshot(ctx, h.listID)
	if err != nil {
		return nil, fmt.Errorf("failed to read final list: %w", err)
	}
	result.Final = snap.Items

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

func engineConfig(o Ordering) (engine.Config, error) {
	cfg := engine.Config{AutoRebalance: o.AutoRebalance}
	var err error
	if o.Step != "" {
		if cfg.Step, err = key.Parse(o.Step); err != nil {
			return cfg, fmt.Errorf("ordering.step: %w", err)
		}
	}
	if o.Epsilon != "" {
		if cfg.Epsilon, err = key.Parse(o.Epsilon); err != nil {
			return cfg, fmt.Errorf("ordering.epsilon: %w", err)
		}
	}
	return cfg, nil
}

// executeSetup creates the setup items in order. Setup is assumed to
// succeed.
func (h *Harness) executeSetup(ctx context.Context, setup []SetupItem, result *Result) error {
	for i, it := range setup {
		k, err := optionalKey(it.Key)
		if err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if _, err := h.engine.Create(ctx, h.listID, it.Title, k); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	snap, err := h.engine.Snapshot(ctx, h.listID)
	if err != nil {
		return err
	}
	result.Initial = snap.Items
	return nil
}

// stepResult is what a step produced, for the trace and for Expect.
type stepResult struct {
	args    string
	outcome string
	key     *key.Key
	code    engine.ErrorCode
}

// executeFlow runs the flow steps in order and checks each Expect.
func (h *Harness) executeFlow(ctx context.Context, flow []Step, result *Result) error {
	for i, step := range flow {
		res, err := h.executeStep(ctx, step)
		if err != nil {
			return fmt.Errorf("flow[%d] (%s): %w", i, step.Do, err)
		}
		result.AddTrace(step.Do, res.args, res.outcome)

		for _, msg := range h.checkExpect(step.Expect, res) {
			result.AddError(fmt.Sprintf("flow[%d] (%s): %s", i, step.Do, msg))
		}
	}
	return nil
}

func (h *Harness) executeStep(ctx context.Context, step Step) (stepResult, error) {
	switch step.Do {
	case DoBegin:
		s, err := h.engine.Begin(ctx, h.listID, step.Title)
		if err != nil {
			return engineFailure(fmt.Sprintf("%q", step.Title), err)
		}
		h.session, h.conflict = s, nil
		return stepResult{args: fmt.Sprintf("%q", step.Title), outcome: describeSession(s)}, nil

	case DoAnswer:
		if h.session == nil {
			return stepResult{}, errors.New("no open session")
		}
		choice := insertion.ChoiceExisting
		if step.Choice == "new" {
			choice = insertion.ChoiceNew
		}
		if err := h.session.Answer(choice); err != nil {
			return engineFailure(step.Choice, err)
		}
		return stepResult{args: step.Choice, outcome: describeSession(h.session)}, nil

	case DoUndo:
		if h.session == nil {
			return stepResult{}, errors.New("no open session")
		}
		if err := h.session.Undo(); err != nil {
			return engineFailure("", err)
		}
		return stepResult{outcome: describeSession(h.session)}, nil

	case DoCancel:
		if h.session == nil {
			return stepResult{}, errors.New("no open session")
		}
		h.session.Cancel()
		return stepResult{outcome: describeSession(h.session)}, nil

	case DoFinalize:
		return h.finalize(ctx)

	case DoRestart:
		if h.conflict == nil {
			return stepResult{}, errors.New("no conflict to restart from")
		}
		h.session = h.engine.Restart(h.conflict)
		h.conflict = nil
		return stepResult{outcome: describeSession(h.session)}, nil

	case DoManual:
		if h.conflict == nil {
			return stepResult{}, errors.New("no conflict to fall back from")
		}
		k, err := optionalKey(step.Key)
		if err != nil {
			return stepResult{}, err
		}
		it, err := h.engine.FallbackManual(ctx, h.conflict, k)
		if err != nil {
			return engineFailure(step.Key, err)
		}
		h.conflict = nil
		return stepResult{args: step.Key, outcome: fmt.Sprintf("manual %s key %s", it.ID, it.Key), key: &it.Key}, nil

	case DoCreate:
		args := fmt.Sprintf("%q", step.Title)
		if step.Key != "" {
			args += " key " + step.Key
		}
		k, err := optionalKey(step.Key)
		if err != nil {
			return stepResult{}, err
		}
		it, err := h.engine.Create(ctx, h.listID, step.Title, k)
		if err != nil {
			return engineFailure(args, err)
		}
		return stepResult{args: args, outcome: fmt.Sprintf("created %s key %s", it.ID, it.Key), key: &it.Key}, nil

	case DoMove:
		args := moveArgs(step)
		res, err := h.engine.Move(ctx, h.listID, step.ID, engine.Position{
			AboveID: step.Above,
			BelowID: step.Below,
			Edge:    engine.Edge(step.Edge),
		})
		if err != nil {
			return engineFailure(args, err)
		}
		outcome := "moved key " + res.Item.Key.String()
		if res.Rebalanced {
			outcome += " rebalanced"
		}
		return stepResult{args: args, outcome: outcome, key: &res.Item.Key}, nil

	case DoDelete:
		if err := h.engine.Delete(ctx, h.listID, step.ID); err != nil {
			return engineFailure(step.ID, err)
		}
		return stepResult{args: step.ID, outcome: "deleted"}, nil

	case DoRebalance:
		res, err := h.engine.Rebalance(ctx, h.listID)
		if err != nil {
			return engineFailure("", err)
		}
		return stepResult{outcome: fmt.Sprintf("rebalanced %d items %d changed", res.RebalancedCount, res.Changed)}, nil
	}
	return stepResult{}, fmt.Errorf("unknown action %q", step.Do)
}

func (h *Harness) finalize(ctx context.Context) (stepResult, error) {
	if h.session == nil {
		return stepResult{}, errors.New("no open session")
	}
	out, err := h.engine.Finalize(ctx, h.session)
	if err != nil {
		return engineFailure("", err)
	}
	if out.Status == engine.OutcomeConflict {
		h.conflict = out.Conflict
		return stepResult{outcome: fmt.Sprintf("conflict %d items", len(out.Conflict.Fresh))}, nil
	}
	outcome := fmt.Sprintf("committed %s key %s", out.Item.ID, out.Item.Key)
	if out.Rebalanced {
		outcome += " rebalanced"
	}
	return stepResult{outcome: outcome, key: &out.Item.Key}, nil
}

// engineFailure turns an engine error into a traced outcome. Anything else
// aborts the run.
func engineFailure(args string, err error) (stepResult, error) {
	var engErr *engine.Error
	if !errors.As(err, &engErr) {
		return stepResult{}, err
	}
	return stepResult{args: args, outcome: "error " + string(engErr.Code), code: engErr.Code}, nil
}

func (h *Harness) checkExpect(want *Expect, got stepResult) []string {
	var errs []string
	if want == nil || want.Error == "" {
		if got.code != "" {
			errs = append(errs, fmt.Sprintf("unexpected %s", got.outcome))
		}
	}
	if want == nil {
		return errs
	}

	if want.Error != "" && string(got.code) != want.Error {
		errs = append(errs, fmt.Sprintf("expected error %s, got %q", want.Error, got.outcome))
	}
	if want.State != "" {
		state := ""
		if h.session != nil {
			state = h.session.State().String()
		}
		if state != want.State {
			errs = append(errs, fmt.Sprintf("expected state %s, got %s", want.State, state))
		}
	}
	if want.Ask != "" {
		asked := ""
		if h.session != nil {
			if cur, ok := h.session.Current(); ok {
				asked = cur.Title
			}
		}
		if asked != want.Ask {
			errs = append(errs, fmt.Sprintf("expected to ask about %q, got %q", want.Ask, asked))
		}
	}
	if want.Index != nil {
		idx, ok := -1, false
		if h.session != nil {
			idx, ok = h.session.Index()
		}
		if !ok || idx != *want.Index {
			errs = append(errs, fmt.Sprintf("expected index %d, got %q", *want.Index, got.outcome))
		}
	}
	if want.Key != "" {
		k := key.MustParse(want.Key)
		if got.key == nil || !got.key.Equal(k) {
			errs = append(errs, fmt.Sprintf("expected key %s, got %q", k, got.outcome))
		}
	}
	return errs
}

// describeSession renders the state of a session for the trace.
func describeSession(s *engine.Session) string {
	switch s.State() {
	case engine.StateComparing:
		cur, _ := s.Current()
		asked, max := s.Progress()
		return fmt.Sprintf("comparing %d/%d ask %q", asked, max, cur.Title)
	case engine.StateFinalizing:
		idx, _ := s.Index()
		return fmt.Sprintf("finalizing index %d", idx)
	default:
		return s.State().String()
	}
}

func moveArgs(step Step) string {
	args := step.ID
	if step.Edge != "" {
		args += " edge " + step.Edge
	}
	if step.Above != "" {
		args += " above " + step.Above
	}
	if step.Below != "" {
		args += " below " + step.Below
	}
	return args
}

func optionalKey(s string) (*key.Key, error) {
	if s == "" {
		return nil, nil
	}
	k, err := key.Parse(s)
	if err != nil {
		return nil, err
	}
	return &k, nil
}
