package harness

import "github.com/roach88/wishrank/internal/item"

// TraceEvent records one executed step and what it produced.
type TraceEvent struct {
	Seq     int    `json:"seq"`
	Do      string `json:"do"`
	Args    string `json:"args,omitempty"`
	Outcome string `json:"outcome"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains every flow step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Initial is the live list after setup, top to bottom.
	Initial []item.Item `json:"initial"`

	// Final is the live list after the flow, top to bottom.
	Final []item.Item `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(do, args, outcome string) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:     len(r.Trace) + 1,
		Do:      do,
		Args:    args,
		Outcome: outcome,
	})
}
