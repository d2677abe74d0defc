package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/wishrank/internal/item"
	"github.com/roach88/wishrank/internal/key"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  %s\n", formatEvent(event))
	}
	return buf.String()
}

// assertFinalOrder checks the live titles from top to bottom.
func assertFinalOrder(result *Result, assertion Assertion) error {
	titles := titlesOf(result.Final)
	if slices.Equal(titles, assertion.Titles) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalOrder,
		Expected: fmt.Sprintf("%q", assertion.Titles),
		Actual:   fmt.Sprintf("%q", titles),
		Trace:    result.Trace,
	}
}

// assertFinalKey checks the key of the live item titled assertion.Title.
func assertFinalKey(result *Result, assertion Assertion) error {
	want := key.MustParse(assertion.Key)
	for _, it := range result.Final {
		if it.Title != assertion.Title {
			continue
		}
		if it.Key.Equal(want) {
			return nil
		}
		return &AssertionError{
			Type:     AssertFinalKey,
			Expected: fmt.Sprintf("%q at key %s", assertion.Title, want),
			Actual:   fmt.Sprintf("key %s", it.Key),
			Trace:    result.Trace,
		}
	}
	return &AssertionError{
		Type:     AssertFinalKey,
		Expected: fmt.Sprintf("%q at key %s", assertion.Title, want),
		Actual:   "no live item with that title",
		Trace:    result.Trace,
	}
}

// assertTraceCount checks how many times a step ran.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Do == assertion.Do {
			count++
		}
	}
	if count == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%s exactly %d times", assertion.Do, assertion.Count),
		Actual:   fmt.Sprintf("%d times", count),
		Trace:    trace,
	}
}

// assertTraceContains checks that some step of the given action produced
// an outcome containing assertion.Outcome.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Do == assertion.Do && strings.Contains(event.Outcome, assertion.Outcome) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s with outcome containing %q", assertion.Do, assertion.Outcome),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertFinalOrder:
			err = assertFinalOrder(result, a)
		case AssertFinalKey:
			err = assertFinalKey(result, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %s", i, err))
		}
	}
	return errs
}

func titlesOf(items []item.Item) []string {
	titles := make([]string, len(items))
	for i, it := range items {
		titles[i] = it.Title
	}
	return titles
}
