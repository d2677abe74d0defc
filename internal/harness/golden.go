package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/wishrank/internal/item"
)

// Snapshot renders a scenario run as stable text: the list before the flow,
// one line per step and the list after it. Timestamps are left out; ids
// and keys are deterministic under the harness.
func Snapshot(name string, result *Result) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario: %s\n", name)
	fmt.Fprintf(&buf, "setup:\n")
	writeItems(&buf, result.Initial)
	fmt.Fprintf(&buf, "flow:\n")
	for _, event := range result.Trace {
		fmt.Fprintf(&buf, "  %s\n", formatEvent(event))
	}
	fmt.Fprintf(&buf, "final:\n")
	writeItems(&buf, result.Final)
	return buf.Bytes()
}

func writeItems(buf *bytes.Buffer, items []item.Item) {
	if len(items) == 0 {
		buf.WriteString("  (empty)\n")
		return
	}
	for i, it := range items {
		fmt.Fprintf(buf, "  %d. %s %q %s\n", i+1, it.ID, it.Title, it.Key)
	}
}

func formatEvent(e TraceEvent) string {
	if e.Args == "" {
		return fmt.Sprintf("[%d] %s -> %s", e.Seq, e.Do, e.Outcome)
	}
	return fmt.Sprintf("[%d] %s %s -> %s", e.Seq, e.Do, e.Args, e.Outcome)
}

// RunWithGolden executes a scenario, fails the test on any expectation
// error and compares the rendered run against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	AssertGolden(t, scenario.Name, result)
	return nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Snapshot(scenarioName, result))
}
