package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/wishrank/internal/key"
)

// DefaultList is the list a scenario ranks into when it names none.
const DefaultList = "wishes"

// Scenario describes one ranking conversation: the list it starts from, the
// steps a user (and any concurrent writer) takes, and what must hold at the
// end.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// List is the list id. Empty means DefaultList.
	List string `yaml:"list,omitempty"`

	// Ordering overrides the engine's ordering parameters.
	Ordering Ordering `yaml:"ordering,omitempty"`

	// Setup creates items, top to bottom, before the flow starts.
	Setup []SetupItem `yaml:"setup,omitempty"`

	// Flow is the sequence of steps to execute.
	Flow []Step `yaml:"flow"`

	// Assertions validate the trace and the final list.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Ordering mirrors engine.Config with decimal strings.
type Ordering struct {
	Step          string `yaml:"step,omitempty"`
	Epsilon       string `yaml:"epsilon,omitempty"`
	AutoRebalance bool   `yaml:"auto_rebalance,omitempty"`
}

// SetupItem is an item that exists before the flow.
type SetupItem struct {
	Title string `yaml:"title"`
	// Key is optional; empty appends at the bottom.
	Key string `yaml:"key,omitempty"`
}

// Step is one action of the flow. Do selects the action; the other fields
// are its arguments.
type Step struct {
	// Do is one of the Do* constants.
	Do string `yaml:"do"`

	Title  string `yaml:"title,omitempty"`
	Key    string `yaml:"key,omitempty"`
	ID     string `yaml:"id,omitempty"`
	Choice string `yaml:"choice,omitempty"`
	Above  string `yaml:"above,omitempty"`
	Below  string `yaml:"below,omitempty"`
	Edge   string `yaml:"edge,omitempty"`

	// Expect is checked right after the step runs.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect checks the outcome of a single step. Unset fields are not checked.
type Expect struct {
	// State is the session state after the step.
	State string `yaml:"state,omitempty"`
	// Ask is the title of the item the session compares against next.
	Ask string `yaml:"ask,omitempty"`
	// Index is the chosen insertion index once the search is done.
	Index *int `yaml:"index,omitempty"`
	// Key is the key written by the step.
	Key string `yaml:"key,omitempty"`
	// Error is the engine error code the step must fail with.
	Error string `yaml:"error,omitempty"`
}

// Step actions.
const (
	DoBegin     = "begin"
	DoAnswer    = "answer"
	DoUndo      = "undo"
	DoCancel    = "cancel"
	DoFinalize  = "finalize"
	DoRestart   = "restart"
	DoManual    = "manual"
	DoCreate    = "create"
	DoMove      = "move"
	DoDelete    = "delete"
	DoRebalance = "rebalance"
)

// Assertion validates the trace or the final list.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_order": live titles from top to bottom equal Titles
	// - "final_key": the item titled Title has Key
	// - "trace_count": Do appears exactly Count times in the trace
	// - "trace_contains": some Do step produced an outcome containing Outcome
	Type string `yaml:"type"`

	Titles  []string `yaml:"titles,omitempty"`
	Title   string   `yaml:"title,omitempty"`
	Key     string   `yaml:"key,omitempty"`
	Do      string   `yaml:"do,omitempty"`
	Count   int      `yaml:"count,omitempty"`
	Outcome string   `yaml:"outcome,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalOrder    = "final_order"
	AssertFinalKey      = "final_key"
	AssertTraceCount    = "trace_count"
	AssertTraceContains = "trace_contains"
)

// ListID returns the list the scenario runs against.
func (s *Scenario) ListID() string {
	if s.List == "" {
		return DefaultList
	}
	return s.List
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for _, field := range []struct{ name, value string }{
		{"ordering.step", s.Ordering.Step},
		{"ordering.epsilon", s.Ordering.Epsilon},
	} {
		if field.value == "" {
			continue
		}
		if err := checkKey(field.value); err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
	}

	for i, it := range s.Setup {
		if it.Title == "" {
			return fmt.Errorf("setup[%d]: title is required", i)
		}
		if err := checkKey(it.Key); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	switch step.Do {
	case DoBegin, DoCreate:
		if step.Title == "" {
			return fmt.Errorf("title is required for %s", step.Do)
		}
	case DoAnswer:
		if step.Choice != "new" && step.Choice != "existing" {
			return fmt.Errorf("choice must be new or existing, got %q", step.Choice)
		}
	case DoMove:
		if step.ID == "" {
			return fmt.Errorf("id is required for move")
		}
		if step.Edge == "" && step.Above == "" && step.Below == "" {
			return fmt.Errorf("move needs edge, above or below")
		}
	case DoDelete:
		if step.ID == "" {
			return fmt.Errorf("id is required for delete")
		}
	case DoUndo, DoCancel, DoFinalize, DoRestart, DoManual, DoRebalance:
	case "":
		return fmt.Errorf("do is required")
	default:
		return fmt.Errorf("unknown action %q", step.Do)
	}
	return checkKey(step.Key)
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertFinalOrder:
	case AssertFinalKey:
		if a.Title == "" || a.Key == "" {
			return fmt.Errorf("title and key are required for final_key")
		}
		return checkKey(a.Key)
	case AssertTraceCount:
		if a.Do == "" {
			return fmt.Errorf("do is required for trace_count")
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for trace_count")
		}
	case AssertTraceContains:
		if a.Do == "" || a.Outcome == "" {
			return fmt.Errorf("do and outcome are required for trace_contains")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// checkKey accepts an empty string or a decimal key.
func checkKey(s string) error {
	if s == "" {
		return nil
	}
	_, err := key.Parse(s)
	return err
}
