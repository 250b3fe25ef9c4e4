package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dpshade/permahub/internal/event"
)

// Scenario is one acceptance test: a sequence of publishes and queries
// against a fresh hub, followed by assertions on the trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Hub is the hub identity. Defaults to "hub".
	Hub string `yaml:"hub,omitempty"`

	// Owner is the operator identity whose events count as the hub's own.
	// Defaults to "owner".
	Owner string `yaml:"owner,omitempty"`

	// Limits overrides the hub's query limits.
	Limits *LimitsSpec `yaml:"limits,omitempty"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions"`
}

// LimitsSpec mirrors filter.Limits. Zero fields keep the defaults.
type LimitsSpec struct {
	Default int `yaml:"default"`
	HardCap int `yaml:"hard_cap"`
}

// Step is either an event publish (Event set) or a query (Fetch set).
type Step struct {
	Name string `yaml:"name,omitempty"`

	// From is the message sender for event steps.
	From string `yaml:"from,omitempty"`

	Event *EventSpec `yaml:"event,omitempty"`

	// Fetch is a raw filter set, validated exactly as the hub validates
	// wire queries.
	Fetch []map[string]any `yaml:"fetch,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// EventSpec is the YAML form of an event. P is a plain list here and is
// JSON-encoded on the way in.
type EventSpec struct {
	ID      string     `yaml:"id,omitempty"`
	From    string     `yaml:"from,omitempty"`
	Kind    string     `yaml:"kind"`
	Content string     `yaml:"content,omitempty"`
	E       string     `yaml:"e,omitempty"`
	P       []string   `yaml:"p,omitempty"`
	Marker  string     `yaml:"marker,omitempty"`
	Tags    [][]string `yaml:"tags,omitempty"`
}

// Expect checks one step. Empty fields are not checked.
type Expect struct {
	Decision string `yaml:"decision,omitempty"`
	Branch   string `yaml:"branch,omitempty"`

	// Recipients is compared exactly, order included, when present.
	Recipients []string `yaml:"recipients,omitempty"`

	// Error is the expected error code, e.g. INVALID_EVENT or INVALID_FILTER.
	Error string `yaml:"error,omitempty"`

	// IDs is the exact, ordered result of a fetch step.
	IDs []string `yaml:"ids,omitempty"`

	// Count is the number of events a fetch step returns.
	Count *int `yaml:"count,omitempty"`
}

// Assertion validates the final trace or hub state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Branch, Decision and From select trace events (trace_contains,
	// trace_count).
	Branch   string `yaml:"branch,omitempty"`
	Decision string `yaml:"decision,omitempty"`
	From     string `yaml:"from,omitempty"`

	// Count is the expected number of matching trace events (trace_count)
	// or stored events (final_state).
	Count *int `yaml:"count,omitempty"`

	// Branches is the expected relative order (trace_order).
	Branches []string `yaml:"branches,omitempty"`

	// FollowList and Followers are compared exactly (graph). A missing key
	// is not checked; an empty list expects an empty graph side.
	FollowList []string `yaml:"follow_list,omitempty"`
	Followers  []string `yaml:"followers,omitempty"`

	// Filter selects stored events (final_state). Missing means everything
	// up to the hard cap.
	Filter []map[string]any `yaml:"filter,omitempty"`

	// IDs is the exact, ordered expected result (final_state).
	IDs []string `yaml:"ids,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertGraph         = "graph"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML and validates it.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	scenario.applyDefaults()
	return &scenario, nil
}

func (s *Scenario) applyDefaults() {
	if s.Hub == "" {
		s.Hub = "hub"
	}
	if s.Owner == "" {
		s.Owner = "owner"
	}
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step) error {
	switch {
	case step.Event != nil && step.Fetch != nil:
		return fmt.Errorf("steps[%d]: event and fetch are mutually exclusive", index)
	case step.Event != nil:
		if step.From == "" {
			return fmt.Errorf("steps[%d]: from is required for event steps", index)
		}
		for j, tag := range step.Event.Tags {
			if len(tag) != 2 {
				return fmt.Errorf("steps[%d].event.tags[%d]: want [name, value], got %d elements", index, j, len(tag))
			}
		}
	case step.Fetch != nil:
		if step.From != "" {
			return fmt.Errorf("steps[%d]: from is only valid on event steps", index)
		}
	default:
		return fmt.Errorf("steps[%d]: one of event or fetch is required", index)
	}

	if step.Expect != nil && step.Event != nil && (step.Expect.IDs != nil || step.Expect.Count != nil) {
		return fmt.Errorf("steps[%d].expect: ids and count apply to fetch steps only", index)
	}
	if step.Expect != nil && step.Fetch != nil && (step.Expect.Decision != "" || step.Expect.Branch != "" || step.Expect.Recipients != nil) {
		return fmt.Errorf("steps[%d].expect: decision, branch and recipients apply to event steps only", index)
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Branch == "" && a.Decision == "" {
			return fmt.Errorf("assertions[%d]: branch or decision is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Branches) == 0 {
			return fmt.Errorf("assertions[%d]: branches list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Branch == "" && a.Decision == "" {
			return fmt.Errorf("assertions[%d]: branch or decision is required for trace_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for trace_count", index)
		}
	case AssertGraph:
		if a.FollowList == nil && a.Followers == nil {
			return fmt.Errorf("assertions[%d]: follow_list or followers is required for graph", index)
		}
	case AssertFinalState:
		if a.IDs == nil && a.Count == nil {
			return fmt.Errorf("assertions[%d]: ids or count is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// toEvent converts the YAML form to an event. From falls back to the
// step sender, as the hub does for message senders.
func (s EventSpec) toEvent(sender string) (event.Event, error) {
	e := event.Event{
		ID:      s.ID,
		From:    s.From,
		Kind:    s.Kind,
		Content: s.Content,
		E:       s.E,
		Marker:  s.Marker,
	}
	if e.From == "" {
		e.From = sender
	}
	if s.P != nil {
		p, err := json.Marshal(s.P)
		if err != nil {
			return event.Event{}, fmt.Errorf("encode p: %w", err)
		}
		e.P = string(p)
	}
	for _, tag := range s.Tags {
		e.Tags = append(e.Tags, event.Tag{Name: tag[0], Value: tag[1]})
	}
	return e, nil
}
