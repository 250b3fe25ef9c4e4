package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dpshade/permahub/internal/engine"
	"github.com/dpshade/permahub/internal/event"
	"github.com/dpshade/permahub/internal/filter"
)

// StateReader is the read side of a hub that state assertions query.
type StateReader interface {
	Graph(ctx context.Context) (engine.Graph, error)
	Fetch(ctx context.Context, fs filter.FilterSet) ([]event.Event, error)
}

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
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

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			switch {
			case ev.Type == TraceFetch:
				fmt.Fprintf(&buf, "  [%d] fetch %v\n", ev.Step, ev.Results)
			case ev.Error != "":
				fmt.Fprintf(&buf, "  [%d] %s kind %s: %s\n", ev.Step, ev.From, ev.Kind, ev.Error)
			default:
				fmt.Fprintf(&buf, "  [%d] %s kind %s: %s/%s\n", ev.Step, ev.From, ev.Kind, ev.Branch, ev.Decision)
			}
		}
	}

	return buf.String()
}

// matches reports whether a publish trace event satisfies the selector
// fields of an assertion. Empty selectors match anything.
func matches(ev TraceEvent, a Assertion) bool {
	if ev.Type != TracePublish {
		return false
	}
	if a.Branch != "" && ev.Branch != a.Branch {
		return false
	}
	if a.Decision != "" && ev.Decision != a.Decision {
		return false
	}
	if a.From != "" && ev.From != a.From {
		return false
	}
	return true
}

func describe(a Assertion) string {
	var parts []string
	if a.Branch != "" {
		parts = append(parts, "branch="+a.Branch)
	}
	if a.Decision != "" {
		parts = append(parts, "decision="+a.Decision)
	}
	if a.From != "" {
		parts = append(parts, "from="+a.From)
	}
	return strings.Join(parts, " ")
}

// assertTraceContains checks that at least one event step matches.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if matches(ev, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("an event with %s", describe(a)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that branches appear in the given relative
// order. Intervening steps are allowed; each branch is matched at or
// after the previous match.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	pos := 0
	for _, want := range a.Branches {
		found := false
		for pos < len(trace) {
			ev := trace[pos]
			pos++
			if ev.Type == TracePublish && ev.Branch == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("branches in order: %v", a.Branches),
				Actual:   fmt.Sprintf("no %s after the previous match", want),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that exactly Count event steps match.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	if a.Count == nil {
		return fmt.Errorf("trace_count assertion requires count")
	}
	count := 0
	for _, ev := range trace {
		if matches(ev, a) {
			count++
		}
	}
	if count != *a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d events with %s", *a.Count, describe(a)),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertGraph compares the hub's follow graph. Each side is checked only
// when the assertion names it.
func assertGraph(ctx context.Context, state StateReader, a Assertion) error {
	g, err := state.Graph(ctx)
	if err != nil {
		return fmt.Errorf("graph assertion: %w", err)
	}
	if a.FollowList != nil && !slices.Equal(a.FollowList, g.FollowList) {
		return &AssertionError{
			Type:     AssertGraph,
			Expected: fmt.Sprintf("followList %v", a.FollowList),
			Actual:   fmt.Sprintf("followList %v", g.FollowList),
		}
	}
	if a.Followers != nil && !slices.Equal(a.Followers, g.Followers) {
		return &AssertionError{
			Type:     AssertGraph,
			Expected: fmt.Sprintf("followers %v", a.Followers),
			Actual:   fmt.Sprintf("followers %v", g.Followers),
		}
	}
	return nil
}

// assertFinalState queries stored events and checks ids and count.
func assertFinalState(ctx context.Context, state StateReader, a Assertion) error {
	raw := a.Filter
	if raw == nil {
		raw = []map[string]any{{"limit": filter.MaxLimit}}
	}
	events, err := fetchRaw(ctx, state, raw)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: "a valid query",
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	ids := eventIDs(events)

	if a.IDs != nil && !slices.Equal(a.IDs, ids) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("stored %v", a.IDs),
			Actual:   fmt.Sprintf("stored %v", ids),
		}
	}
	if a.Count != nil && *a.Count != len(ids) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%d stored events", *a.Count),
			Actual:   fmt.Sprintf("%d stored events %v", len(ids), ids),
		}
	}
	return nil
}

// AssertionContext provides hub access for state assertions.
type AssertionContext struct {
	State StateReader
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertGraph, AssertFinalState:
			if actx == nil || actx.State == nil {
				err = fmt.Errorf("assertion[%d]: %s requires hub state", i, assertion.Type)
			} else if assertion.Type == AssertGraph {
				err = assertGraph(actx.Ctx, actx.State, assertion)
			} else {
				err = assertFinalState(actx.Ctx, actx.State, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
