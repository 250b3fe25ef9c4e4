package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/dpshade/permahub/internal/engine"
	"github.com/dpshade/permahub/internal/event"
	"github.com/dpshade/permahub/internal/filter"
	"github.com/dpshade/permahub/internal/hub"
	"github.com/dpshade/permahub/internal/store"
	"github.com/dpshade/permahub/internal/testutil"
)

// ErrCodeInvalidFilter marks a fetch step whose filter failed validation.
const ErrCodeInvalidFilter = "INVALID_FILTER"

// Clock and id settings for every run. Golden files depend on them.
const (
	clockStart = 1000
	clockStep  = 1000
	idPrefix   = "evt"
)

// Harness executes one scenario against a running hub.
type Harness struct {
	hub    *hub.Hub
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
//  1. Create the store and start a hub with deterministic clock and ids
//  2. Execute steps in order, checking each expect clause
//  3. Evaluate assertions against the trace and final hub state
//  4. Stop the hub and return the result
//
// A returned error means the scenario could not run at all; expectation
// failures are reported through Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return RunWithLogger(ctx, scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with hub logging sent to logger.
func RunWithLogger(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	cfg := hub.Config{ID: scenario.Hub, Owner: scenario.Owner}
	if scenario.Limits != nil {
		cfg.Limits = filter.Limits{Default: scenario.Limits.Default, HardCap: scenario.Limits.HardCap}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	h, err := hub.New(runCtx, st, cfg, nil,
		hub.WithClock(testutil.NewDeterministicClockAt(clockStart, clockStep)),
		hub.WithIDGenerator(testutil.NewSequenceGenerator(idPrefix)),
		hub.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start hub: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Run(runCtx)
	}()
	defer func() {
		h.Stop()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			logger.Warn("hub did not stop in time", "scenario", scenario.Name)
		}
	}()

	hr := &Harness{hub: h, logger: logger}
	result := NewResult()
	if err := hr.executeSteps(runCtx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	actx := &AssertionContext{State: h, Ctx: runCtx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func (hr *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		var (
			ev  TraceEvent
			err error
		)
		if step.Event != nil {
			ev, err = hr.publish(ctx, i, step)
		} else {
			ev, err = hr.fetch(ctx, i, step)
		}
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		result.AddTrace(ev)

		for _, msg := range checkExpect(step, ev) {
			result.AddError(fmt.Sprintf("step %d (%s): %s", i, stepLabel(step), msg))
		}

		hr.logger.Info("step completed",
			"step", i,
			"type", ev.Type,
			"decision", ev.Decision,
			"branch", ev.Branch,
			"error", ev.Error,
		)
	}
	return nil
}

// publish submits one event. Engine rejections are recorded in the
// trace; anything else aborts the run.
func (hr *Harness) publish(ctx context.Context, index int, step Step) (TraceEvent, error) {
	evt, err := step.Event.toEvent(step.From)
	if err != nil {
		return TraceEvent{}, err
	}
	ev := TraceEvent{Step: index, Type: TracePublish, From: evt.From, Kind: evt.Kind}

	out, err := hr.hub.Submit(ctx, engine.Inbound{
		Event:     evt,
		MessageID: fmt.Sprintf("msg-%d", index+1),
	})
	if err != nil {
		var re *engine.RuntimeError
		if errors.As(err, &re) {
			ev.Error = string(re.Code)
			return ev, nil
		}
		return TraceEvent{}, err
	}

	ev.From = out.Event.From
	ev.Decision = string(out.Decision)
	ev.Branch = string(out.Branch)
	ev.Recipients = out.Recipients
	ev.Removed = out.Removed
	if out.Decision != engine.DecisionDropped {
		ev.EventID = out.Event.ID
		ev.Timestamp = out.Event.Timestamp
	}
	return ev, nil
}

func (hr *Harness) fetch(ctx context.Context, index int, step Step) (TraceEvent, error) {
	ev := TraceEvent{Step: index, Type: TraceFetch}
	events, err := fetchRaw(ctx, hr.hub, step.Fetch)
	if err != nil {
		if filter.IsValidation(err) {
			ev.Error = ErrCodeInvalidFilter
			return ev, nil
		}
		return TraceEvent{}, err
	}
	ev.Results = eventIDs(events)
	return ev, nil
}

// fetchRaw runs a YAML filter set through the same JSON parsing path the
// hub uses for wire queries.
func fetchRaw(ctx context.Context, state StateReader, raw []map[string]any) ([]event.Event, error) {
	if raw == nil {
		raw = []map[string]any{}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}
	fs, err := filter.ParseFilterSet(data)
	if err != nil {
		return nil, err
	}
	return state.Fetch(ctx, fs)
}

func checkExpect(step Step, ev TraceEvent) []string {
	exp := step.Expect
	if exp == nil {
		if ev.Error != "" {
			return []string{fmt.Sprintf("unexpected error %s", ev.Error)}
		}
		return nil
	}

	var msgs []string
	if exp.Error != ev.Error {
		msgs = append(msgs, fmt.Sprintf("expected error %q, got %q", exp.Error, ev.Error))
	}
	if exp.Decision != "" && exp.Decision != ev.Decision {
		msgs = append(msgs, fmt.Sprintf("expected decision %q, got %q", exp.Decision, ev.Decision))
	}
	if exp.Branch != "" && exp.Branch != ev.Branch {
		msgs = append(msgs, fmt.Sprintf("expected branch %q, got %q", exp.Branch, ev.Branch))
	}
	if exp.Recipients != nil && !slices.Equal(exp.Recipients, ev.Recipients) {
		msgs = append(msgs, fmt.Sprintf("expected recipients %v, got %v", exp.Recipients, ev.Recipients))
	}
	if exp.IDs != nil && !slices.Equal(exp.IDs, ev.Results) {
		msgs = append(msgs, fmt.Sprintf("expected ids %v, got %v", exp.IDs, ev.Results))
	}
	if exp.Count != nil && *exp.Count != len(ev.Results) {
		msgs = append(msgs, fmt.Sprintf("expected %d results, got %d", *exp.Count, len(ev.Results)))
	}
	return msgs
}

func stepLabel(step Step) string {
	if step.Name != "" {
		return step.Name
	}
	if step.Event != nil {
		return fmt.Sprintf("%s kind %s", step.From, step.Event.Kind)
	}
	return "fetch"
}

func eventIDs(events []event.Event) []string {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids
}
