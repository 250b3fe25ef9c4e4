package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/dpshade/permahub/internal/event"
)

// GoldenDir is where golden traces live, relative to the test package.
const GoldenDir = "testdata/golden"

// TraceSnapshot captures the complete trace for a scenario execution.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Hub          string       `json:"hub"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to the generic shape
// event.MarshalCanonical accepts.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"step": ev.Step,
			"type": ev.Type,
		}
		if ev.Error != "" {
			m["error"] = ev.Error
		}
		switch ev.Type {
		case TracePublish:
			m["from"] = ev.From
			if ev.Kind != "" {
				m["kind"] = ev.Kind
			}
			if ev.Error == "" {
				m["decision"] = ev.Decision
				m["branch"] = ev.Branch
				m["recipients"] = nonNil(ev.Recipients)
			}
			if ev.EventID != "" {
				m["event_id"] = ev.EventID
				m["timestamp"] = ev.Timestamp
			}
			if ev.Removed > 0 {
				m["removed"] = ev.Removed
			}
		case TraceFetch:
			if ev.Error == "" {
				m["results"] = nonNil(ev.Results)
			}
		}
		traceList[i] = m
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"hub":           s.Hub,
		"trace":         traceList,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// GoldenTrace renders a result's trace as canonical JSON, the exact bytes
// stored in golden files.
func GoldenTrace(scenario *Scenario, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		Hub:          scenario.Hub,
		Trace:        result.Trace,
	}
	return event.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// The returned result lets the caller check Pass and Errors as well.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against its golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	traceJSON, err := GoldenTrace(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)
	return nil
}
