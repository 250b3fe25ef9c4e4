package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(n int) *int { return &n }

func TestRun_FollowUnfollowScenario(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "follow_unfollow.yaml"))
	require.NoError(t, err)

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
	require.Len(t, result.Trace, len(s.Steps))

	drop := result.Trace[6]
	assert.Equal(t, "dropped", drop.Decision)
	assert.Empty(t, drop.EventID, "dropped events get no id")

	unfollow := result.Trace[5]
	assert.Equal(t, int64(1), unfollow.Removed)
}

func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "reaction_toggle.yaml"))
	require.NoError(t, err)

	first, err := Run(context.Background(), s)
	require.NoError(t, err)
	second, err := Run(context.Background(), s)
	require.NoError(t, err)

	a, err := GoldenTrace(s, first)
	require.NoError(t, err)
	b, err := GoldenTrace(s, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	s := &Scenario{
		Name:        "mismatch",
		Description: "a stranger's note is dropped, not inserted",
		Hub:         "hub",
		Owner:       "owner",
		Steps: []Step{
			{From: "stranger", Event: &EventSpec{Kind: "1", Content: "hi"}, Expect: &Expect{Decision: "inserted"}},
		},
		Assertions: []Assertion{{Type: AssertFinalState, Count: intp(0)}},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `expected decision "inserted", got "dropped"`)
}

func TestRun_UnexpectedErrorFails(t *testing.T) {
	s := &Scenario{
		Name:        "unexpected",
		Description: "missing kind without an expect clause",
		Hub:         "hub",
		Owner:       "owner",
		Steps:       []Step{{From: "owner", Event: &EventSpec{}}},
		Assertions:  []Assertion{{Type: AssertFinalState, Count: intp(0)}},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "unexpected error INVALID_EVENT")
}

func TestRun_AssertionFailureReported(t *testing.T) {
	s := &Scenario{
		Name:        "graph",
		Description: "hub follows nobody",
		Hub:         "hub",
		Owner:       "owner",
		Steps:       []Step{{Fetch: []map[string]any{{}}, Expect: &Expect{Count: intp(0)}}},
		Assertions:  []Assertion{{Type: AssertGraph, FollowList: []string{"bob"}}},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: graph")
}

func TestRun_CustomHubIdentity(t *testing.T) {
	s := &Scenario{
		Name:        "custom",
		Description: "events from the hub identity are self events",
		Hub:         "h1",
		Owner:       "op",
		Steps: []Step{
			{From: "h1", Event: &EventSpec{Kind: "1", Content: "a"}, Expect: &Expect{Branch: "self_broadcast"}},
			{From: "op", Event: &EventSpec{Kind: "1", Content: "b"}, Expect: &Expect{Branch: "self_broadcast"}},
			{From: "hub", Event: &EventSpec{Kind: "1", Content: "c"}, Expect: &Expect{Branch: "drop"}},
		},
		Assertions: []Assertion{{Type: AssertTraceCount, From: "h1", Count: intp(2)}},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
}
