package filter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpshade/permahub/internal/event"
)

func sampleEvents() []event.Event {
	return []event.Event{
		{ID: "a", From: "alice", Kind: "1", Timestamp: 100, Tags: []event.Tag{{Name: "category", Value: "task"}, {Name: "title", Value: "Buy Milk"}}},
		{ID: "b", From: "bob", Kind: "1", Timestamp: 300, Tags: []event.Tag{{Name: "category", Value: "knowledge"}}},
		{ID: "c", From: "alice", Kind: "7", Timestamp: 200, E: "a", Content: "+", P: `["bob"]`},
		{ID: "d", From: "carol", Kind: "10", Timestamp: 300, Tags: []event.Tag{{Name: "note", Value: "ÜBER milk"}}},
		{ID: "e", From: "bob", Kind: "10", Timestamp: 50, Marker: "reply"},
	}
}

func ids(events []event.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestEvaluate_Clauses(t *testing.T) {
	tests := []struct {
		name string
		fs   FilterSet
		want []string
	}{
		{"empty set returns all sorted", FilterSet{}, []string{"b", "d", "c", "a", "e"}},
		{"ids", FilterSet{{IDs: []string{"a", "e", "zz"}}}, []string{"a", "e"}},
		{"authors", FilterSet{{Authors: []string{"alice"}}}, []string{"c", "a"}},
		{"kinds OR within clause", FilterSet{{Kinds: []string{"7", "10"}}}, []string{"d", "c", "e"}},
		{"since is strict", FilterSet{{Since: Int64(200)}}, []string{"b", "d"}},
		{"until is strict", FilterSet{{Until: Int64(200)}}, []string{"a", "e"}},
		{"since and until", FilterSet{{Since: Int64(50), Until: Int64(300)}}, []string{"c", "a"}},
		{"tags match tag field", FilterSet{{Tags: map[string][]string{"category": {"task", "other"}}}}, []string{"a"}},
		{"tags match well-known field", FilterSet{{Tags: map[string][]string{"marker": {"reply"}}}}, []string{"e"}},
		{"tags every key must match", FilterSet{{Tags: map[string][]string{"from": {"alice"}, "kind": {"7"}}}}, []string{"c"}},
		{"tags unknown key fails closed", FilterSet{{Tags: map[string][]string{"nope": {""}}}}, []string{}},
		{"search case-insensitive over tag values", FilterSet{{Search: "MILK"}}, []string{"d", "a"}},
		{"search folds non-ascii", FilterSet{{Search: "über"}}, []string{"d"}},
		{"search ignores content", FilterSet{{Search: "+"}}, []string{}},
		{"present empty list matches nothing", FilterSet{{IDs: []string{}}}, []string{}},
		{"sequential AND", FilterSet{{Authors: []string{"bob", "alice"}}, {Kinds: []string{"1"}}}, []string{"b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.fs, sampleEvents(), DefaultLimits())
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestEvaluate_TiesBrokenByID(t *testing.T) {
	events := []event.Event{
		{ID: "z", Timestamp: 10},
		{ID: "m", Timestamp: 10},
		{ID: "a", Timestamp: 10},
	}
	assert.Equal(t, []string{"a", "m", "z"}, ids(Evaluate(nil, events, DefaultLimits())))
}

func TestEvaluate_DoesNotMutateInput(t *testing.T) {
	events := sampleEvents()
	before := ids(events)
	Evaluate(FilterSet{{Kinds: []string{"1"}}}, events, DefaultLimits())
	assert.Equal(t, before, ids(events))
}

func TestEvaluate_SequentialANDIsComposition(t *testing.T) {
	events := sampleEvents()
	a := Filter{Authors: []string{"alice", "bob"}}
	b := Filter{Since: Int64(60)}
	lim := Limits{Default: 1000, HardCap: 1000}

	both := Evaluate(FilterSet{a, b}, events, lim)
	composed := Evaluate(FilterSet{b}, Evaluate(FilterSet{a}, events, lim), lim)
	assert.Equal(t, ids(composed), ids(both))

	onlyA := ids(Evaluate(FilterSet{a}, events, lim))
	for _, id := range ids(both) {
		assert.Contains(t, onlyA, id)
	}
}

func TestEvaluate_SortedDescending(t *testing.T) {
	got := Evaluate(nil, sampleEvents(), DefaultLimits())
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Timestamp, got[i].Timestamp)
	}
}

func TestLimits_Effective(t *testing.T) {
	lim := DefaultLimits()
	tests := []struct {
		name string
		fs   FilterSet
		want int
	}{
		{"no clauses", nil, 50},
		{"no limit set", FilterSet{{}}, 50},
		{"single limit", FilterSet{{Limit: 5}}, 5},
		{"smallest wins", FilterSet{{Limit: 20}, {Limit: 7}, {}}, 7},
		{"capped", FilterSet{{Limit: 1000}}, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lim.Effective(tt.fs))
		})
	}
}

func TestEvaluate_Truncates(t *testing.T) {
	events := make([]event.Event, 0, 600)
	for i := range 600 {
		events = append(events, event.Event{ID: fmt.Sprintf("e%03d", i), Timestamp: int64(i)})
	}

	got := Evaluate(nil, events, DefaultLimits())
	require.Len(t, got, 50)
	assert.Equal(t, "e599", got[0].ID)

	got = Evaluate(FilterSet{{Limit: 1000}}, events, DefaultLimits())
	assert.Len(t, got, 500)

	got = Evaluate(FilterSet{{Limit: 3}}, events, DefaultLimits())
	assert.Equal(t, []string{"e599", "e598", "e597"}, ids(got))
}

func TestMatches(t *testing.T) {
	e := sampleEvents()[0]
	assert.True(t, Matches(Filter{}, e))
	assert.True(t, Matches(Filter{IDs: []string{"a"}, Kinds: []string{"1"}}, e))
	assert.False(t, Matches(Filter{IDs: []string{"a"}, Kinds: []string{"7"}}, e))
}
