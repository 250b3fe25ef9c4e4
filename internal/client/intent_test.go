package client

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dpshade/permahub/internal/filter"
)

func TestLooksLikeID(t *testing.T) {
	assert.True(t, LooksLikeID("0190a5b2-7c4e-7d3a-9f00-1234567890ab"))
	assert.True(t, LooksLikeID("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNO_-"))
	assert.False(t, LooksLikeID("my tasks"))
	assert.False(t, LooksLikeID("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNO_"))
}

func TestDetectCategory(t *testing.T) {
	tests := []struct {
		query string
		want  string
		ok    bool
	}{
		{"open tasks for today", "task", true},
		{"Contacts at work", "contact", true},
		{"my tasks and my profile", "profile", true},
		{"deployment workflow", "process", true},
		{"taskmaster", "", false},
		{"weather tomorrow", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, ok := DetectCategory(tt.query)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildFilters(t *testing.T) {
	const uuid = "0190a5b2-7c4e-7d3a-9f00-1234567890ab"
	tests := []struct {
		name   string
		intent Intent
		want   filter.FilterSet
	}{
		{
			name:   "explicit id",
			intent: Intent{ID: "evt-9", Query: "ignored", Kinds: []string{"1"}},
			want:   filter.FilterSet{{IDs: []string{"evt-9"}, Kinds: []string{"1"}, Limit: 1}},
		},
		{
			name:   "query shaped like an id",
			intent: Intent{Query: " " + uuid + " "},
			want:   filter.FilterSet{{IDs: []string{uuid}, Limit: 1}},
		},
		{
			name:   "category",
			intent: Intent{Query: "my preferences", Limit: 5},
			want:   filter.FilterSet{{Tags: map[string][]string{"category": {"preference"}}, Limit: 5}},
		},
		{
			name:   "free text",
			intent: Intent{Query: "coffee", Kinds: []string{"1"}},
			want:   filter.FilterSet{{Kinds: []string{"1"}, Search: "coffee", Limit: 100}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildFilters(tt.intent, DefaultLimit))
		})
	}
}
