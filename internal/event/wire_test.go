package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshal_PublishShape(t *testing.T) {
	data := `{
		"from": "alice",
		"kind": "7",
		"content": "+",
		"tags": [["client", "cli"], ["topic", "go"]],
		"e": "evt-9",
		"p": ["bob", "carol"],
		"marker": "x"
	}`

	var e Event
	require.NoError(t, json.Unmarshal([]byte(data), &e))

	assert.Equal(t, "alice", e.From)
	assert.Equal(t, KindReaction, e.Kind)
	assert.Equal(t, "+", e.Content)
	assert.Equal(t, []Tag{{"client", "cli"}, {"topic", "go"}}, e.Tags)
	assert.Equal(t, "evt-9", e.E)
	assert.Equal(t, `["bob","carol"]`, e.P)
	assert.Equal(t, []string{"bob", "carol"}, e.Participants())
	assert.Equal(t, "x", e.Marker)
}

func TestUnmarshal_CapitalizedShape(t *testing.T) {
	data := `{
		"Id": "evt-1",
		"From": "hub",
		"Kind": 3,
		"Content": "hello",
		"Timestamp": "1700000000000",
		"Tags": [{"name": "a", "value": "1"}, {"Name": "b", "Value": "2"}],
		"p": "[\"bob\"]",
		"Original-Id": "msg-1"
	}`

	var e Event
	require.NoError(t, json.Unmarshal([]byte(data), &e))

	assert.Equal(t, "evt-1", e.ID)
	assert.Equal(t, "hub", e.From)
	assert.Equal(t, KindFollow, e.Kind)
	assert.Equal(t, int64(1700000000000), e.Timestamp)
	assert.Equal(t, []Tag{{"a", "1"}, {"b", "2"}}, e.Tags)
	assert.Equal(t, `["bob"]`, e.P)
	assert.Equal(t, "msg-1", e.OriginalID)
}

func TestUnmarshal_FlattenedExtrasBecomeTags(t *testing.T) {
	data := `{"Id": "evt-1", "Kind": "10", "zeta": "z", "category": "task", "nested": {"x": 1}}`

	var e Event
	require.NoError(t, json.Unmarshal([]byte(data), &e))

	assert.Equal(t, []Tag{{"category", "task"}, {"zeta", "z"}}, e.Tags)
}

func TestUnmarshal_LowerCaseSpellingWins(t *testing.T) {
	data := `{"From": "mallory", "from": "alice", "ID": "x", "Id": "y", "kind": "1", "Kind": "7"}`

	// Map iteration order varies between runs, so decode repeatedly.
	for range 20 {
		var e Event
		require.NoError(t, json.Unmarshal([]byte(data), &e))
		assert.Equal(t, "alice", e.From)
		assert.Equal(t, "x", e.ID, "byte order picks ID over Id")
		assert.Equal(t, "1", e.Kind)
	}
}

func TestUnmarshal_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not an object", `[]`},
		{"tags not array", `{"tags": "x"}`},
		{"tag element scalar", `{"tags": [1]}`},
		{"timestamp not integer", `{"timestamp": "soon"}`},
		{"kind object", `{"kind": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e Event
			assert.Error(t, json.Unmarshal([]byte(tt.data), &e))
		})
	}
}

func TestMarshal_CanonicalShapeRoundTrip(t *testing.T) {
	e := Event{
		ID:         "evt-1",
		From:       "hub",
		Kind:       KindNote,
		Content:    "hi",
		Tags:       []Tag{{"t", "v"}},
		Timestamp:  42,
		OriginalID: "msg-1",
	}

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"evt-1","from":"hub","kind":"1","content":"hi","tags":[["t","v"]],"timestamp":42,"originalId":"msg-1"}`, string(data))

	var back Event
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, e, back)
}

func TestFlatten(t *testing.T) {
	e := Event{
		ID:        "evt-1",
		From:      "hub",
		Kind:      "10",
		Timestamp: 5,
		Tags:      []Tag{{"category", "task"}, {"category", "other"}, {"From", "shadow"}},
	}

	flat := e.Flatten()
	assert.Equal(t, "evt-1", flat["Id"])
	assert.Equal(t, "hub", flat["From"])
	assert.Equal(t, "task", flat["category"])
	assert.NotContains(t, flat, "Content")

	data, err := json.Marshal(flat)
	require.NoError(t, err)
	var back Event
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, e, back)
}
