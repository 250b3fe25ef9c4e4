package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int64", int64(-100), "-100"},
		{"int", 7, "7"},
		{"bool", true, "true"},
		{"string slice", []string{"a", "b"}, `["a","b"]`},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"html not escaped", "<a&b>", `"<a&b>"`},
		{"control escaped", "a\nb\x01", `"a\nb\u0001"`},
		{"line separator literal", "a\u2028b", "\"a\u2028b\""},
		{"quote and backslash", `"\`, `"\"\\"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"zebra": int64(1),
		"alpha": map[string]any{"b": int64(1), "a": int64(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":{"a":2,"b":1},"zebra":1}`, string(got))
}

func TestSortedKeys_UTF16Order(t *testing.T) {
	// U+1F600 encodes to a surrogate pair starting 0xD83D, which sorts
	// before U+FF21 in UTF-16 even though its UTF-8 bytes sort after.
	keys := SortedKeys(map[string]int{"Ａ": 1, "\U0001F600": 2, "a": 3})
	assert.Equal(t, []string{"a", "\U0001F600", "Ａ"}, keys)
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed := "e\u0301"
	got, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)

	_, err = MarshalCanonical(1.5)
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"x": struct{}{}})
	assert.Error(t, err)
}

func TestEventCanonical_OmitsAbsentFields(t *testing.T) {
	e := Event{ID: "evt-1", From: "hub", Kind: "1", Timestamp: 3, Tags: []Tag{{"k", "v"}}}
	got, err := e.Canonical()
	require.NoError(t, err)
	assert.Equal(t, `{"from":"hub","id":"evt-1","kind":"1","tags":[["k","v"]],"timestamp":3}`, string(got))
}
