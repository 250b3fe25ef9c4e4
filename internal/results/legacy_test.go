package results

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpshade/permahub/internal/filter"
)

func decodeLegacy(t *testing.T, data string) []LegacyFilter {
	t.Helper()
	var out []LegacyFilter
	require.NoError(t, json.Unmarshal([]byte(data), &out))
	return out
}

func TestMergeLegacy_UnionsKindsAndLastSearchWins(t *testing.T) {
	merged := MergeLegacy(decodeLegacy(t, `[{"kinds":["10"]},{"kinds":["11"],"search":"x"}]`))
	assert.Equal(t, filter.Filter{Kinds: []string{"10", "11"}, Search: "x"}, merged)
}

func TestMergeLegacy_AllFields(t *testing.T) {
	merged := MergeLegacy(decodeLegacy(t, `[
		{"ids":["a","b"],"tags":{"category":["task"],"x":["1"]},"since":10,"until":500,"limit":20,"search":"first"},
		{"id":"b","author":"alice","tags":{"x":["2"]},"since":30,"until":400,"search":""},
		{"ids":["c"],"kind":7,"limit":5}
	]`))

	assert.Equal(t, []string{"a", "b", "c"}, merged.IDs)
	assert.Equal(t, []string{"alice"}, merged.Authors)
	assert.Equal(t, []string{"7"}, merged.Kinds)
	assert.Equal(t, map[string][]string{"category": {"task"}, "x": {"2"}}, merged.Tags)
	assert.Equal(t, "first", merged.Search)
	assert.Equal(t, int64(30), *merged.Since)
	assert.Equal(t, int64(400), *merged.Until)
	assert.Equal(t, 5, merged.Limit)
}

func TestMergeLegacy_AbsentStaysAbsent(t *testing.T) {
	merged := MergeLegacy(decodeLegacy(t, `[{"search":"x"},{}]`))
	assert.Nil(t, merged.IDs)
	assert.Nil(t, merged.Kinds)
	assert.Nil(t, merged.Tags)
	assert.Nil(t, merged.Since)

	assert.Equal(t, filter.Filter{}, MergeLegacy(nil))
}

func TestLegacyFilter_NumericKinds(t *testing.T) {
	got := decodeLegacy(t, `[{"kinds":[1,"3",7]}]`)
	assert.Equal(t, []string{"1", "3", "7"}, got[0].Kinds)
}

func TestLegacyFilter_RejectsBadKind(t *testing.T) {
	var l LegacyFilter
	assert.Error(t, json.Unmarshal([]byte(`{"kinds":[true]}`), &l))
}
