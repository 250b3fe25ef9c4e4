package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterJSON_PresentVersusAbsent(t *testing.T) {
	var f Filter
	require.NoError(t, json.Unmarshal([]byte(`{"ids": [], "kinds": ["1"], "since": 0}`), &f))

	assert.NotNil(t, f.IDs)
	assert.Empty(t, f.IDs)
	assert.Nil(t, f.Authors)
	require.NotNil(t, f.Since)
	assert.Equal(t, int64(0), *f.Since)
	assert.Nil(t, f.Until)

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ids": [], "kinds": ["1"], "since": 0}`, string(data))
}

func TestFilterJSON_Full(t *testing.T) {
	f := Filter{
		Authors: []string{"alice"},
		Until:   Int64(9),
		Tags:    map[string][]string{"category": {"task"}},
		Search:  "milk",
		Limit:   10,
	}
	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"authors":["alice"],"until":9,"tags":{"category":["task"]},"search":"milk","limit":10}`, string(data))

	var back Filter
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, f, back)
}

func TestClone_IsDeep(t *testing.T) {
	f := Filter{IDs: []string{"a"}, Since: Int64(1), Tags: map[string][]string{"k": {"v"}}}
	c := f.Clone()
	c.IDs[0] = "b"
	*c.Since = 2
	c.Tags["k"][0] = "w"

	assert.Equal(t, "a", f.IDs[0])
	assert.Equal(t, int64(1), *f.Since)
	assert.Equal(t, "v", f.Tags["k"][0])
}
