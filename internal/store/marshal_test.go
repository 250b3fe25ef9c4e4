package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpshade/permahub/internal/event"
)

func TestMarshalTags(t *testing.T) {
	data, err := MarshalTags([]event.Tag{{Name: "a", Value: "<1>"}})
	require.NoError(t, err)
	assert.JSONEq(t, `[["a","<1>"]]`, data)

	data, err = MarshalTags(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", data)
}

func TestUnmarshalTags(t *testing.T) {
	tags, err := UnmarshalTags(`[["a","1"],["b","2"]]`)
	require.NoError(t, err)
	assert.Equal(t, []event.Tag{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}}, tags)

	tags, err = UnmarshalTags(`[]`)
	require.NoError(t, err)
	assert.Nil(t, tags)

	_, err = UnmarshalTags(`{`)
	assert.Error(t, err)
}
