package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dpshade/permahub/internal/filter"
)

func TestCompile_NoClauses(t *testing.T) {
	q := NewCompiler(SQLite).Compile(nil, filter.DefaultLimits())

	assert.Equal(t, "SELECT "+Columns+" FROM events ORDER BY timestamp DESC, id ASC COLLATE BINARY LIMIT ?", q.SQL)
	assert.Equal(t, []any{int64(50)}, q.Params)
	assert.True(t, q.Exact)
}

func TestCompile_ColumnFields(t *testing.T) {
	fs := filter.FilterSet{
		{Authors: []string{"alice", "bob"}, Since: filter.Int64(10), Limit: 5},
		{Kinds: []string{"1"}, Until: filter.Int64(99)},
	}
	q := NewCompiler(SQLite).Compile(fs, filter.DefaultLimits())

	assert.Contains(t, q.SQL, "WHERE author IN (?, ?) AND timestamp > ? AND kind IN (?) AND timestamp < ?")
	assert.NotContains(t, q.SQL, "alice")
	assert.Equal(t, []any{"alice", "bob", int64(10), "1", int64(99), int64(5)}, q.Params)
	assert.True(t, q.Exact)
}

func TestCompile_EmptyListNeverMatches(t *testing.T) {
	q := NewCompiler(SQLite).Compile(filter.FilterSet{{IDs: []string{}}}, filter.DefaultLimits())
	assert.Contains(t, q.SQL, "WHERE 0 = 1")
}

func TestCompile_TagsAndSearchAreNotPushedDown(t *testing.T) {
	fs := filter.FilterSet{
		{Kinds: []string{"10"}},
		{Tags: map[string][]string{"category": {"task"}}},
	}
	q := NewCompiler(SQLite).Compile(fs, filter.DefaultLimits())

	assert.False(t, q.Exact)
	assert.NotContains(t, q.SQL, "LIMIT")
	assert.NotContains(t, q.SQL, "category")
	assert.Equal(t, []any{"10"}, q.Params)

	q = NewCompiler(SQLite).Compile(filter.FilterSet{{Search: "milk"}}, filter.DefaultLimits())
	assert.False(t, q.Exact)
	assert.Empty(t, q.Params)
}

func TestCompile_PostgresPlaceholders(t *testing.T) {
	fs := filter.FilterSet{{IDs: []string{"a", "b"}, Since: filter.Int64(1)}}
	q := NewCompiler(Postgres).Compile(fs, filter.DefaultLimits())

	assert.Contains(t, q.SQL, "WHERE id IN ($1, $2) AND timestamp > $3")
	assert.Contains(t, q.SQL, `ORDER BY timestamp DESC, id COLLATE "C" ASC LIMIT $4`)
	assert.Equal(t, []any{"a", "b", int64(1), int64(50)}, q.Params)
}

func TestCompile_ZeroLimitsPushNoLimit(t *testing.T) {
	q := NewCompiler(SQLite).Compile(nil, filter.Limits{})
	assert.True(t, q.Exact)
	assert.NotContains(t, q.SQL, "LIMIT")
	assert.Empty(t, q.Params)
}
