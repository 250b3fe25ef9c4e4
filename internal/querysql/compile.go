// Package querysql compiles a FilterSet into a parameterized candidate
// query against the events table.
//
// Only the column-backed fields (ids, authors, kinds, since, until) are
// pushed down. Tag and search predicates stay in filter.Evaluate, which is
// always re-applied to the candidates, so the SQL can only ever return a
// superset of the final answer.
package querysql

import (
	"fmt"
	"strings"

	"github.com/dpshade/permahub/internal/filter"
)

// Dialect selects placeholder and collation syntax.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// Columns is the projection every candidate query selects, in scan order.
const Columns = "id, author, kind, content, tags, timestamp, e, p, marker, original_id"

// Query is a compiled candidate query.
type Query struct {
	SQL    string
	Params []any
	// Exact is true when the SQL already applies every clause, so the
	// effective limit was pushed down as well.
	Exact bool
}

// Compiler compiles FilterSets for one dialect.
//
// CRITICAL: values are always parameterized, never interpolated.
// CRITICAL: every query carries the deterministic result order.
type Compiler struct {
	Dialect Dialect
	Table   string
}

// NewCompiler returns a compiler for the events table.
func NewCompiler(d Dialect) *Compiler {
	return &Compiler{Dialect: d, Table: "events"}
}

// Compile builds the candidate query for fs. lim decides the pushed-down
// LIMIT when the query is exact; a zero Limits pushes none.
func (c *Compiler) Compile(fs filter.FilterSet, lim filter.Limits) Query {
	b := &builder{dialect: c.Dialect}
	exact := true

	for _, f := range fs {
		b.in("id", f.IDs)
		b.in("author", f.Authors)
		b.in("kind", f.Kinds)
		if f.Since != nil {
			b.where("timestamp > " + b.param(*f.Since))
		}
		if f.Until != nil {
			b.where("timestamp < " + b.param(*f.Until))
		}
		if f.Tags != nil || f.Search != "" {
			exact = false
		}
	}

	var sql strings.Builder
	fmt.Fprintf(&sql, "SELECT %s FROM %s", Columns, c.Table)
	if len(b.conds) > 0 {
		sql.WriteString(" WHERE ")
		sql.WriteString(strings.Join(b.conds, " AND "))
	}
	sql.WriteString(" ORDER BY ")
	sql.WriteString(c.OrderBy())
	if n := lim.Effective(fs); exact && n > 0 {
		sql.WriteString(" LIMIT ")
		sql.WriteString(b.param(int64(n)))
	}

	return Query{SQL: sql.String(), Params: b.params, Exact: exact}
}

// OrderBy returns the result order matching filter.Compare.
func (c *Compiler) OrderBy() string {
	if c.Dialect == Postgres {
		return `timestamp DESC, id COLLATE "C" ASC`
	}
	return "timestamp DESC, id ASC COLLATE BINARY"
}

type builder struct {
	dialect Dialect
	conds   []string
	params  []any
}

func (b *builder) where(cond string) {
	b.conds = append(b.conds, cond)
}

func (b *builder) param(v any) string {
	b.params = append(b.params, v)
	if b.dialect == Postgres {
		return fmt.Sprintf("$%d", len(b.params))
	}
	return "?"
}

// in adds "col IN (...)". A present empty list can never match.
func (b *builder) in(col string, values []string) {
	if values == nil {
		return
	}
	if len(values) == 0 {
		b.where("0 = 1")
		return
	}
	ph := make([]string, len(values))
	for i, v := range values {
		ph[i] = b.param(v)
	}
	b.where(fmt.Sprintf("%s IN (%s)", col, strings.Join(ph, ", ")))
}
