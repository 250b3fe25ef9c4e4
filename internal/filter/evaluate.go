package filter

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/dpshade/permahub/internal/event"
)

// Limits bounds how many events an evaluation returns.
type Limits struct {
	Default int // used when no clause sets a limit
	HardCap int // ceiling applied to every evaluation
}

// DefaultLimits returns the hub's authoritative 50/500 pair.
func DefaultLimits() Limits {
	return Limits{Default: DefaultLimit, HardCap: HardCap}
}

// Effective returns the limit an evaluation of fs truncates to: the
// smallest positive clause limit, else the default, never above the cap.
func (l Limits) Effective(fs FilterSet) int {
	limit := 0
	for _, f := range fs {
		if f.Limit > 0 && (limit == 0 || f.Limit < limit) {
			limit = f.Limit
		}
	}
	if limit == 0 {
		limit = l.Default
	}
	if l.HardCap > 0 && (limit <= 0 || limit > l.HardCap) {
		limit = l.HardCap
	}
	return limit
}

// Evaluate narrows events through every clause of fs in order, sorts the
// survivors newest first and truncates them to lim.Effective(fs). The
// input slice is not modified.
func Evaluate(fs FilterSet, events []event.Event, lim Limits) []event.Event {
	out := Narrow(fs, events)
	Sort(out)
	if limit := lim.Effective(fs); limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Narrow applies the clauses of fs without sorting or limiting. It always
// returns a fresh slice.
func Narrow(fs FilterSet, events []event.Event) []event.Event {
	out := slices.Clone(events)
	if out == nil {
		out = []event.Event{}
	}
	for _, f := range fs {
		out = slices.DeleteFunc(out, func(e event.Event) bool {
			return !Matches(f, e)
		})
	}
	return out
}

// Matches reports whether e satisfies every present field of f.
func Matches(f Filter, e event.Event) bool {
	if f.IDs != nil && !slices.Contains(f.IDs, e.ID) {
		return false
	}
	if f.Authors != nil && !slices.Contains(f.Authors, e.From) {
		return false
	}
	if f.Kinds != nil && !slices.Contains(f.Kinds, e.Kind) {
		return false
	}
	if f.Since != nil && e.Timestamp <= *f.Since {
		return false
	}
	if f.Until != nil && e.Timestamp >= *f.Until {
		return false
	}
	for key, allowed := range f.Tags {
		v, ok := e.Field(key)
		if !ok || !slices.Contains(allowed, v) {
			return false
		}
	}
	if f.Search != "" && !searchTags(e, f.Search) {
		return false
	}
	return true
}

// searchTags reports whether any tag value contains needle under Unicode
// case folding.
func searchTags(e event.Event, needle string) bool {
	folder := cases.Fold()
	n := folder.String(needle)
	for _, t := range e.Tags {
		if strings.Contains(folder.String(t.Value), n) {
			return true
		}
	}
	return false
}

// Compare orders events newest first, ties broken by id ascending. It is
// the only ordering used for query results.
func Compare(a, b event.Event) int {
	if c := cmp.Compare(b.Timestamp, a.Timestamp); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// Sort orders events in place with Compare.
func Sort(events []event.Event) {
	slices.SortStableFunc(events, Compare)
}
