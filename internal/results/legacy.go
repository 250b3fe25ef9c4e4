package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/dpshade/permahub/internal/filter"
)

// LegacyFilter is an older, looser filter object. It decodes kinds given
// as numbers or strings, a single "kind" and a single "id" or "author".
type LegacyFilter struct {
	IDs     []string
	Authors []string
	Kinds   []string
	Since   *int64
	Until   *int64
	Tags    map[string][]string
	Search  string
	Limit   int
}

type legacyWire struct {
	ID      string              `json:"id"`
	IDs     []string            `json:"ids"`
	Author  string              `json:"author"`
	Authors []string            `json:"authors"`
	Kind    json.RawMessage     `json:"kind"`
	Kinds   []json.RawMessage   `json:"kinds"`
	Since   *int64              `json:"since"`
	Until   *int64              `json:"until"`
	Tags    map[string][]string `json:"tags"`
	Search  string              `json:"search"`
	Limit   int                 `json:"limit"`
}

// UnmarshalJSON decodes every accepted legacy shape.
func (l *LegacyFilter) UnmarshalJSON(data []byte) error {
	var w legacyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("legacy filter: %w", err)
	}

	out := LegacyFilter{
		IDs:     w.IDs,
		Authors: w.Authors,
		Since:   w.Since,
		Until:   w.Until,
		Tags:    w.Tags,
		Search:  w.Search,
		Limit:   w.Limit,
	}
	if w.ID != "" {
		out.IDs = append(out.IDs, w.ID)
	}
	if w.Author != "" {
		out.Authors = append(out.Authors, w.Author)
	}
	if w.Kinds != nil {
		out.Kinds = make([]string, 0, len(w.Kinds))
		for _, raw := range w.Kinds {
			k, err := kindString(raw)
			if err != nil {
				return err
			}
			out.Kinds = append(out.Kinds, k)
		}
	}
	if len(w.Kind) > 0 && !bytes.Equal(w.Kind, []byte("null")) {
		k, err := kindString(w.Kind)
		if err != nil {
			return err
		}
		out.Kinds = append(out.Kinds, k)
	}

	*l = out
	return nil
}

// kindString accepts "7" or 7.
func kindString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("legacy filter: kind %s is neither string nor number", raw)
	}
	return n.String(), nil
}

// MergeLegacy folds legacy filters, in order, into one Filter. ids,
// authors and kinds are unioned in first-seen order; tags are merged
// with later keys overwriting; the last non-empty search wins; since
// takes the maximum, until the minimum and limit the last positive value.
func MergeLegacy(legacy []LegacyFilter) filter.Filter {
	var out filter.Filter
	for _, l := range legacy {
		out.IDs = unionInto(out.IDs, l.IDs)
		out.Authors = unionInto(out.Authors, l.Authors)
		out.Kinds = unionInto(out.Kinds, l.Kinds)

		if l.Tags != nil {
			if out.Tags == nil {
				out.Tags = make(map[string][]string, len(l.Tags))
			}
			for k, v := range l.Tags {
				out.Tags[k] = slices.Clone(v)
			}
		}
		if l.Search != "" {
			out.Search = l.Search
		}
		if l.Since != nil && (out.Since == nil || *l.Since > *out.Since) {
			out.Since = filter.Int64(*l.Since)
		}
		if l.Until != nil && (out.Until == nil || *l.Until < *out.Until) {
			out.Until = filter.Int64(*l.Until)
		}
		if l.Limit > 0 {
			out.Limit = l.Limit
		}
	}
	return out
}

// unionInto appends the members of add not already in dst. A nil add
// leaves dst untouched, so an absent field stays absent.
func unionInto(dst, add []string) []string {
	if add == nil {
		return dst
	}
	if dst == nil {
		dst = make([]string, 0, len(add))
	}
	for _, v := range add {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}

