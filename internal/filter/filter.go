package filter

import (
	"encoding/json"
	"slices"
)

// Limit constants. The hub's default and hard cap are authoritative;
// MaxLimit is the widest limit a caller may request and is clamped to the
// hard cap when evaluated.
const (
	DefaultLimit = 50
	HardCap      = 500
	MaxLimit     = 1000
)

// Filter is one query clause.
type Filter struct {
	IDs     []string
	Authors []string
	Kinds   []string
	Since   *int64
	Until   *int64
	Tags    map[string][]string
	Search  string
	Limit   int
}

// FilterSet is an ordered list of clauses combined by sequential narrowing.
type FilterSet []Filter

// wireFilter mirrors Filter for decoding. Slices stay nil when the key is
// missing or null and non-nil when an empty array was sent.
type wireFilter struct {
	IDs     []string            `json:"ids"`
	Authors []string            `json:"authors"`
	Kinds   []string            `json:"kinds"`
	Since   *int64              `json:"since"`
	Until   *int64              `json:"until"`
	Tags    map[string][]string `json:"tags"`
	Search  string              `json:"search"`
	Limit   int                 `json:"limit"`
}

// MarshalJSON writes only the fields that are present, keeping a present
// empty list distinct from an absent one.
func (f Filter) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 8)
	if f.IDs != nil {
		out["ids"] = f.IDs
	}
	if f.Authors != nil {
		out["authors"] = f.Authors
	}
	if f.Kinds != nil {
		out["kinds"] = f.Kinds
	}
	if f.Since != nil {
		out["since"] = *f.Since
	}
	if f.Until != nil {
		out["until"] = *f.Until
	}
	if f.Tags != nil {
		out["tags"] = f.Tags
	}
	if f.Search != "" {
		out["search"] = f.Search
	}
	if f.Limit != 0 {
		out["limit"] = f.Limit
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the wire shape.
func (f *Filter) UnmarshalJSON(data []byte) error {
	var w wireFilter
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*f = Filter(w)
	return nil
}

// Int64 returns a pointer to v, for Since and Until literals.
func Int64(v int64) *int64 {
	return &v
}

// Clone returns a deep copy of f.
func (f Filter) Clone() Filter {
	c := Filter{
		IDs:     slices.Clone(f.IDs),
		Authors: slices.Clone(f.Authors),
		Kinds:   slices.Clone(f.Kinds),
		Search:  f.Search,
		Limit:   f.Limit,
	}
	if f.Since != nil {
		c.Since = Int64(*f.Since)
	}
	if f.Until != nil {
		c.Until = Int64(*f.Until)
	}
	if f.Tags != nil {
		c.Tags = make(map[string][]string, len(f.Tags))
		for k, v := range f.Tags {
			c.Tags[k] = slices.Clone(v)
		}
	}
	return c
}
