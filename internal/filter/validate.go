package filter

import (
	"fmt"
	"strings"
)

// ValidationError describes one rejected field of one clause.
type ValidationError struct {
	Clause  int    `json:"clause"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Clause < 0 {
		return "filter set: " + e.Message
	}
	if e.Field == "" {
		return fmt.Sprintf("filter[%d]: %s", e.Clause, e.Message)
	}
	return fmt.Sprintf("filter[%d].%s: %s", e.Clause, e.Field, e.Message)
}

// ValidationErrors collects every problem found in a FilterSet.
type ValidationErrors []*ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return "invalid filter set: " + strings.Join(msgs, "; ")
}

// Validate checks the shape rules that apply before any limit clamping.
// It returns nil or a ValidationErrors.
func Validate(fs FilterSet) error {
	var errs ValidationErrors
	add := func(clause int, field, format string, args ...any) {
		errs = append(errs, &ValidationError{Clause: clause, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	for i, f := range fs {
		if f.Limit < 0 || f.Limit > MaxLimit {
			add(i, "limit", "must be between 1 and %d, got %d", MaxLimit, f.Limit)
		}
		if f.Since != nil && *f.Since < 0 {
			add(i, "since", "must not be negative")
		}
		if f.Until != nil && *f.Until < 0 {
			add(i, "until", "must not be negative")
		}
		for key := range f.Tags {
			if key == "" {
				add(i, "tags", "keys must not be empty")
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
