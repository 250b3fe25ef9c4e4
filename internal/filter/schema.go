package filter

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed filter.cue
var schemaSource []byte

// schema holds the compiled CUE definitions. cue values are not safe for
// concurrent use, so every check takes mu.
type schema struct {
	mu        sync.Mutex
	ctx       *cue.Context
	filterSet cue.Value
}

var (
	schemaOnce   sync.Once
	loadedSchema *schema
	schemaErr    error
)

func getSchema() (*schema, error) {
	schemaOnce.Do(func() {
		ctx := cuecontext.New()
		v := ctx.CompileBytes(schemaSource, cue.Filename("filter.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile filter schema: %w", err)
			return
		}
		loadedSchema = &schema{
			ctx:       ctx,
			filterSet: v.LookupPath(cue.ParsePath("#FilterSet")),
		}
	})
	return loadedSchema, schemaErr
}

// CheckSchema validates raw JSON against #FilterSet. A single object is
// treated as a one-clause set. Schema violations come back as
// ValidationErrors.
func CheckSchema(data []byte) error {
	s, err := getSchema()
	if err != nil {
		return err
	}
	data = asArray(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.ctx.CompileBytes(data, cue.Filename("filters.json"))
	if err := v.Err(); err != nil {
		return ValidationErrors{{Clause: -1, Message: "malformed JSON: " + firstLine(err)}}
	}
	if err := s.filterSet.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

// ParseFilterSet checks data against the schema, decodes it and applies
// Validate. Nothing is returned unless the whole set is valid.
func ParseFilterSet(data []byte) (FilterSet, error) {
	if err := CheckSchema(data); err != nil {
		return nil, err
	}
	var fs FilterSet
	if err := json.Unmarshal(asArray(data), &fs); err != nil {
		return nil, fmt.Errorf("decode filter set: %w", err)
	}
	if err := Validate(fs); err != nil {
		return nil, err
	}
	return fs, nil
}

func asArray(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		wrapped := make([]byte, 0, len(trimmed)+2)
		wrapped = append(wrapped, '[')
		wrapped = append(wrapped, trimmed...)
		return append(wrapped, ']')
	}
	return trimmed
}

// toValidationErrors maps CUE errors onto clause/field positions. Paths
// look like ["0", "limit"] or ["1", "tags", "category"].
func toValidationErrors(err error) ValidationErrors {
	var out ValidationErrors
	for _, e := range cueerrors.Errors(err) {
		ve := &ValidationError{Clause: -1}
		path := e.Path()
		if len(path) > 0 {
			if n, convErr := strconv.Atoi(path[0]); convErr == nil {
				ve.Clause = n
				path = path[1:]
			}
		}
		if len(path) > 0 {
			ve.Field = path[0]
		}
		format, args := e.Msg()
		ve.Message = fmt.Sprintf(format, args...)
		out = append(out, ve)
	}
	if len(out) == 0 {
		out = append(out, &ValidationError{Clause: -1, Message: err.Error()})
	}
	return out
}

func firstLine(err error) string {
	msg := err.Error()
	if i := bytes.IndexByte([]byte(msg), '\n'); i >= 0 {
		return msg[:i]
	}
	return msg
}

// IsValidation reports whether err is a filter validation failure.
func IsValidation(err error) bool {
	var es ValidationErrors
	var e *ValidationError
	return errors.As(err, &es) || errors.As(err, &e)
}
