package client

import (
	"errors"
	"fmt"

	"github.com/dpshade/permahub/internal/event"
	"github.com/dpshade/permahub/internal/filter"
)

// Status says where a Result's events came from.
type Status string

const (
	// StatusOK: events are the hub's answer.
	StatusOK Status = "ok"
	// StatusFallback: the hub was unreachable; events come from the local
	// cache, evaluated with the hub's algorithm.
	StatusFallback Status = "fallback"
	// StatusUnconfirmed: the hub was unreachable and nothing was cached.
	StatusUnconfirmed Status = "unconfirmed"
	// StatusInvalid: the filters failed validation and were not sent.
	StatusInvalid Status = "invalid"
)

// Result is the outcome of a query.
type Result struct {
	Status Status        `json:"status"`
	Events []event.Event `json:"events"`
	// Attempted is the filter set that was (or would have been) sent.
	Attempted filter.FilterSet `json:"attempted"`
	// Err is the validation or transport error, nil for StatusOK.
	Err error `json:"-"`
}

// Confirmed reports whether the hub answered.
func (r Result) Confirmed() bool {
	return r.Status == StatusOK
}

// ErrNotFound is returned by Get when no event has the id.
var ErrNotFound = errors.New("client: event not found")

// UnconfirmedError is returned by Get when the hub could not be asked.
type UnconfirmedError struct {
	Attempted filter.FilterSet
	Err       error
}

func (e *UnconfirmedError) Error() string {
	return fmt.Sprintf("client: hub unreachable, query unconfirmed: %v", e.Err)
}

func (e *UnconfirmedError) Unwrap() error {
	return e.Err
}
