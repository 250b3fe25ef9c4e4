package engine

import (
	"errors"
	"fmt"
)

// ErrStopped is returned by Submit once the engine has shut down.
var ErrStopped = errors.New("engine: stopped")

// RuntimeError is a failure while processing one inbound event. The run
// loop logs it, replies with it and moves on to the next event.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// EventID identifies the inbound event, when it had one.
	EventID string

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidEvent means the event lacks the fields every branch needs.
	ErrCodeInvalidEvent RuntimeErrorCode = "INVALID_EVENT"

	// ErrCodeStore means a store read or write failed.
	ErrCodeStore RuntimeErrorCode = "STORE_FAILURE"
)

func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.EventID != "" {
		msg += fmt.Sprintf(" (event=%s)", e.EventID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err is a store failure.
func IsStoreError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeStore
}

// IsInvalidEvent reports whether err rejected a malformed event.
func IsInvalidEvent(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeInvalidEvent
}

func storeError(op, eventID string, err error) *RuntimeError {
	return &RuntimeError{Code: ErrCodeStore, Message: op, EventID: eventID, Err: err}
}
