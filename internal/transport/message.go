package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Actions understood by a hub.
const (
	ActionEvent       = "Event"
	ActionFetchEvents = "FetchEvents"
	ActionInfo        = "Info"
)

// Response statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ErrUnknownTarget is returned when no route exists for a message target.
var ErrUnknownTarget = errors.New("transport: unknown target")

// Message is one signed request.
type Message struct {
	ID        string          `json:"id"`
	Target    string          `json:"target"`
	From      string          `json:"from"`
	Action    string          `json:"action"`
	Data      json.RawMessage `json:"data,omitempty"`
	Signature string          `json:"signature,omitempty"`
}

// NewMessage builds an unsigned message with a fresh id and data encoded
// as JSON. A nil data leaves Data empty.
func NewMessage(target, from, action string, data any) (Message, error) {
	m := Message{ID: uuid.NewString(), Target: target, From: from, Action: action}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Message{}, fmt.Errorf("encode %s data: %w", action, err)
		}
		m.Data = raw
	}
	return m, nil
}

// Response answers a Request.
type Response struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// OK encodes data into a successful response.
func OK(data any) Response {
	if data == nil {
		return Response{Status: StatusOK}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Fail(fmt.Errorf("encode response: %w", err))
	}
	return Response{Status: StatusOK, Data: raw}
}

// Fail wraps err into an error response.
func Fail(err error) Response {
	return Response{Status: StatusError, Error: err.Error()}
}

// RemoteError is an error reported by the far side.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "remote: " + e.Message
}

// Decode checks the status and unmarshals Data into v. A nil v only
// checks the status.
func (r Response) Decode(v any) error {
	if r.Status != StatusOK {
		msg := r.Error
		if msg == "" {
			msg = "status " + r.Status
		}
		return &RemoteError{Message: msg}
	}
	if v == nil || len(r.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Handler processes one inbound message.
type Handler interface {
	HandleMessage(ctx context.Context, m Message) Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, m Message) Response

func (f HandlerFunc) HandleMessage(ctx context.Context, m Message) Response {
	return f(ctx, m)
}

// Sender delivers a message without waiting for a reply body.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Requester delivers a message and returns the reply.
type Requester interface {
	Request(ctx context.Context, m Message) (Response, error)
}

// Conn is both a Sender and a Requester.
type Conn interface {
	Sender
	Requester
}
