package testutil

import (
	"slices"
	"sync"

	"github.com/dpshade/permahub/internal/event"
)

// Notification is one recorded fan-out call.
type Notification struct {
	EventID    string   `json:"event_id"`
	Recipients []string `json:"recipients"`
}

// RecordingNotifier captures fan-out calls instead of delivering them.
type RecordingNotifier struct {
	mu    sync.Mutex
	calls []Notification
}

// Notify records the call.
func (n *RecordingNotifier) Notify(recipients []string, e event.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, Notification{EventID: e.ID, Recipients: slices.Clone(recipients)})
}

// Calls returns a copy of every recorded call in order.
func (n *RecordingNotifier) Calls() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.calls)
}

// Reset forgets recorded calls.
func (n *RecordingNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = nil
}
