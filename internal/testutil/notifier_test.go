package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dpshade/permahub/internal/event"
)

func TestRecordingNotifier(t *testing.T) {
	var n RecordingNotifier
	recipients := []string{"alice", "bob"}
	n.Notify(recipients, event.Event{ID: "e1"})
	recipients[0] = "mallory"

	calls := n.Calls()
	assert.Equal(t, []Notification{{EventID: "e1", Recipients: []string{"alice", "bob"}}}, calls)

	n.Reset()
	assert.Empty(t, n.Calls())
}
