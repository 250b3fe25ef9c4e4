package store

import (
	"path/filepath"
	"testing"

	"github.com/dpshade/permahub/internal/event"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEvent creates an event with the minimal fields set.
func createTestEvent(id, from, kind string, ts int64) event.Event {
	return event.Event{ID: id, From: from, Kind: kind, Timestamp: ts}
}
