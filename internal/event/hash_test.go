package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToggleKey(t *testing.T) {
	base := Event{ID: "evt-1", From: "alice", Kind: KindReaction, Content: "+", E: "evt-0", P: `["bob"]`, Timestamp: 1}

	t.Run("ignores id content and timestamp", func(t *testing.T) {
		other := base
		other.ID = "evt-2"
		other.Content = "-"
		other.Timestamp = 99
		assert.Equal(t, base.ToggleKey(), other.ToggleKey())
	})

	t.Run("differs per identifying field", func(t *testing.T) {
		for _, mutate := range []func(*Event){
			func(e *Event) { e.From = "carol" },
			func(e *Event) { e.Kind = KindNote },
			func(e *Event) { e.E = "evt-x" },
			func(e *Event) { e.P = `["dave"]` },
		} {
			other := base
			mutate(&other)
			assert.NotEqual(t, base.ToggleKey(), other.ToggleKey())
		}
	})

	t.Run("field boundaries are unambiguous", func(t *testing.T) {
		a := Event{From: "ab", Kind: "c"}
		b := Event{From: "a", Kind: "bc"}
		assert.NotEqual(t, a.ToggleKey(), b.ToggleKey())
	})

	t.Run("hex encoded 32 bytes", func(t *testing.T) {
		assert.Len(t, base.ToggleKey(), 64)
	})
}
