package client

import (
	"sync"

	"github.com/dpshade/permahub/internal/event"
	"github.com/dpshade/permahub/internal/filter"
)

// Cache mirrors events the hub has returned, keyed by id.
//
// Thread-safety: safe for concurrent use.
type Cache struct {
	mu     sync.RWMutex
	events map[string]event.Event
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{events: make(map[string]event.Event)}
}

// Add stores events, replacing any with the same id.
func (c *Cache) Add(events ...event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range events {
		if e.ID != "" {
			c.events[e.ID] = e.Clone()
		}
	}
}

// Replace records events as the hub's answer to fs. A cached event that
// matches fs but is missing from the answer is dropped when it sorts
// ahead of the answer's oldest event, or when the answer is empty. The
// hub toggled it off or removed it. Cached matches beyond the answer's
// oldest event are kept, since a limit may have cut them.
func (c *Cache) Replace(fs filter.FilterSet, events []event.Event) {
	answered := make(map[string]bool, len(events))
	var oldest *event.Event
	for i := range events {
		answered[events[i].ID] = true
		if oldest == nil || filter.Compare(events[i], *oldest) > 0 {
			oldest = &events[i]
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, cached := range c.events {
		if answered[id] || !matchesAll(fs, cached) {
			continue
		}
		if oldest != nil && filter.Compare(cached, *oldest) > 0 {
			continue
		}
		delete(c.events, id)
	}
	for _, e := range events {
		if e.ID != "" {
			c.events[e.ID] = e.Clone()
		}
	}
}

func matchesAll(fs filter.FilterSet, e event.Event) bool {
	for _, f := range fs {
		if !filter.Matches(f, e) {
			return false
		}
	}
	return true
}

// Snapshot returns every cached event in no particular order.
func (c *Cache) Snapshot() []event.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]event.Event, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Clone())
	}
	return out
}

// Len returns the number of cached events.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}
