package engine

import (
	"sync/atomic"
	"time"
)

// TimeSource assigns acceptance timestamps.
type TimeSource interface {
	Next() int64
}

// Clock stamps accepted events with Unix milliseconds that never go
// backwards, even if the wall clock does.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though only the Run goroutine calls Next.
type Clock struct {
	last atomic.Int64
	now  func() int64
}

// NewClock creates a wall clock starting from zero.
func NewClock() *Clock {
	return NewClockAt(0)
}

// NewClockAt creates a wall clock that never returns less than last.
// Seed it with the store's newest timestamp so restarts stay monotonic.
func NewClockAt(last int64) *Clock {
	c := &Clock{now: func() int64 { return time.Now().UnixMilli() }}
	c.last.Store(last)
	return c
}

// Next returns max(now, previous result).
func (c *Clock) Next() int64 {
	for {
		prev := c.last.Load()
		ts := c.now()
		if ts < prev {
			ts = prev
		}
		if c.last.CompareAndSwap(prev, ts) {
			return ts
		}
	}
}

// Current returns the last issued timestamp without advancing.
func (c *Clock) Current() int64 {
	return c.last.Load()
}
