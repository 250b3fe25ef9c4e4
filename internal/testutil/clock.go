package testutil

import "sync"

// DeterministicClock is a resettable timestamp source for tests and
// scenario runs. Next returns start+step, start+2*step, ...
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start int64
	step  int64
	cur   int64
}

// NewDeterministicClock creates a clock whose first Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockAt(0, 1)
}

// NewDeterministicClockAt creates a clock whose first Next returns
// start+step. A step below 1 is treated as 1.
func NewDeterministicClockAt(start, step int64) *DeterministicClock {
	if step < 1 {
		step = 1
	}
	return &DeterministicClock{start: start, step: step, cur: start}
}

// Next advances and returns the new timestamp.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur += c.step
	return c.cur
}

// Current returns the last issued timestamp without advancing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

// Reset returns the clock to its start value.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.start
}
