package engine

import (
	"sync"

	"github.com/dpshade/permahub/internal/event"
)

// Inbound is one event arriving at the hub.
type Inbound struct {
	Event event.Event
	// MessageID is the id of the transport message that carried the event.
	// It becomes originalId when the event has no id of its own.
	MessageID string
}

type result struct {
	outcome Outcome
	err     error
}

// submission is one queued Inbound plus the channel its result goes to.
type submission struct {
	in    Inbound
	reply chan result
}

// submissionQueue is a thread-safe unbounded FIFO.
//
// The signal channel (buffered, size 1) wakes Run without a busy loop;
// Close closes it so a waiting Run returns.
type submissionQueue struct {
	mu     sync.Mutex
	items  []submission
	closed bool
	signal chan struct{}
}

func newSubmissionQueue() *submissionQueue {
	return &submissionQueue{
		items:  make([]submission, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends s. Returns false once the queue is closed.
func (q *submissionQueue) Enqueue(s submission) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, s)

	// Non-blocking: one pending signal is enough.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the oldest item without blocking.
func (q *submissionQueue) TryDequeue() (submission, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return submission{}, false
	}

	s := q.items[0]
	q.items[0] = submission{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return s, true
}

// Wait returns the signal channel.
func (q *submissionQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued items.
func (q *submissionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *submissionQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops accepting items and wakes waiters. Idempotent.
func (q *submissionQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
