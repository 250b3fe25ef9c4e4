package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/dpshade/permahub/internal/event"
	"github.com/dpshade/permahub/internal/metrics"
)

// Store is the event collection the engine owns. store.Store and
// pgstore.PgStore implement it.
type Store interface {
	Insert(ctx context.Context, e event.Event) error
	Delete(ctx context.Context, id string) error
	Unfollow(ctx context.Context, author string) (int64, error)
	ClearUnfollow(ctx context.Context, author string) error
	HasUnfollowed(ctx context.Context, author string) (bool, error)
	FindByToggleKey(ctx context.Context, key string) (event.Event, bool, error)
	LatestFollowBy(ctx context.Context, author string) (event.Event, bool, error)
	FollowerAuthors(ctx context.Context, hubID string) ([]string, error)
}

// Notifier receives accepted events that need fan-out. Notify must not
// block the caller.
type Notifier interface {
	Notify(recipients []string, e event.Event)
}

// Engine is the single-writer acceptance loop.
//
// Thread-safety model:
//   - Submit, Graph, Stop: safe from any goroutine
//   - Run: must be called from exactly one goroutine
type Engine struct {
	store    Store
	hubID    string
	owner    string
	clock    TimeSource
	ids      event.IDGenerator
	queue    *submissionQueue
	notifier Notifier
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the timestamp source. Default: NewClock().
func WithClock(c TimeSource) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator sets the event id source. Default: UUIDv7.
func WithIDGenerator(g event.IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithNotifier sets the fan-out target. Without one, recipients are
// computed but nobody is notified.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine for the hub identified by hubID. Events from
// owner (or from hubID itself) are treated as self-authored.
func New(s Store, hubID, owner string, opts ...Option) *Engine {
	e := &Engine{
		store: s,
		hubID: hubID,
		owner: owner,
		clock: NewClock(),
		ids:   event.UUIDv7Generator{},
		queue: newSubmissionQueue(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// HubID returns the hub's own identity.
func (e *Engine) HubID() string {
	return e.hubID
}

// Submit queues in and waits for its outcome. A dropped event is a
// successful Outcome with DecisionDropped, not an error. If ctx ends first
// the event is still processed; only the wait is abandoned.
func (e *Engine) Submit(ctx context.Context, in Inbound) (Outcome, error) {
	reply := make(chan result, 1)
	if !e.queue.Enqueue(submission{in: in, reply: reply}) {
		return Outcome{}, ErrStopped
	}
	metrics.EventsSubmitted.Inc()
	metrics.QueueDepth.Set(float64(e.queue.Len()))

	select {
	case r := <-reply:
		return r.outcome, r.err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Run processes submissions until ctx is cancelled or Stop is called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// A failing event is logged, answered with its error and skipped; the
// loop keeps going.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "hub_id", e.hubID)
	defer e.failPending()

	for {
		s, ok := e.queue.TryDequeue()
		if ok {
			metrics.QueueDepth.Set(float64(e.queue.Len()))
			e.process(ctx, s)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel is closed by Stop, which makes this case
			// fire immediately with an empty queue.
			if e.queue.Len() == 0 && e.queue.Closed() {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue; Run returns once it is empty.
func (e *Engine) Stop() {
	e.queue.Close()
}

// QueueLen returns the number of submissions waiting.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

func (e *Engine) process(ctx context.Context, s submission) {
	start := time.Now()
	out, err := e.accept(ctx, s.in)
	metrics.AcceptDuration.Observe(float64(time.Since(start).Microseconds()) / 1000)

	if err != nil {
		e.logger.Error("accept failed",
			"event_id", s.in.Event.ID,
			"from", s.in.Event.From,
			"kind", s.in.Event.Kind,
			"error", err,
		)
		s.reply <- result{err: err}
		return
	}

	metrics.Decisions.WithLabelValues(string(out.Branch), string(out.Decision)).Inc()
	level := slog.LevelInfo
	if out.Decision == DecisionDropped {
		level = slog.LevelDebug
	}
	e.logger.Log(ctx, level, "event processed",
		"event_id", out.Event.ID,
		"kind", out.Event.Kind,
		"branch", out.Branch,
		"decision", out.Decision,
		"recipients", len(out.Recipients),
	)

	if len(out.Recipients) > 0 && e.notifier != nil {
		e.notifier.Notify(out.Recipients, out.Event)
	}
	s.reply <- result{outcome: out}
}

// failPending answers everything still queued after Run exits.
func (e *Engine) failPending() {
	e.queue.Close()
	for {
		s, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		s.reply <- result{err: ErrStopped}
	}
}
