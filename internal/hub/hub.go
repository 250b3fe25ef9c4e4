package hub

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dpshade/permahub/internal/engine"
	"github.com/dpshade/permahub/internal/event"
	"github.com/dpshade/permahub/internal/filter"
	"github.com/dpshade/permahub/internal/metrics"
)

// Store is everything the hub needs from persistence. store.Store and
// pgstore.PgStore implement it.
type Store interface {
	engine.Store
	Candidates(ctx context.Context, fs filter.FilterSet, lim filter.Limits) ([]event.Event, error)
	LastTimestamp(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// Config identifies the hub and sizes its query and fan-out behavior.
type Config struct {
	ID       string
	Owner    string
	Limits   filter.Limits
	Dispatch engine.DispatchConfig
}

// Hub is a running hub.
//
// Thread-safety: every method is safe from any goroutine except Run,
// which must be called once.
type Hub struct {
	id         string
	store      Store
	engine     *engine.Engine
	dispatcher *engine.Dispatcher
	limits     atomic.Pointer[filter.Limits]
	logger     *slog.Logger

	clock engine.TimeSource
	ids   event.IDGenerator
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

// WithClock overrides the acceptance clock. By default the clock is
// seeded from the store's newest timestamp.
func WithClock(c engine.TimeSource) Option {
	return func(h *Hub) { h.clock = c }
}

// WithIDGenerator overrides event id generation.
func WithIDGenerator(g event.IDGenerator) Option {
	return func(h *Hub) { h.ids = g }
}

// New builds a hub over s. When d is non-nil accepted events fan out
// through a dispatcher that lives until ctx is cancelled or Run returns.
func New(ctx context.Context, s Store, cfg Config, d engine.Deliverer, opts ...Option) (*Hub, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("hub: id is required")
	}
	h := &Hub{id: cfg.ID, store: s}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.SetLimits(cfg.Limits)

	if h.clock == nil {
		last, err := s.LastTimestamp(ctx)
		if err != nil {
			return nil, fmt.Errorf("hub: seed clock: %w", err)
		}
		h.clock = engine.NewClockAt(last)
	}

	engineOpts := []engine.Option{engine.WithClock(h.clock), engine.WithLogger(h.logger)}
	if h.ids != nil {
		engineOpts = append(engineOpts, engine.WithIDGenerator(h.ids))
	}
	if d != nil {
		h.dispatcher = engine.NewDispatcher(ctx, d, cfg.Dispatch, h.logger)
		engineOpts = append(engineOpts, engine.WithNotifier(h.dispatcher))
	}
	h.engine = engine.New(s, cfg.ID, cfg.Owner, engineOpts...)
	return h, nil
}

// ID returns the hub identity.
func (h *Hub) ID() string {
	return h.id
}

// Run drives the acceptance engine until ctx is cancelled or Stop is
// called, then waits for queued fan-out to finish.
func (h *Hub) Run(ctx context.Context) error {
	err := h.engine.Run(ctx)
	if h.dispatcher != nil {
		h.dispatcher.Drain()
	}
	return err
}

// Stop asks Run to return once queued events are processed.
func (h *Hub) Stop() {
	h.engine.Stop()
}

// SetLimits replaces the query limits. Zero fields take the defaults.
func (h *Hub) SetLimits(l filter.Limits) {
	def := filter.DefaultLimits()
	if l.Default <= 0 {
		l.Default = def.Default
	}
	if l.HardCap <= 0 {
		l.HardCap = def.HardCap
	}
	h.limits.Store(&l)
}

// Limits returns the current query limits.
func (h *Hub) Limits() filter.Limits {
	return *h.limits.Load()
}

// Submit hands one event to the acceptance engine and waits for the
// outcome.
func (h *Hub) Submit(ctx context.Context, in engine.Inbound) (engine.Outcome, error) {
	return h.engine.Submit(ctx, in)
}

// Fetch evaluates fs against the store. The store narrows candidates;
// filter.Evaluate always decides the result.
func (h *Hub) Fetch(ctx context.Context, fs filter.FilterSet) ([]event.Event, error) {
	if err := filter.Validate(fs); err != nil {
		return nil, err
	}
	lim := h.Limits()
	candidates, err := h.store.Candidates(ctx, fs, lim)
	if err != nil {
		return nil, fmt.Errorf("hub: fetch: %w", err)
	}
	out := filter.Evaluate(fs, candidates, lim)

	metrics.HubQueries.Inc()
	metrics.HubQueryResults.Observe(float64(len(out)))
	h.logger.Debug("query evaluated", "clauses", len(fs), "candidates", len(candidates), "results", len(out))
	return out, nil
}

// Graph returns the current follow graph.
func (h *Hub) Graph(ctx context.Context) (engine.Graph, error) {
	return h.engine.Graph(ctx)
}

// Ready reports whether the store is reachable.
func (h *Hub) Ready(ctx context.Context) error {
	return h.store.Ping(ctx)
}
