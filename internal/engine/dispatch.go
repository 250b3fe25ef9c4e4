package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/dpshade/permahub/internal/event"
	"github.com/dpshade/permahub/internal/metrics"
)

// Deliverer sends one accepted event to one recipient.
type Deliverer interface {
	Deliver(ctx context.Context, recipient string, e event.Event) error
}

// DeliverFunc adapts a function to Deliverer.
type DeliverFunc func(ctx context.Context, recipient string, e event.Event) error

func (f DeliverFunc) Deliver(ctx context.Context, recipient string, e event.Event) error {
	return f(ctx, recipient, e)
}

// DispatchConfig sizes the fan-out pool.
type DispatchConfig struct {
	Workers    int
	QueueDepth int
	Timeout    time.Duration // per delivery
}

// DefaultDispatchConfig returns 4 workers, 256 queued deliveries, 5s each.
func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{Workers: 4, QueueDepth: 256, Timeout: 5 * time.Second}
}

type delivery struct {
	recipient string
	event     event.Event
}

// Dispatcher fans accepted events out to recipients on a worker pool.
// Notify never blocks: when the queue is full the delivery is dropped.
type Dispatcher struct {
	pool      *workerPool[delivery]
	deliverer Deliverer
	timeout   time.Duration
	logger    *slog.Logger
}

// NewDispatcher starts the pool. Workers exit when ctx is cancelled or
// Drain is called.
func NewDispatcher(ctx context.Context, d Deliverer, cfg DispatchConfig, logger *slog.Logger) *Dispatcher {
	def := DefaultDispatchConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = def.QueueDepth
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	disp := &Dispatcher{deliverer: d, timeout: cfg.Timeout, logger: logger}
	disp.pool = newWorkerPool(ctx, cfg.Workers, cfg.QueueDepth, disp.deliver)
	return disp
}

// Notify queues one delivery per recipient.
func (d *Dispatcher) Notify(recipients []string, e event.Event) {
	for _, r := range recipients {
		if !d.pool.Submit(delivery{recipient: r, event: e}) {
			metrics.FanoutDeliveries.WithLabelValues("dropped").Inc()
			d.logger.Warn("fan-out queue full, delivery dropped", "recipient", r, "event_id", e.ID)
		}
	}
}

// Drain stops accepting deliveries and waits for queued ones to finish.
func (d *Dispatcher) Drain() {
	d.pool.Drain()
}

func (d *Dispatcher) deliver(ctx context.Context, job delivery) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.deliverer.Deliver(ctx, job.recipient, job.event); err != nil {
		metrics.FanoutDeliveries.WithLabelValues("failed").Inc()
		d.logger.Warn("fan-out delivery failed", "recipient", job.recipient, "event_id", job.event.ID, "error", err)
		return
	}
	metrics.FanoutDeliveries.WithLabelValues("sent").Inc()
	d.logger.Debug("fan-out delivered", "recipient", job.recipient, "event_id", job.event.ID)
}
