package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dpshade/permahub/internal/event"
	"github.com/dpshade/permahub/internal/filter"
	"github.com/dpshade/permahub/internal/metrics"
	"github.com/dpshade/permahub/internal/results"
	"github.com/dpshade/permahub/internal/transport"
)

// DefaultLimit is the client-side default query size. The hub still
// caps every query at its own hard cap.
const DefaultLimit = 100

// Signer signs outbound messages. *wallet.Wallet implements it.
type Signer interface {
	ID() string
	Sign(m *transport.Message) error
}

// Config points the client at a hub.
type Config struct {
	HubID        string
	Timeout      time.Duration // per transport call
	DefaultLimit int
}

// Graph is a hub's follow graph as reported by Info.
type Graph struct {
	ID         string   `json:"id"`
	FollowList []string `json:"followList"`
	Followers  []string `json:"followers"`
}

// Client talks to one hub.
//
// Thread-safety: safe for concurrent use.
type Client struct {
	conn         transport.Conn
	hubID        string
	timeout      time.Duration
	defaultLimit int
	signer       Signer
	cache        *Cache
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithSigner signs every outbound message and sets its sender.
func WithSigner(s Signer) Option {
	return func(c *Client) { c.signer = s }
}

// WithCache shares a cache between clients.
func WithCache(cache *Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the hub cfg.HubID reachable over conn.
func New(conn transport.Conn, cfg Config, opts ...Option) *Client {
	c := &Client{
		conn:         conn,
		hubID:        cfg.HubID,
		timeout:      cfg.Timeout,
		defaultLimit: cfg.DefaultLimit,
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	if c.defaultLimit <= 0 {
		c.defaultLimit = DefaultLimit
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = NewCache()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Cache returns the client's local cache.
func (c *Client) Cache() *Cache {
	return c.cache
}

// BuildFilters turns intent into a filter set using the client default
// limit.
func (c *Client) BuildFilters(intent Intent) filter.FilterSet {
	return BuildFilters(intent, c.defaultLimit)
}

// Fetch validates fs, asks the hub and falls back to the cache when the
// hub cannot answer.
func (c *Client) Fetch(ctx context.Context, fs filter.FilterSet) Result {
	r := c.fetch(ctx, fs)
	metrics.ClientQueries.WithLabelValues(string(r.Status), string(results.ClassifySet(fs))).Inc()
	return r
}

func (c *Client) fetch(ctx context.Context, fs filter.FilterSet) Result {
	if err := filter.Validate(fs); err != nil {
		return Result{Status: StatusInvalid, Attempted: fs, Err: err}
	}
	if fs == nil {
		fs = filter.FilterSet{}
	}

	var events []event.Event
	err := c.request(ctx, transport.ActionFetchEvents, fs, &events)
	if err == nil {
		if events == nil {
			events = []event.Event{}
		}
		c.cache.Replace(fs, events)
		return Result{Status: StatusOK, Events: events, Attempted: fs}
	}

	if c.cache.Len() == 0 {
		c.logger.Warn("hub unreachable, query unconfirmed", "hub", c.hubID, "error", err)
		return Result{Status: StatusUnconfirmed, Attempted: fs, Err: err}
	}
	c.logger.Warn("hub unreachable, answering from cache", "hub", c.hubID, "cached", c.cache.Len(), "error", err)
	local := filter.Evaluate(fs, c.cache.Snapshot(), filter.DefaultLimits())
	return Result{Status: StatusFallback, Events: local, Attempted: fs, Err: err}
}

// Get returns the event with id.
func (c *Client) Get(ctx context.Context, id string) (event.Event, error) {
	r := c.Fetch(ctx, BuildFilters(Intent{ID: id}, c.defaultLimit))
	switch r.Status {
	case StatusInvalid:
		return event.Event{}, r.Err
	case StatusUnconfirmed:
		return event.Event{}, &UnconfirmedError{Attempted: r.Attempted, Err: r.Err}
	case StatusFallback:
		if len(r.Events) == 0 {
			return event.Event{}, &UnconfirmedError{Attempted: r.Attempted, Err: r.Err}
		}
	}
	if len(r.Events) == 0 {
		return event.Event{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.Events[0], nil
}

// SearchResult is a post-processed query.
type SearchResult struct {
	Result
	Page      results.Result    `json:"page"`
	Telemetry results.Telemetry `json:"telemetry"`
}

// Search builds filters from intent, fetches them and post-processes the
// events with opts.
func (c *Client) Search(ctx context.Context, intent Intent, opts results.Options) SearchResult {
	fs := c.BuildFilters(intent)
	r := c.Fetch(ctx, fs)
	page := results.Process(r.Events, opts)
	tel := results.Analyze(fs[0], len(r.Events), len(page.Events))
	metrics.ClientQueryEfficiency.Observe(tel.Efficiency)
	return SearchResult{Result: r, Page: page, Telemetry: tel}
}

// Publish sends e to the hub. The hub acknowledges receipt only; whether
// the event was stored is visible through later queries.
func (c *Client) Publish(ctx context.Context, e event.Event) error {
	if e.From == "" && c.signer != nil {
		e.From = c.signer.ID()
	}
	return c.request(ctx, transport.ActionEvent, e, nil)
}

// Graph asks the hub for its follow graph.
func (c *Client) Graph(ctx context.Context) (Graph, error) {
	var g Graph
	if err := c.request(ctx, transport.ActionInfo, nil, &g); err != nil {
		return Graph{}, err
	}
	return g, nil
}

// request sends one action under the client timeout and decodes the
// reply into out.
func (c *Client) request(ctx context.Context, action string, data, out any) error {
	from := ""
	if c.signer != nil {
		from = c.signer.ID()
	}
	m, err := transport.NewMessage(c.hubID, from, action, data)
	if err != nil {
		return err
	}
	if c.signer != nil {
		if err := c.signer.Sign(&m); err != nil {
			return fmt.Errorf("sign %s: %w", action, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.conn.Request(ctx, m)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	return resp.Decode(out)
}
