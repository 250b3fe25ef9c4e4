package hub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dpshade/permahub/internal/engine"
	"github.com/dpshade/permahub/internal/event"
	"github.com/dpshade/permahub/internal/filter"
	"github.com/dpshade/permahub/internal/metrics"
	"github.com/dpshade/permahub/internal/transport"
)

// Ack is the reply to an Event message. It never reveals whether the
// event was stored, toggled or dropped.
type Ack struct {
	Received string `json:"received"`
}

// Info is the reply to an Info message.
type Info struct {
	ID         string   `json:"id"`
	FollowList []string `json:"followList"`
	Followers  []string `json:"followers"`
}

// HandleMessage answers one transport message.
func (h *Hub) HandleMessage(ctx context.Context, m transport.Message) transport.Response {
	var resp transport.Response
	switch m.Action {
	case transport.ActionEvent:
		resp = h.handleEvent(ctx, m)
	case transport.ActionFetchEvents:
		resp = h.handleFetch(ctx, m)
	case transport.ActionInfo:
		resp = h.handleInfo(ctx)
	default:
		resp = transport.Fail(fmt.Errorf("unknown action %q", m.Action))
	}
	metrics.Messages.WithLabelValues(m.Action, resp.Status).Inc()
	return resp
}

// handleEvent submits the event carried in m.Data. An event without a
// from is attributed to the message sender. An event whose from names
// someone other than a known sender is rejected.
func (h *Hub) handleEvent(ctx context.Context, m transport.Message) transport.Response {
	var evt event.Event
	if err := json.Unmarshal(m.Data, &evt); err != nil {
		return transport.Fail(fmt.Errorf("decode event: %w", err))
	}
	switch {
	case evt.From == "":
		evt.From = m.From
	case m.From != "" && evt.From != m.From:
		return transport.Fail(fmt.Errorf("event from %q does not match sender %q", evt.From, m.From))
	}

	if _, err := h.engine.Submit(ctx, engine.Inbound{Event: evt, MessageID: m.ID}); err != nil {
		if engine.IsInvalidEvent(err) {
			return transport.Fail(err)
		}
		h.logger.Error("event not accepted", "message_id", m.ID, "error", err)
		return transport.Fail(fmt.Errorf("event not processed"))
	}
	return transport.OK(Ack{Received: m.ID})
}

func (h *Hub) handleFetch(ctx context.Context, m transport.Message) transport.Response {
	data := m.Data
	if len(data) == 0 {
		data = []byte("[]")
	}
	fs, err := filter.ParseFilterSet(data)
	if err != nil {
		return transport.Fail(err)
	}
	events, err := h.Fetch(ctx, fs)
	if err != nil {
		h.logger.Error("fetch failed", "message_id", m.ID, "error", err)
		return transport.Fail(fmt.Errorf("query failed"))
	}
	return transport.OK(events)
}

func (h *Hub) handleInfo(ctx context.Context) transport.Response {
	g, err := h.Graph(ctx)
	if err != nil {
		h.logger.Error("info failed", "error", err)
		return transport.Fail(fmt.Errorf("graph unavailable"))
	}
	return transport.OK(Info{ID: h.id, FollowList: g.FollowList, Followers: g.Followers})
}
