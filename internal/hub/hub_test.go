package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpshade/permahub/internal/engine"
	"github.com/dpshade/permahub/internal/event"
	"github.com/dpshade/permahub/internal/filter"
	"github.com/dpshade/permahub/internal/store"
	"github.com/dpshade/permahub/internal/testutil"
	"github.com/dpshade/permahub/internal/transport"
	"github.com/dpshade/permahub/internal/wallet"
)

const owner = "owner"

func testWallet(t *testing.T, fill byte) *wallet.Wallet {
	t.Helper()
	w, err := wallet.FromSeed(bytes.Repeat([]byte{fill}, 32))
	require.NoError(t, err)
	return w
}

// startHub runs a hub with deterministic clock and ids until the test
// ends. Stopping is idempotent, so tests may stop it early to drain
// fan-out.
func startHub(t *testing.T, id string, d engine.Deliverer) (*Hub, func()) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "hub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	h, err := New(ctx, s, Config{ID: id, Owner: owner}, d,
		WithClock(testutil.NewDeterministicClockAt(1000, 1000)),
		WithIDGenerator(testutil.NewSequenceGenerator("evt")),
	)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Run(ctx)
	}()
	var once sync.Once
	stop := func() {
		once.Do(func() {
			h.Stop()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Error("hub did not stop")
			}
			cancel()
		})
	}
	t.Cleanup(stop)
	return h, stop
}

func message(t *testing.T, from, action string, data any) transport.Message {
	t.Helper()
	m, err := transport.NewMessage("hub", from, action, data)
	require.NoError(t, err)
	return m
}

func publish(t *testing.T, h *Hub, from string, e event.Event) transport.Response {
	t.Helper()
	return h.HandleMessage(context.Background(), message(t, from, transport.ActionEvent, e))
}

func fetch(t *testing.T, h *Hub, fs any) []event.Event {
	t.Helper()
	resp := h.HandleMessage(context.Background(), message(t, "reader", transport.ActionFetchEvents, fs))
	var out []event.Event
	require.NoError(t, resp.Decode(&out))
	return out
}

func TestNew_RequiresID(t *testing.T) {
	_, err := New(context.Background(), nil, Config{}, nil)
	assert.Error(t, err)
}

func TestHandleMessage_EventAckHidesDecision(t *testing.T) {
	h, _ := startHub(t, "hub", nil)

	stored := publish(t, h, owner, event.Event{Kind: event.KindNote, Content: "hello"})
	dropped := publish(t, h, "stranger", event.Event{Kind: event.KindNote, Content: "spam"})

	var a, b Ack
	require.NoError(t, stored.Decode(&a))
	require.NoError(t, dropped.Decode(&b))
	assert.NotEmpty(t, a.Received)
	assert.NotEmpty(t, b.Received)

	events := fetch(t, h, []filter.Filter{{}})
	require.Len(t, events, 1)
	assert.Equal(t, "hub", events[0].From)
	assert.Equal(t, "hello", events[0].Content)
}

func TestHandleMessage_EventFromDefaultsToSender(t *testing.T) {
	h, _ := startHub(t, "hub", nil)
	publish(t, h, "alice", event.Event{Kind: event.KindFollow, P: `["hub"]`})

	info := h.HandleMessage(context.Background(), message(t, "x", transport.ActionInfo, nil))
	var got Info
	require.NoError(t, info.Decode(&got))
	assert.Equal(t, Info{ID: "hub", FollowList: []string{}, Followers: []string{"alice"}}, got)
}

func TestHandleMessage_InvalidEvent(t *testing.T) {
	h, _ := startHub(t, "hub", nil)

	resp := publish(t, h, "alice", event.Event{})
	assert.Equal(t, transport.StatusError, resp.Status)
	assert.Contains(t, resp.Error, "INVALID_EVENT")

	m := message(t, "alice", transport.ActionEvent, nil)
	m.Data = json.RawMessage(`[1,2]`)
	assert.Equal(t, transport.StatusError, h.HandleMessage(context.Background(), m).Status)
}

func TestHandleMessage_EventFromMustMatchSender(t *testing.T) {
	h, _ := startHub(t, "hub", nil)

	resp := publish(t, h, "mallory", event.Event{From: owner, Kind: event.KindFollow, P: `["mallory"]`})
	assert.Equal(t, transport.StatusError, resp.Status)
	assert.Contains(t, resp.Error, "does not match sender")

	g, err := h.Graph(context.Background())
	require.NoError(t, err)
	assert.Empty(t, g.FollowList)
	assert.Empty(t, fetch(t, h, []filter.Filter{{}}))

	// Naming yourself is fine.
	resp = publish(t, h, "alice", event.Event{From: "alice", Kind: event.KindFollow, P: `["hub"]`})
	assert.Equal(t, transport.StatusOK, resp.Status)
}

func TestHandleMessage_FetchEvaluatesFilters(t *testing.T) {
	h, _ := startHub(t, "hub", nil)
	for _, c := range []string{"alpha", "beta", "gamma"} {
		publish(t, h, owner, event.Event{Kind: event.KindNote, Content: c, Tags: []event.Tag{{Name: "topic", Value: c}}})
	}

	all := fetch(t, h, []filter.Filter{{}})
	require.Len(t, all, 3)
	assert.Equal(t, "gamma", all[0].Content, "newest first")

	got := fetch(t, h, []filter.Filter{{Search: "BET"}})
	require.Len(t, got, 1)
	assert.Equal(t, "beta", got[0].Content)

	got = fetch(t, h, map[string]any{"limit": 2})
	assert.Len(t, got, 2, "single object is a one-clause set")

	got = fetch(t, h, []filter.Filter{{Since: filter.Int64(2000)}, {Until: filter.Int64(4000)}})
	require.Len(t, got, 1)
	assert.Equal(t, "beta", got[0].Content)
}

func TestHandleMessage_FetchRejectsInvalidFilters(t *testing.T) {
	h, _ := startHub(t, "hub", nil)

	for _, data := range []any{
		[]map[string]any{{"limit": 0}},
		[]map[string]any{{"limit": 1001}},
		[]map[string]any{{"kinds": "1"}},
		[]map[string]any{{"since": -1}},
	} {
		resp := h.HandleMessage(context.Background(), message(t, "r", transport.ActionFetchEvents, data))
		assert.Equal(t, transport.StatusError, resp.Status, "%v", data)
	}
}

func TestHandleMessage_UnknownAction(t *testing.T) {
	h, _ := startHub(t, "hub", nil)
	resp := h.HandleMessage(context.Background(), message(t, "r", "Mystery", nil))
	assert.Equal(t, transport.StatusError, resp.Status)
}

func TestSetLimits_AppliesToFetch(t *testing.T) {
	h, _ := startHub(t, "hub", nil)
	for i := 0; i < 5; i++ {
		publish(t, h, owner, event.Event{Kind: event.KindNote, Content: "n"})
	}

	h.SetLimits(filter.Limits{Default: 2, HardCap: 3})
	assert.Len(t, fetch(t, h, []filter.Filter{{}}), 2)
	assert.Len(t, fetch(t, h, []filter.Filter{{Limit: 10}}), 3)

	h.SetLimits(filter.Limits{})
	assert.Equal(t, filter.DefaultLimits(), h.Limits())
	assert.Len(t, fetch(t, h, []filter.Filter{{}}), 5)
}

func TestReady(t *testing.T) {
	h, _ := startHub(t, "hub", nil)
	assert.NoError(t, h.Ready(context.Background()))
}

func TestFanOut_ReachesFollowerOverTransport(t *testing.T) {
	net := transport.NewMemoryNetwork()
	hubWallet := testWallet(t, 7)

	var mu sync.Mutex
	var received []transport.Message
	net.Register("bob", transport.HandlerFunc(func(_ context.Context, m transport.Message) transport.Response {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, m)
		return transport.OK(nil)
	}))

	h, stop := startHub(t, hubWallet.ID(), TransportDeliverer{Sender: net, Signer: hubWallet})
	publish(t, h, "bob", event.Event{Kind: event.KindFollow, P: `["` + hubWallet.ID() + `"]`})
	publish(t, h, owner, event.Event{Kind: event.KindNote, Content: "to my followers"})
	stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	m := received[0]
	assert.Equal(t, "bob", m.Target)
	assert.Equal(t, transport.ActionEvent, m.Action)
	assert.NoError(t, wallet.Verify(m))

	var e event.Event
	require.NoError(t, json.Unmarshal(m.Data, &e))
	assert.Equal(t, "to my followers", e.Content)
	assert.Equal(t, hubWallet.ID(), e.From)
}

func TestFanOut_OneWayFollowerStoresHubEvents(t *testing.T) {
	net := transport.NewMemoryNetwork()
	walletH := testWallet(t, 7)
	walletB := testWallet(t, 9)

	h, _ := startHub(t, walletH.ID(), TransportDeliverer{Sender: net, Signer: walletH})
	b, _ := startHub(t, walletB.ID(), TransportDeliverer{Sender: net, Signer: walletB})
	net.Register(walletH.ID(), h)
	net.Register(walletB.ID(), b)

	// B's owner follows H. H never follows B back.
	resp := publish(t, b, owner, event.Event{Kind: event.KindFollow, P: `["` + walletH.ID() + `"]`})
	require.Equal(t, transport.StatusOK, resp.Status)

	require.Eventually(t, func() bool {
		g, err := h.Graph(context.Background())
		return err == nil && len(g.Followers) == 1 && g.Followers[0] == walletB.ID()
	}, 2*time.Second, 10*time.Millisecond, "H learns that B follows it")

	resp = publish(t, h, owner, event.Event{Kind: event.KindNote, Content: "from H"})
	require.Equal(t, transport.StatusOK, resp.Status)

	assert.Eventually(t, func() bool {
		for _, e := range fetch(t, b, []filter.Filter{{Authors: []string{walletH.ID()}}}) {
			if e.Content == "from H" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond, "B stores H's note")

	g, err := h.Graph(context.Background())
	require.NoError(t, err)
	assert.Empty(t, g.FollowList)
}
