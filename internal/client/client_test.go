package client

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpshade/permahub/internal/event"
	"github.com/dpshade/permahub/internal/filter"
	"github.com/dpshade/permahub/internal/hub"
	"github.com/dpshade/permahub/internal/results"
	"github.com/dpshade/permahub/internal/store"
	"github.com/dpshade/permahub/internal/testutil"
	"github.com/dpshade/permahub/internal/transport"
	"github.com/dpshade/permahub/internal/wallet"
)

const hubID = "hub"

// flakyConn forwards to a MemoryNetwork until it is taken down.
type flakyConn struct {
	*transport.MemoryNetwork
	down  atomic.Bool
	calls atomic.Int32
}

func (f *flakyConn) Request(ctx context.Context, m transport.Message) (transport.Response, error) {
	f.calls.Add(1)
	if f.down.Load() {
		return transport.Response{}, errors.New("network down")
	}
	return f.MemoryNetwork.Request(ctx, m)
}

type fixture struct {
	client *Client
	conn   *flakyConn
	owner  *wallet.Wallet
}

func setup(t *testing.T) *fixture {
	t.Helper()
	owner, err := wallet.FromSeed(bytes.Repeat([]byte{9}, 32))
	require.NoError(t, err)

	s, err := store.Open(filepath.Join(t.TempDir(), "hub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	h, err := hub.New(ctx, s, hub.Config{ID: hubID, Owner: owner.ID()}, nil,
		hub.WithClock(testutil.NewDeterministicClockAt(1000, 1000)),
		hub.WithIDGenerator(testutil.NewSequenceGenerator("evt")),
	)
	require.NoError(t, err)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Run(ctx)
	}()
	t.Cleanup(func() {
		h.Stop()
		<-done
		cancel()
	})

	net := transport.NewMemoryNetwork()
	net.Register(hubID, h)
	conn := &flakyConn{MemoryNetwork: net}
	c := New(conn, Config{HubID: hubID, Timeout: time.Second}, WithSigner(owner))
	return &fixture{client: c, conn: conn, owner: owner}
}

func (f *fixture) publishNotes(t *testing.T, contents ...string) {
	t.Helper()
	for _, content := range contents {
		require.NoError(t, f.client.Publish(context.Background(), event.Event{
			Kind:    event.KindNote,
			Content: content,
			Tags:    []event.Tag{{Name: "category", Value: "task"}, {Name: "text", Value: content}},
		}))
	}
}

func TestFetch_OKFillsCache(t *testing.T) {
	f := setup(t)
	f.publishNotes(t, "buy milk", "call mom")

	r := f.client.Fetch(context.Background(), filter.FilterSet{{}})
	require.Equal(t, StatusOK, r.Status)
	assert.True(t, r.Confirmed())
	assert.NoError(t, r.Err)
	require.Len(t, r.Events, 2)
	assert.Equal(t, "call mom", r.Events[0].Content)
	assert.Equal(t, 2, f.client.Cache().Len())
}

func TestFetch_InvalidNeverSent(t *testing.T) {
	f := setup(t)

	r := f.client.Fetch(context.Background(), filter.FilterSet{{Limit: 1001}})
	assert.Equal(t, StatusInvalid, r.Status)
	assert.True(t, filter.IsValidation(r.Err))
	assert.Equal(t, int32(0), f.conn.calls.Load())
}

func TestFetch_UnconfirmedWithoutCache(t *testing.T) {
	f := setup(t)
	f.conn.down.Store(true)

	fs := filter.FilterSet{{Search: "milk"}}
	r := f.client.Fetch(context.Background(), fs)
	assert.Equal(t, StatusUnconfirmed, r.Status)
	assert.Equal(t, fs, r.Attempted)
	assert.Empty(t, r.Events)
	assert.ErrorContains(t, r.Err, "network down")
}

func TestFetch_FallbackMatchesHub(t *testing.T) {
	f := setup(t)
	f.publishNotes(t, "buy milk", "buy bread", "call mom")
	ctx := context.Background()

	require.Equal(t, StatusOK, f.client.Fetch(ctx, filter.FilterSet{{}}).Status)

	fs := filter.FilterSet{{Search: "BUY"}, {Limit: 1}}
	online := f.client.Fetch(ctx, fs)
	f.conn.down.Store(true)
	offline := f.client.Fetch(ctx, fs)

	assert.Equal(t, StatusFallback, offline.Status)
	assert.Error(t, offline.Err)
	assert.Equal(t, online.Events, offline.Events)
}

func TestFetch_FallbackForgetsToggledOffReaction(t *testing.T) {
	f := setup(t)
	f.publishNotes(t, "buy milk")
	ctx := context.Background()

	reaction := event.Event{Kind: event.KindReaction, Content: "+", E: "evt-1", P: `["hub"]`}
	require.NoError(t, f.client.Publish(ctx, reaction))

	r := f.client.Fetch(ctx, filter.FilterSet{{}})
	require.Equal(t, StatusOK, r.Status)
	require.Len(t, r.Events, 2)

	fs := filter.FilterSet{{Kinds: []string{event.KindReaction}}}

	require.NoError(t, f.client.Publish(ctx, reaction))
	r = f.client.Fetch(ctx, fs)
	require.Equal(t, StatusOK, r.Status)
	assert.Empty(t, r.Events)

	f.conn.down.Store(true)
	offline := f.client.Fetch(ctx, fs)
	assert.Equal(t, StatusFallback, offline.Status)
	assert.Empty(t, offline.Events)
	assert.Equal(t, 1, f.client.Cache().Len(), "the note stays cached")
}

func TestCache_ReplaceKeepsEventsBeyondTheAnswer(t *testing.T) {
	c := NewCache()
	c.Add(
		event.Event{ID: "a", Kind: event.KindNote, Timestamp: 30},
		event.Event{ID: "b", Kind: event.KindNote, Timestamp: 20},
		event.Event{ID: "c", Kind: event.KindNote, Timestamp: 10},
		event.Event{ID: "r", Kind: event.KindReaction, Timestamp: 25},
	)

	// A limit-1 answer that no longer holds "a" covers only the newest slot.
	c.Replace(filter.FilterSet{{Kinds: []string{event.KindNote}, Limit: 1}},
		[]event.Event{{ID: "b", Kind: event.KindNote, Timestamp: 20}})

	var ids []string
	for _, e := range c.Snapshot() {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []string{"b", "c", "r"}, ids)
}

func TestGet(t *testing.T) {
	f := setup(t)
	f.publishNotes(t, "buy milk")
	ctx := context.Background()

	e, err := f.client.Get(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "buy milk", e.Content)
	assert.Equal(t, hubID, e.From)

	_, err = f.client.Get(ctx, "evt-404")
	assert.ErrorIs(t, err, ErrNotFound)

	f.conn.down.Store(true)
	e, err = f.client.Get(ctx, "evt-1")
	require.NoError(t, err, "served from cache")
	assert.Equal(t, "buy milk", e.Content)

	_, err = f.client.Get(ctx, "evt-404")
	var unconfirmed *UnconfirmedError
	require.ErrorAs(t, err, &unconfirmed)
	assert.Equal(t, []string{"evt-404"}, unconfirmed.Attempted[0].IDs)
}

func TestSearch_CategoryAndPaging(t *testing.T) {
	f := setup(t)
	f.publishNotes(t, "a", "b", "c")

	sr := f.client.Search(context.Background(), Intent{Query: "open tasks"}, results.Options{Sort: true, Limit: 2, IncludeMetadata: true})
	require.Equal(t, StatusOK, sr.Status)
	assert.Len(t, sr.Events, 3)
	assert.Len(t, sr.Page.Events, 2)
	assert.True(t, sr.Page.HasMore)
	assert.Equal(t, int64(4000), sr.Page.NewestTimestamp)
	assert.Equal(t, results.Complex, sr.Telemetry.Classification)
	assert.InDelta(t, 1.0/3, sr.Telemetry.Efficiency, 1e-9)
}

func TestSearch_FreeText(t *testing.T) {
	f := setup(t)
	f.publishNotes(t, "buy milk", "call mom")

	sr := f.client.Search(context.Background(), Intent{Query: "milk"}, results.Options{})
	require.Len(t, sr.Page.Events, 1)
	assert.Equal(t, results.TextSearch, sr.Telemetry.Classification)
}

func TestGraph(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.client.Publish(context.Background(), event.Event{Kind: event.KindFollow, P: `["bob"]`}))

	g, err := f.client.Graph(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Graph{ID: hubID, FollowList: []string{"bob"}, Followers: []string{}}, g)

	f.conn.down.Store(true)
	_, err = f.client.Graph(context.Background())
	assert.Error(t, err)
}

func TestPublish_InvalidEventSurfaces(t *testing.T) {
	f := setup(t)
	err := f.client.Publish(context.Background(), event.Event{Content: "no kind"})
	var remote *transport.RemoteError
	assert.ErrorAs(t, err, &remote)
}
