package transport

import (
	"context"
	"fmt"
	"sync"
)

// MemoryNetwork routes messages to handlers registered by identity.
// Handlers run on the caller's goroutine.
//
// Thread-safety: safe for concurrent use.
type MemoryNetwork struct {
	mu     sync.RWMutex
	routes map[string]Handler
}

// NewMemoryNetwork returns an empty network.
func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{routes: make(map[string]Handler)}
}

// Register routes messages for id to h, replacing any previous handler.
func (n *MemoryNetwork) Register(id string, h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes[id] = h
}

// Unregister removes the route for id.
func (n *MemoryNetwork) Unregister(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.routes, id)
}

func (n *MemoryNetwork) route(target string) (Handler, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	h, ok := n.routes[target]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	return h, nil
}

// Request delivers m and returns the handler's response.
func (n *MemoryNetwork) Request(ctx context.Context, m Message) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	h, err := n.route(m.Target)
	if err != nil {
		return Response{}, err
	}
	return h.HandleMessage(ctx, m), nil
}

// Send delivers m. An error response from the handler is returned as a
// *RemoteError.
func (n *MemoryNetwork) Send(ctx context.Context, m Message) error {
	resp, err := n.Request(ctx, m)
	if err != nil {
		return err
	}
	return resp.Decode(nil)
}
