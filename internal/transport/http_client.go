package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// HTTPClient posts messages to peers' /v1/messages endpoints. The target
// of each message is resolved to a base URL through the peer table,
// falling back to the default URL.
//
// Thread-safety: safe for concurrent use.
type HTTPClient struct {
	defaultURL string
	client     *http.Client

	mu    sync.RWMutex
	peers map[string]string
}

// NewHTTPClient creates a client. defaultURL may be empty when every
// target is registered with AddPeer.
func NewHTTPClient(defaultURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		defaultURL: strings.TrimRight(defaultURL, "/"),
		client:     &http.Client{Timeout: timeout},
		peers:      make(map[string]string),
	}
}

// AddPeer maps an identity to the base URL of its hub.
func (c *HTTPClient) AddPeer(id, baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peers[id] = strings.TrimRight(baseURL, "/")
}

func (c *HTTPClient) resolve(target string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if u, ok := c.peers[target]; ok {
		return u, nil
	}
	if c.defaultURL != "" {
		return c.defaultURL, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownTarget, target)
}

// Request posts m and decodes the peer's Response.
func (c *HTTPClient) Request(ctx context.Context, m Message) (Response, error) {
	base, err := c.resolve(m.Target)
	if err != nil {
		return Response{}, err
	}
	body, err := json.Marshal(m)
	if err != nil {
		return Response{}, fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("post %s: %w", m.Action, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxMessageBytes*8))
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil || resp.Status == "" {
		return Response{}, fmt.Errorf("post %s: unexpected HTTP %d", m.Action, httpResp.StatusCode)
	}
	return resp, nil
}

// Send posts m and reports an error response as *RemoteError.
func (c *HTTPClient) Send(ctx context.Context, m Message) error {
	resp, err := c.Request(ctx, m)
	if err != nil {
		return err
	}
	return resp.Decode(nil)
}
