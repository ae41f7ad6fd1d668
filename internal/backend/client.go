// Package backend is the REST client for the cart/order service. The
// service owns all cart and order-status truth; this client only reads it
// or asks it to change.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vuen/kiosk/internal/types"
)

// Client implements types.Backend over HTTP.
type Client struct {
	baseURL    string
	clientID   types.ClientID
	httpClient *http.Client
}

// New creates a backend client scoped to one client identity.
func New(baseURL string, clientID types.ClientID) *Client {
	return &Client{
		baseURL:  baseURL,
		clientID: clientID,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

var _ types.Backend = (*Client)(nil)

// CartState fetches the authoritative cart snapshot and order status.
func (c *Client) CartState(ctx context.Context) (*types.CartStateResponse, error) {
	var state types.CartStateResponse
	query := url.Values{"client_id": {string(c.clientID)}}
	if err := c.getJSON(ctx, "/api/cart/state?"+query.Encode(), &state); err != nil {
		return nil, err
	}
	if !state.OK {
		return nil, fmt.Errorf("cart state rejected for client %s", c.clientID)
	}
	return &state, nil
}

// cartRequest is the JSON body for POST /api/cart.
type cartRequest struct {
	ClientID types.ClientID        `json:"client_id"`
	Ops      []types.CartOperation `json:"ops"`
}

// SubmitOps sends an ordered operation batch to the cart endpoint. The
// backend serializes batches per client identity; the push channel (or the
// next snapshot sync) converges the mirror afterwards.
func (c *Client) SubmitOps(ctx context.Context, ops []types.CartOperation) error {
	return c.postJSON(ctx, "/api/cart", cartRequest{ClientID: c.clientID, Ops: ops}, nil)
}

// recommendRequest is the JSON body for POST /api/recommend.
type recommendRequest struct {
	Names []string `json:"names,omitempty"`
	Reset bool     `json:"reset,omitempty"`
}

// Recommend broadcasts item names to the recommendation side-channel.
func (c *Client) Recommend(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	return c.postJSON(ctx, "/api/recommend", recommendRequest{Names: names}, nil)
}

// RecommendReset clears the recommendation display.
func (c *Client) RecommendReset(ctx context.Context) error {
	return c.postJSON(ctx, "/api/recommend", recommendRequest{Reset: true}, nil)
}

// statusResponse is the body of GET /api/order_status.
type statusResponse struct {
	OK     bool              `json:"ok"`
	Status types.OrderStatus `json:"status"`
	Error  string            `json:"error,omitempty"`
}

// OrderStatus fetches the authoritative order flow step.
func (c *Client) OrderStatus(ctx context.Context) (types.OrderStatus, error) {
	var resp statusResponse
	query := url.Values{"client_id": {string(c.clientID)}}
	if err := c.getJSON(ctx, "/api/order_status?"+query.Encode(), &resp); err != nil {
		return 0, err
	}
	if !resp.OK {
		return 0, fmt.Errorf("order status rejected: %s", resp.Error)
	}
	return resp.Status, nil
}

// transitionRequest is the JSON body for POST /api/order_status/transition.
type transitionRequest struct {
	ClientID types.ClientID    `json:"client_id"`
	From     types.OrderStatus `json:"from"`
	To       types.OrderStatus `json:"to"`
	Prefill  *types.Prefill    `json:"prefill,omitempty"`
}

// Transition asks the backend to move the order flow to another status. The
// backend decides; the response (or the matching push event) carries the
// outcome. Rejections (state conflicts, guard failures) arrive as non-2xx
// statuses with a structured body; that body is still the answer, so it is
// decoded and returned rather than flattened into a transport error.
func (c *Client) Transition(ctx context.Context, from, to types.OrderStatus, prefill *types.Prefill) (*types.TransitionResponse, error) {
	in := transitionRequest{ClientID: c.clientID, From: from, To: to, Prefill: prefill}
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/order_status/transition", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var resp types.TransitionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("backend error (status %d): %s", httpResp.StatusCode, string(respBody))
	}
	return &resp, nil
}

// Menu fetches the catalog.
func (c *Client) Menu(ctx context.Context) ([]types.MenuItem, error) {
	var items []types.MenuItem
	if err := c.getJSON(ctx, "/api/menu", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// RealtimeSession is the minted credential for the realtime voice channel.
// Only the ephemeral secret matters to the kiosk; the rest of the provider
// payload is opaque.
type RealtimeSession struct {
	ClientSecret struct {
		Value string `json:"value"`
	} `json:"client_secret"`
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Secret returns the ephemeral key regardless of where the provider put it.
func (s *RealtimeSession) Secret() string {
	if s.ClientSecret.Value != "" {
		return s.ClientSecret.Value
	}
	return s.Value
}

// sessionRequest is the JSON body for POST /api/realtime/session.
type sessionRequest struct {
	ClientID types.ClientID `json:"client_id"`
	Voice    string         `json:"voice,omitempty"`
}

// MintRealtimeSession asks the backend to mint a realtime session for this
// client. Instructions and tool schemas are assembled backend-side; voice
// picks the agent voice and may be empty for the backend default.
func (c *Client) MintRealtimeSession(ctx context.Context, voice string) (*RealtimeSession, error) {
	var sess RealtimeSession
	if err := c.postJSON(ctx, "/api/realtime/session", sessionRequest{ClientID: c.clientID, Voice: voice}, &sess); err != nil {
		return nil, err
	}
	if sess.Error != "" {
		return nil, fmt.Errorf("realtime session: %s", sess.Error)
	}
	if sess.Secret() == "" {
		return nil, fmt.Errorf("realtime session: no ephemeral key in response")
	}
	return &sess, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("backend error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
