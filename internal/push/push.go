// Package push is the client for the server-initiated event stream. It is
// the primary delivery path for cart and order-status changes; the REST
// fallback in the lifecycle machine activates only while this channel is
// confirmed down, which is what Connected reports.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"

	"github.com/vuen/kiosk/internal/lifecycle"
	"github.com/vuen/kiosk/internal/mirror"
	"github.com/vuen/kiosk/internal/types"
)

// Client maintains the websocket connection and dispatches decoded events
// into the mirror, the lifecycle machine, and the presenter.
type Client struct {
	url       string
	clientID  types.ClientID
	mirror    *mirror.Mirror
	machine   *lifecycle.Machine
	presenter types.Presenter

	connected atomic.Bool
}

// New creates a push client. backendURL is the HTTP base of the backend;
// path is the websocket endpoint path.
func New(backendURL, path string, clientID types.ClientID, m *mirror.Mirror, machine *lifecycle.Machine, presenter types.Presenter) (*Client, error) {
	u, err := wsURL(backendURL, path, clientID)
	if err != nil {
		return nil, err
	}
	return &Client{
		url:       u,
		clientID:  clientID,
		mirror:    m,
		machine:   machine,
		presenter: presenter,
	}, nil
}

// Connected reports whether the push channel is currently live. The
// lifecycle machine consults this at the single point where a REST
// transition response would otherwise be double-applied.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// registerFrame announces the client identity after connecting so the
// server can scope event delivery.
type registerFrame struct {
	Type     string         `json:"type"`
	ClientID types.ClientID `json:"client_id"`
}

// Run dials and reads the push channel, reconnecting with jittered
// backoff until ctx is cancelled. Connected flips to true only after
// registration is on the wire, and back to false the moment the read loop
// fails.
func (c *Client) Run(ctx context.Context) {
	retry := backoff.Backoff{Min: time.Second, Max: 30 * time.Second, Jitter: true}

	for {
		if err := c.runOnce(ctx); err != nil {
			slog.Warn("push channel disconnected", "error", err)
		}
		if ctx.Err() != nil {
			return
		}
		select {
		case <-time.After(retry.Duration()):
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial push channel: %w", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(registerFrame{Type: "register", ClientID: c.clientID}); err != nil {
		return fmt.Errorf("register on push channel: %w", err)
	}

	c.connected.Store(true)
	defer c.connected.Store(false)
	slog.Info("push channel connected")

	// Close the socket when ctx ends to unblock the read loop.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read push channel: %w", err)
		}
		c.handle(data)
	}
}

// handle decodes one push frame. Malformed frames and events for foreign
// identities are dropped; neither is an error.
func (c *Client) handle(data []byte) {
	var env types.PushEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		slog.Debug("malformed push frame dropped", "error", err)
		return
	}

	switch env.Event {
	case types.EventCartUpdate:
		var evt types.CartUpdateEvent
		if err := json.Unmarshal(env.Data, &evt); err != nil {
			slog.Debug("malformed cart_update dropped", "error", err)
			return
		}
		c.handleCartUpdate(evt)

	case types.EventOrderStatus:
		var evt types.OrderStatusEvent
		if err := json.Unmarshal(env.Data, &evt); err != nil {
			slog.Debug("malformed order_status dropped", "error", err)
			return
		}
		c.machine.ApplyPush(evt)

	case types.EventRecommend:
		var evt types.RecommendEvent
		if err := json.Unmarshal(env.Data, &evt); err != nil {
			return
		}
		c.presenter.Spotlight(evt.Names)

	case types.EventReset:
		c.presenter.Spotlight(nil)

	default:
		slog.Debug("unknown push event ignored", "event", env.Event)
	}
}

func (c *Client) handleCartUpdate(evt types.CartUpdateEvent) {
	if evt.ClientID != "" && evt.ClientID != c.clientID {
		return
	}

	if evt.Cart != nil {
		// A snapshot accompanies the ops: it is authoritative and the ops
		// are informational.
		c.mirror.Replace(evt.Cart)
	} else {
		c.mirror.ApplyOperations(evt.Ops)
	}

	// A positive add or set means the customer (or the agent) just put
	// something in the cart; surface it.
	for _, op := range evt.Ops {
		if (op.Op == types.OpAdd || op.Op == types.OpSet) && op.Qty > 0 {
			c.presenter.OpenCart()
			return
		}
	}
}

func wsURL(backendURL, path string, clientID types.ClientID) (string, error) {
	u, err := url.Parse(backendURL)
	if err != nil {
		return "", fmt.Errorf("parse backend url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported backend scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	q := u.Query()
	q.Set("client_id", string(clientID))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
