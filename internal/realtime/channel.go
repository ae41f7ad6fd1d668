// Package realtime establishes the bidirectional event channel to the
// voice provider over a WebRTC data channel. The backend mints the session
// credential; this package only carries JSON events in both directions and
// hands inbound ones to the bridge.
package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/vuen/kiosk/internal/backend"
)

// iceGatherTimeout is the maximum time to wait for ICE candidate gathering
// to complete before posting the SDP offer.
const iceGatherTimeout = 15 * time.Second

// EventHandler consumes inbound channel events. The bridge implements it.
type EventHandler interface {
	Start()
	HandleEvent(ctx context.Context, raw []byte)
}

// Channel is one realtime session: a PeerConnection with a single events
// data channel. It satisfies the bridge's Sender.
type Channel struct {
	baseURL string
	model   string
	voice   string
	backend *backend.Client
	handler EventHandler

	httpClient *http.Client

	mu   sync.Mutex
	pc   *webrtc.PeerConnection
	data *webrtc.DataChannel

	closeOnce sync.Once
	closed    chan struct{}
}

// New creates an unconnected channel. baseURL is the provider's realtime
// endpoint; model and voice select the session model and agent voice.
func New(baseURL, model, voice string, b *backend.Client, handler EventHandler) *Channel {
	return &Channel{
		baseURL:    baseURL,
		model:      model,
		voice:      voice,
		backend:    b,
		handler:    handler,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		closed:     make(chan struct{}),
	}
}

// Connect mints a session credential, performs the SDP exchange, and wires
// the events data channel to the handler. It returns once the remote
// answer is applied; the data channel opens asynchronously.
func (c *Channel) Connect(ctx context.Context) error {
	sess, err := c.backend.MintRealtimeSession(ctx, c.voice)
	if err != nil {
		return fmt.Errorf("minting realtime session: %w", err)
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return fmt.Errorf("creating PeerConnection: %w", err)
	}

	dc, err := pc.CreateDataChannel("oai-events", nil)
	if err != nil {
		pc.Close()
		return fmt.Errorf("creating events data channel: %w", err)
	}

	dc.OnOpen(func() {
		slog.Info("realtime channel open")
		c.handler.Start()
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		c.handler.HandleEvent(context.Background(), msg.Data)
	})
	dc.OnClose(func() {
		slog.Info("realtime channel closed")
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		slog.Debug("realtime peer state change", "state", state.String())
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return fmt.Errorf("creating SDP offer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		return fmt.Errorf("setting local description: %w", err)
	}

	// Vanilla ICE: gather every candidate before posting the offer so the
	// exchange is a single round-trip.
	select {
	case <-gatherComplete:
	case <-time.After(iceGatherTimeout):
		pc.Close()
		return fmt.Errorf("ICE gathering timed out after %s", iceGatherTimeout)
	case <-ctx.Done():
		pc.Close()
		return ctx.Err()
	}

	answerSDP, err := c.exchangeSDP(ctx, pc.LocalDescription().SDP, sess.Secret())
	if err != nil {
		pc.Close()
		return err
	}

	answer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answerSDP,
	}
	if err := pc.SetRemoteDescription(answer); err != nil {
		pc.Close()
		return fmt.Errorf("setting remote description: %w", err)
	}

	c.mu.Lock()
	c.pc = pc
	c.data = dc
	c.mu.Unlock()

	slog.Info("realtime session established", "model", c.model)
	return nil
}

// exchangeSDP posts the local offer to the provider and returns the answer
// SDP.
func (c *Channel) exchangeSDP(ctx context.Context, offerSDP, secret string) (string, error) {
	endpoint := c.baseURL + "?model=" + url.QueryEscape(c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(offerSDP))
	if err != nil {
		return "", fmt.Errorf("building SDP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+secret)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("posting SDP offer: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading SDP answer: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("SDP exchange returned %d: %s", resp.StatusCode, body)
	}
	return string(body), nil
}

// Send marshals an event and writes it to the data channel.
func (c *Channel) Send(v any) error {
	c.mu.Lock()
	dc := c.data
	c.mu.Unlock()
	if dc == nil {
		return fmt.Errorf("realtime channel not connected")
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding realtime event: %w", err)
	}
	return dc.SendText(string(payload))
}

// Close tears down the session.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.data != nil {
			c.data.Close()
		}
		if c.pc != nil {
			err = c.pc.Close()
		}
	})
	return err
}
