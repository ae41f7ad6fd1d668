package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vuen/kiosk/internal/types"
)

const testClient = types.ClientID("client-a")

func TestCartState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cart/state" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("client_id"); got != string(testClient) {
			t.Errorf("expected client_id %s, got %s", testClient, got)
		}
		json.NewEncoder(w).Encode(types.CartStateResponse{
			OK:          true,
			ClientID:    testClient,
			Cart:        []types.CartLine{{Name: "Taco", Price: 3.50, Qty: 2}},
			Total:       7.00,
			OrderStatus: types.StatusHasItems,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, testClient)
	state, err := c.CartState(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.Cart) != 1 || state.Cart[0].Name != "Taco" {
		t.Errorf("unexpected cart %+v", state.Cart)
	}
	if state.OrderStatus != types.StatusHasItems {
		t.Errorf("unexpected status %d", state.OrderStatus)
	}
}

func TestSubmitOpsBody(t *testing.T) {
	var got struct {
		ClientID types.ClientID        `json:"client_id"`
		Ops      []types.CartOperation `json:"ops"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cart" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, testClient)
	err := c.SubmitOps(context.Background(), []types.CartOperation{{Op: types.OpAdd, Name: "Taco", Qty: 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ClientID != testClient {
		t.Errorf("expected client_id in body, got %q", got.ClientID)
	}
	if len(got.Ops) != 1 || got.Ops[0].Op != types.OpAdd {
		t.Errorf("unexpected ops %+v", got.Ops)
	}
}

func TestRecommendAndReset(t *testing.T) {
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, testClient)
	if err := c.Recommend(context.Background(), []string{"Taco"}); err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if err := c.RecommendReset(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if len(bodies) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(bodies))
	}
	if _, hasReset := bodies[0]["reset"]; hasReset {
		t.Errorf("recommend body must not carry reset, got %v", bodies[0])
	}
	if reset, _ := bodies[1]["reset"].(bool); !reset {
		t.Errorf("expected reset=true, got %v", bodies[1])
	}
}

func TestRecommendEmptyIsNoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty name list")
	}))
	defer srv.Close()

	c := New(srv.URL, testClient)
	if err := c.Recommend(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransitionRejectionDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Rejections arrive as non-2xx with a structured body.
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(types.TransitionResponse{
			OK:     false,
			Status: types.StatusCheckoutOpen,
			Error:  "state_conflict",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, testClient)
	resp, err := c.Transition(context.Background(), types.StatusCheckoutOpen, types.StatusConfirmed, nil)
	if err != nil {
		t.Fatalf("structured rejection must not be an error: %v", err)
	}
	if resp.OK || resp.Error != "state_conflict" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestTransitionSendsFromToPrefill(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(types.TransitionResponse{OK: true, Status: types.StatusCheckoutReady})
	}))
	defer srv.Close()

	c := New(srv.URL, testClient)
	prefill := &types.Prefill{Name: "Ada"}
	resp, err := c.Transition(context.Background(), types.StatusCheckoutOpen, types.StatusCheckoutReady, prefill)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.OK {
		t.Errorf("expected ok, got %+v", resp)
	}
	if got["from"].(float64) != 3 || got["to"].(float64) != 4 {
		t.Errorf("unexpected from/to in body: %v", got)
	}
	if got["prefill"].(map[string]any)["name"] != "Ada" {
		t.Errorf("expected prefill in body, got %v", got)
	}
}

func TestOrderStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/order_status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"ok":true,"status":2}`))
	}))
	defer srv.Close()

	c := New(srv.URL, testClient)
	status, err := c.OrderStatus(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != types.StatusCartOpen {
		t.Errorf("expected status 2, got %d", status)
	}
}

func TestMintRealtimeSessionSecretLocations(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"nested secret", `{"client_secret":{"value":"ek_nested"}}`, "ek_nested"},
		{"flat secret", `{"value":"ek_flat"}`, "ek_flat"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					Voice string `json:"voice"`
				}
				json.NewDecoder(r.Body).Decode(&req)
				if req.Voice != "verse" {
					t.Errorf("expected voice verse in request, got %q", req.Voice)
				}
				w.Write([]byte(c.body))
			}))
			defer srv.Close()

			client := New(srv.URL, testClient)
			sess, err := client.MintRealtimeSession(context.Background(), "verse")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sess.Secret() != c.want {
				t.Errorf("expected secret %q, got %q", c.want, sess.Secret())
			}
		})
	}
}

func TestMintRealtimeSessionMissingSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, testClient)
	if _, err := c.MintRealtimeSession(context.Background(), ""); err == nil {
		t.Fatal("expected error for missing secret")
	}
}
