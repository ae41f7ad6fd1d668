// internal/control/server.go
package control

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/vuen/kiosk/internal/checkout"
	"github.com/vuen/kiosk/internal/dispatch"
	"github.com/vuen/kiosk/internal/lifecycle"
	"github.com/vuen/kiosk/internal/surface"
	"github.com/vuen/kiosk/internal/types"
)

// Server is the local control-plane handler: the touch UI (or an operator
// poking with curl) reads kiosk state and feeds user input through it.
type Server struct {
	clientID   types.ClientID
	tracker    *surface.Tracker
	machine    *lifecycle.Machine
	form       *checkout.Controller
	dispatcher *dispatch.Dispatcher
	connected  func() bool
	mux        *http.ServeMux
}

// NewServer creates the control server.
func NewServer(clientID types.ClientID, tracker *surface.Tracker, machine *lifecycle.Machine, form *checkout.Controller, dispatcher *dispatch.Dispatcher, connected func() bool) *Server {
	s := &Server{
		clientID:   clientID,
		tracker:    tracker,
		machine:    machine,
		form:       form,
		dispatcher: dispatcher,
		connected:  connected,
		mux:        http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("POST /api/checkout/fields", s.handleCheckoutFields)
	s.mux.HandleFunc("POST /api/cart/ops", s.handleCartOps)
	s.mux.HandleFunc("POST /api/order/confirm", s.handleConfirm)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// stateResponse is everything a renderer needs to draw one frame.
type stateResponse struct {
	ClientID      types.ClientID    `json:"client_id"`
	OrderStatus   types.OrderStatus `json:"order_status"`
	PushConnected bool              `json:"push_connected"`
	Surface       surface.State     `json:"surface"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	resp := stateResponse{
		ClientID:      s.clientID,
		OrderStatus:   s.machine.Current(),
		PushConnected: s.connected(),
		Surface:       s.tracker.Snapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// fieldsRequest carries checkout keystrokes. Either a single field update
// or a whole form; a whole form wins when both are present.
type fieldsRequest struct {
	Field string         `json:"field,omitempty"`
	Value string         `json:"value,omitempty"`
	Form  *checkout.Form `json:"form,omitempty"`
}

func (s *Server) handleCheckoutFields(w http.ResponseWriter, r *http.Request) {
	var req fieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	switch {
	case req.Form != nil:
		s.form.SetFields(r.Context(), *req.Form)
	case req.Field != "":
		if !s.form.SetField(r.Context(), req.Field, req.Value) {
			http.Error(w, `{"error":"unknown field"}`, http.StatusBadRequest)
			return
		}
	default:
		http.Error(w, `{"error":"field or form required"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// opsRequest is a batch of cart operations from the touch UI.
type opsRequest struct {
	Ops []types.CartOperation `json:"ops"`
}

func (s *Server) handleCartOps(w http.ResponseWriter, r *http.Request) {
	var req opsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if len(req.Ops) == 0 {
		http.Error(w, `{"error":"ops required"}`, http.StatusBadRequest)
		return
	}

	s.dispatcher.Submit(req.Ops)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// handleConfirm is the pay button: it asks for the confirmed status and
// reports the backend's verdict.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	resp, err := s.machine.RequestTransition(r.Context(), types.StatusConfirmed, nil)
	if err != nil {
		slog.Warn("order confirm failed", "error", err)
		http.Error(w, `{"error":"order could not be confirmed"}`, http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
