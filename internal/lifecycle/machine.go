// Package lifecycle drives the order flow. The backend owns the status;
// this machine renders it. Status changes arrive on two channels — push
// events (primary) and REST transition responses (fallback) — and the
// machine guarantees each logical change is applied exactly once: the REST
// response is applied locally only while the push channel is confirmed
// down, otherwise it is discarded because the matching push event is the
// single applier.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vuen/kiosk/internal/mirror"
	"github.com/vuen/kiosk/internal/types"
)

// FormSeeder receives backend-supplied prefill and checkout-close resets.
// Implemented by the checkout controller.
type FormSeeder interface {
	Seed(p types.Prefill)
	Reset()
}

// Finalizer issues the cart clear that precedes an order confirmation.
// Implemented by the dispatcher.
type Finalizer interface {
	FinalizeCart(ctx context.Context)
}

// Machine is the single authority for which surface is visible.
type Machine struct {
	clientID  types.ClientID
	backend   types.Backend
	mirror    *mirror.Mirror
	presenter types.Presenter
	connected func() bool

	mu      sync.Mutex
	current types.OrderStatus

	seeder    FormSeeder
	finalizer Finalizer
}

// New creates a machine at status 0. connected reports push-channel
// liveness and gates the REST fallback path; it must never be nil.
func New(clientID types.ClientID, backend types.Backend, m *mirror.Mirror, presenter types.Presenter, connected func() bool) *Machine {
	return &Machine{
		clientID:  clientID,
		backend:   backend,
		mirror:    m,
		presenter: presenter,
		connected: connected,
		current:   types.StatusEmpty,
	}
}

// SetFormSeeder wires the checkout controller. Set once during startup.
func (m *Machine) SetFormSeeder(s FormSeeder) { m.seeder = s }

// SetFinalizer wires the dispatcher's confirm-clear hook. Set once during
// startup.
func (m *Machine) SetFinalizer(f Finalizer) { m.finalizer = f }

// Current returns the last adopted status.
func (m *Machine) Current() types.OrderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Adopt records a status reported by the backend without performing any
// surface side effects. Used when bootstrapping from a snapshot, where the
// display is being rebuilt anyway.
func (m *Machine) Adopt(s types.OrderStatus) {
	if !s.Known() {
		return
	}
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
}

// ApplyPush applies a status event delivered on the push channel. Events
// for a foreign identity are dropped; unknown status values are logged and
// otherwise ignored.
func (m *Machine) ApplyPush(evt types.OrderStatusEvent) {
	if evt.ClientID != m.clientID {
		slog.Debug("status event for foreign identity dropped", "client_id", evt.ClientID)
		return
	}
	m.apply(evt.Status, evt.Prefill)
}

// apply is the single surface-switching point for both channels.
func (m *Machine) apply(status types.OrderStatus, prefill *types.Prefill) {
	if !status.Known() {
		slog.Warn("unknown order status ignored", "status", int(status))
		return
	}

	m.mu.Lock()
	prev := m.current
	m.current = status
	m.mu.Unlock()
	if prev != status {
		slog.Info("order status", "from", int(prev), "to", int(status))
	}

	switch status {
	case types.StatusHasItems:
		// Reflects "cart has items" without forcing any surface open or
		// closed; whatever the customer has open stays.
		return

	case types.StatusEmpty:
		m.presenter.CloseAll()
		m.resetForm()

	case types.StatusCartOpen:
		m.presenter.OpenCart()
		m.resetForm()

	case types.StatusCheckoutOpen:
		m.presenter.OpenCheckout(false)
		m.seedForm(prefill, false)

	case types.StatusCheckoutReady:
		m.presenter.OpenCheckout(true)
		m.seedForm(prefill, true)

	case types.StatusConfirmed:
		m.mirror.ConfirmClear()
		m.presenter.OpenSuccess()
		m.resetForm()
	}
}

func (m *Machine) seedForm(prefill *types.Prefill, ready bool) {
	if prefill != nil {
		m.presenter.ApplyPrefill(*prefill)
		if m.seeder != nil {
			m.seeder.Seed(*prefill)
		}
	}
	if ready {
		// The backend judged the form complete; the submit control follows
		// its verdict even before local re-validation.
		m.presenter.SetSubmitEnabled(true)
	}
}

func (m *Machine) resetForm() {
	if m.seeder != nil {
		m.seeder.Reset()
	}
}

// RequestTransition asks the backend to move to another status, sending
// the current status as the optimistic "from". A confirmed order (to=5)
// always clears the cart first. The REST response is applied locally only
// when the push channel is down; otherwise the push event is the applier.
// A failed request is logged and returned as a generic failure; there is
// no automatic retry.
func (m *Machine) RequestTransition(ctx context.Context, to types.OrderStatus, prefill *types.Prefill) (*types.TransitionResponse, error) {
	if to == types.StatusConfirmed && m.finalizer != nil {
		m.finalizer.FinalizeCart(ctx)
	}

	from := m.Current()
	resp, err := m.backend.Transition(ctx, from, to, prefill)
	if err != nil {
		slog.Warn("transition request failed", "from", int(from), "to", int(to), "error", err)
		return nil, fmt.Errorf("transition request failed")
	}

	if resp.OK && resp.Status.Known() && !m.connected() {
		// Push delivery is confirmed absent: apply the response as if it
		// were the push event, to avoid a silent desync.
		m.apply(resp.Status, resp.Prefill)
	}
	return resp, nil
}

// SyncFromBackend bootstraps from the authoritative snapshot: the cart
// replaces the mirror wholesale and the reported status is adopted without
// surface side effects.
func (m *Machine) SyncFromBackend(ctx context.Context) error {
	state, err := m.backend.CartState(ctx)
	if err != nil {
		return fmt.Errorf("sync cart state: %w", err)
	}
	if state.ClientID != m.clientID {
		return fmt.Errorf("snapshot for foreign identity %s", state.ClientID)
	}
	m.mirror.Replace(state.Cart)
	m.Adopt(state.OrderStatus)
	return nil
}
