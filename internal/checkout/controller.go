// internal/checkout/controller.go
package checkout

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/vuen/kiosk/internal/types"
)

// TransitionFunc requests an order-status transition carrying prefill.
// Provided by the lifecycle machine.
type TransitionFunc func(ctx context.Context, to types.OrderStatus, prefill *types.Prefill) error

// Controller is the sole write path from form edits to backend state.
// Every field change re-validates and, when the normalized snapshot
// differs from the last transmitted one, requests a transition to status 4
// (valid) or 3 (invalid). The snapshot comparison is the debounce: a
// keystroke that does not change the normalized form sends nothing.
type Controller struct {
	transition TransitionFunc
	presenter  types.Presenter

	mu           sync.Mutex
	form         Form
	lastSnapshot string
}

// NewController creates a controller. transition is invoked outside the
// controller's lock and is fire-and-forget from the caller's view.
func NewController(transition TransitionFunc, presenter types.Presenter) *Controller {
	return &Controller{
		transition: transition,
		presenter:  presenter,
	}
}

// SetField updates one field by its wire name and runs the change policy.
// It reports whether the field name was recognized.
func (c *Controller) SetField(ctx context.Context, field, value string) bool {
	c.mu.Lock()
	switch field {
	case "name":
		c.form.Name = value
	case "phone":
		c.form.Phone = value
	case "email":
		c.form.Email = value
	case "card":
		c.form.Card = value
	case "exp":
		c.form.Exp = value
	case "cvv":
		c.form.CVV = value
	default:
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()
	c.apply(ctx)
	return true
}

// SetFields replaces the whole form and runs the change policy once.
func (c *Controller) SetFields(ctx context.Context, f Form) {
	c.mu.Lock()
	c.form = f
	c.mu.Unlock()
	c.apply(ctx)
}

// Seed installs backend-supplied prefill without requesting a transition:
// the backend already knows these values, so echoing them straight back
// would double-apply the very event that delivered them. The snapshot is
// set so the next genuine edit is what triggers the next request.
func (c *Controller) Seed(p types.Prefill) {
	f := Form{Name: p.Name, Phone: p.Phone, Email: p.Email, Card: p.Card, Exp: p.Exp, CVV: p.CVV}
	res := Validate(f)

	c.mu.Lock()
	c.form = f
	c.lastSnapshot = snapshotOf(res.Normalized)
	c.mu.Unlock()

	if c.presenter != nil {
		c.presenter.SetSubmitEnabled(res.Valid)
	}
}

// Reset discards the form and the snapshot. Called when checkout closes
// (status 0, 2 or 5); prefill is ephemeral while checkout is open.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.form = Form{}
	c.lastSnapshot = ""
	c.mu.Unlock()
}

func (c *Controller) apply(ctx context.Context) {
	c.mu.Lock()
	res := Validate(c.form)
	snap := snapshotOf(res.Normalized)
	changed := snap != c.lastSnapshot
	if changed {
		c.lastSnapshot = snap
	}
	c.mu.Unlock()

	if c.presenter != nil {
		c.presenter.SetSubmitEnabled(res.Valid)
	}
	if !changed {
		return
	}

	to := types.StatusCheckoutOpen
	if res.Valid {
		to = types.StatusCheckoutReady
	}
	prefill := res.Normalized
	if err := c.transition(ctx, to, &prefill); err != nil {
		slog.Warn("checkout transition request failed", "to", int(to), "error", err)
	}
}

func snapshotOf(p types.Prefill) string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}
