// Package surface tracks which modal surface is visible on the kiosk.
// The DOM layer renders from this state; the tracker itself only records
// the side effects the lifecycle machine and the mirror decide.
package surface

import (
	"log/slog"
	"sync"

	"github.com/vuen/kiosk/internal/types"
)

// State is a point-in-time view of everything the display renders.
type State struct {
	Surface       types.Surface    `json:"surface"`
	SubmitEnabled bool             `json:"submit_enabled"`
	Prefill       types.Prefill    `json:"prefill"`
	Cart          []types.CartLine `json:"cart"`
	Total         float64          `json:"total"`
	Badge         int              `json:"badge"`
	Spotlight     []string         `json:"spotlight,omitempty"`
}

// Tracker implements types.Presenter. Holding the visible surface in a
// single field makes "at most one modal open" structural rather than
// something to re-check.
type Tracker struct {
	mu    sync.RWMutex
	state State
}

var _ types.Presenter = (*Tracker)(nil)

// New creates a tracker with no surface visible.
func New() *Tracker {
	return &Tracker{state: State{Surface: types.SurfaceNone, Cart: []types.CartLine{}}}
}

func (t *Tracker) CloseAll() {
	t.setSurface(types.SurfaceNone)
}

func (t *Tracker) OpenCart() {
	t.setSurface(types.SurfaceCart)
}

func (t *Tracker) OpenCheckout(preserve bool) {
	t.mu.Lock()
	t.state.Surface = types.SurfaceCheckout
	if !preserve {
		t.state.Prefill = types.Prefill{}
		t.state.SubmitEnabled = false
	}
	t.mu.Unlock()
	slog.Debug("surface switched", "surface", types.SurfaceCheckout, "preserve", preserve)
}

func (t *Tracker) OpenSuccess() {
	t.setSurface(types.SurfaceSuccess)
}

func (t *Tracker) SetSubmitEnabled(enabled bool) {
	t.mu.Lock()
	t.state.SubmitEnabled = enabled
	t.mu.Unlock()
}

func (t *Tracker) ApplyPrefill(p types.Prefill) {
	t.mu.Lock()
	t.state.Prefill = p
	t.mu.Unlock()
}

func (t *Tracker) CartChanged(lines []types.CartLine, total float64, count int) {
	t.mu.Lock()
	t.state.Cart = lines
	t.state.Total = total
	t.state.Badge = count
	t.mu.Unlock()
	slog.Debug("cart changed", "lines", len(lines), "total", total, "badge", count)
}

func (t *Tracker) Spotlight(names []string) {
	t.mu.Lock()
	t.state.Spotlight = names
	t.mu.Unlock()
}

// Snapshot returns a copy of the current display state.
func (t *Tracker) Snapshot() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.state
	s.Cart = append([]types.CartLine(nil), t.state.Cart...)
	s.Spotlight = append([]string(nil), t.state.Spotlight...)
	return s
}

// Surface returns the currently visible surface.
func (t *Tracker) Surface() types.Surface {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.Surface
}

func (t *Tracker) setSurface(s types.Surface) {
	t.mu.Lock()
	t.state.Surface = s
	t.mu.Unlock()
	slog.Debug("surface switched", "surface", s)
}
