// Package mirror maintains the local copy of the backend-authoritative
// cart. The mirror never decides cart contents: authoritative snapshots
// replace it wholesale, and op-level push events mutate it incrementally
// only when no snapshot was supplied. Its one hard invariant is that no
// line ever carries a quantity below 1.
package mirror

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/vuen/kiosk/internal/types"
)

const cacheFile = "cart.json"

// Mirror is the sanitized local cart copy.
type Mirror struct {
	catalog   types.Catalog
	presenter types.Presenter
	dataDir   string

	mu      sync.RWMutex
	lines   []types.CartLine
	blocked bool
}

// New creates an empty mirror. catalog resolves names for op-level adds;
// presenter receives change notifications. Both may be nil in tests.
func New(catalog types.Catalog, presenter types.Presenter, dataDir string) *Mirror {
	return &Mirror{
		catalog:   catalog,
		presenter: presenter,
		dataDir:   dataDir,
	}
}

// Replace sanitizes an untrusted list into valid cart lines and swaps the
// whole mirror. It is the only way authoritative state enters the mirror,
// so it also lifts any replay block.
func (m *Mirror) Replace(raw []types.CartLine) {
	sanitized := Sanitize(raw)

	m.mu.Lock()
	m.lines = sanitized
	m.blocked = false
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(snapshot)
	m.notify(snapshot)
}

// Sanitize drops entries whose quantity is not at least 1 and coerces the
// remaining fields into valid ranges. Applying it to its own output yields
// the same lines.
func Sanitize(raw []types.CartLine) []types.CartLine {
	out := make([]types.CartLine, 0, len(raw))
	for _, l := range raw {
		if l.Qty < 1 {
			continue
		}
		if l.Qty > 99 {
			l.Qty = 99
		}
		if l.Price < 0 {
			l.Price = 0
		}
		out = append(out, l)
	}
	return out
}

// ApplyOperations applies an op batch against the current mirror. It is
// used only when a push event carries no full snapshot. Ops naming items
// unknown to both the mirror and the catalog are skipped. While the mirror
// is replay-blocked (after an order confirmation) the batch is ignored;
// the next authoritative Replace restores normal operation.
func (m *Mirror) ApplyOperations(ops []types.CartOperation) {
	m.mu.Lock()
	if m.blocked {
		m.mu.Unlock()
		slog.Debug("op batch ignored, mirror replay-blocked", "ops", len(ops))
		return
	}

	for _, op := range ops {
		m.applyLocked(op)
	}
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(snapshot)
	m.notify(snapshot)
}

func (m *Mirror) applyLocked(op types.CartOperation) {
	switch op.Op {
	case types.OpClear:
		m.lines = nil

	case types.OpAdd:
		qty := op.Qty
		if qty <= 0 {
			qty = 1
		}
		qty = types.ClampQty(qty)
		if i := m.indexLocked(op.Name); i >= 0 {
			m.lines[i].Qty = types.ClampQty(m.lines[i].Qty + qty)
			return
		}
		item, ok := m.resolve(op.Name)
		if !ok {
			return
		}
		m.lines = append(m.lines, types.CartLine{
			Name:     item.Name,
			Price:    item.Price,
			ImageRef: item.ImageRef,
			Qty:      qty,
		})

	case types.OpRemove:
		qty := op.Qty
		if qty <= 0 {
			qty = 1
		}
		i := m.indexLocked(op.Name)
		if i < 0 {
			return
		}
		if m.lines[i].Qty <= qty {
			m.lines = append(m.lines[:i], m.lines[i+1:]...)
			return
		}
		m.lines[i].Qty -= qty

	case types.OpSet:
		qty := types.ClampQtyAllowZero(op.Qty)
		i := m.indexLocked(op.Name)
		if qty == 0 {
			if i >= 0 {
				m.lines = append(m.lines[:i], m.lines[i+1:]...)
			}
			return
		}
		item, ok := m.resolve(op.Name)
		if !ok {
			return
		}
		if i >= 0 {
			m.lines[i].Qty = qty
			m.lines[i].Price = item.Price
			m.lines[i].ImageRef = item.ImageRef
			return
		}
		m.lines = append(m.lines, types.CartLine{
			Name:     item.Name,
			Price:    item.Price,
			ImageRef: item.ImageRef,
			Qty:      qty,
		})
	}
}

// ConfirmClear empties the mirror and blocks op-level applies until the
// next authoritative snapshot. Used when the order is confirmed so that
// stale in-flight cart events cannot resurrect the cleared cart.
func (m *Mirror) ConfirmClear() {
	m.mu.Lock()
	m.lines = nil
	m.blocked = true
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(snapshot)
	m.notify(snapshot)
}

// IsInCart reports whether a line with the given name exists.
func (m *Mirror) IsInCart(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexLocked(name) >= 0
}

// Lines returns a copy of the current cart lines in insertion order.
func (m *Mirror) Lines() []types.CartLine {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Total returns the derived cart total.
func (m *Mirror) Total() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return types.CartTotal(m.lines)
}

// Count returns the badge number (sum of quantities).
func (m *Mirror) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return types.CartCount(m.lines)
}

// Restore loads the advisory disk cache written by previous runs. The
// cached cart is display bootstrap only; the first authoritative snapshot
// replaces it.
func (m *Mirror) Restore() error {
	data, err := os.ReadFile(filepath.Join(m.dataDir, cacheFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cart cache: %w", err)
	}
	var cached []types.CartLine
	if err := json.Unmarshal(data, &cached); err != nil {
		return fmt.Errorf("unmarshal cart cache: %w", err)
	}
	m.Replace(cached)
	return nil
}

func (m *Mirror) indexLocked(name string) int {
	key := types.NormalizeName(name)
	for i, l := range m.lines {
		if types.NormalizeName(l.Name) == key {
			return i
		}
	}
	return -1
}

func (m *Mirror) resolve(name string) (types.MenuItem, bool) {
	if m.catalog == nil {
		return types.MenuItem{}, false
	}
	return m.catalog.Resolve(name)
}

func (m *Mirror) snapshotLocked() []types.CartLine {
	out := make([]types.CartLine, len(m.lines))
	copy(out, m.lines)
	return out
}

func (m *Mirror) notify(lines []types.CartLine) {
	if m.presenter == nil {
		return
	}
	m.presenter.CartChanged(lines, types.CartTotal(lines), types.CartCount(lines))
}

func (m *Mirror) persist(lines []types.CartLine) {
	if m.dataDir == "" {
		return
	}
	data, err := json.MarshalIndent(lines, "", "  ")
	if err != nil {
		return
	}
	path := filepath.Join(m.dataDir, cacheFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		slog.Debug("cart cache write failed", "error", err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		slog.Debug("cart cache rename failed", "error", err)
	}
}
