// Package dispatch sends cart operation batches to the backend. Submission
// is fire-and-forget: callers enqueue and return immediately, errors are
// swallowed, and the push channel (or the next snapshot sync) corrects any
// drift. A successful submission also broadcasts the net-added item names
// to the recommendation side-channel.
package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/vuen/kiosk/internal/types"
)

// batch is one unit of work on the lane: either an op submission or a
// recommendation reset.
type batch struct {
	ops   []types.CartOperation
	reset bool
}

// Dispatcher owns a single lane of batches. Batches leave the lane in
// submission order but are sent concurrently, with the semaphore capping
// how many are in flight at once; the backend serializes per client
// identity, so relative ordering of concurrent sends is its call.
type Dispatcher struct {
	backend   types.Backend
	lane      chan batch
	semaphore *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Dispatcher with the given in-flight cap.
func New(backend types.Backend, maxInFlight int64) *Dispatcher {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &Dispatcher{
		backend:   backend,
		lane:      make(chan batch, 100),
		semaphore: semaphore.NewWeighted(maxInFlight),
	}
}

// Start begins draining the lane. Must be called before Submit.
func (d *Dispatcher) Start(ctx context.Context) {
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(1)
	go d.drain()
}

// Stop cancels outstanding work and waits for the worker and any
// in-flight sends to finish.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

// Submit enqueues an operation batch. It never blocks: a full lane drops
// the batch with a warning, on the grounds that the backend snapshot will
// converge the mirror regardless.
func (d *Dispatcher) Submit(ops []types.CartOperation) {
	if len(ops) == 0 {
		return
	}
	select {
	case d.lane <- batch{ops: ops}:
	default:
		slog.Warn("dispatch lane full, batch dropped", "ops", len(ops))
	}
}

// Reset enqueues a recommendation reset, used whenever the cart or
// checkout is cleared.
func (d *Dispatcher) Reset() {
	select {
	case d.lane <- batch{reset: true}:
	default:
		slog.Warn("dispatch lane full, reset dropped")
	}
}

// FinalizeCart clears the recommendation display and submits a cart clear,
// synchronously, so the clear is on the wire before the caller sends the
// order-confirmation transition. Both calls are best-effort.
func (d *Dispatcher) FinalizeCart(ctx context.Context) {
	if err := d.backend.RecommendReset(ctx); err != nil {
		slog.Warn("recommend reset failed", "error", err)
	}
	if err := d.backend.SubmitOps(ctx, []types.CartOperation{{Op: types.OpClear}}); err != nil {
		slog.Warn("cart clear submit failed", "error", err)
	}
}

func (d *Dispatcher) drain() {
	defer d.wg.Done()
	for {
		select {
		case b := <-d.lane:
			if err := d.semaphore.Acquire(d.ctx, 1); err != nil {
				return
			}
			d.wg.Add(1)
			go func(b batch) {
				defer d.wg.Done()
				defer d.semaphore.Release(1)
				d.process(b)
			}(b)
		case <-d.ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) process(b batch) {
	if b.reset {
		if err := d.backend.RecommendReset(d.ctx); err != nil {
			slog.Warn("recommend reset failed", "error", err)
		}
		return
	}

	if err := d.backend.SubmitOps(d.ctx, b.ops); err != nil {
		// Swallowed: the next authoritative snapshot or push event heals
		// the mirror.
		slog.Warn("cart submit failed", "ops", len(b.ops), "error", err)
		return
	}

	if names := AddedNames(b.ops); len(names) > 0 {
		if err := d.backend.Recommend(d.ctx, names); err != nil {
			slog.Warn("recommend broadcast failed", "error", err)
		}
	}
}

// AddedNames extracts the names net-added by a batch: add ops (a missing
// quantity means one) and set ops with a positive quantity. Names are
// deduplicated case-insensitively, first spelling wins, insertion order
// preserved.
func AddedNames(ops []types.CartOperation) []string {
	seen := make(map[string]bool, len(ops))
	var out []string
	for _, op := range ops {
		name := op.Name
		if name == "" {
			continue
		}
		added := false
		switch op.Op {
		case types.OpAdd:
			// A missing quantity means one, so every add is a net add.
			added = true
		case types.OpSet:
			added = op.Qty > 0
		}
		if !added {
			continue
		}
		key := types.NormalizeName(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}
