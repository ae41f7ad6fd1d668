package checkout

import (
	"context"
	"testing"

	"github.com/vuen/kiosk/internal/types"
)

type transitionRecorder struct {
	calls []types.OrderStatus
}

func (r *transitionRecorder) fn(_ context.Context, to types.OrderStatus, _ *types.Prefill) error {
	r.calls = append(r.calls, to)
	return nil
}

type submitPresenter struct {
	types.Presenter
	enabled bool
}

func (p *submitPresenter) SetSubmitEnabled(enabled bool) { p.enabled = enabled }

func TestSetFieldRequestsTransitionOnChange(t *testing.T) {
	rec := &transitionRecorder{}
	c := NewController(rec.fn, &submitPresenter{})

	c.SetField(context.Background(), "name", "Ada")
	if len(rec.calls) != 1 || rec.calls[0] != types.StatusCheckoutOpen {
		t.Fatalf("expected one transition to 3, got %v", rec.calls)
	}
}

func TestSetFieldsValidFormTransitionsToReady(t *testing.T) {
	rec := &transitionRecorder{}
	p := &submitPresenter{}
	c := NewController(rec.fn, p)

	c.SetFields(context.Background(), Form{
		Name:  "Ada Lovelace",
		Phone: "5551234567",
		Email: "ada@example.com",
		Card:  "4111111111111111",
		Exp:   "12/27",
		CVV:   "123",
	})
	if len(rec.calls) != 1 || rec.calls[0] != types.StatusCheckoutReady {
		t.Fatalf("expected one transition to 4, got %v", rec.calls)
	}
	if !p.enabled {
		t.Error("expected submit enabled for valid form")
	}
}

func TestUnchangedPrefillDoesNotRetransition(t *testing.T) {
	rec := &transitionRecorder{}
	c := NewController(rec.fn, &submitPresenter{})

	// The phone normalizes to the same digits both times; only the first
	// edit represents a real change.
	c.SetField(context.Background(), "phone", "555-123-4567")
	c.SetField(context.Background(), "phone", "(555) 123 4567")
	if len(rec.calls) != 1 {
		t.Fatalf("expected one transition for identical normalized form, got %d", len(rec.calls))
	}
}

func TestUnknownFieldIgnored(t *testing.T) {
	rec := &transitionRecorder{}
	c := NewController(rec.fn, &submitPresenter{})

	if c.SetField(context.Background(), "favorite_color", "blue") {
		t.Error("expected unknown field to be rejected")
	}
	if len(rec.calls) != 0 {
		t.Errorf("unknown field must not transition, got %v", rec.calls)
	}
}

func TestSeedDoesNotTransition(t *testing.T) {
	rec := &transitionRecorder{}
	p := &submitPresenter{}
	c := NewController(rec.fn, p)

	c.Seed(types.Prefill{
		Name:  "Ada Lovelace",
		Phone: "5551234567",
		Email: "ada@example.com",
		Card:  "4111111111111111",
		Exp:   "12/27",
		CVV:   "123",
	})
	if len(rec.calls) != 0 {
		t.Fatalf("seeding backend prefill must not echo a transition, got %v", rec.calls)
	}
	if !p.enabled {
		t.Error("expected submit enabled after seeding a valid prefill")
	}

	// Re-entering the seeded value is not a change either.
	c.SetField(context.Background(), "phone", "555 123 4567")
	if len(rec.calls) != 0 {
		t.Errorf("identical value after seed must not transition, got %v", rec.calls)
	}

	// A genuine edit is.
	c.SetField(context.Background(), "phone", "5559876543")
	if len(rec.calls) != 1 {
		t.Errorf("expected one transition after a real edit, got %v", rec.calls)
	}
}

func TestResetClearsSnapshot(t *testing.T) {
	rec := &transitionRecorder{}
	c := NewController(rec.fn, &submitPresenter{})

	c.SetField(context.Background(), "name", "Ada")
	c.Reset()
	c.SetField(context.Background(), "name", "Ada")
	if len(rec.calls) != 2 {
		t.Fatalf("expected a fresh transition after reset, got %d", len(rec.calls))
	}
}
