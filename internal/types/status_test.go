package types

import "testing"

func TestStatusKnown(t *testing.T) {
	for s := StatusEmpty; s <= StatusConfirmed; s++ {
		if !s.Known() {
			t.Errorf("status %d should be known", s)
		}
	}
	for _, s := range []OrderStatus{-1, 6, 42} {
		if s.Known() {
			t.Errorf("status %d should not be known", s)
		}
	}
}

func TestStatusSurface(t *testing.T) {
	cases := []struct {
		status OrderStatus
		want   Surface
	}{
		{StatusEmpty, SurfaceNone},
		{StatusHasItems, SurfaceNone},
		{StatusCartOpen, SurfaceCart},
		{StatusCheckoutOpen, SurfaceCheckout},
		{StatusCheckoutReady, SurfaceCheckout},
		{StatusConfirmed, SurfaceSuccess},
	}
	for _, c := range cases {
		if got := c.status.Surface(); got != c.want {
			t.Errorf("status %d: expected surface %q, got %q", c.status, c.want, got)
		}
	}
}

func TestClampQty(t *testing.T) {
	if got := ClampQty(0); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if got := ClampQty(150); got != 99 {
		t.Errorf("expected 99, got %d", got)
	}
	if got := ClampQtyAllowZero(-3); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestCartTotalAndCount(t *testing.T) {
	lines := []CartLine{
		{Name: "Taco", Price: 3.50, Qty: 2},
		{Name: "Burrito", Price: 8.00, Qty: 1},
	}
	if got := CartTotal(lines); got != 15.00 {
		t.Errorf("expected total 15.00, got %.2f", got)
	}
	if got := CartCount(lines); got != 3 {
		t.Errorf("expected count 3, got %d", got)
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("  Carne Asada TACO "); got != "carne asada taco" {
		t.Errorf("unexpected normalization %q", got)
	}
}
