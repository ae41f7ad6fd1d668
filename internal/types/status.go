// internal/types/status.go
package types

import "fmt"

// OrderStatus is the backend-owned order flow step. The kiosk never
// computes it; it only mirrors the last value the backend reported.
type OrderStatus int

const (
	// StatusEmpty: the cart is empty. No surface is visible.
	StatusEmpty OrderStatus = 0
	// StatusHasItems: the cart has items but nothing is open. Applying it
	// changes no surface; whatever the user has open stays open.
	StatusHasItems OrderStatus = 1
	// StatusCartOpen: the cart panel is visible.
	StatusCartOpen OrderStatus = 2
	// StatusCheckoutOpen: checkout is visible, form incomplete, submit disabled.
	StatusCheckoutOpen OrderStatus = 3
	// StatusCheckoutReady: checkout is visible, form valid, submit enabled.
	StatusCheckoutReady OrderStatus = 4
	// StatusConfirmed: the order was placed; the success surface is visible.
	StatusConfirmed OrderStatus = 5
)

// Known reports whether s is one of the six defined statuses. Unknown
// values are ignored by the lifecycle machine, never acted on.
func (s OrderStatus) Known() bool {
	return s >= StatusEmpty && s <= StatusConfirmed
}

// Surface identifies the mutually-exclusive modal surface a status maps to.
type Surface string

const (
	SurfaceNone     Surface = "none"
	SurfaceCart     Surface = "cart"
	SurfaceCheckout Surface = "checkout"
	SurfaceSuccess  Surface = "success"
)

// Surface returns the surface a status renders. StatusHasItems maps to
// SurfaceNone but is special-cased by the lifecycle machine: it leaves the
// current surface untouched.
func (s OrderStatus) Surface() Surface {
	switch s {
	case StatusCartOpen:
		return SurfaceCart
	case StatusCheckoutOpen, StatusCheckoutReady:
		return SurfaceCheckout
	case StatusConfirmed:
		return SurfaceSuccess
	default:
		return SurfaceNone
	}
}

// Describe returns the natural-language description spoken back to the
// customer by the get-order-status tool.
func (s OrderStatus) Describe() string {
	switch s {
	case StatusEmpty:
		return "Your cart is empty."
	case StatusHasItems:
		return "You have items in your cart."
	case StatusCartOpen:
		return "Your cart is open."
	case StatusCheckoutOpen:
		return "We are at checkout. I still need the form details."
	case StatusCheckoutReady:
		return "Details complete, you can finalize the order."
	case StatusConfirmed:
		return "Showing your order confirmation."
	default:
		return fmt.Sprintf("Current status: %d", int(s))
	}
}
