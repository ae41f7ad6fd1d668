// internal/types/interfaces.go
package types

import "context"

// CartStateResponse is the backend's authoritative cart snapshot.
type CartStateResponse struct {
	OK          bool        `json:"ok"`
	ClientID    ClientID    `json:"client_id"`
	Cart        []CartLine  `json:"cart"`
	Total       float64     `json:"total"`
	OrderStatus OrderStatus `json:"order_status"`
}

// TransitionResponse is the backend's answer to a transition request. It is
// returned verbatim to the realtime agent by the transition tool.
type TransitionResponse struct {
	OK      bool        `json:"ok"`
	Status  OrderStatus `json:"status"`
	Changed bool        `json:"changed,omitempty"`
	Missing []string    `json:"missing,omitempty"`
	Prefill *Prefill    `json:"prefill,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Backend is the REST contract the kiosk consumes. The backend owns cart
// contents and order status; every method here either reads that truth or
// asks the backend to change it.
type Backend interface {
	CartState(ctx context.Context) (*CartStateResponse, error)
	SubmitOps(ctx context.Context, ops []CartOperation) error
	Recommend(ctx context.Context, names []string) error
	RecommendReset(ctx context.Context) error
	OrderStatus(ctx context.Context) (OrderStatus, error)
	Transition(ctx context.Context, from, to OrderStatus, prefill *Prefill) (*TransitionResponse, error)
	Menu(ctx context.Context) ([]MenuItem, error)
}

// Presenter receives the surface-switching side effects decided by the
// lifecycle machine and the cart mirror. Implementations render them
// (or, in tests, record them). At most one modal surface is open at a time.
type Presenter interface {
	CloseAll()
	OpenCart()
	// OpenCheckout shows the checkout surface. preserve keeps whatever the
	// customer already typed; a fresh open resets the form.
	OpenCheckout(preserve bool)
	OpenSuccess()
	SetSubmitEnabled(enabled bool)
	ApplyPrefill(p Prefill)
	// CartChanged is invoked after every successful mirror mutation.
	CartChanged(lines []CartLine, total float64, count int)
	// Spotlight highlights recommended items on the display; an empty list
	// clears the highlight.
	Spotlight(names []string)
}

// Catalog resolves item names into priced catalog entries. Lookup is case-
// and whitespace-insensitive. Operations naming unknown items are skipped.
type Catalog interface {
	Resolve(name string) (MenuItem, bool)
}
