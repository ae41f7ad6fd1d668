// internal/types/events.go
package types

import "encoding/json"

// Push event names delivered over the push channel.
const (
	EventCartUpdate  = "cart_update"
	EventOrderStatus = "order_status"
	EventRecommend   = "recommend"
	EventReset       = "reset"
)

// PushEnvelope is the wire frame on the push channel. Data is a typed
// payload keyed by Event.
type PushEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// CartUpdateEvent mirrors a server-side cart mutation. When Cart is
// present it is an authoritative snapshot and replaces the mirror
// wholesale; otherwise Ops are applied incrementally.
type CartUpdateEvent struct {
	ClientID ClientID        `json:"client_id"`
	Ops      []CartOperation `json:"ops"`
	Cart     []CartLine      `json:"cart,omitempty"`
}

// OrderStatusEvent announces a backend-decided order status change.
type OrderStatusEvent struct {
	ClientID ClientID    `json:"client_id"`
	Status   OrderStatus `json:"status"`
	Prefill  *Prefill    `json:"prefill,omitempty"`
	Missing  []string    `json:"missing,omitempty"`
}

// RecommendEvent spotlights items on the kiosk display.
type RecommendEvent struct {
	Names []string `json:"names"`
}

// ToolCall is an inbound structured function invocation from the realtime
// agent. Args tolerates missing or malformed JSON; handlers substitute an
// empty object.
type ToolCall struct {
	Name   string
	CallID CallID
	Args   json.RawMessage
}
