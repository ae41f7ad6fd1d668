// internal/types/ids.go
package types

import "github.com/google/uuid"

// ClientID is the durable, opaque identity of one kiosk device. It is the
// partition key for all backend cart and order state.
type ClientID string

// CallID correlates a tool-call invocation with its result envelope.
type CallID string

func NewClientID() ClientID {
	return ClientID(uuid.New().String())
}
