// internal/types/models.go
package types

import "strings"

// CartLine is one entry in the cart mirror. Name is the unique key,
// matched case- and whitespace-insensitively. Qty is always in [1,99];
// a line that would drop to zero is removed instead.
type CartLine struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageRef string  `json:"img_ref"`
	Qty      int     `json:"qty"`
}

// OpKind is the kind of a cart operation.
type OpKind string

const (
	OpAdd    OpKind = "add"
	OpRemove OpKind = "remove"
	OpSet    OpKind = "set"
	OpClear  OpKind = "clear"
)

// CartOperation is one mutation in an ordered batch sent to the backend.
// The backend is the single serializer of batches per client identity.
type CartOperation struct {
	Op   OpKind `json:"op"`
	Name string `json:"name,omitempty"`
	Qty  int    `json:"qty,omitempty"`
}

// Prefill is the checkout form data, persisted server-side while checkout
// is open. Phone, Card and CVV are digits-only after normalization.
type Prefill struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
	Card  string `json:"card,omitempty"`
	Exp   string `json:"exp,omitempty"`
	CVV   string `json:"cvv,omitempty"`
}

// MenuItem is a catalog entry, used to resolve operation names into
// priced cart lines.
type MenuItem struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	ImageRef    string  `json:"img_ref"`
	Ingredients string  `json:"ingredients,omitempty"`
	Description string  `json:"description,omitempty"`
}

// NormalizeName lowercases and trims a name for cart/catalog matching.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ClampQty clamps a quantity to [1,99].
func ClampQty(q int) int {
	if q < 1 {
		return 1
	}
	if q > 99 {
		return 99
	}
	return q
}

// ClampQtyAllowZero clamps a quantity to [0,99]. Zero means "delete" for
// set operations.
func ClampQtyAllowZero(q int) int {
	if q < 0 {
		return 0
	}
	if q > 99 {
		return 99
	}
	return q
}

// CartTotal sums price x qty over the given lines.
func CartTotal(lines []CartLine) float64 {
	var total float64
	for _, l := range lines {
		total += l.Price * float64(l.Qty)
	}
	return total
}

// CartCount sums quantities over the given lines (the badge number).
func CartCount(lines []CartLine) int {
	var n int
	for _, l := range lines {
		n += l.Qty
	}
	return n
}
