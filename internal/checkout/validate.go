// internal/checkout/validate.go
package checkout

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/vuen/kiosk/internal/types"
)

// Form is the raw checkout input as typed by the customer (or supplied by
// the voice agent). All fields are free text before normalization.
type Form struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Card  string `json:"card"`
	Exp   string `json:"exp"`
	CVV   string `json:"cvv"`
}

// Result is the outcome of validating a form. Normalized carries the
// cleaned field values transmitted to the backend as prefill; Missing
// lists the fields that failed, in form order.
type Result struct {
	Valid      bool
	Missing    []string
	Normalized types.Prefill
}

var (
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	expiryRe   = regexp.MustCompile(`^\d{2}/\d{2}$`)
	nonDigitRe = regexp.MustCompile(`\D+`)
)

func digitsOnly(s string) string {
	return nonDigitRe.ReplaceAllString(s, "")
}

// Validate is a pure function over the six checkout fields. Rules: name
// non-empty; phone digits-only length >= 7; email of conventional shape;
// card digits-only length in [13,19]; expiry MM/YY with month in [1,12];
// CVV digits-only length 3 or 4.
func Validate(f Form) Result {
	p := types.Prefill{
		Name:  strings.TrimSpace(f.Name),
		Phone: digitsOnly(f.Phone),
		Email: strings.TrimSpace(f.Email),
		Card:  digitsOnly(f.Card),
		Exp:   strings.TrimSpace(f.Exp),
		CVV:   digitsOnly(f.CVV),
	}

	var missing []string
	if p.Name == "" {
		missing = append(missing, "name")
	}
	if len(p.Phone) < 7 {
		missing = append(missing, "phone")
	}
	if !emailRe.MatchString(p.Email) {
		missing = append(missing, "email")
	}
	if len(p.Card) < 13 || len(p.Card) > 19 {
		missing = append(missing, "card")
	}
	if !validExpiry(p.Exp) {
		missing = append(missing, "exp")
	}
	if len(p.CVV) != 3 && len(p.CVV) != 4 {
		missing = append(missing, "cvv")
	}

	return Result{
		Valid:      len(missing) == 0,
		Missing:    missing,
		Normalized: p,
	}
}

func validExpiry(exp string) bool {
	if !expiryRe.MatchString(exp) {
		return false
	}
	month, err := strconv.Atoi(exp[:2])
	if err != nil {
		return false
	}
	return month >= 1 && month <= 12
}
