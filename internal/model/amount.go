package model

import (
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

// AmountScale is the fixed number of decimal places ledger amounts are
// stored and compared at, matching the NUMERIC(19,4) columns.
const AmountScale = 4

// Amount is a fixed-point monetary value, always rounded to AmountScale
// decimal places. It wraps decimal.Decimal instead of a float or a raw
// string so arithmetic never drifts and comparisons are exact.
type Amount struct {
	d decimal.Decimal
}

// ZeroAmount is the additive identity.
var ZeroAmount = Amount{d: decimal.Zero}

// NewAmount builds an Amount from a decimal.Decimal, rounding to AmountScale.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{d: d.Round(AmountScale)}
}

// ParseAmount parses a canonical fixed-point string (as found in JSON bodies
// and database NUMERIC(19,4) columns) into an Amount.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, ErrInvalidAmount
	}
	return NewAmount(d), nil
}

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool {
	return a.d.Sign() > 0
}

// IsNegative reports whether the amount is strictly less than zero.
func (a Amount) IsNegative() bool {
	return a.d.Sign() < 0
}

// Negate returns the additive inverse.
func (a Amount) Negate() Amount {
	return Amount{d: a.d.Neg()}
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return NewAmount(a.d.Add(b.d))
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return NewAmount(a.d.Sub(b.d))
}

// Cmp compares a to b: -1 if a<b, 0 if equal, 1 if a>b.
func (a Amount) Cmp(b Amount) int {
	return a.d.Cmp(b.d)
}

// Equal reports whether a and b represent the same value.
func (a Amount) Equal(b Amount) bool {
	return a.d.Equal(b.d)
}

// Decimal exposes the underlying decimal.Decimal for store/query code.
func (a Amount) Decimal() decimal.Decimal {
	return a.d
}

// String renders the canonical fixed-point representation.
func (a Amount) String() string {
	return a.d.StringFixed(AmountScale)
}

// MarshalJSON renders the amount as a JSON number in canonical fixed-point
// form, so clients always see scale-4 values.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(json.Number(a.String()))
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		var s string
		if err2 := json.Unmarshal(data, &s); err2 != nil {
			return errors.New("amount must be a JSON number or string")
		}
		num = json.Number(s)
	}
	parsed, err := ParseAmount(num.String())
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
