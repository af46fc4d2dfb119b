package domain

import "github.com/shopspring/decimal"

// Price is a tagged priced/unpriced value. A resting MKT order has no price
// until a counterparty or a print assigns one (spec: "unpriced" behaves as
// -inf for BUY matching and +inf for SELL matching).
type Price struct {
	Valid bool
	Value decimal.Decimal
}

// Unpriced returns the sentinel "no price yet" value.
func Unpriced() Price {
	return Price{}
}

// Priced wraps a concrete price.
func Priced(v decimal.Decimal) Price {
	return Price{Valid: true, Value: v}
}

func (p Price) String() string {
	if !p.Valid {
		return "0"
	}
	return p.Value.String()
}
