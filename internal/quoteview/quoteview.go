// Package quoteview implements the read-only quote and view queries over a
// book.Store (spec §4.4). It never mutates the store.
package quoteview

import (
	"github.com/shopspring/decimal"

	"bourse/internal/book"
	"bourse/internal/domain"
)

// Quote is the (bid, ask, last) triple for one symbol.
type Quote struct {
	Symbol string
	Bid    decimal.Decimal
	Ask    decimal.Decimal
	Last   decimal.Decimal
}

// Get returns the best bid, best ask, and last print for symbol. Each is
// zero if none exists, or if every resting order on that side is unpriced —
// unpriced orders never count toward a quote (spec §4.4), which is exactly
// what book.Store.Best already guarantees since it only looks at the priced
// trees.
func Get(store *book.Store, symbol string) Quote {
	q := Quote{Symbol: symbol}
	if o, ok := store.Best(symbol, domain.Buy); ok {
		q.Bid = o.Price.Value
	}
	if o, ok := store.Best(symbol, domain.Sell); ok {
		q.Ask = o.Price.Value
	}
	if h, ok := store.LastPrint(symbol); ok {
		q.Last = h.Price
	}
	return q
}

// View enumerates every order ever inserted this session, in insertion
// order (spec §4.4).
func View(store *book.Store) []*domain.Order {
	return store.IterAll()
}
