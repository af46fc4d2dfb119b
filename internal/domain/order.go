// Package domain holds the order/history record types shared by the book,
// matching, and persistence layers.
package domain

import "github.com/shopspring/decimal"

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

type Kind int

const (
	Market Kind = iota
	Limit
	StopLoss
)

func (k Kind) String() string {
	switch k {
	case Market:
		return "MKT"
	case Limit:
		return "LMT"
	case StopLoss:
		return "STOPLOSS"
	default:
		return "UNKNOWN"
	}
}

type Status int

const (
	Pending Status = iota
	Partial
	Filled
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Partial:
		return "PARTIAL"
	case Filled:
		return "FILLED"
	default:
		return "UNKNOWN"
	}
}

// Order is the domain entity for a single resting or filled order.
//
// ID is the monotonic insertion counter: unique, totally ordered, and the
// tie-breaker for price-time priority (invariant 5). Ref is an opaque
// correlation handle for logs only — it plays no role in matching.
type Order struct {
	ID         uint64
	Ref        string
	StockName  string
	Side       Side
	Kind       Kind
	Price      Price
	Total      uint64
	Filled     uint64
	Status     Status
}

// Residual is the unfilled quantity remaining on the order.
func (o *Order) Residual() uint64 {
	return o.Total - o.Filled
}

// ApplyFill books a fill of the given quantity at the given print price,
// advancing Status per invariant 1. Never call this on a Filled order
// (invariant 2).
func (o *Order) ApplyFill(qty uint64, print Price) {
	o.Filled += qty
	if o.Kind == Market && !o.Price.Valid {
		o.Price = print
	}
	switch {
	case o.Filled == o.Total:
		o.Status = Filled
	case o.Filled > 0:
		o.Status = Partial
	}
}

// Document is the flat field-map representation used at the persistence
// boundary (spec §6 "persisted state") and for round-tripping (spec §8).
type Document struct {
	ID        uint64
	StockName string
	Side      string
	Kind      string
	Price     *decimal.Decimal
	Total     uint64
	Filled    uint64
	Status    string
	Ref       string
}

// ToDocument flattens an Order to its field-map form.
func (o Order) ToDocument() Document {
	doc := Document{
		ID:        o.ID,
		StockName: o.StockName,
		Side:      o.Side.String(),
		Kind:      o.Kind.String(),
		Total:     o.Total,
		Filled:    o.Filled,
		Status:    o.Status.String(),
		Ref:       o.Ref,
	}
	if o.Price.Valid {
		v := o.Price.Value
		doc.Price = &v
	}
	return doc
}

// FromDocument reconstructs an Order from its field-map form.
func FromDocument(doc Document) Order {
	o := Order{
		ID:        doc.ID,
		StockName: doc.StockName,
		Total:     doc.Total,
		Filled:    doc.Filled,
		Ref:       doc.Ref,
	}
	if doc.Side == "SELL" {
		o.Side = Sell
	}
	switch doc.Kind {
	case "LMT":
		o.Kind = Limit
	case "STOPLOSS":
		o.Kind = StopLoss
	default:
		o.Kind = Market
	}
	switch doc.Status {
	case "PARTIAL":
		o.Status = Partial
	case "FILLED":
		o.Status = Filled
	default:
		o.Status = Pending
	}
	if doc.Price != nil {
		o.Price = Priced(*doc.Price)
	}
	return o
}

// History is a single print: (id, stock_name, price). ID is monotonic;
// the newest entry per symbol defines the "last print".
type History struct {
	ID        uint64
	StockName string
	Price     decimal.Decimal
}
