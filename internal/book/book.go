// Package book implements the in-memory, multi-symbol order book store of
// spec.md §4.1: per-symbol price-level trees for priced resting orders, FIFO
// queues for unpriced resting MKT orders and pending STOPLOSS orders, plus
// the query surface the matching engine and quote/view layers need.
package book

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"bourse/internal/domain"
)

var ErrUnknownOrder = errors.New("book: unknown order id")

// Level holds every resting order at one price, in arrival (FIFO) order.
type Level struct {
	Price  decimal.Decimal
	Orders []*domain.Order
}

// Levels is the price-level index for one side of one symbol's book.
type Levels = btree.BTreeG[*Level]

// Symbol is the book of one stock: two priced trees, two unpriced FIFOs for
// resting MKT orders awaiting a print, and two FIFOs for pending STOPLOSS
// orders awaiting promotion.
type Symbol struct {
	Name string

	bids *Levels // sorted highest price first
	asks *Levels // sorted lowest price first

	unpricedBuys  []*domain.Order
	unpricedSells []*domain.Order

	stopsBuy  []*domain.Order
	stopsSell []*domain.Order

	lastPrint domain.History
	hasPrint  bool
}

func newSymbol(name string) *Symbol {
	return &Symbol{
		Name: name,
		bids: btree.NewBTreeG(func(a, b *Level) bool { return a.Price.GreaterThan(b.Price) }),
		asks: btree.NewBTreeG(func(a, b *Level) bool { return a.Price.LessThan(b.Price) }),
	}
}

func (sym *Symbol) levels(side domain.Side) *Levels {
	if side == domain.Buy {
		return sym.bids
	}
	return sym.asks
}

func (sym *Symbol) unpriced(side domain.Side) *[]*domain.Order {
	if side == domain.Buy {
		return &sym.unpricedBuys
	}
	return &sym.unpricedSells
}

func (sym *Symbol) stops(side domain.Side) *[]*domain.Order {
	if side == domain.Buy {
		return &sym.stopsBuy
	}
	return &sym.stopsSell
}

// insert routes a resting order (Status != Filled) into its bucket based on
// its current Kind/Side/Price.
func (sym *Symbol) insert(o *domain.Order) {
	if o.Kind == domain.StopLoss {
		q := sym.stops(o.Side)
		*q = append(*q, o)
		return
	}
	if !o.Price.Valid {
		q := sym.unpriced(o.Side)
		*q = append(*q, o)
		return
	}
	levels := sym.levels(o.Side)
	key := &Level{Price: o.Price.Value}
	lvl, ok := levels.Get(key)
	if !ok {
		lvl = &Level{Price: o.Price.Value}
		levels.Set(lvl)
	}
	lvl.Orders = append(lvl.Orders, o)
}

// remove splices an order out of the bucket it previously occupied, given
// the state it had *before* the in-flight mutation (kind/side/price may be
// about to change, e.g. stop promotion or repricing).
func (sym *Symbol) remove(o *domain.Order, side domain.Side, kind domain.Kind, price domain.Price) {
	if kind == domain.StopLoss {
		q := sym.stops(side)
		*q = spliceOut(*q, o)
		return
	}
	if !price.Valid {
		q := sym.unpriced(side)
		*q = spliceOut(*q, o)
		return
	}
	levels := sym.levels(side)
	key := &Level{Price: price.Value}
	lvl, ok := levels.Get(key)
	if !ok {
		return
	}
	lvl.Orders = spliceOut(lvl.Orders, o)
	if len(lvl.Orders) == 0 {
		levels.Delete(key)
	}
}

func spliceOut(orders []*domain.Order, target *domain.Order) []*domain.Order {
	for i, o := range orders {
		if o == target {
			return append(orders[:i], orders[i+1:]...)
		}
	}
	return orders
}

// Store is the multi-symbol book. A single mutex guards it: the matching
// engine is the only writer and is itself single-threaded (spec §5), so this
// is a belt-and-suspenders guard for concurrent read-only Quote/View calls,
// not a correctness requirement of matching.
type Store struct {
	mu sync.Mutex

	nextID     uint64
	historySeq uint64

	symbols map[string]*Symbol
	byID    map[uint64]*domain.Order
	order   []uint64 // insertion order, for IterAll/View
}

func NewStore() *Store {
	return &Store{
		symbols: make(map[string]*Symbol),
		byID:    make(map[uint64]*domain.Order),
	}
}

func (s *Store) symbolFor(name string) *Symbol {
	sym, ok := s.symbols[name]
	if !ok {
		sym = newSymbol(name)
		s.symbols[name] = sym
	}
	return sym
}

// Insert admits a new order, assigning it the next monotonic id, and rests
// it in the appropriate bucket unless it arrives already Filled.
func (s *Store) Insert(o *domain.Order) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	o.ID = s.nextID
	s.byID[o.ID] = o
	s.order = append(s.order, o.ID)

	if o.Status != domain.Filled {
		s.symbolFor(o.StockName).insert(o)
	}
	return o.ID
}

// Update looks up the order by id and applies patch to it, re-homing it in
// the book if its bucket-determining fields (Side/Kind/Price, or Status
// becoming Filled) changed. An order that stays in its bucket keeps its
// place in the FIFO.
func (s *Store) Update(id uint64, patch func(*domain.Order)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.byID[id]
	if !ok {
		return ErrUnknownOrder
	}
	sym := s.symbolFor(o.StockName)

	oldSide, oldKind, oldPrice, oldStatus := o.Side, o.Kind, o.Price, o.Status

	patch(o)

	samePrice := o.Price.Valid == oldPrice.Valid && (!o.Price.Valid || o.Price.Value.Equal(oldPrice.Value))
	if oldStatus != domain.Filled && o.Status != domain.Filled && o.Side == oldSide && o.Kind == oldKind && samePrice {
		return nil
	}
	if oldStatus != domain.Filled {
		sym.remove(o, oldSide, oldKind, oldPrice)
	}
	if o.Status != domain.Filled {
		sym.insert(o)
	}
	return nil
}

// PriceBound reports whether a priced counterparty at the given price is
// eligible for the taker currently searching for a match.
type PriceBound func(price decimal.Decimal) bool

// AnyPrice is the unconstrained bound used by MKT takers.
func AnyPrice(decimal.Decimal) bool { return true }

// FindBestCounterparty returns, among resting PENDING/PARTIAL MKT/LMT orders
// on cpSide in symbol, the best-priced one eligible under bound — priced
// orders win over unpriced ones, which are always eligible but rank last
// (spec §4.1). Ties within the same bucket resolve to the oldest id (FIFO).
func (s *Store) FindBestCounterparty(symbol string, cpSide domain.Side, bound PriceBound) (*domain.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sym, ok := s.symbols[symbol]
	if !ok {
		return nil, false
	}

	// The tree's Less ordering already walks best-first for this side, so a
	// single Scan in order stops at the first level that fails the bound —
	// every level after it would fail too.
	var found *domain.Order
	sym.levels(cpSide).Scan(func(lvl *Level) bool {
		if !bound(lvl.Price) {
			return false
		}
		if len(lvl.Orders) > 0 {
			found = lvl.Orders[0]
			return false
		}
		return true
	})
	if found != nil {
		return found, true
	}

	q := *sym.unpriced(cpSide)
	if len(q) > 0 {
		return q[0], true
	}
	return nil, false
}

// ScanRestingMarket returns the unpriced resting MKT orders on side in
// symbol, in arrival order — used to propagate a print (spec §4.3 step 9).
func (s *Store) ScanRestingMarket(symbol string, side domain.Side) []*domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	sym, ok := s.symbols[symbol]
	if !ok {
		return nil
	}
	q := *sym.unpriced(side)
	out := make([]*domain.Order, len(q))
	copy(out, q)
	return out
}

// ScanStops returns the pending STOPLOSS orders on side in symbol, in
// arrival order — used for stop promotion (spec §4.3).
func (s *Store) ScanStops(symbol string, side domain.Side) []*domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	sym, ok := s.symbols[symbol]
	if !ok {
		return nil
	}
	q := *sym.stops(side)
	out := make([]*domain.Order, len(q))
	copy(out, q)
	return out
}

// Best returns the best resting order on side in symbol (highest BUY price,
// lowest SELL price), 0/none if the side has no priced resting orders
// (spec §4.4: unpriced orders never count as a quote).
func (s *Store) Best(symbol string, side domain.Side) (*domain.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sym, ok := s.symbols[symbol]
	if !ok {
		return nil, false
	}
	var best *domain.Order
	sym.levels(side).Scan(func(lvl *Level) bool {
		if len(lvl.Orders) > 0 {
			best = lvl.Orders[0]
		}
		return false
	})
	if best == nil {
		return nil, false
	}
	return best, true
}

// AppendHistory records a print and returns the recorded entry.
func (s *Store) AppendHistory(symbol string, price decimal.Decimal) domain.History {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.historySeq++
	entry := domain.History{ID: s.historySeq, StockName: symbol, Price: price}
	s.symbolFor(symbol).lastPrint = entry
	s.symbolFor(symbol).hasPrint = true
	return entry
}

// LastPrint returns the most recent history entry for symbol.
func (s *Store) LastPrint(symbol string) (domain.History, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sym, ok := s.symbols[symbol]
	if !ok || !sym.hasPrint {
		return domain.History{}, false
	}
	return sym.lastPrint, true
}

// IterAll returns every order ever inserted this session, in insertion
// order (spec §4.4 View).
func (s *Store) IterAll() []*domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Order, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Reset clears all orders and history (spec §6 QUIT).
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID = 0
	s.historySeq = 0
	s.symbols = make(map[string]*Symbol)
	s.byID = make(map[uint64]*domain.Order)
	s.order = nil
}
