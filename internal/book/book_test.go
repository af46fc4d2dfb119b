package book

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bourse/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newOrder(stock string, side domain.Side, kind domain.Kind, price domain.Price, total uint64) *domain.Order {
	return &domain.Order{
		StockName: stock,
		Side:      side,
		Kind:      kind,
		Price:     price,
		Total:     total,
		Status:    domain.Pending,
	}
}

func TestStoreInsertAssignsMonotonicIDs(t *testing.T) {
	s := NewStore()
	o1 := newOrder("ACME", domain.Buy, domain.Limit, domain.Priced(dec("10")), 5)
	o2 := newOrder("ACME", domain.Sell, domain.Limit, domain.Priced(dec("11")), 5)

	id1 := s.Insert(o1)
	id2 := s.Insert(o2)

	assert.Equal(t, uint64(1), id1)
	assert.Equal(t, uint64(2), id2)
}

func TestStoreBestPicksTopOfBookPerSide(t *testing.T) {
	s := NewStore()
	s.Insert(newOrder("ACME", domain.Buy, domain.Limit, domain.Priced(dec("10")), 5))
	s.Insert(newOrder("ACME", domain.Buy, domain.Limit, domain.Priced(dec("12")), 5))
	s.Insert(newOrder("ACME", domain.Sell, domain.Limit, domain.Priced(dec("15")), 5))
	s.Insert(newOrder("ACME", domain.Sell, domain.Limit, domain.Priced(dec("14")), 5))

	bestBuy, ok := s.Best("ACME", domain.Buy)
	require.True(t, ok)
	assert.True(t, bestBuy.Price.Value.Equal(dec("12")))

	bestSell, ok := s.Best("ACME", domain.Sell)
	require.True(t, ok)
	assert.True(t, bestSell.Price.Value.Equal(dec("14")))
}

func TestStoreFindBestCounterpartyPrefersPricedOverUnpriced(t *testing.T) {
	s := NewStore()
	unpriced := newOrder("ACME", domain.Sell, domain.Market, domain.Unpriced(), 5)
	priced := newOrder("ACME", domain.Sell, domain.Limit, domain.Priced(dec("9")), 5)
	s.Insert(unpriced)
	s.Insert(priced)

	cp, ok := s.FindBestCounterparty("ACME", domain.Sell, AnyPrice)
	require.True(t, ok)
	assert.Same(t, priced, cp)
}

func TestStoreFindBestCounterpartyFallsBackToUnpriced(t *testing.T) {
	s := NewStore()
	unpriced := newOrder("ACME", domain.Sell, domain.Market, domain.Unpriced(), 5)
	s.Insert(unpriced)

	cp, ok := s.FindBestCounterparty("ACME", domain.Sell, AnyPrice)
	require.True(t, ok)
	assert.Same(t, unpriced, cp)
}

func TestStoreFindBestCounterpartyRespectsBoundAndStopsAtFirstViolation(t *testing.T) {
	s := NewStore()
	s.Insert(newOrder("ACME", domain.Sell, domain.Limit, domain.Priced(dec("10")), 5))
	s.Insert(newOrder("ACME", domain.Sell, domain.Limit, domain.Priced(dec("20")), 5))

	bound := func(p decimal.Decimal) bool { return p.LessThanOrEqual(dec("15")) }
	cp, ok := s.FindBestCounterparty("ACME", domain.Sell, bound)
	require.True(t, ok)
	assert.True(t, cp.Price.Value.Equal(dec("10")))

	tooStrict := func(p decimal.Decimal) bool { return p.LessThanOrEqual(dec("5")) }
	_, ok = s.FindBestCounterparty("ACME", domain.Sell, tooStrict)
	assert.False(t, ok)
}

func TestStoreUpdateRehomesOrderWhenFilled(t *testing.T) {
	s := NewStore()
	o := newOrder("ACME", domain.Buy, domain.Limit, domain.Priced(dec("10")), 5)
	id := s.Insert(o)

	err := s.Update(id, func(ord *domain.Order) {
		ord.ApplyFill(5, domain.Priced(dec("10")))
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Filled, o.Status)

	_, ok := s.Best("ACME", domain.Buy)
	assert.False(t, ok, "filled order must be removed from the book")
}

func TestStoreUpdateRehomesOrderWhenRepriced(t *testing.T) {
	s := NewStore()
	o := newOrder("ACME", domain.Buy, domain.Market, domain.Unpriced(), 5)
	s.Insert(o)

	resting := s.ScanRestingMarket("ACME", domain.Buy)
	require.Len(t, resting, 1)

	err := s.Update(o.ID, func(ord *domain.Order) {
		ord.Price = domain.Priced(dec("10"))
	})
	require.NoError(t, err)

	resting = s.ScanRestingMarket("ACME", domain.Buy)
	assert.Empty(t, resting)

	best, ok := s.Best("ACME", domain.Buy)
	require.True(t, ok)
	assert.Same(t, o, best)
}

func TestStoreUpdateRehomesStopOnPromotion(t *testing.T) {
	s := NewStore()
	o := newOrder("ACME", domain.Sell, domain.StopLoss, domain.Priced(dec("8")), 5)
	s.Insert(o)

	stops := s.ScanStops("ACME", domain.Sell)
	require.Len(t, stops, 1)

	err := s.Update(o.ID, func(ord *domain.Order) {
		ord.Kind = domain.Limit
	})
	require.NoError(t, err)

	stops = s.ScanStops("ACME", domain.Sell)
	assert.Empty(t, stops)

	best, ok := s.Best("ACME", domain.Sell)
	require.True(t, ok)
	assert.Same(t, o, best)
}

func TestStoreUpdateUnknownOrderErrors(t *testing.T) {
	s := NewStore()
	err := s.Update(999, func(*domain.Order) {})
	assert.ErrorIs(t, err, ErrUnknownOrder)
}

func TestStoreLevelFIFOWithinPrice(t *testing.T) {
	s := NewStore()
	first := newOrder("ACME", domain.Buy, domain.Limit, domain.Priced(dec("10")), 5)
	second := newOrder("ACME", domain.Buy, domain.Limit, domain.Priced(dec("10")), 5)
	s.Insert(first)
	s.Insert(second)

	best, ok := s.Best("ACME", domain.Buy)
	require.True(t, ok)
	assert.Same(t, first, best, "price-time priority: earlier order at the same price wins")
}

func TestStoreAppendHistoryTracksLastPrintPerSymbol(t *testing.T) {
	s := NewStore()
	_, ok := s.LastPrint("ACME")
	assert.False(t, ok)

	s.AppendHistory("ACME", dec("10"))
	entry := s.AppendHistory("ACME", dec("11"))

	last, ok := s.LastPrint("ACME")
	require.True(t, ok)
	assert.True(t, last.Price.Equal(dec("11")))
	assert.Equal(t, entry.ID, last.ID)
}

func TestStoreResetClearsEverything(t *testing.T) {
	s := NewStore()
	s.Insert(newOrder("ACME", domain.Buy, domain.Limit, domain.Priced(dec("10")), 5))
	s.AppendHistory("ACME", dec("10"))

	s.Reset()

	assert.Empty(t, s.IterAll())
	_, ok := s.LastPrint("ACME")
	assert.False(t, ok)
	_, ok = s.Best("ACME", domain.Buy)
	assert.False(t, ok)
}

func TestStoreIterAllPreservesInsertionOrder(t *testing.T) {
	s := NewStore()
	a := newOrder("ACME", domain.Buy, domain.Limit, domain.Priced(dec("10")), 5)
	b := newOrder("FOO", domain.Sell, domain.Market, domain.Unpriced(), 3)
	s.Insert(a)
	s.Insert(b)

	all := s.IterAll()
	require.Len(t, all, 2)
	assert.Same(t, a, all[0])
	assert.Same(t, b, all[1])
}
