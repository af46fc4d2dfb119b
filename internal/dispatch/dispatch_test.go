package dispatch

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bourse/internal/book"
	"bourse/internal/matching"
	"bourse/internal/persistence"
	"bourse/internal/validation"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *book.Store) {
	t.Helper()
	store := book.NewStore()
	engine := matching.New(store, persistence.Noop{}, zerolog.Nop())
	t.Cleanup(func() { _ = engine.Stop() })
	return New(engine, store, validation.New()), store
}

func TestDispatchMarketPlacement(t *testing.T) {
	d, _ := newTestDispatcher(t)
	res := d.Dispatch(context.Background(), "BUY FB MKT 10")
	require.True(t, res.Success())
	assert.Equal(t, "You have placed a MKT BUY order for 10 FB shares", res.Text)
}

func TestDispatchLimitPlacement(t *testing.T) {
	d, _ := newTestDispatcher(t)
	res := d.Dispatch(context.Background(), "SELL FB LMT $20 5")
	require.True(t, res.Success())
	assert.Equal(t, "You have placed a LMT SELL order for 5 FB shares at 20 each", res.Text)
}

func TestDispatchStopLossPlacement(t *testing.T) {
	d, _ := newTestDispatcher(t)
	res := d.Dispatch(context.Background(), "SELL FB STOPLOSS @20 5")
	require.True(t, res.Success())
	assert.Equal(t, "You have placed a STOPLOSS SELL order for 5 FB shares at 20 each", res.Text)
}

func TestDispatchQuote(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Dispatch(context.Background(), "BUY FB LMT $10 5")
	d.Dispatch(context.Background(), "SELL FB LMT $20 5")

	res := d.Dispatch(context.Background(), "QUOTE FB")
	require.True(t, res.Success())
	assert.Equal(t, "FB BID: 10 ASK: 20 LAST: 0", res.Text)
}

func TestDispatchViewNumbersFromOne(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Dispatch(context.Background(), "BUY FB LMT $10 5")
	d.Dispatch(context.Background(), "SELL FB LMT $20 5")

	res := d.Dispatch(context.Background(), "VIEW ORDERS")
	require.True(t, res.Success())
	assert.Contains(t, res.Text, "1. FB LMT BUY 10 0/5 PENDING")
	assert.Contains(t, res.Text, "2. FB LMT SELL 20 0/5 PENDING")
}

func TestDispatchQuitClearsAndSignalsQuit(t *testing.T) {
	d, store := newTestDispatcher(t)
	d.Dispatch(context.Background(), "BUY FB LMT $10 5")

	res := d.Dispatch(context.Background(), "QUIT")
	assert.True(t, res.Quit)
	assert.Empty(t, store.IterAll())
}

func TestDispatchUnknownCommandIsParameterError(t *testing.T) {
	d, _ := newTestDispatcher(t)
	res := d.Dispatch(context.Background(), "FROB FB 5")
	assert.Equal(t, ParameterError, res.Kind)
	assert.Error(t, res.Err)
}

func TestDispatchNonPositivePriceIsParameterError(t *testing.T) {
	d, _ := newTestDispatcher(t)
	res := d.Dispatch(context.Background(), "BUY FB LMT $0 5")
	assert.Equal(t, ParameterError, res.Kind)
}

func TestDispatchMalformedPriceIsParameterError(t *testing.T) {
	d, _ := newTestDispatcher(t)
	res := d.Dispatch(context.Background(), "BUY FB LMT $abc 5")
	assert.Equal(t, ParameterError, res.Kind)
}

func TestDispatchViewRequiresLiteralOrders(t *testing.T) {
	d, _ := newTestDispatcher(t)
	res := d.Dispatch(context.Background(), "VIEW EVERYTHING")
	assert.Equal(t, ParameterError, res.Kind)
}

func TestDispatchRecoversPanicAsSystemError(t *testing.T) {
	store := book.NewStore()
	d := New(nil, store, validation.New())

	res := d.Dispatch(context.Background(), "BUY FB MKT 10")
	assert.Equal(t, SystemError, res.Kind)
	assert.Error(t, res.Err)
}
