// Package matching implements the continuous double-auction matching
// engine: admission, the fill loop, stop promotion, and last-print
// propagation. It is the core of the system.
package matching

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/tomb.v2"

	"bourse/internal/book"
	"bourse/internal/domain"
	"bourse/internal/persistence"
)

var ErrEngineStopped = errors.New("matching: engine stopped")

// job is one submission processed end-to-end by the single writer goroutine.
type job struct {
	run  func(ctx context.Context) (any, error)
	resp chan jobResult
}

type jobResult struct {
	val any
	err error
}

// Engine serializes every order submission through one writer goroutine
// (spec: "one order is processed end-to-end before the next is accepted"),
// supervised by tomb.Tomb the way the teacher supervises its connection
// worker pool — here the supervised unit is order submissions, not TCP
// connections.
type Engine struct {
	store *book.Store
	rec   persistence.Recorder
	log   zerolog.Logger

	t    tomb.Tomb
	jobs chan job
}

func New(store *book.Store, rec persistence.Recorder, log zerolog.Logger) *Engine {
	if rec == nil {
		rec = persistence.Noop{}
	}
	e := &Engine{
		store: store,
		rec:   rec,
		log:   log,
		jobs:  make(chan job),
	}
	e.t.Go(e.loop)
	return e
}

// Stop signals the writer goroutine to exit and waits for it.
func (e *Engine) Stop() error {
	e.t.Kill(nil)
	return e.t.Wait()
}

func (e *Engine) loop() error {
	ctx := context.Background()
	for {
		select {
		case <-e.t.Dying():
			return nil
		case j := <-e.jobs:
			val, err := j.run(ctx)
			j.resp <- jobResult{val: val, err: err}
		}
	}
}

// submit enqueues fn to run on the single writer goroutine and blocks for
// its result, or until ctx is done or the engine is stopped.
func (e *Engine) submit(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	j := job{run: fn, resp: make(chan jobResult, 1)}
	select {
	case e.jobs <- j:
	case <-e.t.Dying():
		return nil, ErrEngineStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-j.resp:
		return r.val, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PlaceMarket admits and matches a MKT order (spec §4.3 admission + fill
// loop with an unconstrained price bound).
func (e *Engine) PlaceMarket(ctx context.Context, symbol string, side domain.Side, amount uint64) (*domain.Order, error) {
	val, err := e.submit(ctx, func(ctx context.Context) (any, error) {
		return e.placeMarket(ctx, symbol, side, amount)
	})
	return asOrder(val, err)
}

// PlaceLimit admits and matches a LMT order.
func (e *Engine) PlaceLimit(ctx context.Context, symbol string, side domain.Side, price decimal.Decimal, amount uint64) (*domain.Order, error) {
	val, err := e.submit(ctx, func(ctx context.Context) (any, error) {
		return e.placeLimit(ctx, symbol, side, price, amount)
	})
	return asOrder(val, err)
}

// PlaceStopLoss admits a STOPLOSS order. Per spec §4.3, it is inserted
// PENDING and no matching is attempted.
func (e *Engine) PlaceStopLoss(ctx context.Context, symbol string, side domain.Side, trigger decimal.Decimal, amount uint64) (*domain.Order, error) {
	val, err := e.submit(ctx, func(ctx context.Context) (any, error) {
		return e.placeStopLoss(ctx, symbol, side, trigger, amount)
	})
	return asOrder(val, err)
}

func asOrder(val any, err error) (*domain.Order, error) {
	if err != nil {
		return nil, err
	}
	o, _ := val.(*domain.Order)
	return o, nil
}

func newOrder(symbol string, side domain.Side, kind domain.Kind, price domain.Price, amount uint64) *domain.Order {
	return &domain.Order{
		Ref:       uuid.NewString(),
		StockName: symbol,
		Side:      side,
		Kind:      kind,
		Price:     price,
		Total:     amount,
		Status:    domain.Pending,
	}
}

func (e *Engine) placeMarket(ctx context.Context, symbol string, side domain.Side, amount uint64) (*domain.Order, error) {
	taker := newOrder(symbol, side, domain.Market, domain.Unpriced(), amount)
	e.store.Insert(taker)
	e.persistOrder(ctx, taker)

	e.fillLoop(ctx, taker, book.AnyPrice)
	e.log.Debug().
		Str("symbol", symbol).Str("side", side.String()).Str("kind", "MKT").
		Uint64("id", taker.ID).Str("status", taker.Status.String()).
		Msg("order processed")
	return taker, nil
}

func (e *Engine) placeLimit(ctx context.Context, symbol string, side domain.Side, price decimal.Decimal, amount uint64) (*domain.Order, error) {
	taker := newOrder(symbol, side, domain.Limit, domain.Priced(price), amount)
	e.store.Insert(taker)
	e.persistOrder(ctx, taker)

	var bound book.PriceBound
	if side == domain.Buy {
		bound = func(cp decimal.Decimal) bool { return cp.LessThanOrEqual(price) }
	} else {
		bound = func(cp decimal.Decimal) bool { return cp.GreaterThanOrEqual(price) }
	}

	e.fillLoop(ctx, taker, bound)
	e.log.Debug().
		Str("symbol", symbol).Str("side", side.String()).Str("kind", "LMT").
		Uint64("id", taker.ID).Str("status", taker.Status.String()).
		Msg("order processed")
	return taker, nil
}

func (e *Engine) placeStopLoss(ctx context.Context, symbol string, side domain.Side, trigger decimal.Decimal, amount uint64) (*domain.Order, error) {
	o := newOrder(symbol, side, domain.StopLoss, domain.Priced(trigger), amount)
	e.store.Insert(o)
	e.persistOrder(ctx, o)
	e.log.Debug().
		Str("symbol", symbol).Str("side", side.String()).Str("kind", "STOPLOSS").
		Uint64("id", o.ID).Msg("order admitted, no match attempted")
	return o, nil
}

func (e *Engine) persistOrder(ctx context.Context, o *domain.Order) {
	if err := e.rec.RecordOrder(ctx, o.ToDocument()); err != nil {
		e.log.Warn().Err(err).Uint64("id", o.ID).Msg("persistence: record order failed")
	}
}

func (e *Engine) persistHistory(ctx context.Context, h domain.History) {
	if err := e.rec.RecordHistory(ctx, h); err != nil {
		e.log.Warn().Err(err).Uint64("seq", h.ID).Msg("persistence: record history failed")
	}
}
