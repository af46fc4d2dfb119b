package matching

import (
	"context"

	"bourse/internal/book"
	"bourse/internal/domain"
)

// fillLoop runs spec §4.3 steps 1–10 against taker, which must already be
// resting in the store, until it is exhausted or no eligible counterparty
// remains. bound is the taker's price eligibility test for counterparties.
//
// Stops that become eligible for promotion during this loop are staged, not
// promoted in place: spec §4.3 is explicit that a promoted stop "becomes
// eligible as a counterparty on the next submission, not retroactively on
// the current fill loop". Staged promotions are only merged into the book
// once this submission's loop has finished, so the taker can never trade
// against a stop its own fills just promoted.
func (e *Engine) fillLoop(ctx context.Context, taker *domain.Order, bound book.PriceBound) {
	staged := make(map[uint64]*domain.Order)

	for taker.Residual() > 0 {
		cp, ok := e.store.FindBestCounterparty(taker.StockName, taker.Side.Opposite(), bound)
		if !ok {
			break
		}

		print, ok := e.resolvePrint(taker, cp)
		if !ok {
			e.log.Warn().
				Str("symbol", taker.StockName).Uint64("taker", taker.ID).Uint64("cp", cp.ID).
				Msg("deferred: MKT taker against unpriced MKT maker with no prior print")
			break
		}

		traded := min(taker.Residual(), cp.Residual())

		if err := e.store.Update(taker.ID, func(o *domain.Order) { o.ApplyFill(traded, print) }); err != nil {
			e.log.Warn().Err(err).Uint64("id", taker.ID).Msg("update taker failed")
			break
		}
		if err := e.store.Update(cp.ID, func(o *domain.Order) { o.ApplyFill(traded, print) }); err != nil {
			e.log.Warn().Err(err).Uint64("id", cp.ID).Msg("update counterparty failed")
			break
		}

		hist := e.store.AppendHistory(taker.StockName, print.Value)
		e.persistHistory(ctx, hist)
		e.persistOrder(ctx, taker)
		e.persistOrder(ctx, cp)

		e.propagatePrint(ctx, taker.StockName, taker.Side, print, staged)
	}

	e.flushPromotions(ctx, staged)
}

// resolvePrint determines the print price for a taker/counterparty pair per
// spec §4.3 step 5. ok is false only in the degenerate case: the
// counterparty is an unpriced resting MKT order, the taker is itself MKT,
// and the symbol has no prior print to fall back on.
func (e *Engine) resolvePrint(taker, cp *domain.Order) (domain.Price, bool) {
	if cp.Price.Valid {
		return cp.Price, true
	}
	if taker.Kind == domain.Limit {
		return domain.Priced(taker.Price.Value), true
	}
	if last, ok := e.store.LastPrint(taker.StockName); ok {
		return domain.Priced(last.Price), true
	}
	return domain.Price{}, false
}

// propagatePrint implements spec §4.3 step 9: every resting unpriced MKT
// order on the counterparty's side adopts the print immediately (it was
// already eligible as a counterparty before and after, only its price
// changes), then stops are re-evaluated and any newly eligible ones are
// added to staged for promotion after this submission's loop ends.
func (e *Engine) propagatePrint(ctx context.Context, symbol string, takerSide domain.Side, print domain.Price, staged map[uint64]*domain.Order) {
	cpSide := takerSide.Opposite()
	for _, o := range e.store.ScanRestingMarket(symbol, cpSide) {
		if err := e.store.Update(o.ID, func(ord *domain.Order) { ord.Price = print }); err != nil {
			e.log.Warn().Err(err).Uint64("id", o.ID).Msg("propagate print failed")
			continue
		}
		e.persistOrder(ctx, o)
	}
	e.stageStopPromotions(symbol, print, staged)
}

// stageStopPromotions implements the evaluation half of spec §4.3 "Stop
// promotion": every pending STOPLOSS order in symbol is re-evaluated against
// print. Eligible ones are recorded in staged, keyed by id so repeated
// evaluation within the same submission is idempotent; they are not yet
// mutated, so scan_stops keeps finding them (still kind STOPLOSS) on any
// further print within this same fill loop.
func (e *Engine) stageStopPromotions(symbol string, print domain.Price, staged map[uint64]*domain.Order) {
	for _, side := range [...]domain.Side{domain.Buy, domain.Sell} {
		for _, o := range e.store.ScanStops(symbol, side) {
			trigger := o.Price.Value
			var eligible bool
			if side == domain.Buy {
				eligible = print.Value.GreaterThanOrEqual(trigger)
			} else {
				eligible = print.Value.LessThanOrEqual(trigger)
			}
			if !eligible {
				continue
			}
			staged[o.ID] = o
		}
	}
}

// flushPromotions merges every staged promotion into the book once the
// current submission's fill loop has finished. Only from this point on are
// the promoted orders (now kind LMT) visible to find_best_counterparty —
// i.e. eligible starting with the next submission, per spec §4.3.
func (e *Engine) flushPromotions(ctx context.Context, staged map[uint64]*domain.Order) {
	for id, o := range staged {
		if err := e.store.Update(id, func(ord *domain.Order) { ord.Kind = domain.Limit }); err != nil {
			e.log.Warn().Err(err).Uint64("id", id).Msg("stop promotion failed")
			continue
		}
		e.persistOrder(ctx, o)
	}
}
