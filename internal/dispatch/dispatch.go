// Package dispatch tokenizes a command line, validates it, calls the
// matching engine or the read-only quote/view path, and renders the literal
// response strings of spec §6. It is the only layer that strips the $/@
// sigils and parses numeric literals — that is a tokenization concern, not a
// validation rule.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"bourse/internal/book"
	"bourse/internal/domain"
	"bourse/internal/matching"
	"bourse/internal/quoteview"
	"bourse/internal/validation"
)

// ErrorKind classifies a failed Result per spec §7's taxonomy.
type ErrorKind int

const (
	NoError ErrorKind = iota
	ParameterError
	ResourceError
	SystemError
)

func (k ErrorKind) String() string {
	switch k {
	case ParameterError:
		return "PARAMETER_ERROR"
	case ResourceError:
		return "RESOURCE_ERROR"
	case SystemError:
		return "SYSTEM_ERROR"
	default:
		return "OK"
	}
}

// Result mirrors the ResponseSuccess/ResponseFailure split: either Text is
// set (success) or Kind/Err describe the failure. Quit signals the caller's
// REPL loop to terminate (spec §6 QUIT).
type Result struct {
	Text string
	Kind ErrorKind
	Err  error
	Quit bool
}

func (r Result) Success() bool { return r.Kind == NoError }

// Dispatcher wires the validation layer and the matching engine to the
// text command grammar.
type Dispatcher struct {
	engine    *matching.Engine
	store     *book.Store
	validator *validation.Validator
}

func New(engine *matching.Engine, store *book.Store, validator *validation.Validator) *Dispatcher {
	return &Dispatcher{engine: engine, store: store, validator: validator}
}

// Dispatch processes one command line. It recovers from any panic raised
// while handling the command and reports it as a SystemError, the one place
// this module uses recover() — every other error path is an explicit
// return.
func (d *Dispatcher) Dispatch(ctx context.Context, line string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Kind: SystemError, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return paramErr("command", "empty command")
	}

	switch strings.ToUpper(fields[0]) {
	case "BUY":
		return d.placeOrder(ctx, domain.Buy, fields[1:])
	case "SELL":
		return d.placeOrder(ctx, domain.Sell, fields[1:])
	case "VIEW":
		return d.view(fields[1:])
	case "QUOTE":
		return d.quote(fields[1:])
	case "QUIT":
		d.store.Reset()
		return Result{Quit: true}
	default:
		return paramErr("command", fmt.Sprintf("unknown command %q", fields[0]))
	}
}

func (d *Dispatcher) placeOrder(ctx context.Context, side domain.Side, args []string) Result {
	if len(args) < 2 {
		return paramErr("command", "expected <symbol> <MKT|LMT|STOPLOSS> ...")
	}
	symbol := args[0]
	kind := strings.ToUpper(args[1])

	switch kind {
	case "MKT":
		return d.placeMarket(ctx, side, symbol, args[2:])
	case "LMT":
		return d.placeLimit(ctx, side, symbol, args[2:])
	case "STOPLOSS":
		return d.placeStopLoss(ctx, side, symbol, args[2:])
	default:
		return paramErr("kind", fmt.Sprintf("unknown order kind %q", kind))
	}
}

func (d *Dispatcher) placeMarket(ctx context.Context, side domain.Side, symbol string, rest []string) Result {
	if len(rest) != 1 {
		return paramErr("amount", "expected <amount>")
	}
	amount, err := parseAmount(rest[0])
	if err != nil {
		return paramErr("amount", err.Error())
	}
	intent, errs := d.validator.Market(symbol, amount)
	if len(errs) > 0 {
		return validationErr(errs)
	}
	if _, err := d.engine.PlaceMarket(ctx, intent.Stock, side, intent.Amount); err != nil {
		return systemErr(err)
	}
	return Result{Text: fmt.Sprintf("You have placed a MKT %s order for %d %s shares", side, intent.Amount, intent.Stock)}
}

func (d *Dispatcher) placeLimit(ctx context.Context, side domain.Side, symbol string, rest []string) Result {
	if len(rest) != 2 {
		return paramErr("price", "expected $<price> <amount>")
	}
	price, err := parseSigilDecimal(rest[0], '$')
	if err != nil {
		return paramErr("price", err.Error())
	}
	amount, err := parseAmount(rest[1])
	if err != nil {
		return paramErr("amount", err.Error())
	}
	intent, errs := d.validator.Limit(symbol, price, amount)
	if len(errs) > 0 {
		return validationErr(errs)
	}
	if _, err := d.engine.PlaceLimit(ctx, intent.Stock, side, intent.Price, intent.Amount); err != nil {
		return systemErr(err)
	}
	return Result{Text: fmt.Sprintf("You have placed a LMT %s order for %d %s shares at %s each", side, intent.Amount, intent.Stock, intent.Price)}
}

func (d *Dispatcher) placeStopLoss(ctx context.Context, side domain.Side, symbol string, rest []string) Result {
	if len(rest) != 2 {
		return paramErr("trigger", "expected @<trigger> <amount>")
	}
	trigger, err := parseSigilDecimal(rest[0], '@')
	if err != nil {
		return paramErr("trigger", err.Error())
	}
	amount, err := parseAmount(rest[1])
	if err != nil {
		return paramErr("amount", err.Error())
	}
	intent, errs := d.validator.StopLoss(symbol, trigger, amount)
	if len(errs) > 0 {
		return validationErr(errs)
	}
	if _, err := d.engine.PlaceStopLoss(ctx, intent.Stock, side, intent.Trigger, intent.Amount); err != nil {
		return systemErr(err)
	}
	return Result{Text: fmt.Sprintf("You have placed a STOPLOSS %s order for %d %s shares at %s each", side, intent.Amount, intent.Stock, intent.Trigger)}
}

func (d *Dispatcher) view(args []string) Result {
	if len(args) != 1 || strings.ToUpper(args[0]) != "ORDERS" {
		return paramErr("command", `expected "VIEW ORDERS"`)
	}
	var b strings.Builder
	for i, o := range quoteview.View(d.store) {
		fmt.Fprintf(&b, "%d. %s %s %s %s %d/%d %s\n", i+1, o.StockName, o.Kind, o.Side, o.Price, o.Filled, o.Total, o.Status)
	}
	return Result{Text: b.String()}
}

func (d *Dispatcher) quote(args []string) Result {
	if len(args) != 1 {
		return paramErr("stock_name", "expected <symbol>")
	}
	intent, errs := d.validator.Quote(args[0])
	if len(errs) > 0 {
		return validationErr(errs)
	}
	q := quoteview.Get(d.store, intent.Stock)
	return Result{Text: fmt.Sprintf("%s BID: %s ASK: %s LAST: %s", intent.Stock, q.Bid, q.Ask, q.Last)}
}

func parseAmount(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.New("not a positive integer")
	}
	return n, nil
}

// parseSigilDecimal strips a single leading sigil byte ($ or @) if present,
// then parses the remainder as a decimal.
func parseSigilDecimal(s string, sigil byte) (decimal.Decimal, error) {
	if len(s) > 0 && s[0] == sigil {
		s = s[1:]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errors.New("not a number")
	}
	return d, nil
}

func paramErr(parameter, message string) Result {
	return Result{Kind: ParameterError, Err: validation.Errors{{Parameter: parameter, Message: message}}}
}

func validationErr(errs validation.Errors) Result {
	return Result{Kind: ParameterError, Err: errs}
}

func systemErr(err error) Result {
	return Result{Kind: SystemError, Err: err}
}
