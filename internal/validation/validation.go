// Package validation turns already-tokenized command fields into typed,
// well-formed order intents, or a list of parameter errors. Sigil stripping
// ($price, @trigger) and numeric parsing happen at the tokenization boundary
// in internal/dispatch; this package only checks that the resulting typed
// values are well-formed (spec §4.2).
package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// FieldError is one violation, the same (parameter, message) shape the
// original request-object validators accumulated.
type FieldError struct {
	Parameter string
	Message   string
}

// Errors is zero or more FieldErrors. A nil/empty Errors means the intent is
// valid.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msg := e[0].Parameter + ": " + e[0].Message
	for _, fe := range e[1:] {
		msg += "; " + fe.Parameter + ": " + fe.Message
	}
	return msg
}

type MarketIntent struct {
	Stock  string `validate:"required"`
	Amount uint64 `validate:"required,gt=0"`
}

type LimitIntent struct {
	Stock  string          `validate:"required"`
	Price  decimal.Decimal `validate:"gtdecimal"`
	Amount uint64          `validate:"required,gt=0"`
}

type StopLossIntent struct {
	Stock   string          `validate:"required"`
	Trigger decimal.Decimal `validate:"gtdecimal"`
	Amount  uint64          `validate:"required,gt=0"`
}

type QuoteIntent struct {
	Stock string `validate:"required"`
}

// Validator wraps a go-playground/validator instance configured with the
// decimal-aware rule the built-in numeric comparisons don't cover.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("gtdecimal", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		if !ok {
			return false
		}
		return d.GreaterThan(decimal.Zero)
	})
	return &Validator{v: v}
}

func (val *Validator) Market(stock string, amount uint64) (MarketIntent, Errors) {
	intent := MarketIntent{Stock: stock, Amount: amount}
	return intent, val.check(intent)
}

func (val *Validator) Limit(stock string, price decimal.Decimal, amount uint64) (LimitIntent, Errors) {
	intent := LimitIntent{Stock: stock, Price: price, Amount: amount}
	return intent, val.check(intent)
}

func (val *Validator) StopLoss(stock string, trigger decimal.Decimal, amount uint64) (StopLossIntent, Errors) {
	intent := StopLossIntent{Stock: stock, Trigger: trigger, Amount: amount}
	return intent, val.check(intent)
}

func (val *Validator) Quote(stock string) (QuoteIntent, Errors) {
	intent := QuoteIntent{Stock: stock}
	return intent, val.check(intent)
}

func (val *Validator) check(s any) Errors {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(Errors, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, FieldError{
				Parameter: fe.Field(),
				Message:   message(fe),
			})
		}
		return out
	}
	return Errors{{Parameter: "", Message: err.Error()}}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gtdecimal":
		return fmt.Sprintf("%s must be positive", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
