// Package fee maps a sale amount and payment method to the processor fee.
package fee

import (
	"fmt"
	"maps"

	"github.com/shopspring/decimal"

	"tillledger/internal/domain"
	"tillledger/internal/store"
)

// DefaultCardRate is the card processor share (5.33333333%).
var DefaultCardRate = decimal.RequireFromString("0.0533333333")

type Policy struct {
	rates map[domain.PaymentMethod]decimal.Decimal
}

// New copies rates. Methods missing from the table are rejected by Fee.
func New(rates map[domain.PaymentMethod]decimal.Decimal) (*Policy, error) {
	for method, rate := range rates {
		if !method.Valid() {
			return nil, store.NewValidationError(fmt.Sprintf("unknown payment method %q", method))
		}
		if rate.IsNegative() {
			return nil, store.NewValidationError(fmt.Sprintf("negative rate for %s", method))
		}
	}
	return &Policy{rates: maps.Clone(rates)}, nil
}

func Default() *Policy {
	return &Policy{rates: DefaultRates()}
}

func DefaultRates() map[domain.PaymentMethod]decimal.Decimal {
	return map[domain.PaymentMethod]decimal.Decimal{
		domain.PaymentCard: DefaultCardRate,
		domain.PaymentPix:  decimal.Zero,
		domain.PaymentCash: decimal.Zero,
	}
}

func (p *Policy) Rate(method domain.PaymentMethod) (decimal.Decimal, error) {
	rate, ok := p.rates[method]
	if !ok {
		return decimal.Zero, store.NewValidationError(fmt.Sprintf("unknown payment method %q", method))
	}
	return rate, nil
}

// Fee is amount*rate rounded half-up to cents.
func (p *Policy) Fee(amount decimal.Decimal, method domain.PaymentMethod) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, store.NewValidationError("amount must not be negative")
	}
	rate, err := p.Rate(method)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate).Round(2), nil
}

// Net is max(0, amount-fee) rounded to cents.
func (p *Policy) Net(amount decimal.Decimal, method domain.PaymentMethod) (decimal.Decimal, error) {
	fee, err := p.Fee(amount, method)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Max(decimal.Zero, amount.Sub(fee)).Round(2), nil
}

// Split returns fee and net in one call.
func (p *Policy) Split(amount decimal.Decimal, method domain.PaymentMethod) (decimal.Decimal, decimal.Decimal, error) {
	fee, err := p.Fee(amount, method)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return fee, decimal.Max(decimal.Zero, amount.Sub(fee)).Round(2), nil
}
