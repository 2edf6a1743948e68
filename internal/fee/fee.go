package fee

import (
	"errors"

	"quickpay/internal/money"

	"github.com/shopspring/decimal"
)

var (
	ErrNonPositiveAmount = errors.New("fee requested for non-positive amount")
	ErrInvalidRate       = errors.New("fee rate must be in [0, 1)")
	ErrInvalidBounds     = errors.New("fee floor exceeds fee cap")
)

type Policy interface {
	Compute(amountMinor int64) (int64, error)
}

// RatePolicy charges round(amount * rate, 2), half away from zero, then
// clamps to the optional floor and cap. A zero cap means uncapped.
type RatePolicy struct {
	rate     decimal.Decimal
	minMinor int64
	maxMinor int64
}

func NewRatePolicy(rate decimal.Decimal, minMinor, maxMinor int64) (RatePolicy, error) {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return RatePolicy{}, ErrInvalidRate
	}
	if minMinor < 0 || maxMinor < 0 || (maxMinor > 0 && minMinor > maxMinor) {
		return RatePolicy{}, ErrInvalidBounds
	}
	return RatePolicy{rate: rate, minMinor: minMinor, maxMinor: maxMinor}, nil
}

func (p RatePolicy) Rate() decimal.Decimal {
	return p.rate
}

func (p RatePolicy) Compute(amountMinor int64) (int64, error) {
	if amountMinor <= 0 {
		return 0, ErrNonPositiveAmount
	}
	fee := money.ToDecimal(amountMinor).Mul(p.rate).Round(2).Shift(2).IntPart()
	if fee < p.minMinor {
		fee = p.minMinor
	}
	if p.maxMinor > 0 && fee > p.maxMinor {
		fee = p.maxMinor
	}
	return fee, nil
}
