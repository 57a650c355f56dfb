package domain

import (
	"strings"

	providerdomain "github.com/happybase/portal/internal/paymentprovider/domain"
	"github.com/shopspring/decimal"
)

// Interval is the billing cadence a creator picks for a portal.
type Interval string

const (
	IntervalMonthly   Interval = "monthly"
	IntervalQuarterly Interval = "quarterly"
	IntervalYearly    Interval = "yearly"
)

type recurring struct {
	unit   providerdomain.RecurringUnit
	count  int64
	suffix string
}

var intervals = map[Interval]recurring{
	IntervalMonthly:   {unit: providerdomain.RecurringUnitMonth, count: 1, suffix: "/mo"},
	IntervalQuarterly: {unit: providerdomain.RecurringUnitMonth, count: 3, suffix: "/qtr"},
	IntervalYearly:    {unit: providerdomain.RecurringUnitYear, count: 1, suffix: "/yr"},
}

func ParseInterval(raw string) (Interval, error) {
	interval := Interval(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := intervals[interval]; !ok {
		return "", ErrInvalidInterval
	}
	return interval, nil
}

func (i Interval) Valid() bool {
	_, ok := intervals[i]
	return ok
}

// Recurring returns the provider unit and interval count for i.
func (i Interval) Recurring() (providerdomain.RecurringUnit, int64) {
	r := intervals[i]
	return r.unit, r.count
}

// Suffix is the short display suffix shown next to a price, e.g. "/mo".
func (i Interval) Suffix() string {
	return intervals[i].suffix
}

var (
	hundred = decimal.NewFromInt(100)
	// MaxAmount is the largest price accepted. It is the provider's
	// 99999999 cent unit_amount ceiling, which also fits NUMERIC(12,2).
	MaxAmount = decimal.New(99999999, -2)
)

// ParseAmount parses a positive decimal price with at most two fractional
// digits, no larger than MaxAmount.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, ErrInvalidPrice
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrInvalidPrice
	}
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) || amount.GreaterThan(MaxAmount) {
		return decimal.Zero, ErrInvalidPrice
	}
	return amount, nil
}

// Cents converts a validated amount to the smallest currency unit.
func Cents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FormatPrice renders an amount for display, e.g. "$120.00".
func FormatPrice(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}
