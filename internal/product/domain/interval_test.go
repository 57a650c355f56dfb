package domain

import (
	"errors"
	"testing"

	providerdomain "github.com/happybase/portal/internal/paymentprovider/domain"
	"github.com/shopspring/decimal"
)

func TestParseAmountCents(t *testing.T) {
	cases := map[string]int64{
		"19.99":     1999,
		"9.99":      999,
		"120":       12000,
		"0.01":      1,
		"10.50":     1050,
		" 5.5 ":     550,
		"19.990":    1999,
		"999999.99": 99999999,
	}
	for raw, want := range cases {
		amount, err := ParseAmount(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got := Cents(amount); got != want {
			t.Fatalf("cents %q: expected %d, got %d", raw, want, got)
		}
	}
}

func TestParseAmountRejects(t *testing.T) {
	for _, raw := range []string{
		"", "abc", "0", "-1", "19.995", "0.001",
		"1000000.00",
		"12345678901.00",
		"100000000000000000.00",
		"1e18",
	} {
		if _, err := ParseAmount(raw); !errors.Is(err, ErrInvalidPrice) {
			t.Fatalf("expected invalid price for %q, got %v", raw, err)
		}
	}
}

func TestIntervalMapping(t *testing.T) {
	cases := []struct {
		raw    string
		unit   providerdomain.RecurringUnit
		count  int64
		suffix string
	}{
		{"monthly", providerdomain.RecurringUnitMonth, 1, "/mo"},
		{"quarterly", providerdomain.RecurringUnitMonth, 3, "/qtr"},
		{"Yearly", providerdomain.RecurringUnitYear, 1, "/yr"},
	}
	for _, tc := range cases {
		interval, err := ParseInterval(tc.raw)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.raw, err)
		}
		unit, count := interval.Recurring()
		if unit != tc.unit || count != tc.count {
			t.Fatalf("%s: expected %s/%d, got %s/%d", tc.raw, tc.unit, tc.count, unit, count)
		}
		if interval.Suffix() != tc.suffix {
			t.Fatalf("%s: expected suffix %s, got %s", tc.raw, tc.suffix, interval.Suffix())
		}
	}

	if _, err := ParseInterval("weekly"); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected invalid interval, got %v", err)
	}
}

func TestFormatPrice(t *testing.T) {
	if got := FormatPrice(decimal.RequireFromString("120")); got != "$120.00" {
		t.Fatalf("expected $120.00, got %s", got)
	}
	if got := FormatPrice(decimal.RequireFromString("9.9")); got != "$9.90" {
		t.Fatalf("expected $9.90, got %s", got)
	}
}
