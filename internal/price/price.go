// Package price normalizes marketplace price encodings and converts amounts
// between the primary and secondary display currencies.
package price

import (
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code.
type Currency string

const (
	USD Currency = "USD" // primary: every stored amount is in USD
	BRL Currency = "BRL" // secondary: display only
)

// minorUnitsThreshold separates decimal amounts from integer minor units.
//
// Amounts above it are read as thousandths. A genuine unit price above the
// threshold is indistinguishable from minor units and gets scaled down; the
// marketplace carries no precision field to tell the two apart.
var minorUnitsThreshold = decimal.NewFromInt(1000)

var thousand = decimal.NewFromInt(1000)

// NormalizeAmount converts a raw marketplace amount to a decimal price.
func NormalizeAmount(raw decimal.Decimal) decimal.Decimal {
	if raw.GreaterThan(minorUnitsThreshold) {
		return raw.Div(thousand)
	}
	return raw
}

// NormalizeFloat is NormalizeAmount for decoded JSON numbers.
func NormalizeFloat(raw float64) decimal.Decimal {
	return NormalizeAmount(decimal.NewFromFloat(raw))
}

// FromCents converts an integer amount of hundredths.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Rate is the number of secondary-currency units per primary unit.
type Rate struct {
	Value       decimal.Decimal `json:"value"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// Convert presents amount in target. Amounts are multiplied by the rate for
// the secondary currency and passed through otherwise; the result is rounded
// to two places only at the end.
func Convert(amount decimal.Decimal, target Currency, rate Rate) decimal.Decimal {
	if target == BRL {
		amount = amount.Mul(rate.Value)
	}
	return amount.Round(2)
}

// ToPrimary converts a secondary-currency amount back to the primary one.
// A non-positive rate leaves the amount unchanged.
func ToPrimary(amount decimal.Decimal, rate Rate) decimal.Decimal {
	if !rate.Value.IsPositive() {
		return amount
	}
	return amount.Div(rate.Value)
}

// Format renders amount with the currency's symbol and separators.
func Format(amount decimal.Decimal, cur Currency) string {
	c := money.New(0, string(cur)).Currency()
	minor := amount.Shift(int32(c.Fraction)).Round(0)
	return c.Formatter().Format(minor.IntPart())
}
