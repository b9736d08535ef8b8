package models

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatUSD renders an amount the way the app displays prices, e.g. "$1,234.50".
func FormatUSD(amount decimal.Decimal) string {
	// money.New is the only constructor that never yields a nil currency.
	cur := money.New(0, money.USD).Currency()
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}
