// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing amounts typed into the add/edit
// forms and for rendering totals at display time.
package core

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = "USD"

// ParseAmount converts a user-entered amount to a number.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. No
// rounding is applied; that only happens at display time. A leading minus is
// accepted since costs are not required to be positive. Returns
// ErrInvalidAmount for empty, plus-signed or non-numeric input.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,345") -> 12.345, nil
//	ParseAmount("-1")     -> -1, nil
//	ParseAmount("+1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	rest := strings.TrimPrefix(s, "-")
	if rest == "" || strings.HasPrefix(rest, "+") || strings.HasPrefix(rest, "-") {
		return 0, ErrInvalidAmount
	}
	if strings.ContainsAny(s, "eE") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}

// FormatAmount renders v with exactly two decimals, e.g. "12.30".
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(numeric(v)).StringFixed(2)
}

// FormatMoney renders v in the given ISO currency, e.g. "$12.30".
// Unknown currency codes fall back to DefaultCurrency.
func FormatMoney(v float64, currency string) string {
	if money.GetCurrency(currency) == nil {
		currency = DefaultCurrency
	}
	cur := money.New(0, currency).Currency()
	minor := decimal.NewFromFloat(numeric(v)).Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), currency).Display()
}
