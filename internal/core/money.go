// Package core holds the ledger domain: dates and ranges, budget rules,
// transactions and the money helpers that move amounts in and out of cents.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// ParseAmount converts a decimal string to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half away from zero on the third decimal place. Negative amounts are allowed
// so refunds can be recorded; zero is rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234, nil
//	ParseAmount("12,345") -> 1235, nil
//	ParseAmount("-5")     -> -500, nil
func ParseAmount(s string) (int64, error) {
	v, err := ParseAmountBound(s)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// ParseAmountBound is ParseAmount with zero allowed, for search bounds.
func ParseAmountBound(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.ContainsAny(s, "eE") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.BigInt().IsInt64() {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// ParseBudgetAmount accepts zero and positive amounts. A zero budget is a
// valid override that blanks one period under a recurring rule.
func ParseBudgetAmount(s string) (int64, error) {
	v, err := ParseAmountBound(s)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// FormatAmount renders cents with two fractional digits, e.g. 1234 -> "12.34".
func FormatAmount(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
