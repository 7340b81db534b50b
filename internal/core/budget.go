package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	IntervalNone    Interval = "N"
	IntervalMonthly Interval = "M"
	IntervalYearly  Interval = "Y"
)

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyCAD Currency = "CAD"
	CurrencyGBP Currency = "GBP"
)

type (
	// Interval is the recurrence class of a budget rule.
	Interval string

	// Currency is an ISO 4217 code. Amounts are never converted between currencies.
	Currency string

	// BudgetRule is a budget amount anchored at a month that may recur.
	BudgetRule struct {
		Month       int
		Year        int
		Interval    Interval
		AmountCents int64
		Currency    Currency
		LastUpdated time.Time
	}

	// BudgetKey is the natural key of a BudgetRule.
	BudgetKey struct {
		Month    int
		Year     int
		Interval Interval
	}
)

var (
	ErrInvalidInterval = errors.New("invalid interval")
	ErrInvalidCurrency = errors.New("invalid currency")
)

// ParseInterval accepts the single letter codes and the long names.
func ParseInterval(s string) (Interval, error) {
	switch lower(s) {
	case "n", "none", "never", "":
		return IntervalNone, nil
	case "m", "monthly", "month":
		return IntervalMonthly, nil
	case "y", "yearly", "year":
		return IntervalYearly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidInterval, s)
	}
}

func (i Interval) Valid() bool {
	switch i {
	case IntervalNone, IntervalMonthly, IntervalYearly:
		return true
	default:
		return false
	}
}

// Rank orders intervals from most to least specific.
func (i Interval) Rank() int {
	switch i {
	case IntervalNone:
		return 0
	case IntervalMonthly:
		return 1
	case IntervalYearly:
		return 2
	default:
		return 3
	}
}

func (i Interval) String() string {
	switch i {
	case IntervalNone:
		return "none"
	case IntervalMonthly:
		return "monthly"
	case IntervalYearly:
		return "yearly"
	default:
		return string(i)
	}
}

// ParseCurrency upper-cases and validates a three letter code.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

func (c Currency) Validate() error {
	if len(c) != 3 {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, string(c))
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("%w: %q", ErrInvalidCurrency, string(c))
		}
	}
	return nil
}

func (b BudgetRule) Key() BudgetKey {
	return BudgetKey{Month: b.Month, Year: b.Year, Interval: b.Interval}
}

// AnchorIndex is the anchor month in the same index space as Date.MonthIndex.
func (b BudgetRule) AnchorIndex() int {
	return b.Year*12 + b.Month - 1
}

func (b BudgetRule) Validate() error {
	if err := b.Key().Validate(); err != nil {
		return err
	}
	return b.Currency.Validate()
}

func (k BudgetKey) Validate() error {
	if k.Month < 1 || k.Month > 12 {
		return ErrInvalidMonth
	}
	if k.Year < 1 || k.Year > 9999 {
		return ErrInvalidYear
	}
	if !k.Interval.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidInterval, string(k.Interval))
	}
	return nil
}

func (k BudgetKey) String() string {
	return fmt.Sprintf("%04d-%02d/%s", k.Year, k.Month, k.Interval)
}
