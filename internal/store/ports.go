// Package store declares the storage collaborators of the ledger engine.
package store

import (
	"context"
	"errors"

	"shoebox/internal/core"
)

// ErrNotFound is returned when deleting a budget rule that does not exist.
var ErrNotFound = errors.New("not found")

// Ports for storage adapters.
type (
	BudgetRuleStore interface {
		// UpsertBudgetRule replaces the rule with the same (month, year, interval)
		// and stamps LastUpdated.
		UpsertBudgetRule(ctx context.Context, month, year int, interval core.Interval, amountCents int64, currency core.Currency) (core.BudgetRule, error)
		// QueryBudgetRules returns every rule that can apply inside r: all
		// rules anchored on or before the last month of r.
		QueryBudgetRules(ctx context.Context, r core.DateRange) ([]core.BudgetRule, error)
		DeleteBudgetRule(ctx context.Context, key core.BudgetKey) error
	}

	// TransactionQuerier is the read side used by the search paginator.
	TransactionQuerier interface {
		// QueryTransactions returns at most q.Limit matches sorted by
		// (date, createdAt, id) in q.Order, strictly after q.Cursor when set.
		QueryTransactions(ctx context.Context, q core.TransactionQuery) ([]core.Transaction, error)
	}

	// TransactionSummer returns pre-aggregated totals per bucket, ascending,
	// omitting empty buckets.
	TransactionSummer interface {
		SumTransactions(ctx context.Context, r core.DateRange, g core.Granularity) ([]core.TransactionSum, error)
	}

	TransactionStore interface {
		TransactionQuerier
		TransactionSummer
		InsertTransaction(ctx context.Context, t core.NewTransaction) (core.Transaction, error)
		// DeleteTransactions removes the given ids; unknown ids are ignored.
		DeleteTransactions(ctx context.Context, ids []core.TransactionID) error
	}

	// Store is the full record store.
	Store interface {
		BudgetRuleStore
		TransactionStore
		Close() error
	}
)

// RuleAppliesBefore reports whether rule is anchored on or before the last
// month of r, the filter QueryBudgetRules applies.
func RuleAppliesBefore(rule core.BudgetRule, r core.DateRange) bool {
	if r.End.IsZero() {
		return true
	}
	return rule.AnchorIndex() <= r.End.MonthIndex()
}
