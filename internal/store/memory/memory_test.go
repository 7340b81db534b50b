package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"shoebox/internal/core"
	"shoebox/internal/store"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func newTestStore() *Store {
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(WithClock(clk.Now))
}

func TestUpsertBudgetRuleReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	first, err := s.UpsertBudgetRule(ctx, 3, 2024, core.IntervalMonthly, 100, core.CurrencyUSD)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.UpsertBudgetRule(ctx, 3, 2024, core.IntervalMonthly, 250, core.CurrencyUSD)
	if err != nil {
		t.Fatal(err)
	}
	if !second.LastUpdated.After(first.LastUpdated) {
		t.Error("LastUpdated should advance on replace")
	}

	rules, err := s.QueryBudgetRules(ctx, core.YearRange(2024))
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 1 || rules[0].AmountCents != 250 {
		t.Fatalf("expected a single replaced rule, got %+v", rules)
	}

	if _, err := s.UpsertBudgetRule(ctx, 13, 2024, core.IntervalMonthly, 1, core.CurrencyUSD); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestQueryBudgetRulesFiltersByAnchor(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	for _, r := range []core.BudgetRule{
		{Month: 1, Year: 2020, Interval: core.IntervalMonthly},
		{Month: 6, Year: 2024, Interval: core.IntervalYearly},
		{Month: 1, Year: 2025, Interval: core.IntervalNone},
	} {
		if _, err := s.UpsertBudgetRule(ctx, r.Month, r.Year, r.Interval, 100, core.CurrencyUSD); err != nil {
			t.Fatal(err)
		}
	}
	rules, err := s.QueryBudgetRules(ctx, core.DateRange{Start: core.NewDate(2024, 1, 1), End: core.NewDate(2024, 6, 3)})
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 2 || rules[0].Year != 2020 || rules[1].Month != 6 {
		t.Fatalf("unexpected rules %+v", rules)
	}
	all, _ := s.QueryBudgetRules(ctx, core.DateRange{})
	if len(all) != 3 {
		t.Fatalf("open range should return every rule, got %d", len(all))
	}
}

func TestDeleteBudgetRule(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	rule, _ := s.UpsertBudgetRule(ctx, 2, 2024, core.IntervalNone, 100, core.CurrencyUSD)
	if err := s.DeleteBudgetRule(ctx, rule.Key()); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteBudgetRule(ctx, rule.Key()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertAndQueryTransactions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	dates := []core.Date{core.NewDate(2024, 3, 1), core.NewDate(2024, 1, 1), core.NewDate(2024, 2, 1), core.NewDate(2024, 1, 1)}
	for i, d := range dates {
		_, err := s.InsertTransaction(ctx, core.NewTransaction{Date: d, Title: "t", Category: "food", AmountCents: int64(i + 1), Currency: core.CurrencyUSD})
		if err != nil {
			t.Fatal(err)
		}
	}

	asc, err := s.QueryTransactions(ctx, core.TransactionQuery{Order: core.OrderAsc, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	wantAsc := []int64{2, 4, 3, 1}
	for i, w := range wantAsc {
		if asc[i].AmountCents != w {
			t.Fatalf("asc[%d] = %d, want %d", i, asc[i].AmountCents, w)
		}
	}

	desc, _ := s.QueryTransactions(ctx, core.TransactionQuery{Order: core.OrderDesc, Limit: 2})
	if len(desc) != 2 || desc[0].AmountCents != 1 || desc[1].AmountCents != 3 {
		t.Fatalf("unexpected desc page %+v", desc)
	}

	c := asc[1].Cursor()
	after, _ := s.QueryTransactions(ctx, core.TransactionQuery{Order: core.OrderAsc, Limit: 10, Cursor: &c})
	if len(after) != 2 || after[0].AmountCents != 3 {
		t.Fatalf("unexpected page after cursor %+v", after)
	}

	if _, err := s.QueryTransactions(ctx, core.TransactionQuery{Order: core.OrderAsc}); !errors.Is(err, core.ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestInsertTransactionValidates(t *testing.T) {
	s := newTestStore()
	_, err := s.InsertTransaction(context.Background(), core.NewTransaction{Date: core.NewDate(2024, 1, 1), Currency: core.CurrencyUSD})
	if !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatal("invalid transaction was stored")
	}
}

func TestDeleteTransactions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	var ids []core.TransactionID
	for i := 0; i < 3; i++ {
		tx, err := s.InsertTransaction(ctx, core.NewTransaction{Date: core.NewDate(2024, 1, i+1), Category: "c", AmountCents: 1, Currency: core.CurrencyUSD})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, tx.ID)
	}
	if err := s.DeleteTransactions(ctx, []core.TransactionID{ids[0], ids[2], core.NewTransactionID()}); err != nil {
		t.Fatal(err)
	}
	rest, _ := s.QueryTransactions(ctx, core.TransactionQuery{Order: core.OrderAsc, Limit: 10})
	if len(rest) != 1 || rest[0].ID != ids[1] {
		t.Fatalf("unexpected remaining %+v", rest)
	}
}

func TestSumTransactions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	for _, d := range []core.Date{core.NewDate(2024, 1, 5), core.NewDate(2024, 1, 6), core.NewDate(2024, 3, 1)} {
		if _, err := s.InsertTransaction(ctx, core.NewTransaction{Date: d, Category: "c", AmountCents: 10, Currency: core.CurrencyUSD}); err != nil {
			t.Fatal(err)
		}
	}
	sums, err := s.SumTransactions(ctx, core.YearRange(2024), core.GranularityMonth)
	if err != nil {
		t.Fatal(err)
	}
	if len(sums) != 2 || sums[0].AmountCents != 20 || sums[1].Month != 3 {
		t.Fatalf("unexpected sums %+v", sums)
	}
	empty, err := s.SumTransactions(ctx, core.YearRange(2030), core.GranularityYear)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty sums, got %+v (err=%v)", empty, err)
	}
}
