package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"shoebox/internal/core"
	"shoebox/internal/store/memory"
)

func seed(t *testing.T, n int) *memory.Store {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s := memory.New(memory.WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}))
	for i := 0; i < n; i++ {
		// 250 records spread over Jan..May, several per day.
		d := core.NewDate(2024, 1+i%5, 1+(i/5)%28)
		_, err := s.InsertTransaction(context.Background(), core.NewTransaction{
			Date:        d,
			Title:       fmt.Sprintf("item %d", i),
			Category:    []string{"food", "home"}[i%2],
			AmountCents: int64(100 + i),
			Currency:    core.CurrencyUSD,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestPaginatorPagesWithoutGapsOrDuplicates(t *testing.T) {
	for _, order := range []core.Order{core.OrderAsc, core.OrderDesc} {
		t.Run(string(order), func(t *testing.T) {
			ctx := context.Background()
			s := seed(t, 250)
			p := New(s, order)

			for i, want := range []int{100, 100, 50, 0} {
				got, err := p.NextPage(ctx, 100)
				if err != nil {
					t.Fatal(err)
				}
				if got != want {
					t.Fatalf("page %d: got %d new records, want %d", i+1, got, want)
				}
			}
			if !p.Exhausted() {
				t.Error("expected paginator to be exhausted")
			}

			res := p.Results()
			if len(res) != 250 {
				t.Fatalf("got %d results, want 250", len(res))
			}
			ids := make(map[core.TransactionID]bool, len(res))
			for i, tx := range res {
				if ids[tx.ID] {
					t.Fatalf("duplicate id %s", tx.ID)
				}
				ids[tx.ID] = true
				if i == 0 {
					continue
				}
				cmp := res[i-1].Cursor().Compare(tx.Cursor())
				if (order == core.OrderAsc && cmp >= 0) || (order == core.OrderDesc && cmp <= 0) {
					t.Fatalf("results out of order at %d", i)
				}
			}
		})
	}
}

func TestPaginatorFilterChangeResets(t *testing.T) {
	ctx := context.Background()
	s := seed(t, 250)
	p := New(s, core.OrderDesc)

	if _, err := p.NextPage(ctx, 100); err != nil {
		t.Fatal(err)
	}
	if p.SetFilters(core.SearchFilters{}) {
		t.Fatal("equal filters should not reset")
	}
	if p.Len() != 100 {
		t.Fatalf("results lost on no-op filter change: %d", p.Len())
	}

	if !p.SetFilters(core.SearchFilters{Category: "food"}) {
		t.Fatal("different filters should reset")
	}
	if p.Len() != 0 || p.Cursor() != nil {
		t.Fatal("results and cursor should be empty after reset")
	}

	got, err := p.NextPage(ctx, 200)
	if err != nil {
		t.Fatal(err)
	}
	if got != 125 {
		t.Fatalf("got %d food records, want 125", got)
	}
	for _, tx := range p.Results() {
		if tx.Category != "food" {
			t.Fatalf("unexpected category %q", tx.Category)
		}
	}
}

func TestPaginatorSeesLaterInserts(t *testing.T) {
	ctx := context.Background()
	s := seed(t, 10)
	p := New(s, core.OrderAsc)
	if _, err := p.NextPage(ctx, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertTransaction(ctx, core.NewTransaction{Date: core.NewDate(2024, 12, 1), Category: "late", AmountCents: 1, Currency: core.CurrencyUSD}); err != nil {
		t.Fatal(err)
	}
	got, err := p.NextPage(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 || p.Results()[10].Category != "late" {
		t.Fatalf("expected the late insert to appear, got %d new", got)
	}
}

func TestPaginatorResume(t *testing.T) {
	ctx := context.Background()
	s := seed(t, 30)
	first := New(s, core.OrderAsc)
	if _, err := first.NextPage(ctx, 10); err != nil {
		t.Fatal(err)
	}

	second := New(s, core.OrderAsc)
	second.Resume(*first.Cursor())
	if _, err := second.NextPage(ctx, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := first.NextPage(ctx, 10); err != nil {
		t.Fatal(err)
	}
	if second.Results()[0].ID != first.Results()[10].ID {
		t.Fatal("resumed paginator should continue where the first page ended")
	}
}

func TestPaginatorResumeOutsideRange(t *testing.T) {
	tests := []struct {
		name   string
		order  core.Order
		filter core.DateRange
		cursor core.Date
	}{
		{"asc past end", core.OrderAsc, core.DateRange{End: core.NewDate(2024, 1, 31)}, core.NewDate(2024, 3, 1)},
		{"desc before start", core.OrderDesc, core.DateRange{Start: core.NewDate(2024, 3, 1)}, core.NewDate(2024, 1, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(seed(t, 30), tt.order)
			p.SetFilters(core.SearchFilters{Range: tt.filter})
			p.Resume(core.Cursor{Date: tt.cursor, ID: core.NewTransactionID()})

			n, err := p.NextPage(context.Background(), 10)
			if err != nil {
				t.Fatalf("NextPage: %v", err)
			}
			if n != 0 || p.Len() != 0 {
				t.Errorf("got %d records, want none", n)
			}
			if !p.Exhausted() {
				t.Error("expected paginator to be exhausted")
			}
		})
	}
}

type failingQuerier struct{}

var errBoom = errors.New("boom")

func (failingQuerier) QueryTransactions(context.Context, core.TransactionQuery) ([]core.Transaction, error) {
	return nil, errBoom
}

func TestPaginatorErrors(t *testing.T) {
	p := New(failingQuerier{}, core.OrderAsc)
	if _, err := p.NextPage(context.Background(), 10); !errors.Is(err, errBoom) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if _, err := p.NextPage(context.Background(), 0); !errors.Is(err, core.ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
}
