// Package search pages through filtered transaction queries without
// duplicates or skips.
package search

import (
	"context"
	"fmt"

	"shoebox/internal/core"
	"shoebox/internal/store"
)

// Paginator accumulates the results of a filtered search page by page.
//
// Each page resumes strictly after the sort key (date, createdAt, id) of the
// last record seen. Results are kept in first-seen order and deduplicated by
// id. A Paginator is owned by one caller; it is not safe for concurrent use.
type Paginator struct {
	src     store.TransactionQuerier
	order   core.Order
	filters core.SearchFilters

	results   []core.Transaction
	seen      map[core.TransactionID]struct{}
	cursor    *core.Cursor
	exhausted bool
}

// New returns a Paginator reading from src. An invalid order falls back to
// newest first.
func New(src store.TransactionQuerier, order core.Order) *Paginator {
	if !order.Valid() {
		order = core.OrderDesc
	}
	return &Paginator{
		src:   src,
		order: order,
		seen:  make(map[core.TransactionID]struct{}),
	}
}

// SetFilters replaces the filters. When they differ from the current ones
// the accumulated results and cursor are discarded and true is returned.
func (p *Paginator) SetFilters(f core.SearchFilters) bool {
	if f.Equal(p.filters) {
		return false
	}
	p.filters = f
	p.Reset()
	return true
}

// Filters returns the current filters.
func (p *Paginator) Filters() core.SearchFilters {
	return p.filters
}

// Resume continues a search from a cursor obtained from an earlier page,
// discarding any accumulated results.
func (p *Paginator) Resume(c core.Cursor) {
	p.Reset()
	p.cursor = &c
}

// NextPage fetches up to limit records after the cursor and returns how many
// of them were new.
func (p *Paginator) NextPage(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		return 0, core.ErrInvalidLimit
	}
	f := p.narrowed()
	if f.Range.Validate() != nil {
		// The cursor lies outside the filter range: nothing can follow it.
		p.exhausted = true
		return 0, nil
	}
	q := core.TransactionQuery{
		Filters: f,
		Cursor:  p.cursor,
		Order:   p.order,
		Limit:   limit,
	}
	page, err := p.src.QueryTransactions(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("query transactions: %w", err)
	}
	if len(page) < limit {
		p.exhausted = true
	}

	added := 0
	for _, t := range page {
		if _, ok := p.seen[t.ID]; ok {
			continue
		}
		p.seen[t.ID] = struct{}{}
		p.results = append(p.results, t)
		added++
	}
	if len(page) > 0 {
		c := page[len(page)-1].Cursor()
		p.cursor = &c
	}
	return added, nil
}

// narrowed bounds the date range at the cursor date so stores can use their
// date index.
func (p *Paginator) narrowed() core.SearchFilters {
	f := p.filters
	if p.cursor == nil {
		return f
	}
	if p.order == core.OrderAsc {
		f.Range.Start = p.cursor.Date
	} else {
		f.Range.End = p.cursor.Date
	}
	return f
}

// Results returns the accumulated records in sort order.
func (p *Paginator) Results() []core.Transaction {
	return append([]core.Transaction(nil), p.results...)
}

// Cursor returns the resume point, nil before the first non-empty page.
func (p *Paginator) Cursor() *core.Cursor {
	if p.cursor == nil {
		return nil
	}
	c := *p.cursor
	return &c
}

func (p *Paginator) Len() int {
	return len(p.results)
}

// Exhausted reports whether the last page came back short.
func (p *Paginator) Exhausted() bool {
	return p.exhausted
}

// Reset discards results and cursor but keeps the filters.
func (p *Paginator) Reset() {
	p.results = nil
	p.seen = make(map[core.TransactionID]struct{})
	p.cursor = nil
	p.exhausted = false
}
