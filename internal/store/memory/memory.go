// Package memory is an in-process record store used by tests and the
// memory backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"shoebox/internal/aggregate"
	"shoebox/internal/core"
	"shoebox/internal/store"
)

type Store struct {
	mu    sync.RWMutex
	rules map[core.BudgetKey]core.BudgetRule
	items []core.Transaction // sorted ascending by cursor
	now   func() time.Time
	newID func() core.TransactionID
}

type Option func(*Store)

// WithClock sets the time source for LastUpdated and CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(gen func() core.TransactionID) Option {
	return func(s *Store) { s.newID = gen }
}

func New(opts ...Option) *Store {
	s := &Store{
		rules: make(map[core.BudgetKey]core.BudgetRule),
		now:   time.Now,
		newID: core.NewTransactionID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.Store = (*Store)(nil)

func (s *Store) UpsertBudgetRule(_ context.Context, month, year int, interval core.Interval, amountCents int64, currency core.Currency) (core.BudgetRule, error) {
	rule := core.BudgetRule{
		Month:       month,
		Year:        year,
		Interval:    interval,
		AmountCents: amountCents,
		Currency:    currency,
	}
	if err := rule.Validate(); err != nil {
		return core.BudgetRule{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rule.LastUpdated = s.now().UTC()
	s.rules[rule.Key()] = rule
	return rule, nil
}

func (s *Store) QueryBudgetRules(_ context.Context, r core.DateRange) ([]core.BudgetRule, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.BudgetRule, 0, len(s.rules))
	for _, rule := range s.rules {
		if store.RuleAppliesBefore(rule, r) {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AnchorIndex() != out[j].AnchorIndex() {
			return out[i].AnchorIndex() < out[j].AnchorIndex()
		}
		return out[i].Interval.Rank() < out[j].Interval.Rank()
	})
	return out, nil
}

func (s *Store) DeleteBudgetRule(_ context.Context, key core.BudgetKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[key]; !ok {
		return fmt.Errorf("delete budget rule %s: %w", key, store.ErrNotFound)
	}
	delete(s.rules, key)
	return nil
}

func (s *Store) InsertTransaction(_ context.Context, n core.NewTransaction) (core.Transaction, error) {
	if err := n.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := core.Transaction{
		ID:          s.newID(),
		Date:        n.Date,
		Title:       n.Title,
		Category:    n.Category,
		AmountCents: n.AmountCents,
		Currency:    n.Currency,
		CreatedAt:   s.now().UTC(),
	}
	c := t.Cursor()
	i := sort.Search(len(s.items), func(i int) bool { return s.items[i].Cursor().Compare(c) > 0 })
	s.items = append(s.items, core.Transaction{})
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = t
	return t, nil
}

func (s *Store) DeleteTransactions(_ context.Context, ids []core.TransactionID) error {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[core.TransactionID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	for _, t := range s.items {
		if _, ok := drop[t.ID]; !ok {
			kept = append(kept, t)
		}
	}
	clear(s.items[len(kept):])
	s.items = kept
	return nil
}

func (s *Store) QueryTransactions(_ context.Context, q core.TransactionQuery) ([]core.Transaction, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, 0, q.Limit)
	n := len(s.items)
	for k := 0; k < n && len(out) < q.Limit; k++ {
		i := k
		if q.Order == core.OrderDesc {
			i = n - 1 - k
		}
		t := s.items[i]
		if q.Cursor != nil && !q.Cursor.Follows(t.Cursor(), q.Order) {
			continue
		}
		if q.Filters.Matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) SumTransactions(_ context.Context, r core.DateRange, g core.Granularity) ([]core.TransactionSum, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return aggregate.SumByBucket(s.items, r, g)
}

// Len returns the number of stored transactions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) Close() error { return nil }
