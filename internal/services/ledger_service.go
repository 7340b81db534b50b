// Package services orchestrates the ledger engine over a record store.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"shoebox/internal/aggregate"
	"shoebox/internal/amqp"
	"shoebox/internal/budget"
	"shoebox/internal/cache"
	"shoebox/internal/calendar"
	"shoebox/internal/core"
	"shoebox/internal/graph"
	"shoebox/internal/log"
	"shoebox/internal/search"
	"shoebox/internal/store"
)

// RecentLimit is the number of transactions on the overview.
const RecentLimit = 4

// ChangePublisher announces ledger writes to other processes.
type ChangePublisher interface {
	PublishLedgerChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error
}

// Trends is a computed trend series together with the range and granularity
// it was computed for.
type Trends struct {
	Range       core.DateRange   `json:"range"`
	Granularity core.Granularity `json:"granularity"`
	Points      []graph.Point    `json:"points"`
}

// LedgerService orchestrates budget and transaction operations across the
// store, the series cache and the change publisher. It is safe for
// concurrent use.
type LedgerService struct {
	store     store.Store
	publisher ChangePublisher
	series    *cache.LRUCache[Trends]
	flight    singleflight.Group
	// generation changes on every write so in-flight computations started
	// before the write are not cached.
	generation atomic.Uint64
	now        func() time.Time
	logger     *log.Logger
	events     *log.StructuredLogger
}

type Option func(*LedgerService)

// WithPublisher enables change events. A nil publisher disables them.
func WithPublisher(p ChangePublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

// WithSeriesCache replaces the default trend cache.
func WithSeriesCache(c *cache.LRUCache[Trends]) Option {
	return func(s *LedgerService) {
		if c != nil {
			s.series = c
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentLedger)
		}
	}
}

func NewLedgerService(st store.Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:  st,
		series: cache.NewLRUCache[Trends](64, 5*time.Minute),
		now:    time.Now,
		logger: log.Wrap(slog.Default(), log.ComponentLedger),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.events = log.NewStructuredLogger(s.logger)
	return s
}

// SeriesCache exposes the trend cache so it can be registered for cleanup.
func (s *LedgerService) SeriesCache() *cache.LRUCache[Trends] {
	return s.series
}

// UpsertBudget validates and stores a rule, replacing the one with the same
// (month, year, interval).
func (s *LedgerService) UpsertBudget(ctx context.Context, rule core.BudgetRule) (core.BudgetRule, error) {
	if err := rule.Validate(); err != nil {
		return core.BudgetRule{}, err
	}
	if rule.AmountCents < 0 {
		return core.BudgetRule{}, core.ErrInvalidAmount
	}
	saved, err := s.store.UpsertBudgetRule(ctx, rule.Month, rule.Year, rule.Interval, rule.AmountCents, rule.Currency)
	if err != nil {
		return core.BudgetRule{}, fmt.Errorf("upsert budget rule: %w", err)
	}
	s.invalidate()
	s.events.LogBudgetSaved(ctx, saved.Month, saved.Year, saved.Interval.String(), saved.AmountCents)
	s.publish(ctx, amqp.NewLedgerChangeMessage(amqp.ChangeBudget, saved.Year, saved.Month))
	return saved, nil
}

func (s *LedgerService) DeleteBudget(ctx context.Context, key core.BudgetKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := s.store.DeleteBudgetRule(ctx, key); err != nil {
		return fmt.Errorf("delete budget rule: %w", err)
	}
	s.invalidate()
	s.logger.InfoContext(ctx, "Budget rule deleted",
		log.FieldYear, key.Year,
		log.FieldMonth, key.Month,
		log.FieldInterval, key.Interval.String())
	s.publish(ctx, amqp.NewLedgerChangeMessage(amqp.ChangeBudget, key.Year, key.Month))
	return nil
}

func (s *LedgerService) AddTransaction(ctx context.Context, n core.NewTransaction) (core.Transaction, error) {
	if err := n.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t, err := s.store.InsertTransaction(ctx, n)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	s.invalidate()
	s.events.LogTransactionAdded(ctx, t.ID.String(), t.Category, t.AmountCents)
	s.publish(ctx, amqp.NewLedgerChangeMessage(amqp.ChangeTransaction, t.Date.Year(), t.Date.Month(), t.ID.String()))
	return t, nil
}

// DeleteTransactions removes the given ids. Unknown ids are ignored.
func (s *LedgerService) DeleteTransactions(ctx context.Context, ids []core.TransactionID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.store.DeleteTransactions(ctx, ids); err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	s.invalidate()

	refs := make([]string, len(ids))
	for i, id := range ids {
		refs[i] = id.String()
	}
	s.logger.InfoContext(ctx, "Transactions deleted", log.FieldCount, len(ids))
	s.publish(ctx, amqp.NewLedgerChangeMessage(amqp.ChangeTransaction, 0, 0, refs...))
	return nil
}

func (s *LedgerService) invalidate() {
	s.generation.Add(1)
	s.series.Purge()
}

// Invalidate drops cached series. The worker calls it when another process
// announces a write.
func (s *LedgerService) Invalidate() {
	s.invalidate()
}

func (s *LedgerService) publish(ctx context.Context, msg *amqp.LedgerChangeMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerChange(ctx, msg); err != nil {
		// The write already succeeded.
		s.events.LogError(ctx, "Failed to publish ledger change", err, log.OpPublish,
			log.Fields{log.FieldEventKind: string(msg.Kind)})
	}
}

// Trends computes the budget and actual series over r.
//
// An unset range defaults to the current year without its last four months.
// Open ends are closed at the current period. An empty granularity picks
// year buckets for ranges over one full year and month buckets otherwise.
func (s *LedgerService) Trends(ctx context.Context, r core.DateRange, g core.Granularity) (Trends, error) {
	now := s.now()
	if r.Start.IsZero() && r.End.IsZero() {
		r = core.DefaultTrendsRange(now)
	}
	if g == "" {
		g = graph.ChooseGranularity(calendar.Normalize(r, core.GranularityMonth, now))
	}
	if !g.Valid() {
		return Trends{}, fmt.Errorf("%w: %q", core.ErrInvalidGranularity, string(g))
	}
	r = calendar.Normalize(r, g, now)
	if err := r.Validate(); err != nil {
		return Trends{}, err
	}

	gen := s.generation.Load()
	key := fmt.Sprintf("%d|%s|%s|%s", gen, r.Start, r.End, g)
	if cached, ok := s.series.Get(key); ok {
		return cloneTrends(cached), nil
	}

	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		t, err := s.computeTrends(ctx, r, g)
		if err != nil {
			return Trends{}, err
		}
		if s.generation.Load() == gen {
			s.series.Set(key, t)
		}
		return t, nil
	})
	if err != nil {
		return Trends{}, err
	}
	return cloneTrends(v.(Trends)), nil
}

func (s *LedgerService) computeTrends(ctx context.Context, r core.DateRange, g core.Granularity) (Trends, error) {
	var (
		rules []core.BudgetRule
		sums  []core.TransactionSum
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		rules, err = s.store.QueryBudgetRules(egCtx, r)
		if err != nil {
			return fmt.Errorf("query budget rules: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		sums, err = s.store.SumTransactions(egCtx, r, g)
		if err != nil {
			return fmt.Errorf("sum transactions: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return Trends{}, err
	}

	budgets, err := budget.ResolveRange(rules, r, g)
	if err != nil {
		return Trends{}, fmt.Errorf("resolve budgets: %w", err)
	}
	points, err := graph.BuildSeries(budgets, sums, r, g)
	if err != nil {
		return Trends{}, fmt.Errorf("build series: %w", err)
	}

	s.logger.DebugContext(ctx, "Computed trend series",
		log.FieldRange, r.String(),
		log.FieldGranularity, string(g),
		log.FieldCount, len(points))
	return Trends{Range: r, Granularity: g, Points: points}, nil
}

func cloneTrends(t Trends) Trends {
	t.Points = append([]graph.Point(nil), t.Points...)
	return t
}

// MonthOverview returns the budget that applies to the month of now and the
// amount spent in it.
func (s *LedgerService) MonthOverview(ctx context.Context, now time.Time) (core.MonthOverview, error) {
	r := core.CurrentMonth(now)
	tick := calendar.TickOf(r.Start, core.GranularityMonth)

	var (
		rules []core.BudgetRule
		sums  []core.TransactionSum
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		rules, err = s.store.QueryBudgetRules(egCtx, r)
		return err
	})
	eg.Go(func() error {
		var err error
		sums, err = s.store.SumTransactions(egCtx, r, core.GranularityMonth)
		return err
	})
	if err := eg.Wait(); err != nil {
		return core.MonthOverview{}, fmt.Errorf("month overview: %w", err)
	}

	return core.MonthOverview{
		Year:       tick.Year,
		Month:      tick.Month,
		Budget:     budget.Resolve(rules, tick),
		SpentCents: aggregate.FirstBucketTotal(sums),
	}, nil
}

// MonthlyBudgets returns the twelve month buckets of year.
func (s *LedgerService) MonthlyBudgets(ctx context.Context, year int) ([]budget.Bucket, error) {
	if year < 1 || year > 9999 {
		return nil, core.ErrInvalidYear
	}
	r := core.YearRange(year)
	rules, err := s.store.QueryBudgetRules(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("query budget rules: %w", err)
	}
	return budget.ResolveRange(rules, r, core.GranularityMonth)
}

// RecentTransactions returns the newest transactions of the month of now.
// A non-positive limit means RecentLimit.
func (s *LedgerService) RecentTransactions(ctx context.Context, now time.Time, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = RecentLimit
	}
	txns, err := s.store.QueryTransactions(ctx, core.TransactionQuery{
		Filters: core.SearchFilters{Range: core.CurrentMonth(now)},
		Order:   core.OrderDesc,
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query recent transactions: %w", err)
	}
	return txns, nil
}

// NewSearch returns a paginator over the store's transactions.
func (s *LedgerService) NewSearch(order core.Order) *search.Paginator {
	return search.New(s.store, order)
}

// Ping checks the store when it supports health checks.
func (s *LedgerService) Ping(ctx context.Context) error {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes the store and the publisher.
func (s *LedgerService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}
