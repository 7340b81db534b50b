// Package graph combines resolved budgets and transaction sums into the
// points of a trend chart.
package graph

import (
	"shoebox/internal/budget"
	"shoebox/internal/calendar"
	"shoebox/internal/core"
)

// Point is one tick of a trend series.
type Point struct {
	Tick        calendar.Tick `json:"-"`
	Label       string        `json:"label"`
	BudgetCents int64         `json:"budget_cents"`
	ActualCents int64         `json:"actual_cents"`
	HasBudget   bool          `json:"has_budget"`
}

// Labeler renders the axis label of a tick.
type Labeler func(calendar.Tick) string

// Option configures BuildSeries.
type Option func(*options)

type options struct {
	label Labeler
}

// WithLabeler replaces the default "Jan 2024" / "2024" labels.
func WithLabeler(l Labeler) Option {
	return func(o *options) {
		if l != nil {
			o.label = l
		}
	}
}

// DefaultLabel is the label used when no Labeler is given.
func DefaultLabel(t calendar.Tick) string {
	return t.String()
}

// BuildSeries returns one point per tick of r. Budgets and sums are matched
// to ticks by bucket key; ticks without either render as 0.
func BuildSeries(budgets []budget.Bucket, sums []core.TransactionSum, r core.DateRange, g core.Granularity, opts ...Option) ([]Point, error) {
	o := options{label: DefaultLabel}
	for _, opt := range opts {
		opt(&o)
	}

	ticks, err := calendar.Ticks(r, g)
	if err != nil {
		return nil, err
	}

	rules := make(map[core.BucketKey]*core.BudgetRule, len(budgets))
	for _, b := range budgets {
		if b.Rule != nil {
			rules[b.Tick.Key()] = b.Rule
		}
	}
	actual := make(map[core.BucketKey]int64, len(sums))
	for _, s := range sums {
		key := s.Key()
		if g == core.GranularityYear {
			key.Month = 0
		}
		v, err := core.AddCents(actual[key], s.AmountCents)
		if err != nil {
			return nil, err
		}
		actual[key] = v
	}

	points := make([]Point, len(ticks))
	for i, t := range ticks {
		p := Point{Tick: t, Label: o.label(t), ActualCents: actual[t.Key()]}
		if rule, ok := rules[t.Key()]; ok {
			p.BudgetCents = rule.AmountCents
			p.HasBudget = true
		}
		points[i] = p
	}
	return points, nil
}

// ChooseGranularity groups by year when r covers more than one full year.
func ChooseGranularity(r core.DateRange) core.Granularity {
	if r.FullYears() > 1 {
		return core.GranularityYear
	}
	return core.GranularityMonth
}
