// Package budget resolves which budget rule applies to a month and spreads
// rules over a bucketed date range.
package budget

import (
	"fmt"

	"shoebox/internal/calendar"
	"shoebox/internal/core"
)

// Bucket pairs a tick with the budget that applies to it. Rule is nil when no
// budget applies.
type Bucket struct {
	Tick calendar.Tick
	Rule *core.BudgetRule
}

// Present reports whether a budget applies to the bucket.
func (b Bucket) Present() bool {
	return b.Rule != nil
}

// AmountCents is the budget amount, 0 when absent.
func (b Bucket) AmountCents() int64 {
	if b.Rule == nil {
		return 0
	}
	return b.Rule.AmountCents
}

// Resolve returns a copy of the rule that applies to the month tick t, or nil.
//
// Precedence: a rule anchored exactly at t, then a yearly rule for the same
// month of an earlier year, then a monthly rule anchored before t. Within the
// same tier the latest LastUpdated wins; after that the later anchor, then
// the more specific interval. Rules with an unknown interval are ignored.
// Year ticks never resolve directly; use ResolveRange.
func Resolve(rules []core.BudgetRule, t calendar.Tick) *core.BudgetRule {
	if t.Month < 1 || t.Month > 12 {
		return nil
	}
	var (
		best     *core.BudgetRule
		bestTier Tier
	)
	for i := range rules {
		m, err := MatcherFor(rules[i].Interval)
		if err != nil {
			continue
		}
		tier := m.Match(rules[i], t)
		if tier == TierNone {
			continue
		}
		if best == nil || tier < bestTier || (tier == bestTier && preferred(rules[i], *best)) {
			best = &rules[i]
			bestTier = tier
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// preferred reports whether a beats b within the same tier.
func preferred(a, b core.BudgetRule) bool {
	if !a.LastUpdated.Equal(b.LastUpdated) {
		return a.LastUpdated.After(b.LastUpdated)
	}
	if a.AnchorIndex() != b.AnchorIndex() {
		return a.AnchorIndex() > b.AnchorIndex()
	}
	return a.Interval.Rank() < b.Interval.Rank()
}

// ResolveRange returns one bucket per tick of r.
//
// For month granularity each bucket holds the resolved rule of that month.
// For year granularity the resolved amounts of every month of r inside the
// year are summed into a synthetic rule: interval none, month of the first
// contributing month, currency of the first contributor and the latest
// LastUpdated among contributors.
func ResolveRange(rules []core.BudgetRule, r core.DateRange, g core.Granularity) ([]Bucket, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidGranularity, string(g))
	}
	months, err := calendar.Ticks(r, core.GranularityMonth)
	if err != nil {
		return nil, err
	}
	if g == core.GranularityMonth {
		buckets := make([]Bucket, len(months))
		for i, t := range months {
			buckets[i] = Bucket{Tick: t, Rule: Resolve(rules, t)}
		}
		return buckets, nil
	}

	years, err := calendar.Ticks(r, core.GranularityYear)
	if err != nil {
		return nil, err
	}
	buckets := make([]Bucket, len(years))
	for i, t := range years {
		buckets[i] = Bucket{Tick: t}
	}
	first := years[0].Year
	for _, t := range months {
		rule := Resolve(rules, t)
		if rule == nil {
			continue
		}
		b := &buckets[t.Year-first]
		if b.Rule == nil {
			b.Rule = &core.BudgetRule{
				Month:       t.Month,
				Year:        t.Year,
				Interval:    core.IntervalNone,
				AmountCents: rule.AmountCents,
				Currency:    rule.Currency,
				LastUpdated: rule.LastUpdated,
			}
			continue
		}
		sum, err := core.AddCents(b.Rule.AmountCents, rule.AmountCents)
		if err != nil {
			return nil, err
		}
		b.Rule.AmountCents = sum
		if rule.LastUpdated.After(b.Rule.LastUpdated) {
			b.Rule.LastUpdated = rule.LastUpdated
		}
	}
	return buckets, nil
}
