package budget

import (
	"fmt"

	"shoebox/internal/calendar"
	"shoebox/internal/core"
)

// Tier ranks how a rule matches a month. Lower tiers take precedence;
// TierNone means the rule does not apply.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierYearly
	TierMonthly
)

// Matcher decides whether a rule of one interval applies to a month tick.
type Matcher interface {
	Match(rule core.BudgetRule, t calendar.Tick) Tier
}

// OnceMatcher handles IntervalNone: the anchor month only.
type OnceMatcher struct{}

func (OnceMatcher) Match(rule core.BudgetRule, t calendar.Tick) Tier {
	if exact(rule, t) {
		return TierExact
	}
	return TierNone
}

// MonthlyMatcher handles IntervalMonthly: the anchor month and every month after.
type MonthlyMatcher struct{}

func (MonthlyMatcher) Match(rule core.BudgetRule, t calendar.Tick) Tier {
	if exact(rule, t) {
		return TierExact
	}
	if rule.AnchorIndex() < tickIndex(t) {
		return TierMonthly
	}
	return TierNone
}

// YearlyMatcher handles IntervalYearly: the anchor month in the anchor year and
// in every later year.
type YearlyMatcher struct{}

func (YearlyMatcher) Match(rule core.BudgetRule, t calendar.Tick) Tier {
	if exact(rule, t) {
		return TierExact
	}
	if rule.Month == t.Month && rule.Year <= t.Year {
		return TierYearly
	}
	return TierNone
}

func exact(rule core.BudgetRule, t calendar.Tick) bool {
	return rule.Month == t.Month && rule.Year == t.Year
}

func tickIndex(t calendar.Tick) int {
	return t.Year*12 + t.Month - 1
}

var matchers = map[core.Interval]Matcher{
	core.IntervalNone:    OnceMatcher{},
	core.IntervalMonthly: MonthlyMatcher{},
	core.IntervalYearly:  YearlyMatcher{},
}

// MatcherFor returns the matcher registered for an interval.
func MatcherFor(i core.Interval) (Matcher, error) {
	m, ok := matchers[i]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidInterval, string(i))
	}
	return m, nil
}
