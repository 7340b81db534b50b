package core

// MonthOverview is the budget and spending of one calendar month.
type MonthOverview struct {
	Year       int
	Month      int
	Budget     *BudgetRule
	SpentCents int64
}

// Remaining is the budget left for the month; zero when no budget applies.
func (o MonthOverview) Remaining() int64 {
	if o.Budget == nil {
		return 0
	}
	return o.Budget.AmountCents - o.SpentCents
}

// HasBudget reports whether a budget rule applies to the month.
func (o MonthOverview) HasBudget() bool {
	return o.Budget != nil
}
