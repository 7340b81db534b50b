// Package aggregate groups transactions into month or year totals.
package aggregate

import (
	"fmt"
	"sort"

	"shoebox/internal/calendar"
	"shoebox/internal/core"
)

// SumByBucket totals the transactions of r per bucket. Transactions outside
// r are ignored, buckets without transactions are omitted and the result is
// sorted ascending.
func SumByBucket(txns []core.Transaction, r core.DateRange, g core.Granularity) ([]core.TransactionSum, error) {
	if _, err := calendar.TickCount(r, g); err != nil {
		return nil, err
	}

	totals := make(map[core.BucketKey]int64)
	for _, t := range txns {
		if !r.Contains(t.Date) {
			continue
		}
		key := calendar.TickOf(t.Date, g).Key()
		sum, err := core.AddCents(totals[key], t.AmountCents)
		if err != nil {
			return nil, fmt.Errorf("sum %d-%02d: %w", key.Year, key.Month, err)
		}
		totals[key] = sum
	}

	sums := make([]core.TransactionSum, 0, len(totals))
	for k, v := range totals {
		sums = append(sums, core.TransactionSum{Year: k.Year, Month: k.Month, AmountCents: v})
	}
	sort.Slice(sums, func(i, j int) bool {
		if sums[i].Year != sums[j].Year {
			return sums[i].Year < sums[j].Year
		}
		return sums[i].Month < sums[j].Month
	})
	return sums, nil
}

// FirstBucketTotal returns the total of the first bucket, 0 when there is none.
func FirstBucketTotal(sums []core.TransactionSum) int64 {
	if len(sums) == 0 {
		return 0
	}
	return sums[0].AmountCents
}

// Index keys sums by bucket for lookups.
func Index(sums []core.TransactionSum) map[core.BucketKey]int64 {
	out := make(map[core.BucketKey]int64, len(sums))
	for _, s := range sums {
		out[s.Key()] += s.AmountCents
	}
	return out
}
