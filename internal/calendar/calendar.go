// Package calendar maps date ranges onto fixed month or year buckets.
//
// A range is bucketed by the calendar periods it touches: [2024-01-15,
// 2024-03-10] has three month ticks (Jan, Feb, Mar) and one year tick.
// Bucketing only works on bounded ranges; use Normalize to close open ends.
package calendar

import (
	"fmt"
	"time"

	"shoebox/internal/core"
)

// Tick is one bucket on the time axis. Month is 0 for year ticks.
type Tick struct {
	Year  int
	Month int
}

var monthNames = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Key returns the bucket key that transaction sums are grouped under.
func (t Tick) Key() core.BucketKey {
	return core.BucketKey{Year: t.Year, Month: t.Month}
}

// IsYear reports whether t is a year tick.
func (t Tick) IsYear() bool {
	return t.Month == 0
}

// Start is the first day covered by the tick.
func (t Tick) Start() core.Date {
	if t.IsYear() {
		return core.NewDate(t.Year, 1, 1)
	}
	return core.NewDate(t.Year, t.Month, 1)
}

// Range is the full calendar period of the tick.
func (t Tick) Range() core.DateRange {
	if t.IsYear() {
		return core.YearRange(t.Year)
	}
	return core.MonthRange(t.Year, t.Month)
}

// String renders "Jan 2024" for month ticks and "2024" for year ticks.
func (t Tick) String() string {
	if t.IsYear() {
		return fmt.Sprintf("%d", t.Year)
	}
	if t.Month < 1 || t.Month > 12 {
		return fmt.Sprintf("%d-%02d", t.Year, t.Month)
	}
	return fmt.Sprintf("%s %d", monthNames[t.Month-1], t.Year)
}

// TickOf returns the tick that contains d.
func TickOf(d core.Date, g core.Granularity) Tick {
	if g == core.GranularityYear {
		return Tick{Year: d.Year()}
	}
	return Tick{Year: d.Year(), Month: d.Month()}
}

func check(r core.DateRange, g core.Granularity) error {
	if !g.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidGranularity, string(g))
	}
	if !r.Bounded() {
		return core.ErrUnboundedRange
	}
	return r.Validate()
}

// TickCount returns the number of ticks the range touches, at least one.
func TickCount(r core.DateRange, g core.Granularity) (int, error) {
	if err := check(r, g); err != nil {
		return 0, err
	}
	return span(r, g), nil
}

func span(r core.DateRange, g core.Granularity) int {
	if g == core.GranularityYear {
		return r.End.Year() - r.Start.Year() + 1
	}
	return r.End.MonthIndex() - r.Start.MonthIndex() + 1
}

// TickStart is the first day of the i-th tick after the tick containing start.
func TickStart(start core.Date, i int, g core.Granularity) core.Date {
	if g == core.GranularityYear {
		return core.NewDate(start.Year()+i, 1, 1)
	}
	return core.NewDate(start.Year(), start.Month()+i, 1)
}

// Ticks lists every tick of the range in ascending order.
func Ticks(r core.DateRange, g core.Granularity) ([]Tick, error) {
	n, err := TickCount(r, g)
	if err != nil {
		return nil, err
	}
	ticks := make([]Tick, n)
	for i := range ticks {
		ticks[i] = TickOf(TickStart(r.Start, i, g), g)
	}
	return ticks, nil
}

// TickIndex maps d to its tick index. It returns false when d is outside the
// range or the range cannot be bucketed.
func TickIndex(r core.DateRange, d core.Date, g core.Granularity) (int, bool) {
	if check(r, g) != nil || !r.Contains(d) {
		return 0, false
	}
	if g == core.GranularityYear {
		return d.Year() - r.Start.Year(), true
	}
	return d.MonthIndex() - r.Start.MonthIndex(), true
}

// Normalize closes the open ends of r. A missing start becomes the first day
// of the current month (or year) and a missing end the last day of it.
func Normalize(r core.DateRange, g core.Granularity, now time.Time) core.DateRange {
	current := core.CurrentMonth(now)
	if g == core.GranularityYear {
		current = core.CurrentYear(now)
	}
	if r.Start.IsZero() {
		r.Start = current.Start
	}
	if r.End.IsZero() {
		r.End = current.End
	}
	return r
}
