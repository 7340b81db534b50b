package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

const (
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

type (
	// Granularity selects month or year buckets.
	Granularity string

	// Date is a calendar date without time of day, stored at UTC midnight.
	Date struct {
		time.Time
	}

	// DateRange is inclusive on both ends. A zero Start or End is an open end.
	DateRange struct {
		Start Date
		End   Date
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidYear        = errors.New("invalid year")
	ErrInvalidRange       = errors.New("invalid range: end before start")
	ErrUnboundedRange     = errors.New("unbounded range")
	ErrInvalidGranularity = errors.New("invalid granularity")
)

// ParseGranularity accepts "month" and "year" in any case.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(lower(s)); g {
	case GranularityMonth, GranularityYear:
		return g, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGranularity, s)
	}
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (g Granularity) Valid() bool {
	return g == GranularityMonth || g == GranularityYear
}

// NewDate creates a new Date from year, month, day. Out of range values are
// normalised the way time.Date does it.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// DateFromEpochDay is the inverse of EpochDay.
func DateFromEpochDay(days int64) Date {
	return Date{Time: time.Unix(days*86400, 0).UTC()}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	if y := d.Year(); y < 1 || y > 9999 {
		return ErrInvalidYear
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// EpochDay is the number of days since 1970-01-01.
func (d Date) EpochDay() int64 {
	return d.Unix() / 86400
}

// MonthIndex counts months from year zero, so consecutive months differ by one.
func (d Date) MonthIndex() int {
	return d.Year()*12 + d.Month() - 1
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) AddMonths(n int) Date {
	return Date{Time: d.Time.AddDate(0, n, 0)}
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

// Compare returns -1, 0 or 1.
func (d Date) Compare(o Date) int { return d.Time.Compare(o.Time) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// IsEmpty returns true if the date is zero (for optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Bounded reports whether both ends are set.
func (r DateRange) Bounded() bool {
	return !r.Start.IsZero() && !r.End.IsZero()
}

func (r DateRange) Validate() error {
	if r.Bounded() && r.End.Before(r.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Contains reports whether d falls inside the range, honouring open ends.
func (r DateRange) Contains(d Date) bool {
	if !r.Start.IsZero() && d.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && d.After(r.End) {
		return false
	}
	return true
}

// FullYears counts the whole years between Start and the day after End.
func (r DateRange) FullYears() int {
	if !r.Bounded() {
		return 0
	}
	end := r.End.AddDays(1)
	years := end.Year() - r.Start.Year()
	if end.Month() < r.Start.Month() || (end.Month() == r.Start.Month() && end.Day() < r.Start.Day()) {
		years--
	}
	return years
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s]", r.Start, r.End)
}

// MonthRange spans the first to the last day of the given month.
func MonthRange(year, month int) DateRange {
	start := NewDate(year, month, 1)
	return DateRange{Start: start, End: start.AddMonths(1).AddDays(-1)}
}

// YearRange spans January 1 to December 31.
func YearRange(year int) DateRange {
	return DateRange{Start: NewDate(year, 1, 1), End: NewDate(year, 12, 31)}
}

func CurrentMonth(now time.Time) DateRange {
	d := DateOf(now)
	return MonthRange(d.Year(), d.Month())
}

func CurrentYear(now time.Time) DateRange {
	return YearRange(DateOf(now).Year())
}

// DefaultTrendsRange is the current year with the last four months trimmed.
func DefaultTrendsRange(now time.Time) DateRange {
	r := CurrentYear(now)
	r.End = r.End.AddMonths(-4)
	return r
}
