package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year() != 2024 || d.Month() != 2 || d.Day() != 29 {
		t.Fatalf("unexpected date %v", d)
	}
	if _, err := ParseDate("2023-02-29"); err == nil {
		t.Fatal("expected error for invalid day")
	}
	if _, err := ParseDate("29/02/2024"); err == nil {
		t.Fatal("expected error for wrong layout")
	}
}

func TestDateEpochDayRoundTrip(t *testing.T) {
	for _, s := range []string{"1970-01-01", "1969-12-31", "2024-03-10", "0001-01-01"} {
		d, err := ParseDate(s)
		if err != nil {
			t.Fatalf("parse %s: %v", s, err)
		}
		if got := DateFromEpochDay(d.EpochDay()); !got.Equal(d) {
			t.Errorf("%s: round trip got %s", s, got)
		}
	}
	if NewDate(1970, 1, 2).EpochDay() != 1 {
		t.Fatal("expected 1970-01-02 to be epoch day 1")
	}
}

func TestDateOfUsesLocalCalendar(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	now := time.Date(2024, 3, 1, 2, 0, 0, 0, loc) // still Feb 29 in UTC
	if got := DateOf(now); got.String() != "2024-03-01" {
		t.Fatalf("expected 2024-03-01, got %s", got)
	}
}

func TestDateJSON(t *testing.T) {
	type wrapper struct {
		D Date `json:"d"`
	}
	b, err := json.Marshal(wrapper{D: NewDate(2024, 1, 15)})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"d":"2024-01-15"}` {
		t.Fatalf("unexpected json %s", b)
	}
	var w wrapper
	if err := json.Unmarshal([]byte(`{"d":null}`), &w); err != nil || !w.D.IsEmpty() {
		t.Fatalf("expected empty date, got %v (err=%v)", w.D, err)
	}
	if err := json.Unmarshal([]byte(`{"d":"2024-13-01"}`), &w); err == nil {
		t.Fatal("expected error for month 13")
	}
}

func TestDateRangeValidate(t *testing.T) {
	r := DateRange{Start: NewDate(2024, 3, 1), End: NewDate(2024, 2, 1)}
	if !errors.Is(r.Validate(), ErrInvalidRange) {
		t.Fatal("expected ErrInvalidRange")
	}
	open := DateRange{Start: NewDate(2024, 3, 1)}
	if err := open.Validate(); err != nil {
		t.Fatalf("open range should validate, got %v", err)
	}
	if open.Bounded() {
		t.Fatal("open range reported as bounded")
	}
}

func TestDateRangeContains(t *testing.T) {
	r := DateRange{Start: NewDate(2024, 1, 1), End: NewDate(2024, 1, 31)}
	tests := []struct {
		d    Date
		want bool
	}{
		{NewDate(2024, 1, 1), true},
		{NewDate(2024, 1, 31), true},
		{NewDate(2023, 12, 31), false},
		{NewDate(2024, 2, 1), false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.d); got != tt.want {
			t.Errorf("Contains(%s) = %v, want %v", tt.d, got, tt.want)
		}
	}
	if !(DateRange{}).Contains(NewDate(1900, 1, 1)) {
		t.Error("unbounded range should contain every date")
	}
}

func TestDateRangeFullYears(t *testing.T) {
	tests := []struct {
		name string
		r    DateRange
		want int
	}{
		{"within a quarter", DateRange{NewDate(2024, 1, 15), NewDate(2024, 3, 10)}, 0},
		{"exact year", YearRange(2024), 1},
		{"two years", DateRange{NewDate(2023, 1, 1), NewDate(2024, 12, 31)}, 2},
		{"one day short", DateRange{NewDate(2023, 1, 1), NewDate(2024, 12, 30)}, 1},
		{"open", DateRange{Start: NewDate(2023, 1, 1)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.FullYears(); got != tt.want {
				t.Fatalf("FullYears() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMonthRange(t *testing.T) {
	r := MonthRange(2024, 2)
	if r.Start.String() != "2024-02-01" || r.End.String() != "2024-02-29" {
		t.Fatalf("unexpected range %s", r)
	}
}

func TestDefaultTrendsRange(t *testing.T) {
	r := DefaultTrendsRange(time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC))
	if r.Start.String() != "2024-01-01" || r.End.String() != "2024-08-31" {
		t.Fatalf("unexpected range %s", r)
	}
}

func TestParseGranularity(t *testing.T) {
	if g, err := ParseGranularity(" Month "); err != nil || g != GranularityMonth {
		t.Fatalf("got %q, %v", g, err)
	}
	if _, err := ParseGranularity("week"); !errors.Is(err, ErrInvalidGranularity) {
		t.Fatalf("expected ErrInvalidGranularity, got %v", err)
	}
}
