package calendar

import (
	"errors"
	"testing"
	"time"

	"shoebox/internal/core"
)

func rng(start, end string) core.DateRange {
	s, err := core.ParseDate(start)
	if err != nil {
		panic(err)
	}
	e, err := core.ParseDate(end)
	if err != nil {
		panic(err)
	}
	return core.DateRange{Start: s, End: e}
}

func TestTickCount(t *testing.T) {
	tests := []struct {
		name string
		r    core.DateRange
		g    core.Granularity
		want int
	}{
		{"partial months", rng("2024-01-15", "2024-03-10"), core.GranularityMonth, 3},
		{"partial months by year", rng("2024-01-15", "2024-03-10"), core.GranularityYear, 1},
		{"single day", rng("2024-05-05", "2024-05-05"), core.GranularityMonth, 1},
		{"single day by year", rng("2024-05-05", "2024-05-05"), core.GranularityYear, 1},
		{"full year", rng("2024-01-01", "2024-12-31"), core.GranularityMonth, 12},
		{"across new year", rng("2023-12-31", "2024-01-01"), core.GranularityMonth, 2},
		{"across new year by year", rng("2023-12-31", "2024-01-01"), core.GranularityYear, 2},
		{"five years", rng("2020-06-01", "2024-02-01"), core.GranularityYear, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TickCount(tt.r, tt.g)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("TickCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTickCountErrors(t *testing.T) {
	if _, err := TickCount(rng("2024-03-01", "2024-02-01"), core.GranularityMonth); !errors.Is(err, core.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	open := core.DateRange{Start: core.NewDate(2024, 1, 1)}
	if _, err := TickCount(open, core.GranularityMonth); !errors.Is(err, core.ErrUnboundedRange) {
		t.Fatalf("expected ErrUnboundedRange, got %v", err)
	}
	if _, err := TickCount(rng("2024-01-01", "2024-02-01"), "week"); !errors.Is(err, core.ErrInvalidGranularity) {
		t.Fatalf("expected ErrInvalidGranularity, got %v", err)
	}
}

func TestTickStart(t *testing.T) {
	start := core.NewDate(2024, 11, 20)
	if got := TickStart(start, 0, core.GranularityMonth); got.String() != "2024-11-01" {
		t.Errorf("tick 0 = %s", got)
	}
	if got := TickStart(start, 3, core.GranularityMonth); got.String() != "2025-02-01" {
		t.Errorf("tick 3 = %s", got)
	}
	if got := TickStart(start, 2, core.GranularityYear); got.String() != "2026-01-01" {
		t.Errorf("year tick 2 = %s", got)
	}
}

func TestTicks(t *testing.T) {
	ticks, err := Ticks(rng("2024-11-15", "2025-01-10"), core.GranularityMonth)
	if err != nil {
		t.Fatal(err)
	}
	want := []Tick{{2024, 11}, {2024, 12}, {2025, 1}}
	if len(ticks) != len(want) {
		t.Fatalf("got %d ticks, want %d", len(ticks), len(want))
	}
	for i := range want {
		if ticks[i] != want[i] {
			t.Errorf("tick %d = %+v, want %+v", i, ticks[i], want[i])
		}
	}

	years, err := Ticks(rng("2022-06-01", "2024-01-01"), core.GranularityYear)
	if err != nil {
		t.Fatal(err)
	}
	if len(years) != 3 || years[0] != (Tick{Year: 2022}) || years[2] != (Tick{Year: 2024}) {
		t.Fatalf("unexpected year ticks %+v", years)
	}
}

func TestTickIndex(t *testing.T) {
	r := rng("2024-01-15", "2024-03-10")
	tests := []struct {
		d    core.Date
		want int
		ok   bool
	}{
		{core.NewDate(2024, 1, 15), 0, true},
		{core.NewDate(2024, 2, 29), 1, true},
		{core.NewDate(2024, 3, 10), 2, true},
		{core.NewDate(2024, 1, 14), 0, false},
		{core.NewDate(2024, 3, 11), 0, false},
	}
	for _, tt := range tests {
		got, ok := TickIndex(r, tt.d, core.GranularityMonth)
		if ok != tt.ok || got != tt.want {
			t.Errorf("TickIndex(%s) = %d, %v; want %d, %v", tt.d, got, ok, tt.want, tt.ok)
		}
	}
	if i, ok := TickIndex(rng("2023-12-01", "2024-02-01"), core.NewDate(2024, 1, 31), core.GranularityYear); !ok || i != 1 {
		t.Errorf("year index = %d, %v", i, ok)
	}
}

func TestTickString(t *testing.T) {
	if s := (Tick{Year: 2024, Month: 1}).String(); s != "Jan 2024" {
		t.Errorf("got %q", s)
	}
	if s := (Tick{Year: 2024}).String(); s != "2024" {
		t.Errorf("got %q", s)
	}
}

func TestNormalize(t *testing.T) {
	now := time.Date(2024, 2, 10, 15, 0, 0, 0, time.UTC)

	r := Normalize(core.DateRange{}, core.GranularityMonth, now)
	if r.Start.String() != "2024-02-01" || r.End.String() != "2024-02-29" {
		t.Errorf("month normalize = %s", r)
	}
	r = Normalize(core.DateRange{Start: core.NewDate(2023, 5, 1)}, core.GranularityYear, now)
	if r.Start.String() != "2023-05-01" || r.End.String() != "2024-12-31" {
		t.Errorf("year normalize = %s", r)
	}
	closed := rng("2020-01-01", "2020-01-31")
	if got := Normalize(closed, core.GranularityMonth, now); got != closed {
		t.Errorf("bounded range changed: %s", got)
	}
}
