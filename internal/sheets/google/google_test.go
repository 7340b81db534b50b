package google

import (
	"context"
	"testing"

	"shoebox/internal/graph"
)

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		name string
		base string
		year int
		want string
	}{
		{"plain base", "Trends", 2024, "2024 Trends"},
		{"already prefixed", "2023 Trends", 2024, "2023 Trends"},
		{"trims spaces", "  Trends ", 2025, "2025 Trends"},
		{"empty", "", 2024, ""},
		{"digits without space", "2024Trends", 2024, "2024 2024Trends"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
				t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
			}
		})
	}
}

func TestRowsForSeries(t *testing.T) {
	points := []graph.Point{
		{Label: "Jan 2024", BudgetCents: 10000, ActualCents: 2550, HasBudget: true},
		{Label: "Feb 2024", ActualCents: 1200},
	}

	rows := rowsForSeries(points)
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Period" || rows[0][3] != "Remaining" {
		t.Errorf("unexpected header: %v", rows[0])
	}

	want := [][]string{
		{"Jan 2024", "100.00", "25.50", "74.50"},
		{"Feb 2024", "", "12.00", ""},
	}
	for i, w := range want {
		got := toStrings(rows[i+1])
		for j := range w {
			if got[j] != w[j] {
				t.Errorf("row %d col %d = %q, want %q", i+1, j, got[j], w[j])
			}
		}
	}
}

func TestSameRows(t *testing.T) {
	rows := rowsForSeries([]graph.Point{{Label: "2024", ActualCents: 500}})

	tests := []struct {
		name    string
		current [][]interface{}
		want    bool
	}{
		{
			name:    "identical",
			current: rowsForSeries([]graph.Point{{Label: "2024", ActualCents: 500}}),
			want:    true,
		},
		{
			name:    "trailing blanks dropped by the API",
			current: [][]interface{}{{"Period", "Budget", "Actual", "Remaining"}, {"2024", "", "5.00"}},
			want:    true,
		},
		{
			name:    "numbers rendered without decimals",
			current: [][]interface{}{{"Period", "Budget", "Actual", "Remaining"}, {"2024", "", "5"}},
			want:    true,
		},
		{
			name:    "different amount",
			current: [][]interface{}{{"Period", "Budget", "Actual", "Remaining"}, {"2024", "", "6.00"}},
			want:    false,
		},
		{
			name:    "empty sheet",
			current: nil,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sameRows(tt.current, rows); got != tt.want {
				t.Errorf("sameRows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewRequiresConfiguration(t *testing.T) {
	ctx := context.Background()

	if _, err := New(ctx, Options{}); err == nil {
		t.Error("expected an error without a spreadsheet id")
	}
	if _, err := New(ctx, Options{SpreadsheetID: "abc"}); err == nil {
		t.Error("expected an error without credentials")
	}
	if _, err := New(ctx, Options{SpreadsheetID: "abc", CredentialsFile: "/does/not/exist.json"}); err == nil {
		t.Error("expected an error for a missing credentials file")
	}
}

func TestExportWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "abc", sheetBase: "Trends"}
	if _, err := c.ExportTrends(context.Background(), 2024, nil); err == nil {
		t.Error("expected an error when the service is not initialized")
	}
}
