package memory

import (
	"context"
	"testing"

	"shoebox/internal/graph"
)

func TestExporterKeepsLastSeriesPerYear(t *testing.T) {
	e := New()
	ctx := context.Background()

	first := []graph.Point{{Label: "Jan 2024", BudgetCents: 100}}
	second := []graph.Point{{Label: "Jan 2024", BudgetCents: 200}, {Label: "Feb 2024"}}

	if _, err := e.ExportTrends(ctx, 2024, first); err != nil {
		t.Fatalf("export: %v", err)
	}
	ref, err := e.ExportTrends(ctx, 2024, second)
	if err != nil || ref != "mem:2024:2" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}

	got, ok := e.Series(2024)
	if !ok || len(got) != 2 || got[0].BudgetCents != 200 {
		t.Fatalf("unexpected series: %+v ok=%v", got, ok)
	}
	if _, ok := e.Series(2023); ok {
		t.Error("no series should exist for 2023")
	}
	if e.Exports() != 2 {
		t.Errorf("Exports() = %d, want 2", e.Exports())
	}

	// The stored copy must not alias the caller's slice.
	second[0].BudgetCents = 1
	got, _ = e.Series(2024)
	if got[0].BudgetCents != 200 {
		t.Error("stored series aliases the caller's slice")
	}
}
