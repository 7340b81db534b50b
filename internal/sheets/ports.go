// Package sheets declares the spreadsheet export port for trend series.
package sheets

import (
	"context"

	"shoebox/internal/graph"
)

// Ports for outbound adapters.
type (
	// TrendExporter writes a trend series to a named sheet of the given year,
	// replacing what was there, and returns a reference to the written range.
	TrendExporter interface {
		ExportTrends(ctx context.Context, year int, points []graph.Point) (ref string, err error)
	}
)

// Header is the first row of an exported series.
var Header = []string{"Period", "Budget", "Actual", "Remaining"}
