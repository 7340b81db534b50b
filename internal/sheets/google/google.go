// Package google exports trend series to a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"shoebox/internal/core"
	"shoebox/internal/graph"
	ports "shoebox/internal/sheets"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Options configure the exporter. One of CredentialsJSON and CredentialsFile
// is required.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base name without year (e.g. "Trends"); the exported year is prefixed.
	sheetBase string
}

var _ ports.TrendExporter = (*Client)(nil)

func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	base := strings.TrimSpace(opts.SheetName)
	if base == "" {
		base = "Trends"
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: opts.SpreadsheetID, sheetBase: base}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(opts.CredentialsJSON)
	case strings.TrimSpace(opts.CredentialsFile) != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", opts.CredentialsFile)
		b, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ExportTrends replaces the content of "<year> <base>" with points. The write
// is skipped when the sheet already holds the same rows.
func (c *Client) ExportTrends(ctx context.Context, year int, points []graph.Point) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheetName := yearPrefixedName(c.sheetBase, year)
	if err := c.ensureSheet(ctx, sheetName); err != nil {
		return "", err
	}

	rows := rowsForSeries(points)
	ref := fmt.Sprintf("%s!A1:D%d", sheetName, len(rows))

	current, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, fmt.Sprintf("%s!A:D", sheetName)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", sheetName, err)
	}
	if sameRows(current.Values, rows) {
		slog.DebugContext(ctx, "Trend sheet unchanged, skipping write", "sheet", sheetName)
		return ref, nil
	}

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, fmt.Sprintf("%s!A:D", sheetName), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", sheetName, err)
	}
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, ref, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("update %s: %w", ref, err)
	}

	slog.InfoContext(ctx, "Exported trend series", "sheet", sheetName, "points", len(points))
	return ref, nil
}

// ensureSheet adds the sheet to the spreadsheet when it is missing.
func (c *Client) ensureSheet(ctx context.Context, name string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == name {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: name}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", name, err)
	}
	slog.InfoContext(ctx, "Created trend sheet", "sheet", name)
	return nil
}

// rowsForSeries renders the header plus one row per point. Amounts are
// decimal strings; Budget and Remaining are blank when no budget applies.
func rowsForSeries(points []graph.Point) [][]interface{} {
	rows := make([][]interface{}, 0, len(points)+1)
	header := make([]interface{}, len(ports.Header))
	for i, h := range ports.Header {
		header[i] = h
	}
	rows = append(rows, header)
	for _, p := range points {
		budget, remaining := "", ""
		if p.HasBudget {
			budget = core.FormatAmount(p.BudgetCents)
			remaining = core.FormatAmount(p.BudgetCents - p.ActualCents)
		}
		rows = append(rows, []interface{}{p.Label, budget, core.FormatAmount(p.ActualCents), remaining})
	}
	return rows
}

func sameRows(a, b [][]interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := toStrings(a[i]), toStrings(b[i])
		// The API drops trailing empty cells.
		for len(y) > len(x) && y[len(y)-1] == "" {
			y = y[:len(y)-1]
		}
		if len(x) != len(y) {
			return false
		}
		for j := range x {
			if !sameCell(x[j], y[j]) {
				return false
			}
		}
	}
	return true
}

// sameCell compares numerically when both cells are numbers, since the sheet
// renders "5.00" back as "5".
func sameCell(a, b string) bool {
	if a == b {
		return true
	}
	da, err := decimal.NewFromString(a)
	if err != nil {
		return false
	}
	db, err := decimal.NewFromString(b)
	if err != nil {
		return false
	}
	return da.Equal(db)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
