// Package worker keeps exported trend series in step with the ledger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"shoebox/internal/amqp"
	"shoebox/internal/core"
	"shoebox/internal/services"
	"shoebox/internal/sheets"
)

type (
	// TrendSource computes trend series; the ledger service implements it.
	TrendSource interface {
		Trends(ctx context.Context, r core.DateRange, g core.Granularity) (services.Trends, error)
		Invalidate()
	}

	// ChangeConsumer delivers ledger change events until ctx ends.
	ChangeConsumer interface {
		ConsumeLedgerChanges(ctx context.Context, handler func(context.Context, *amqp.LedgerChangeMessage) error) error
	}
)

// TrendsWorker re-exports the monthly trend series of a year whenever the
// ledger changes, and periodically as a backstop for lost events.
type TrendsWorker struct {
	source   TrendSource
	exporter sheets.TrendExporter
	now      func() time.Time
}

func NewTrendsWorker(source TrendSource, exporter sheets.TrendExporter) *TrendsWorker {
	return &TrendsWorker{source: source, exporter: exporter, now: time.Now}
}

// HandleLedgerChange exports the year the change touched, or the current
// year when the change is not tied to a period.
func (w *TrendsWorker) HandleLedgerChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error {
	slog.InfoContext(ctx, "Processing ledger change",
		"kind", msg.Kind,
		"year", msg.Year,
		"month", msg.Month,
		"ids", len(msg.IDs))

	w.source.Invalidate()

	year := msg.Year
	if year == 0 {
		year = w.now().Year()
	}
	if err := w.ExportYear(ctx, year); err != nil {
		return err
	}
	// A budget rule can apply to every later year; keep the current one fresh.
	if current := w.now().Year(); msg.Kind == amqp.ChangeBudget && year < current {
		return w.ExportYear(ctx, current)
	}
	return nil
}

// ExportYear computes the twelve month points of year and exports them.
func (w *TrendsWorker) ExportYear(ctx context.Context, year int) error {
	trends, err := w.source.Trends(ctx, core.YearRange(year), core.GranularityMonth)
	if err != nil {
		return fmt.Errorf("compute trends for %d: %w", year, err)
	}
	ref, err := w.exporter.ExportTrends(ctx, year, trends.Points)
	if err != nil {
		return fmt.Errorf("export trends for %d: %w", year, err)
	}
	slog.InfoContext(ctx, "Exported trends", "year", year, "ref", ref, "points", len(trends.Points))
	return nil
}

// StartupExport exports the current year so the sheet is fresh after downtime.
func (w *TrendsWorker) StartupExport(ctx context.Context) error {
	return w.ExportYear(ctx, w.now().Year())
}

// Run consumes change events and re-exports the current year every interval
// until ctx ends. A nil consumer runs the periodic export only.
func (w *TrendsWorker) Run(ctx context.Context, consumer ChangeConsumer, interval time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeLedgerChanges(gctx, w.HandleLedgerChange)
		})
	}

	if interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-ticker.C:
					w.source.Invalidate()
					if err := w.StartupExport(gctx); err != nil {
						slog.ErrorContext(gctx, "Periodic trend export failed", "error", err)
					}
				}
			}
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
