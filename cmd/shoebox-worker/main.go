package main

import (
	"context"
	"os"
	"time"

	"shoebox/internal/backend"
	"shoebox/internal/cli"
	"shoebox/internal/log"
	"shoebox/internal/sheets"
	gsheet "shoebox/internal/sheets/google"
	mem "shoebox/internal/sheets/memory"
	"shoebox/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(nil, log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting shoebox-worker")

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	var exporter sheets.TrendExporter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleTrendsSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		exporter = mem.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting in memory")
	}

	var consumer worker.ChangeConsumer
	if res.AMQP != nil {
		consumer = res.AMQP
	} else {
		logger.Info("Skipping change event consumption - no AMQP client available")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trends := worker.NewTrendsWorker(res.Ledger, exporter)

	logger.Info("Performing startup export...")
	if err := trends.StartupExport(ctx); err != nil {
		logger.Error("Startup export failed", log.FieldError, err)
	}

	runErr := make(chan error, 1)
	go func() { runErr <- trends.Run(ctx, consumer, cfg.ExportInterval) }()

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		cancel()
		if err := <-runErr; err != nil {
			logger.Error("Worker stopped with error", log.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})
	cli.WaitForShutdown(shutdownCtx, done)
}
