package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"contas/internal/backend"
	"contas/internal/cli"
	"contas/internal/config"
	"contas/internal/log"
	"contas/internal/sheets"
	gsheet "contas/internal/sheets/google"
	memsheet "contas/internal/sheets/memory"
	"contas/internal/worker"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		os.Exit(1)
	}
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting contas-worker")

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Worker is using the memory backend; it will not see transactions written by the server")
	}
	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	var sink sheets.Exporter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		sink = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		sink = memsheet.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting to memory")
	}

	var events worker.EventSource
	if result.Events != nil {
		events = result.Events
	} else {
		logger.Info("AMQP disabled - relying on periodic resync only", "interval", cfg.SyncInterval.String())
	}

	w := worker.NewSyncWorker(result.Ledger, sink, cfg.SyncBatchSize, logger)
	if err := w.Run(ctx, events, cfg.SyncInterval); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
