package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"spendsense/internal/amqp"
	"spendsense/internal/backend"
	"spendsense/internal/cli"
	"spendsense/internal/log"
	gsheet "spendsense/internal/sheets/google"
	"spendsense/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger().WithComponent(log.ComponentWorker)

	logger.Info("Starting spendsense-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Worker configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	// The SQLite index is shared with the web server only when it is the
	// configured report index. Without it the worker relies on messages alone.
	var tracker worker.Tracker
	if backend.IndexType(cfg.ReportIndex) == backend.SQLiteIndex {
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		defer repo.Close()
		tracker = repo
		logger.Info("Using SQLite report index for sync tracking", "path", cfg.SQLiteDBPath)
	} else {
		logger.Info("No shared report index, pending-report replay disabled")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(tracker, sheetsClient, cfg.SyncBatchSize)

	// On startup, process any reports that might have been missed
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
		// Don't exit - continue with normal operation
	}

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		err := amqpClient.ConsumeReportGenerated(gctx, syncWorker.HandleReportMessage)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// Periodic replay for any missed messages
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := syncWorker.ProcessPendingReports(gctx); err != nil {
					logger.Error("Periodic sync failed", log.FieldError, err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(runCtx, done)
	logger.Info("Worker shutdown complete")
}
