package worker

import (
	"context"
	"errors"
	"fmt"

	"spendsense/internal/amqp"
	"spendsense/internal/core"
	"spendsense/internal/log"
	"spendsense/internal/sheets"
)

// Tracker is the part of a shared report index the worker updates.
type Tracker interface {
	sheets.SyncTracker
	Get(ctx context.Context, id string) (core.ReportRecord, error)
}

// SyncWorker copies report summaries to the sheet. With a tracker it also
// records the sync state and can replay reports whose message was lost.
type SyncWorker struct {
	tracker   Tracker
	sink      sheets.ReportSink
	batchSize int
	logger    *log.Logger
}

// NewSyncWorker builds a worker. tracker may be nil when the web server uses
// an in-memory index.
func NewSyncWorker(tracker Tracker, sink sheets.ReportSink, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{
		tracker:   tracker,
		sink:      sink,
		batchSize: batchSize,
		logger:    log.WithComponent(log.ComponentWorker),
	}
}

// HandleReportMessage processes one report.generated message.
func (w *SyncWorker) HandleReportMessage(ctx context.Context, msg *amqp.ReportGeneratedMessage) error {
	w.logger.InfoContext(ctx, "Processing report message",
		log.FieldReportID, msg.ID,
		log.FieldMonth, msg.Month,
		log.FieldOperation, log.OpConsume)

	rec, err := msg.Record()
	if err != nil {
		return fmt.Errorf("decode report message: %w", err)
	}

	if w.tracker != nil {
		stored, err := w.tracker.Get(ctx, msg.ID)
		switch {
		case err == nil && stored.SyncStatus == core.SyncDone:
			w.logger.InfoContext(ctx, "Report already synced, skipping", log.FieldReportID, msg.ID)
			return nil
		case err == nil:
			rec = stored
		case !errors.Is(err, core.ErrReportNotFound):
			return fmt.Errorf("get report from index: %w", err)
		}
	}

	return w.syncReport(ctx, rec)
}

// ProcessPendingReports replays reports still marked pending. It is the
// fallback for messages lost while the worker or broker was down.
func (w *SyncWorker) ProcessPendingReports(ctx context.Context) error {
	_, _, err := w.processPending(ctx, w.batchSize)
	return err
}

// StartupSyncCheck runs a larger pending sweep once at startup.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	total, synced, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if total == 0 {
		w.logger.InfoContext(ctx, "No pending reports found on startup")
		return nil
	}
	w.logger.InfoContext(ctx, "Startup sync completed",
		"total", total,
		"synced", synced,
		"errors", total-synced)
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (total, synced int, err error) {
	if w.tracker == nil {
		return 0, 0, nil
	}

	pending, err := w.tracker.ListPendingSync(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending reports: %w", err)
	}
	if len(pending) > 0 {
		w.logger.InfoContext(ctx, "Processing pending reports", "count", len(pending))
	}

	for _, rec := range pending {
		if ctx.Err() != nil {
			return len(pending), synced, ctx.Err()
		}
		if err := w.syncReport(ctx, rec); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync report", log.FieldReportID, rec.ID, log.FieldError, err)
			continue
		}
		synced++
	}
	return len(pending), synced, nil
}

func (w *SyncWorker) syncReport(ctx context.Context, rec core.ReportRecord) error {
	ref, err := w.sink.AppendReport(ctx, rec)
	if err != nil {
		if w.tracker != nil {
			if markErr := w.tracker.MarkSyncError(ctx, rec.ID); markErr != nil && !errors.Is(markErr, core.ErrReportNotFound) {
				w.logger.ErrorContext(ctx, "Failed to mark sync error", log.FieldReportID, rec.ID, log.FieldError, markErr)
			}
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if w.tracker != nil {
		// The row is already written; a failed status update only means the
		// pending sweep may append it again.
		if err := w.tracker.MarkSynced(ctx, rec.ID); err != nil && !errors.Is(err, core.ErrReportNotFound) {
			w.logger.ErrorContext(ctx, "Failed to mark as synced", log.FieldReportID, rec.ID, log.FieldError, err)
		}
	}

	w.logger.InfoContext(ctx, "Successfully synced report",
		log.FieldReportID, rec.ID,
		"sheets_ref", ref,
		log.FieldTotal, rec.Total.String(),
		log.FieldTopCategory, rec.TopCategory)
	return nil
}
