package sheets

import (
	"context"

	"spendsense/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportIndex stores metadata for exported report files.
	ReportIndex interface {
		Save(ctx context.Context, r core.ReportRecord) error
		// Get returns core.ErrReportNotFound for unknown ids.
		Get(ctx context.Context, id string) (core.ReportRecord, error)
		ListBySession(ctx context.Context, sessionID string) ([]core.ReportRecord, error)
	}

	// SyncTracker is implemented by indexes shared with the report worker.
	SyncTracker interface {
		ListPendingSync(ctx context.Context, limit int) ([]core.ReportRecord, error)
		MarkSynced(ctx context.Context, id string) error
		MarkSyncError(ctx context.Context, id string) error
	}

	// ReportSink receives one summary row per exported report.
	ReportSink interface {
		AppendReport(ctx context.Context, r core.ReportRecord) (rowRef string, err error)
	}
)
