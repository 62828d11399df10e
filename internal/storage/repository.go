package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"spendsense/internal/core"
	"spendsense/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the persistent report index. The web server and the
// report worker may share one database file.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  log.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Save implements sheets.ReportIndex
func (r *SQLiteRepository) Save(ctx context.Context, rec core.ReportRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("report id is required")
	}
	status := rec.SyncStatus
	if status == "" {
		status = core.SyncPending
	}
	format := rec.Format
	if format == "" {
		format = core.FormatPDF
	}

	err := r.queries.CreateReport(ctx, CreateReportParams{
		ID:          rec.ID,
		SessionID:   rec.SessionID,
		Month:       rec.Month,
		Format:      format,
		Path:        rec.Path,
		SourceFile:  rec.SourceFile,
		Total:       rec.Total.String(),
		TopCategory: rec.TopCategory,
		Categories:  int64(rec.Categories),
		CreatedAt:   rec.CreatedAt.UTC(),
		SyncStatus:  status,
	})
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}

	r.logger.InfoContext(ctx, "Report indexed",
		log.FieldReportID, rec.ID,
		log.FieldMonth, rec.Month,
		log.FieldOperation, log.OpAppend)
	return nil
}

// Get implements sheets.ReportIndex
func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.ReportRecord, error) {
	row, err := r.queries.GetReport(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ReportRecord{}, core.ErrReportNotFound
	}
	if err != nil {
		return core.ReportRecord{}, fmt.Errorf("get report %s: %w", id, err)
	}
	return toRecord(row)
}

// ListBySession implements sheets.ReportIndex
func (r *SQLiteRepository) ListBySession(ctx context.Context, sessionID string) ([]core.ReportRecord, error) {
	rows, err := r.queries.ListReportsBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list reports for session: %w", err)
	}
	return toRecords(rows)
}

// ListPendingSync implements sheets.SyncTracker
func (r *SQLiteRepository) ListPendingSync(ctx context.Context, limit int) ([]core.ReportRecord, error) {
	rows, err := r.queries.GetPendingSyncReports(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync reports: %w", err)
	}
	return toRecords(rows)
}

// MarkSynced implements sheets.SyncTracker
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, core.SyncDone)
}

// MarkSyncError implements sheets.SyncTracker
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, core.SyncFailed)
}

func (r *SQLiteRepository) setStatus(ctx context.Context, id, status string) error {
	n, err := r.queries.SetReportSyncStatus(ctx, id, status)
	if err != nil {
		return fmt.Errorf("mark report %s %s: %w", id, status, err)
	}
	if n == 0 {
		return core.ErrReportNotFound
	}
	return nil
}

func toRecords(rows []Report) ([]core.ReportRecord, error) {
	out := make([]core.ReportRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := toRecord(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func toRecord(row Report) (core.ReportRecord, error) {
	total, err := decimal.NewFromString(row.Total)
	if err != nil {
		return core.ReportRecord{}, fmt.Errorf("report %s: bad total %q: %w", row.ID, row.Total, err)
	}
	return core.ReportRecord{
		ID:          row.ID,
		SessionID:   row.SessionID,
		Month:       row.Month,
		Format:      row.Format,
		Path:        row.Path,
		SourceFile:  row.SourceFile,
		Total:       total,
		TopCategory: row.TopCategory,
		Categories:  int(row.Categories),
		CreatedAt:   row.CreatedAt,
		SyncStatus:  row.SyncStatus,
	}, nil
}
