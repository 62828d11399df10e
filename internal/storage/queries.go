package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Report is a row of the reports table.
type Report struct {
	ID          string
	SessionID   string
	Month       string
	Format      string
	Path        string
	SourceFile  string
	Total       string
	TopCategory string
	Categories  int64
	CreatedAt   time.Time
	SyncStatus  string
}

const reportColumns = `id, session_id, month, format, path, source_file, total, top_category, categories, created_at, sync_status`

const createReport = `INSERT INTO reports (` + reportColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type CreateReportParams = Report

func (q *Queries) CreateReport(ctx context.Context, arg CreateReportParams) error {
	_, err := q.db.ExecContext(ctx, createReport,
		arg.ID,
		arg.SessionID,
		arg.Month,
		arg.Format,
		arg.Path,
		arg.SourceFile,
		arg.Total,
		arg.TopCategory,
		arg.Categories,
		arg.CreatedAt,
		arg.SyncStatus,
	)
	return err
}

const getReport = `SELECT ` + reportColumns + ` FROM reports WHERE id = ?`

func (q *Queries) GetReport(ctx context.Context, id string) (Report, error) {
	return scanReport(q.db.QueryRowContext(ctx, getReport, id))
}

const listReportsBySession = `SELECT ` + reportColumns + ` FROM reports
WHERE session_id = ?
ORDER BY created_at DESC, id`

func (q *Queries) ListReportsBySession(ctx context.Context, sessionID string) ([]Report, error) {
	return q.list(ctx, listReportsBySession, sessionID)
}

const getPendingSyncReports = `SELECT ` + reportColumns + ` FROM reports
WHERE sync_status = 'pending'
ORDER BY created_at
LIMIT ?`

func (q *Queries) GetPendingSyncReports(ctx context.Context, limit int64) ([]Report, error) {
	return q.list(ctx, getPendingSyncReports, limit)
}

const setReportSyncStatus = `UPDATE reports SET sync_status = ? WHERE id = ?`

func (q *Queries) SetReportSyncStatus(ctx context.Context, id, status string) (int64, error) {
	res, err := q.db.ExecContext(ctx, setReportSyncStatus, status, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) list(ctx context.Context, query string, args ...any) ([]Report, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Report
	for rows.Next() {
		i, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (Report, error) {
	var i Report
	err := s.Scan(
		&i.ID,
		&i.SessionID,
		&i.Month,
		&i.Format,
		&i.Path,
		&i.SourceFile,
		&i.Total,
		&i.TopCategory,
		&i.Categories,
		&i.CreatedAt,
		&i.SyncStatus,
	)
	return i, err
}
