package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"spendsense/internal/core"
	"spendsense/internal/log"
	"spendsense/internal/report"
	"spendsense/internal/sheets"
)

// Publisher announces exported reports.
type Publisher interface {
	PublishReportGenerated(ctx context.Context, r core.ReportRecord) error
}

// ExportRequest is one report export.
type ExportRequest struct {
	SessionID  string
	SourceFile string
	View       core.MonthView
	Insight    string
	Format     string // core.FormatPDF when empty
}

// ReportService writes report files under a unique id, indexes them and
// publishes an event. Files are never shared between exports.
type ReportService struct {
	dir       string
	index     sheets.ReportIndex
	publisher Publisher
	log       *log.StructuredLogger
	logger    *log.Logger
	now       func() time.Time
	newID     func() string
}

func NewReportService(dir string, index sheets.ReportIndex, publisher Publisher, logger *log.Logger) *ReportService {
	if logger == nil {
		logger = log.WithComponent(log.ComponentReport)
	}
	return &ReportService{
		dir:       dir,
		index:     index,
		publisher: publisher,
		log:       log.NewStructuredLogger(logger),
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Export renders the report and records it. Publishing failures are logged
// and do not fail the export.
func (s *ReportService) Export(ctx context.Context, req ExportRequest) (core.ReportRecord, error) {
	format := req.Format
	if format == "" {
		format = core.FormatPDF
	}
	render, ok := renderers[format]
	if !ok {
		return core.ReportRecord{}, fmt.Errorf("unsupported report format %q", format)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return core.ReportRecord{}, fmt.Errorf("create report directory: %w", err)
	}

	now := s.now()
	rec := core.ReportRecord{
		ID:          s.newID(),
		SessionID:   req.SessionID,
		Month:       req.View.Month,
		Format:      format,
		SourceFile:  req.SourceFile,
		Total:       req.View.Total,
		TopCategory: req.View.TopCategory,
		Categories:  len(req.View.ByCategory),
		CreatedAt:   now,
		SyncStatus:  core.SyncPending,
	}
	rec.Path = filepath.Join(s.dir, rec.ID+"."+format)

	if err := writeExclusive(rec.Path, func(w io.Writer) error {
		return render(w, report.Monthly{View: req.View, Insight: req.Insight, GeneratedAt: now})
	}); err != nil {
		return core.ReportRecord{}, err
	}

	if err := s.index.Save(ctx, rec); err != nil {
		os.Remove(rec.Path)
		return core.ReportRecord{}, fmt.Errorf("index report: %w", err)
	}

	s.log.LogReportExported(ctx, rec.ID, rec.Month, core.FormatRupees(rec.Total), rec.TopCategory)

	if s.publisher != nil {
		if err := s.publisher.PublishReportGenerated(ctx, rec); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish report event",
				log.FieldReportID, rec.ID,
				log.FieldError, err)
		}
	}

	return rec, nil
}

// Open returns the record and an open file for a report. The caller closes
// the file.
func (s *ReportService) Open(ctx context.Context, id string) (core.ReportRecord, *os.File, error) {
	rec, err := s.index.Get(ctx, id)
	if err != nil {
		return core.ReportRecord{}, nil, err
	}
	f, err := os.Open(rec.Path)
	if errors.Is(err, os.ErrNotExist) {
		return core.ReportRecord{}, nil, core.ErrReportNotFound
	}
	if err != nil {
		return core.ReportRecord{}, nil, fmt.Errorf("open report %s: %w", id, err)
	}
	return rec, f, nil
}

// List returns a session's exports, newest first.
func (s *ReportService) List(ctx context.Context, sessionID string) ([]core.ReportRecord, error) {
	return s.index.ListBySession(ctx, sessionID)
}

var renderers = map[string]func(io.Writer, report.Monthly) error{
	core.FormatPDF:  report.Render,
	core.FormatXLSX: report.RenderWorkbook,
}

func writeExclusive(path string, write func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("render report: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close report file: %w", err)
	}
	return nil
}
