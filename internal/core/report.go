package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrReportNotFound is returned by report indexes for unknown ids.
var ErrReportNotFound = errors.New("report not found")

// Report export formats.
const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

// Sync states of a report summary row in the external sheet.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncFailed  = "error"
)

// ReportRecord describes one exported report file.
type ReportRecord struct {
	ID          string
	SessionID   string
	Month       string
	Format      string
	Path        string
	SourceFile  string
	Total       decimal.Decimal
	TopCategory string
	Categories  int
	CreatedAt   time.Time
	SyncStatus  string
}

// DownloadName is the file name offered to the browser.
func (r ReportRecord) DownloadName() string {
	ext := r.Format
	if ext == "" {
		ext = FormatPDF
	}
	return "SpendSense_Report_" + r.Month + "." + ext
}
