// Package google appends report summary rows to a Google spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendsense/internal/core"
	"spendsense/internal/log"
	ports "spendsense/internal/sheets"
)

// Header is the first row of every report sheet.
var Header = []any{"Report ID", "Month", "Format", "Source File", "Total", "Top Category", "Categories", "Created At"}

type Config struct {
	SpreadsheetID   string
	SheetName       string // base name; the report year is prefixed
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *log.Logger

	mu      sync.Mutex
	ensured map[string]bool
}

var _ ports.ReportSink = (*Client)(nil)

// New creates a Sheets client authenticated with a service account. Extra
// options are appended after the credentials, which lets tests point the
// client at a fake endpoint.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Reports"
	}

	svc, err := newSheetsService(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetBase:     base,
		logger:        log.WithComponent(log.ComponentSheets),
		ensured:       make(map[string]bool),
	}, nil
}

func newSheetsService(ctx context.Context, cfg Config, extra ...goption.ClientOption) (*gsheet.Service, error) {
	var opts []goption.ClientOption

	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		opts = append(opts,
			goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		opts = append(opts,
			goption.WithCredentialsJSON(data),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	case len(extra) == 0:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	if len(extra) == 0 {
		opts = append(opts, goption.WithHTTPClient(newHTTPClientWithPooling()))
	}
	opts = append(opts, extra...)

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// newHTTPClientWithPooling is tuned for a single long-lived worker talking to
// one Google host.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// AppendReport adds one summary row to the sheet for the report's year,
// creating the sheet and its header on first use.
func (c *Client) AppendReport(ctx context.Context, r core.ReportRecord) (string, error) {
	if r.ID == "" {
		return "", errors.New("report id is required")
	}

	sheet := yearPrefixedName(c.sheetBase, reportYear(r))
	if err := c.ensureSheet(ctx, sheet); err != nil {
		return "", err
	}

	rng := fmt.Sprintf("%s!A:H", quoteSheet(sheet))
	vr := &gsheet.ValueRange{Values: [][]any{reportRow(r)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}

	c.logger.InfoContext(ctx, "Report row appended",
		log.FieldReportID, r.ID,
		log.FieldMonth, r.Month,
		"range", ref,
		log.FieldOperation, log.OpAppend)
	return ref, nil
}

func (c *Client) ensureSheet(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ensured[name] {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}

	exists := false
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == name {
			exists = true
			break
		}
	}

	if !exists {
		req := &gsheet.BatchUpdateSpreadsheetRequest{
			Requests: []*gsheet.Request{{
				AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: name}},
			}},
		}
		if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("add sheet %s: %w", name, err)
		}
		c.logger.InfoContext(ctx, "Sheet created", "sheet", name)
	}

	headerRange := fmt.Sprintf("%s!A1:H1", quoteSheet(name))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header %s: %w", headerRange, err)
	}
	if len(resp.Values) == 0 {
		vr := &gsheet.ValueRange{Values: [][]any{Header}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, headerRange, vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("write header %s: %w", headerRange, err)
		}
	}

	c.ensured[name] = true
	return nil
}

func reportRow(r core.ReportRecord) []any {
	format := r.Format
	if format == "" {
		format = core.FormatPDF
	}
	created := ""
	if !r.CreatedAt.IsZero() {
		created = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []any{
		r.ID,
		r.Month,
		format,
		r.SourceFile,
		r.Total.String(),
		r.TopCategory,
		r.Categories,
		created,
	}
}

// reportYear takes the year from the month key, falling back to the
// creation time for undated months.
func reportYear(r core.ReportRecord) int {
	if len(r.Month) >= 4 {
		if y, err := strconv.Atoi(r.Month[:4]); err == nil {
			return y
		}
	}
	if !r.CreatedAt.IsZero() {
		return r.CreatedAt.Year()
	}
	return time.Now().Year()
}

// yearPrefixedName leaves names that already start with a year untouched.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
