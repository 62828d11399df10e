package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"spendsense/internal/core"
	"spendsense/internal/report"
	"spendsense/internal/sheets/memory"
)

type recordingPublisher struct {
	mu   sync.Mutex
	recs []core.ReportRecord
	err  error
}

func (p *recordingPublisher) PublishReportGenerated(_ context.Context, r core.ReportRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recs = append(p.recs, r)
	return p.err
}

func view() core.MonthView {
	return core.MonthView{
		Month:       "2024-03",
		Total:       decimal.NewFromInt(4700),
		Count:       3,
		TopCategory: "Travel",
		ByCategory: []core.CategoryAmount{
			{Name: "Assets", Amount: decimal.NewFromInt(1200)},
			{Name: "Software", Amount: decimal.NewFromInt(500)},
			{Name: "Travel", Amount: decimal.NewFromInt(3000)},
		},
	}
}

func TestReportService_ExportPDF(t *testing.T) {
	dir := t.TempDir()
	index := memory.New()
	pub := &recordingPublisher{}
	svc := NewReportService(dir, index, pub, nil)
	ctx := context.Background()

	rec, err := svc.Export(ctx, ExportRequest{SessionID: "s1", SourceFile: "expenses.csv", View: view(), Insight: "All good."})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if rec.Format != core.FormatPDF || rec.Categories != 3 || rec.TopCategory != "Travel" {
		t.Errorf("record = %+v", rec)
	}
	if filepath.Dir(rec.Path) != dir || !strings.HasSuffix(rec.Path, rec.ID+".pdf") {
		t.Errorf("Path = %q", rec.Path)
	}
	if _, err := index.Get(ctx, rec.ID); err != nil {
		t.Errorf("record not indexed: %v", err)
	}
	if len(pub.recs) != 1 || pub.recs[0].ID != rec.ID {
		t.Errorf("published = %+v", pub.recs)
	}

	got, f, err := svc.Open(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	info, _ := f.Stat()
	rows, err := report.ReadCategoryTable(f, info.Size())
	if err != nil {
		t.Fatalf("ReadCategoryTable() error = %v", err)
	}
	if len(rows) != 3 || got.ID != rec.ID {
		t.Errorf("rows = %+v", rows)
	}
}

func TestReportService_UniquePaths(t *testing.T) {
	svc := NewReportService(t.TempDir(), memory.New(), nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	paths := make([]string, 8)
	errs := make([]error, 8)
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := svc.Export(ctx, ExportRequest{SessionID: "s", View: view()})
			paths[i], errs[i] = rec.Path, err
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i, p := range paths {
		if errs[i] != nil {
			t.Fatalf("Export() error = %v", errs[i])
		}
		if seen[p] {
			t.Fatalf("duplicate report path %s", p)
		}
		seen[p] = true
	}
}

func TestReportService_ExportWorkbook(t *testing.T) {
	svc := NewReportService(t.TempDir(), memory.New(), nil, nil)
	rec, err := svc.Export(context.Background(), ExportRequest{View: view(), Format: core.FormatXLSX})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.HasSuffix(rec.Path, ".xlsx") || rec.DownloadName() != "SpendSense_Report_2024-03.xlsx" {
		t.Errorf("record = %+v", rec)
	}
}

func TestReportService_Errors(t *testing.T) {
	dir := t.TempDir()
	svc := NewReportService(dir, memory.New(), nil, nil)
	ctx := context.Background()

	if _, err := svc.Export(ctx, ExportRequest{View: view(), Format: "docx"}); err == nil {
		t.Error("expected error for unsupported format")
	}

	// Rendering fails without a month; no file may be left behind.
	if _, err := svc.Export(ctx, ExportRequest{View: core.MonthView{}}); err == nil {
		t.Error("expected render error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("left %d files after failed export", len(entries))
	}

	if _, _, err := svc.Open(ctx, "missing"); !errors.Is(err, core.ErrReportNotFound) {
		t.Errorf("Open(missing) error = %v", err)
	}
}

func TestReportService_PublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewReportService(t.TempDir(), memory.New(), pub, nil)

	rec, err := svc.Export(context.Background(), ExportRequest{View: view()})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	list, _ := svc.List(context.Background(), "")
	if len(list) != 1 || list[0].ID != rec.ID {
		t.Errorf("List() = %+v", list)
	}
}

func TestReportService_OpenMissingFile(t *testing.T) {
	svc := NewReportService(t.TempDir(), memory.New(), nil, nil)
	rec, err := svc.Export(context.Background(), ExportRequest{View: view()})
	if err != nil {
		t.Fatal(err)
	}
	os.Remove(rec.Path)
	if _, _, err := svc.Open(context.Background(), rec.ID); !errors.Is(err, core.ErrReportNotFound) {
		t.Errorf("Open() error = %v, want ErrReportNotFound", err)
	}
}

func TestLedgerService_LoadDefaultRules(t *testing.T) {
	svc := NewLedgerService(nil, "exclude", nil)
	csv := "Date,Description,Amount\n2024-03-04,AWS bill,500\n2024-03-05,Uber ride,3000\n"

	l, err := svc.Load(context.Background(), "s1", "expenses.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if l.Len() != 2 || l.Transactions[0].Category != "Software" || l.Transactions[1].Category != "Travel" {
		t.Errorf("ledger = %+v", l.Transactions)
	}

	_, err = svc.Load(context.Background(), "s1", "bad.csv", io.LimitReader(strings.NewReader(""), 0))
	if !core.IsLoadError(err) {
		t.Errorf("Load(empty) error = %v, want LoadError", err)
	}
	if len(svc.Categories()) == 0 {
		t.Error("Categories() is empty")
	}
}
