package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spendsense/internal/core"
)

func TestStore_SaveGet(t *testing.T) {
	ctx := context.Background()
	s := New()

	rec := core.ReportRecord{ID: "r1", SessionID: "s1", Month: "2024-03", Total: decimal.NewFromInt(4700)}
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Month != "2024-03" || !got.Total.Equal(rec.Total) {
		t.Errorf("Get() = %+v", got)
	}
	if got.SyncStatus != core.SyncPending {
		t.Errorf("SyncStatus = %q, want pending", got.SyncStatus)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, core.ErrReportNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrReportNotFound", err)
	}
	if err := s.Save(ctx, core.ReportRecord{}); err == nil {
		t.Error("Save() without id should fail")
	}
}

func TestStore_ListBySession(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_ = s.Save(ctx, core.ReportRecord{ID: "a", SessionID: "s1", CreatedAt: base})
	_ = s.Save(ctx, core.ReportRecord{ID: "b", SessionID: "s1", CreatedAt: base.Add(time.Minute)})
	_ = s.Save(ctx, core.ReportRecord{ID: "c", SessionID: "s2", CreatedAt: base})

	got, err := s.ListBySession(ctx, "s1")
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Errorf("ListBySession() = %+v, want [b a]", got)
	}
}

func TestStore_AppendReport(t *testing.T) {
	s := New()
	ref, err := s.AppendReport(context.Background(), core.ReportRecord{ID: "r1"})
	if err != nil || ref != "mem:1" {
		t.Errorf("AppendReport() = %q, %v", ref, err)
	}
	if len(s.Rows()) != 1 {
		t.Errorf("Rows() = %d, want 1", len(s.Rows()))
	}
}
