// Package memory is an in-process report index, used when no database is
// configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"spendsense/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items map[string]core.ReportRecord
	rows  []core.ReportRecord
}

func New() *Store {
	return &Store{items: make(map[string]core.ReportRecord)}
}

func (s *Store) Save(_ context.Context, r core.ReportRecord) error {
	if r.ID == "" {
		return fmt.Errorf("report id is required")
	}
	if r.SyncStatus == "" {
		r.SyncStatus = core.SyncPending
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[r.ID] = r
	return nil
}

func (s *Store) Get(_ context.Context, id string) (core.ReportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	if !ok {
		return core.ReportRecord{}, core.ErrReportNotFound
	}
	return r, nil
}

// ListBySession returns the session's reports, newest first.
func (s *Store) ListBySession(_ context.Context, sessionID string) ([]core.ReportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.ReportRecord
	for _, r := range s.items {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// AppendReport records a summary row, standing in for the Google sheet.
func (s *Store) AppendReport(_ context.Context, r core.ReportRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, r)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns the summary rows appended so far.
func (s *Store) Rows() []core.ReportRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ReportRecord(nil), s.rows...)
}
