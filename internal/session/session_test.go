package session

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spendsense/internal/core"
	"spendsense/internal/insight"
)

func testLedger() *core.Ledger {
	return &core.Ledger{
		FileName: "expenses.csv",
		Transactions: []core.Transaction{
			{Date: core.NewDate(2024, 3, 4), Description: "AWS", Amount: decimal.NewFromInt(500), Category: "Software", MonthKey: "2024-03", WeekKey: "2024-W10"},
			{Date: core.NewDate(2024, 2, 1), Description: "Flight", Amount: decimal.NewFromInt(3000), Category: "Travel", MonthKey: "2024-02", WeekKey: "2024-W05"},
		},
	}
}

func TestNewSession_SeedsGreeting(t *testing.T) {
	store := NewStore(10, time.Hour, nil)
	snap := store.Create().Snapshot()

	if len(snap.Chat) != 1 || snap.Chat[0].Role != RoleAssistant || snap.Chat[0].Content != insight.Greeting {
		t.Errorf("Chat = %+v, want greeting only", snap.Chat)
	}
	if snap.Loaded() {
		t.Error("new session should have no ledger")
	}
	if snap.Months() != nil {
		t.Errorf("Months() = %v, want nil", snap.Months())
	}
}

func TestSession_SetLedgerSelectsFirstMonth(t *testing.T) {
	s := newSession("id", time.Now())
	s.SetLedger("expenses.csv", testLedger())

	snap := s.Snapshot()
	if snap.Month != "2024-02" {
		t.Errorf("Month = %q, want 2024-02", snap.Month)
	}
	if snap.FileName != "expenses.csv" {
		t.Errorf("FileName = %q", snap.FileName)
	}
}

func TestSession_SelectMonth(t *testing.T) {
	s := newSession("id", time.Now())

	if _, err := s.SelectMonth("2024-03"); err != ErrNoLedger {
		t.Errorf("SelectMonth before upload error = %v, want ErrNoLedger", err)
	}

	s.SetLedger("expenses.csv", testLedger())

	tests := []struct {
		name    string
		month   string
		want    string
		wantErr error
	}{
		{name: "keep current", month: "", want: "2024-02"},
		{name: "switch", month: "2024-03", want: "2024-03"},
		{name: "unknown month", month: "2023-01", wantErr: ErrUnknownMonth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := s.SelectMonth(tt.month)
			if err != tt.wantErr {
				t.Fatalf("SelectMonth(%q) error = %v, want %v", tt.month, err, tt.wantErr)
			}
			if err == nil && snap.Month != tt.want {
				t.Errorf("Month = %q, want %q", snap.Month, tt.want)
			}
		})
	}

	// A failed selection leaves the previous one in place.
	if got := s.Snapshot().Month; got != "2024-03" {
		t.Errorf("Month after failed select = %q, want 2024-03", got)
	}
}

func TestSession_SnapshotIsolatedFromLaterChat(t *testing.T) {
	s := newSession("id", time.Now())
	snap := s.Snapshot()
	s.AppendChat(RoleUser, "hello", time.Now())

	if len(snap.Chat) != 1 {
		t.Errorf("snapshot chat changed: %d messages", len(snap.Chat))
	}
	if len(s.Snapshot().Chat) != 2 {
		t.Errorf("session chat = %d messages, want 2", len(s.Snapshot().Chat))
	}
}

func TestSession_ResetClearsState(t *testing.T) {
	s := newSession("id", time.Now())
	s.SetLedger("expenses.csv", testLedger())
	s.AppendChat(RoleUser, "hello", time.Now())
	s.SetBudget(decimal.NewFromInt(10000))
	s.SetPlan(insight.Plan{Salaries: decimal.NewFromInt(1)})
	s.AddReport("r1")

	s.Reset(time.Now())

	snap := s.Snapshot()
	if snap.ID != "id" {
		t.Errorf("ID = %q, want id kept", snap.ID)
	}
	if snap.Loaded() || snap.FileName != "" || snap.Month != "" {
		t.Errorf("ledger state not cleared: %+v", snap)
	}
	if len(snap.Chat) != 1 {
		t.Errorf("Chat = %d messages, want greeting only", len(snap.Chat))
	}
	if !snap.Budget.IsZero() || !snap.Plan.IsZero() {
		t.Error("budget and plan should be cleared")
	}
	if s.OwnsReport("r1") {
		t.Error("report ownership should be cleared")
	}
}

func TestStore_GetOrCreate(t *testing.T) {
	store := NewStore(10, time.Hour, nil)

	a, created := store.GetOrCreate("")
	if !created {
		t.Fatal("expected a new session for empty id")
	}
	b, created := store.GetOrCreate(a.ID())
	if created || b != a {
		t.Error("expected the existing session")
	}
	_, created = store.GetOrCreate("missing")
	if !created {
		t.Error("expected a new session for unknown id")
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}
}

func TestStore_UniqueIDs(t *testing.T) {
	store := NewStore(1000, time.Hour, nil)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := store.Create().ID()
		if seen[id] {
			t.Fatalf("duplicate session id %s", id)
		}
		seen[id] = true
	}
}

func TestStore_Reset(t *testing.T) {
	store := NewStore(10, time.Hour, nil)
	s := store.Create()
	s.SetLedger("expenses.csv", testLedger())

	if !store.Reset(s.ID()) {
		t.Fatal("Reset() = false for live session")
	}
	if s.Snapshot().Loaded() {
		t.Error("ledger should be cleared")
	}
	if store.Reset("missing") {
		t.Error("Reset() = true for unknown session")
	}
}

func TestSession_ConcurrentSelectAndSnapshot(t *testing.T) {
	s := newSession("id", time.Now())
	s.SetLedger("expenses.csv", testLedger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		month := "2024-02"
		if i%2 == 0 {
			month = "2024-03"
		}
		go func() {
			defer wg.Done()
			if snap, err := s.SelectMonth(month); err != nil || !snap.Ledger.HasMonth(snap.Month) {
				t.Errorf("inconsistent snapshot %+v, %v", snap.Month, err)
			}
		}()
		go func() {
			defer wg.Done()
			s.AppendChat(RoleUser, "q", time.Now())
		}()
	}
	wg.Wait()
}

func TestSession_SelectMonthReturnsRequestedMonth(t *testing.T) {
	s := newSession("id", time.Now())
	s.SetLedger("expenses.csv", testLedger())

	var wg sync.WaitGroup
	for _, month := range []string{"2024-02", "2024-03"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				snap, err := s.SelectMonth(month)
				if err != nil {
					t.Errorf("SelectMonth(%s) error = %v", month, err)
					return
				}
				if snap.Month != month {
					t.Errorf("SelectMonth(%s) snapshot month = %s", month, snap.Month)
					return
				}
			}
		}()
	}
	wg.Wait()
}
