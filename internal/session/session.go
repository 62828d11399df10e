// Package session holds the per-visitor dashboard state: the uploaded
// ledger, the selected month, chat history and planning inputs.
package session

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"spendsense/internal/core"
	"spendsense/internal/insight"
)

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	ErrNoLedger     = errors.New("no ledger loaded")
	ErrUnknownMonth = errors.New("month not present in ledger")
)

// Message is one chat turn.
type Message struct {
	Role    string
	Content string
	At      time.Time
}

// Session is safe for concurrent use. Handlers read it through Snapshot so
// the ledger and the selected month always come from the same moment.
type Session struct {
	mu sync.Mutex

	id       string
	fileName string
	ledger   *core.Ledger
	month    string
	chat     []Message
	budget   decimal.Decimal
	plan     insight.Plan
	reports  []string
}

// Snapshot is an immutable copy of a session's state.
type Snapshot struct {
	ID       string
	FileName string
	Ledger   *core.Ledger
	Month    string
	Chat     []Message
	Budget   decimal.Decimal
	Plan     insight.Plan
}

// Loaded reports whether a ledger is present.
func (s Snapshot) Loaded() bool { return s.Ledger != nil }

// Months lists the selectable months, or nil before an upload.
func (s Snapshot) Months() []string {
	if s.Ledger == nil {
		return nil
	}
	return s.Ledger.Months()
}

func newSession(id string, now time.Time) *Session {
	s := &Session{id: id}
	s.resetLocked(now)
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:       s.id,
		FileName: s.fileName,
		Ledger:   s.ledger,
		Month:    s.month,
		Chat:     slices.Clone(s.chat),
		Budget:   s.budget,
		Plan:     s.plan,
	}
}

// SetLedger installs a freshly loaded ledger and selects its first month.
// The ledger is treated as immutable from here on.
func (s *Session) SetLedger(fileName string, l *core.Ledger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fileName = fileName
	s.ledger = l
	s.month = ""
	if months := l.Months(); len(months) > 0 {
		s.month = months[0]
	}
}

// SelectMonth changes the selected month and returns the resulting snapshot.
// An empty month keeps the current selection.
func (s *Session) SelectMonth(month string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ledger == nil {
		return Snapshot{}, ErrNoLedger
	}
	if month != "" && month != s.month {
		if !s.ledger.HasMonth(month) {
			return Snapshot{}, ErrUnknownMonth
		}
		s.month = month
	}
	return s.snapshotLocked(), nil
}

// AppendChat records a chat turn.
func (s *Session) AppendChat(role, content string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = append(s.chat, Message{Role: role, Content: content, At: at})
}

func (s *Session) SetBudget(b decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budget = b
}

func (s *Session) SetPlan(p insight.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = p
}

// AddReport records that this session produced the report id.
func (s *Session) AddReport(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, id)
}

// OwnsReport reports whether the report id was produced by this session
// since its last reset.
func (s *Session) OwnsReport(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.reports, id)
}

// Reset returns the session to its freshly created state, keeping its id.
func (s *Session) Reset(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked(now)
}

func (s *Session) resetLocked(now time.Time) {
	s.fileName = ""
	s.ledger = nil
	s.month = ""
	s.chat = []Message{{Role: RoleAssistant, Content: insight.Greeting, At: now}}
	s.budget = decimal.Zero
	s.plan = insight.Plan{}
	s.reports = nil
}
