package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"spendsense/internal/core"
)

// ReportGeneratedMessage announces a finished report export. It carries the
// whole summary so consumers do not need access to the report index.
type ReportGeneratedMessage struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Month       string    `json:"month"`
	Format      string    `json:"format"`
	SourceFile  string    `json:"source_file,omitempty"`
	Total       string    `json:"total"`
	TopCategory string    `json:"top_category"`
	Categories  int       `json:"categories"`
	CreatedAt   time.Time `json:"created_at"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewReportGeneratedMessage(r core.ReportRecord) *ReportGeneratedMessage {
	return &ReportGeneratedMessage{
		ID:          r.ID,
		SessionID:   r.SessionID,
		Month:       r.Month,
		Format:      r.Format,
		SourceFile:  r.SourceFile,
		Total:       r.Total.String(),
		TopCategory: r.TopCategory,
		Categories:  r.Categories,
		CreatedAt:   r.CreatedAt,
		Timestamp:   time.Now(),
	}
}

// Record rebuilds the report summary. The file path is not part of the
// message.
func (m *ReportGeneratedMessage) Record() (core.ReportRecord, error) {
	total, err := decimal.NewFromString(m.Total)
	if err != nil {
		return core.ReportRecord{}, fmt.Errorf("invalid total %q: %w", m.Total, err)
	}
	return core.ReportRecord{
		ID:          m.ID,
		SessionID:   m.SessionID,
		Month:       m.Month,
		Format:      m.Format,
		SourceFile:  m.SourceFile,
		Total:       total,
		TopCategory: m.TopCategory,
		Categories:  m.Categories,
		CreatedAt:   m.CreatedAt,
	}, nil
}

func (m *ReportGeneratedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportGeneratedMessageFromJSON(data []byte) (*ReportGeneratedMessage, error) {
	var msg ReportGeneratedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("message has no report id")
	}
	return &msg, nil
}
