package backend

import (
	"context"

	"spendsense/internal/core"
	"spendsense/internal/insight"
	"spendsense/internal/sheets"
)

// Publisher announces exported reports to downstream consumers.
type Publisher interface {
	PublishReportGenerated(ctx context.Context, r core.ReportRecord) error
}

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult is everything the web server needs for report bookkeeping.
type BackendResult struct {
	Index     sheets.ReportIndex
	Publisher Publisher // nil when AMQP is not configured
	Ready     func(ctx context.Context) error
	Cleanup   CleanupFunc
}

// InsightResult wraps the configured text-generation backend.
type InsightResult struct {
	Generator insight.Generator
	Name      string
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateInsight(ctx context.Context, config Config) (*InsightResult, error)
}

// Config holds what the factory needs, detached from environment parsing.
type Config struct {
	Index IndexType

	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Insight        string
	InsightAPIKey  string
	InsightBaseURL string
	InsightModel   string
}

// IndexType selects the report index implementation.
type IndexType string

const (
	SQLiteIndex IndexType = "sqlite"
	MemoryIndex IndexType = "memory"
)

func (t IndexType) String() string {
	return string(t)
}

func (t IndexType) IsValid() bool {
	switch t {
	case SQLiteIndex, MemoryIndex:
		return true
	default:
		return false
	}
}
