package services

import (
	"context"
	"io"

	"spendsense/internal/core"
	"spendsense/internal/ledger"
	"spendsense/internal/log"
	"spendsense/internal/rules"
)

// LedgerService loads uploaded files with the configured rules and undated
// policy.
type LedgerService struct {
	rules  *rules.Engine
	policy ledger.UndatedPolicy
	log    *log.StructuredLogger
}

func NewLedgerService(engine *rules.Engine, policy ledger.UndatedPolicy, logger *log.Logger) *LedgerService {
	if engine == nil {
		engine = rules.Default()
	}
	if logger == nil {
		logger = log.WithComponent(log.ComponentLedger)
	}
	return &LedgerService{rules: engine, policy: policy, log: log.NewStructuredLogger(logger)}
}

// Load parses the file named name. Errors are *core.LoadError values.
func (s *LedgerService) Load(ctx context.Context, sessionID, name string, r io.Reader) (*core.Ledger, error) {
	l, err := ledger.LoadFile(name, r, ledger.Options{
		FileName:   name,
		Classifier: s.rules,
		Undated:    s.policy,
	})
	if err != nil {
		s.log.LogError(ctx, "Ledger rejected", err, log.ComponentLedger, log.OpLoad,
			log.NewFields().WithLedger(name, 0, 0))
		return nil, err
	}
	s.log.LogLedgerLoaded(ctx, sessionID, name, l.Len(), l.Undated)
	return l, nil
}

// Categories lists the category names a ledger can contain.
func (s *LedgerService) Categories() []string {
	return s.rules.Categories()
}
