package core

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput     = errors.New("empty input")
	ErrMissingColumn  = errors.New("missing required column")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrMalformedInput = errors.New("malformed input")
)

// LoadError reports a ledger that cannot be used. The caller must ask for a
// fresh upload; no partial ledger is ever returned alongside it.
type LoadError struct {
	Line   int // 1-based source line, 0 when not tied to a row
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("load ledger: line %d: %s", e.Line, e.Reason)
	}
	return "load ledger: " + e.Reason
}

func (e *LoadError) Unwrap() error { return e.Err }

// NoDataError reports a selected month with no matching rows.
type NoDataError struct {
	Month string
}

func (e *NoDataError) Error() string {
	if e.Month == "" {
		return "no transactions in ledger"
	}
	return fmt.Sprintf("no transactions for month %s", e.Month)
}

// ExternalServiceError wraps a failed call to the text-generation service.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// IsLoadError reports whether err is, or wraps, a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// IsNoData reports whether err is, or wraps, a NoDataError.
func IsNoData(err error) bool {
	var nd *NoDataError
	return errors.As(err, &nd)
}

// IsExternal reports whether err is, or wraps, an ExternalServiceError.
func IsExternal(err error) bool {
	var ee *ExternalServiceError
	return errors.As(err, &ee)
}
