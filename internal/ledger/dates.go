package ledger

import (
	"strings"
	"time"

	"spendsense/internal/core"
)

// Tried in order. Ambiguous numeric dates are read month first.
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"2006.01.02",
	"20060102",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"1/2/06",
	"01-02-06",
	"02-Jan-2006",
	"2-Jan-2006",
	"02-Jan-06",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
}

// ParseDate parses a ledger date cell. Unparseable input yields the zero
// Date rather than an error.
func ParseDate(s string) core.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.NewDate(t.Year(), int(t.Month()), t.Day())
		}
	}
	return core.Date{}
}
