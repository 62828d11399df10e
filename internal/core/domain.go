package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// UnknownKey is the month and week bucket used for undated rows when the
// ledger is loaded with the bucket policy.
const UnknownKey = "unknown"

// OtherCategory is the fallback label for descriptions no rule matches.
const OtherCategory = "Other"

type (
	// Date is a calendar date. The zero value means the source date could not
	// be parsed.
	Date struct {
		time.Time
	}

	Transaction struct {
		Date        Date
		Description string
		Amount      decimal.Decimal
		Category    string
		MonthKey    string // "YYYY-MM", UnknownKey, or empty when excluded
		WeekKey     string // ISO "YYYY-Www", UnknownKey, or empty when excluded
	}

	// Ledger is the immutable set of transactions loaded from one file.
	Ledger struct {
		FileName     string
		Transactions []Transaction
		Undated      int
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty reports whether the date is null.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// MonthKey returns the calendar-month truncation, e.g. "2024-01".
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// WeekKey returns the ISO week identifier, e.g. "2024-W01".
func (d Date) WeekKey() string {
	y, w := d.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", y, w)
}

func (d Date) String() string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format("2006-01-02")
}

// Bucketed reports whether the transaction takes part in time-bucketed views.
func (t Transaction) Bucketed() bool {
	return t.MonthKey != ""
}

// Len returns the number of rows in the ledger, including excluded ones.
func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Transactions)
}

// Months returns the sorted distinct month keys. UnknownKey, when present,
// sorts last.
func (l *Ledger) Months() []string {
	if l == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var months []string
	for _, t := range l.Transactions {
		if !t.Bucketed() {
			continue
		}
		if _, ok := seen[t.MonthKey]; ok {
			continue
		}
		seen[t.MonthKey] = struct{}{}
		months = append(months, t.MonthKey)
	}
	sort.Slice(months, func(i, j int) bool {
		return lessKey(months[i], months[j])
	})
	return months
}

// HasMonth reports whether any row falls into the given month bucket.
func (l *Ledger) HasMonth(month string) bool {
	if l == nil || month == "" {
		return false
	}
	for _, t := range l.Transactions {
		if t.MonthKey == month {
			return true
		}
	}
	return false
}

func lessKey(a, b string) bool {
	if a == UnknownKey {
		return false
	}
	if b == UnknownKey {
		return true
	}
	return a < b
}
