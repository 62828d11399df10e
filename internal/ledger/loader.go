// Package ledger turns an uploaded expense file into classified transactions.
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"spendsense/internal/core"
)

// UndatedPolicy decides where rows with an unparseable date are bucketed.
type UndatedPolicy string

const (
	// UndatedExclude keeps undated rows in the ledger but out of every
	// month and week view.
	UndatedExclude UndatedPolicy = "exclude"
	// UndatedBucket files undated rows under core.UnknownKey.
	UndatedBucket UndatedPolicy = "bucket"
)

// Valid reports whether p is a known policy.
func (p UndatedPolicy) Valid() bool {
	return p == UndatedExclude || p == UndatedBucket
}

// Classifier assigns a category to a transaction description.
type Classifier interface {
	Classify(description string) string
}

// Options control how a ledger is built.
type Options struct {
	FileName   string
	Classifier Classifier
	Undated    UndatedPolicy
}

var requiredColumns = []string{"date", "description", "amount"}

// Load parses a CSV ledger. Any problem with the input yields a
// *core.LoadError and no ledger.
func Load(r io.Reader, opts Options) (*core.Ledger, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, &core.LoadError{Line: pe.StartLine, Reason: pe.Err.Error(), Err: core.ErrMalformedInput}
		}
		return nil, &core.LoadError{Reason: err.Error(), Err: core.ErrMalformedInput}
	}
	return build(records, opts)
}

// LoadWorkbook parses the first sheet of an XLSX workbook with the same
// column rules as Load.
func LoadWorkbook(r io.Reader, opts Options) (*core.Ledger, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &core.LoadError{Reason: "not a readable workbook: " + err.Error(), Err: core.ErrMalformedInput}
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, &core.LoadError{Reason: "workbook has no sheets", Err: core.ErrEmptyInput}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &core.LoadError{Reason: fmt.Sprintf("read sheet %q: %v", sheet, err), Err: core.ErrMalformedInput}
	}

	// GetRows keeps blank rows; encoding/csv drops them, so match that.
	records := rows[:0]
	for _, row := range rows {
		if !blankRow(row) {
			records = append(records, row)
		}
	}
	return build(records, opts)
}

// LoadFile picks the parser from the file extension. Anything that is not
// .xlsx is treated as CSV.
func LoadFile(name string, r io.Reader, opts Options) (*core.Ledger, error) {
	if opts.FileName == "" {
		opts.FileName = name
	}
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return LoadWorkbook(r, opts)
	}
	return Load(r, opts)
}

func build(records [][]string, opts Options) (*core.Ledger, error) {
	if opts.Classifier == nil {
		return nil, errors.New("ledger: classifier is required")
	}
	if opts.Undated == "" {
		opts.Undated = UndatedExclude
	}
	if !opts.Undated.Valid() {
		return nil, fmt.Errorf("ledger: unknown undated policy %q", opts.Undated)
	}

	if len(records) == 0 {
		return nil, &core.LoadError{Reason: "file is empty", Err: core.ErrEmptyInput}
	}

	idx, err := columnIndex(records[0])
	if err != nil {
		return nil, err
	}
	width := 0
	for _, i := range idx {
		width = max(width, i+1)
	}

	l := &core.Ledger{
		FileName:     opts.FileName,
		Transactions: make([]core.Transaction, 0, len(records)-1),
	}

	for n, rec := range records[1:] {
		line := n + 2
		if len(rec) < width {
			return nil, &core.LoadError{
				Line:   line,
				Reason: fmt.Sprintf("expected at least %d fields, got %d", width, len(rec)),
				Err:    core.ErrMalformedInput,
			}
		}

		amount, err := core.ParseAmount(rec[idx["amount"]])
		if err != nil {
			return nil, &core.LoadError{
				Line:   line,
				Reason: fmt.Sprintf("invalid amount %q", rec[idx["amount"]]),
				Err:    err,
			}
		}

		desc := strings.TrimSpace(rec[idx["description"]])
		t := core.Transaction{
			Date:        ParseDate(rec[idx["date"]]),
			Description: desc,
			Amount:      amount,
			Category:    opts.Classifier.Classify(desc),
		}

		switch {
		case !t.Date.IsEmpty():
			t.MonthKey = t.Date.MonthKey()
			t.WeekKey = t.Date.WeekKey()
		case opts.Undated == UndatedBucket:
			l.Undated++
			t.MonthKey = core.UnknownKey
			t.WeekKey = core.UnknownKey
		default:
			l.Undated++
		}

		l.Transactions = append(l.Transactions, t)
	}

	return l, nil
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(requiredColumns))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}

	var missing []string
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &core.LoadError{
			Line:   1,
			Reason: "missing required column(s): " + strings.Join(missing, ", "),
			Err:    core.ErrMissingColumn,
		}
	}
	return idx, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
