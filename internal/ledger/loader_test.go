package ledger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"spendsense/internal/core"
	"spendsense/internal/rules"
)

func opts(p UndatedPolicy) Options {
	return Options{FileName: "ledger.csv", Classifier: rules.Default(), Undated: p}
}

func TestLoad_ClassifiesAndKeys(t *testing.T) {
	in := "Date,Description,Amount,Notes\n" +
		"2024-01-05,AWS hosting,500,infra\n" +
		"2024-01-10,Flight to Delhi,3000,\n" +
		"2024-01-15,Office chair,1200.50,\n"

	l, err := Load(strings.NewReader(in), opts(UndatedExclude))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if l.Len() != 3 || l.Undated != 0 || l.FileName != "ledger.csv" {
		t.Fatalf("unexpected ledger: len=%d undated=%d name=%q", l.Len(), l.Undated, l.FileName)
	}

	want := []struct {
		cat, month, week, amount string
	}{
		{"Software", "2024-01", "2024-W01", "500"},
		{"Travel", "2024-01", "2024-W02", "3000"},
		{"Assets", "2024-01", "2024-W03", "1200.5"},
	}
	for i, w := range want {
		tx := l.Transactions[i]
		if tx.Category != w.cat || tx.MonthKey != w.month || tx.WeekKey != w.week {
			t.Errorf("row %d = %+v, want %+v", i, tx, w)
		}
		if !tx.Amount.Equal(decimal.RequireFromString(w.amount)) {
			t.Errorf("row %d amount = %s, want %s", i, tx.Amount, w.amount)
		}
	}
}

func TestLoad_HeaderMatching(t *testing.T) {
	in := "\ufeff amount ,DESCRIPTION,date\n-45.5,Uber refund,03/02/2024\n"
	l, err := Load(strings.NewReader(in), opts(UndatedExclude))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	tx := l.Transactions[0]
	if tx.MonthKey != "2024-03" || tx.Category != "Travel" || !tx.Amount.Equal(decimal.RequireFromString("-45.5")) {
		t.Fatalf("unexpected transaction %+v", tx)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantLine int
		wantErr  error
	}{
		{"empty", "", 0, core.ErrEmptyInput},
		{"missing column", "Date,Description\n2024-01-01,x\n", 1, core.ErrMissingColumn},
		{"bad amount", "Date,Description,Amount\n2024-01-01,x,10\n2024-01-02,y,ten\n", 3, core.ErrInvalidAmount},
		{"blank amount", "Date,Description,Amount\n2024-01-01,x,\n", 2, core.ErrInvalidAmount},
		{"short row", "Date,Description,Amount\n2024-01-01,x\n", 2, core.ErrMalformedInput},
		{"bad quoting", "Date,Description,Amount\n2024-01-01,\"x,10\n", 2, core.ErrMalformedInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := Load(strings.NewReader(tt.in), opts(UndatedExclude))
			if l != nil {
				t.Fatalf("expected no ledger, got %d rows", l.Len())
			}
			var le *core.LoadError
			if !errors.As(err, &le) {
				t.Fatalf("expected *core.LoadError, got %T (%v)", err, err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error %v does not wrap %v", err, tt.wantErr)
			}
			if tt.wantLine > 0 && le.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", le.Line, tt.wantLine)
			}
		})
	}
}

func TestLoad_HeaderOnly(t *testing.T) {
	l, err := Load(strings.NewReader("Date,Description,Amount\n"), opts(UndatedExclude))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if l.Len() != 0 || len(l.Months()) != 0 {
		t.Fatalf("expected empty ledger")
	}
}

func TestLoad_UndatedPolicy(t *testing.T) {
	in := "Date,Description,Amount\n" +
		"2024-02-01,Zoom,100\n" +
		"not a date,Payroll,900\n" +
		",Wifi,50\n"

	l, err := Load(strings.NewReader(in), opts(UndatedExclude))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if l.Undated != 2 || l.Len() != 3 {
		t.Fatalf("exclude: undated=%d len=%d", l.Undated, l.Len())
	}
	if got := l.Months(); len(got) != 1 || got[0] != "2024-02" {
		t.Fatalf("exclude: months = %v", got)
	}
	if l.Transactions[1].Bucketed() {
		t.Fatal("exclude: undated row should not be bucketed")
	}

	l, err = Load(strings.NewReader(in), opts(UndatedBucket))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := l.Months(); len(got) != 2 || got[1] != core.UnknownKey {
		t.Fatalf("bucket: months = %v", got)
	}
	if tx := l.Transactions[2]; tx.MonthKey != core.UnknownKey || tx.WeekKey != core.UnknownKey {
		t.Fatalf("bucket: keys = %q/%q", tx.MonthKey, tx.WeekKey)
	}
}

func TestLoad_Options(t *testing.T) {
	if _, err := Load(strings.NewReader("Date,Description,Amount\n"), Options{}); err == nil {
		t.Fatal("expected error without classifier")
	}
	o := opts("sometimes")
	if _, err := Load(strings.NewReader("Date,Description,Amount\n"), o); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestLoadWorkbook(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]any{
		{"Date", "Description", "Amount"},
		{"2024-01-05", "AWS hosting", 500},
		{},
		{"2024-01-10", "Flight to Delhi", 3000},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	l, err := LoadFile("year.xlsx", bytes.NewReader(buf.Bytes()), Options{Classifier: rules.Default()})
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if l.Len() != 2 || l.FileName != "year.xlsx" {
		t.Fatalf("unexpected ledger: len=%d name=%q", l.Len(), l.FileName)
	}
	if l.Transactions[1].Category != "Travel" {
		t.Errorf("category = %s", l.Transactions[1].Category)
	}

	_, err = LoadFile("broken.xlsx", strings.NewReader("not a zip"), Options{Classifier: rules.Default()})
	if !core.IsLoadError(err) {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-01-05", "2024-01-05"},
		{"2024/1/5", "2024-01-05"},
		{"01/05/2024", "2024-01-05"},
		{"1/5/2024", "2024-01-05"},
		{"5-Jan-2024", "2024-01-05"},
		{"Jan 5, 2024", "2024-01-05"},
		{"2024-01-05 13:45:00", "2024-01-05"},
		{"13/13/2024", ""},
		{"yesterday", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ParseDate(tt.in).String(); got != tt.want {
			t.Errorf("ParseDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
