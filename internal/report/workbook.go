package report

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"spendsense/internal/core"
)

const (
	summarySheet = "Summary"
	weeklySheet  = "Weekly"

	amountNumFmt = "#,##0.00"
)

// sheetWriter keeps the first excelize error so the layout code reads
// top to bottom.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (s *sheetWriter) do(err error) {
	if s.err == nil && err != nil {
		s.err = err
	}
}

func (s *sheetWriter) set(sheet, cell string, v any) {
	if s.err != nil {
		return
	}
	s.do(s.f.SetCellValue(sheet, cell, v))
}

func (s *sheetWriter) style(st *excelize.Style) int {
	if s.err != nil {
		return 0
	}
	id, err := s.f.NewStyle(st)
	s.do(err)
	return id
}

// amount stores d as a number when the float holds it exactly and as
// text otherwise, so the stored value always reads back as d.
func (s *sheetWriter) amount(sheet, cell string, d decimal.Decimal) {
	f := d.InexactFloat64()
	if decimal.NewFromFloat(f).Equal(d) {
		s.set(sheet, cell, f)
		return
	}
	s.set(sheet, cell, d.String())
}

// RenderWorkbook writes the month view as an XLSX workbook: the category
// table on the first sheet and weekly totals on the second.
func RenderWorkbook(w io.Writer, r Monthly) error {
	if r.View.Month == "" {
		return fmt.Errorf("report: month is required")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw := &sheetWriter{f: f}
	titleStyle := sw.style(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	headerStyle := sw.style(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#808080"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "#000000", Style: 1},
			{Type: "right", Color: "#000000", Style: 1},
			{Type: "top", Color: "#000000", Style: 1},
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	amountFmt := amountNumFmt
	numberStyle := sw.style(&excelize.Style{
		CustomNumFmt: &amountFmt,
		Alignment:    &excelize.Alignment{Horizontal: "right"},
	})

	sw.do(f.MergeCell(summarySheet, "A1", "B1"))
	sw.set(summarySheet, "A1", Title(r.View.Month))
	sw.do(f.SetCellStyle(summarySheet, "A1", "B1", titleStyle))
	sw.do(f.SetRowHeight(summarySheet, 1, 28))

	sw.set(summarySheet, "A2", "Total Spend")
	sw.amount(summarySheet, "B2", r.View.Total)
	sw.do(f.SetCellStyle(summarySheet, "B2", "B2", numberStyle))
	sw.set(summarySheet, "A3", "Top Category")
	sw.set(summarySheet, "B3", r.View.TopCategory)

	sw.set(summarySheet, "A5", HeaderCategory)
	sw.set(summarySheet, "B5", HeaderAmount)
	sw.do(f.SetCellStyle(summarySheet, "A5", "B5", headerStyle))

	row := 6
	for _, c := range r.View.ByCategory {
		sw.set(summarySheet, fmt.Sprintf("A%d", row), c.Name)
		sw.amount(summarySheet, fmt.Sprintf("B%d", row), c.Amount)
		row++
	}
	if row > 6 {
		sw.do(f.SetCellStyle(summarySheet, "B6", fmt.Sprintf("B%d", row-1), numberStyle))
	}
	sw.do(f.SetColWidth(summarySheet, "A", "A", 28))
	sw.do(f.SetColWidth(summarySheet, "B", "B", 18))

	if _, err := f.NewSheet(weeklySheet); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	sw.set(weeklySheet, "A1", "Week")
	sw.set(weeklySheet, "B1", HeaderAmount)
	sw.do(f.SetCellStyle(weeklySheet, "A1", "B1", headerStyle))
	for i, wk := range r.View.ByWeek {
		sw.set(weeklySheet, fmt.Sprintf("A%d", i+2), wk.Key)
		sw.amount(weeklySheet, fmt.Sprintf("B%d", i+2), wk.Amount)
	}
	if len(r.View.ByWeek) > 0 {
		sw.do(f.SetCellStyle(weeklySheet, "B2", fmt.Sprintf("B%d", len(r.View.ByWeek)+1), numberStyle))
	}
	sw.do(f.SetColWidth(weeklySheet, "A", "B", 18))
	if sw.err != nil {
		return fmt.Errorf("build workbook: %w", sw.err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ReadWorkbookTable returns the category rows of a workbook written by
// RenderWorkbook.
func ReadWorkbookTable(r io.Reader) ([]core.CategoryAmount, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(summarySheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}

	var out []core.CategoryAmount
	inTable := false
	for _, cells := range rows {
		if !inTable {
			inTable = len(cells) >= 2 && cells[0] == HeaderCategory && cells[1] == HeaderAmount
			continue
		}
		if len(cells) < 2 || cells[0] == "" {
			break
		}
		amt, err := core.ParseAmount(cells[1])
		if err != nil {
			return nil, fmt.Errorf("row %q: %w", cells[0], err)
		}
		out = append(out, core.CategoryAmount{Name: cells[0], Amount: amt})
	}
	return out, nil
}
