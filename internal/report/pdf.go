// Package report renders the monthly executive report.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/signintech/gopdf"

	"spendsense/assets"
	"spendsense/internal/core"
)

const (
	fontRegular = "DejaVu"
	fontBold    = "DejaVuBold"

	pageW   = 595.28
	pageH   = 841.89
	margin  = 40.0
	bottom  = pageH - 50
	catColW = 200.0
	amtColW = 140.0
	rowH    = 22.0

	// Table header labels, also used to find the table when reading back.
	HeaderCategory = "Category"
	HeaderAmount   = "Amount (Rs.)"

	InsightHeading = "AI Executive Insight"
)

// Monthly is everything that goes into one report.
type Monthly struct {
	View        core.MonthView
	Insight     string
	GeneratedAt time.Time
}

// Title returns the document title for a month.
func Title(month string) string {
	return fmt.Sprintf("SpendSense AI — Monthly Report (%s)", month)
}

// Render writes the report as an A4 PDF.
func Render(w io.Writer, r Monthly) error {
	if r.View.Month == "" {
		return errors.New("report: month is required")
	}

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.SetInfo(gopdf.PdfInfo{
		Title:        Title(r.View.Month),
		Creator:      "SpendSense",
		CreationDate: r.GeneratedAt,
	})

	if err := pdf.AddTTFFontData(fontRegular, assets.FontRegular); err != nil {
		return fmt.Errorf("load regular font: %w", err)
	}
	if err := pdf.AddTTFFontData(fontBold, assets.FontBold); err != nil {
		return fmt.Errorf("load bold font: %w", err)
	}

	pdf.AddPage()
	lw := &layout{pdf: pdf, y: margin}

	if err := lw.text(fontBold, 18, Title(r.View.Month)); err != nil {
		return err
	}
	lw.space(10)
	if err := lw.text(fontRegular, 11, fmt.Sprintf("Total Spend: Rs.%s ", core.FormatRupees(r.View.Total))); err != nil {
		return err
	}
	if err := lw.text(fontRegular, 11, "Top Category: "+r.View.TopCategory); err != nil {
		return err
	}
	lw.space(10)

	if err := lw.table(r.View.ByCategory); err != nil {
		return err
	}
	lw.space(10)

	if err := lw.text(fontBold, 14, InsightHeading); err != nil {
		return err
	}
	for _, line := range strings.Split(r.Insight, "\n") {
		if err := lw.paragraph(line); err != nil {
			return err
		}
		lw.space(5)
	}

	if _, err := pdf.WriteTo(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

type layout struct {
	pdf *gopdf.GoPdf
	y   float64
}

func (l *layout) space(h float64) { l.y += h }

func (l *layout) ensure(h float64) {
	if l.y+h > bottom {
		l.pdf.AddPage()
		l.y = margin
	}
}

func (l *layout) text(font string, size float64, s string) error {
	s = printable(s)
	if err := l.pdf.SetFont(font, "", size); err != nil {
		return fmt.Errorf("set font: %w", err)
	}
	h := size * 1.4
	l.ensure(h)
	l.pdf.SetTextColor(0, 0, 0)
	l.pdf.SetXY(margin, l.y)
	if err := l.pdf.Cell(nil, s); err != nil {
		return fmt.Errorf("write text: %w", err)
	}
	l.y += h
	return nil
}

// paragraph wraps one insight line to the page width.
func (l *layout) paragraph(s string) error {
	s = printable(s)
	if strings.TrimSpace(s) == "" {
		l.y += 11 * 1.4
		return nil
	}
	if err := l.pdf.SetFont(fontRegular, "", 11); err != nil {
		return fmt.Errorf("set font: %w", err)
	}
	lines, err := l.pdf.SplitTextWithWordWrap(s, pageW-2*margin)
	if err != nil {
		return fmt.Errorf("wrap text: %w", err)
	}
	for _, line := range lines {
		if err := l.text(fontRegular, 11, line); err != nil {
			return err
		}
	}
	return nil
}

func (l *layout) table(rows []core.CategoryAmount) error {
	if err := l.row(HeaderCategory, HeaderAmount, true); err != nil {
		return err
	}
	for _, c := range rows {
		if err := l.row(c.Name, c.Amount.String(), false); err != nil {
			return err
		}
	}
	return nil
}

func (l *layout) row(cat, amt string, header bool) error {
	l.ensure(rowH)
	pdf := l.pdf

	font := fontRegular
	if header {
		font = fontBold
		pdf.SetFillColor(128, 128, 128)
		pdf.RectFromUpperLeftWithStyle(margin, l.y, catColW+amtColW, rowH, "F")
		pdf.SetTextColor(255, 255, 255)
	} else {
		pdf.SetTextColor(0, 0, 0)
	}
	if err := pdf.SetFont(font, "", 11); err != nil {
		return fmt.Errorf("set font: %w", err)
	}

	pdf.SetStrokeColor(0, 0, 0)
	pdf.SetLineWidth(1)
	pdf.RectFromUpperLeftWithStyle(margin, l.y, catColW, rowH, "D")
	pdf.RectFromUpperLeftWithStyle(margin+catColW, l.y, amtColW, rowH, "D")

	cat, amt = printable(cat), printable(amt)
	opt := gopdf.CellOption{Align: gopdf.Left | gopdf.Middle}
	pdf.SetXY(margin+6, l.y)
	if err := pdf.CellWithOption(&gopdf.Rect{W: catColW - 12, H: rowH}, cat, opt); err != nil {
		return fmt.Errorf("write cell: %w", err)
	}
	pdf.SetXY(margin+catColW+6, l.y)
	if err := pdf.CellWithOption(&gopdf.Rect{W: amtColW - 12, H: rowH}, amt, opt); err != nil {
		return fmt.Errorf("write cell: %w", err)
	}

	l.y += rowH
	return nil
}

// printable drops runes outside the embedded font's coverage, such as emoji
// in model output. gopdf fails the whole cell on a missing glyph.
func printable(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t', r == '\n', r == '\r':
			return ' '
		case r < 0x20:
			return -1
		case r < 0x2500:
			return r
		default:
			return -1
		}
	}, s)
}
