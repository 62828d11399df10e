package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/shopspring/decimal"

	"spendsense/internal/core"
)

// Gap in points between text runs that starts a new table cell.
const cellGap = 15.0

// ReadCategoryTable extracts the category table from a rendered report.
func ReadCategoryTable(r io.ReaderAt, size int64) (_ []core.CategoryAmount, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf reader crashed: %v", rec)
		}
	}()

	doc, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var out []core.CategoryAmount
	inTable := false

	for i := 1; i <= doc.NumPage(); i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, cells := range rows(page.Content().Text) {
			if !inTable {
				inTable = len(cells) == 2 && cells[0] == HeaderCategory && cells[1] == HeaderAmount
				continue
			}
			if len(cells) != 2 {
				return out, nil
			}
			amt, err := decimal.NewFromString(cells[1])
			if err != nil {
				return out, nil
			}
			out = append(out, core.CategoryAmount{Name: cells[0], Amount: amt})
		}
	}

	if !inTable {
		return nil, errors.New("category table not found")
	}
	return out, nil
}

// rows groups text runs into lines, top to bottom, and each line into cells.
func rows(texts []pdf.Text) [][]string {
	byY := make(map[float64][]pdf.Text)
	var ys []float64
	for _, t := range texts {
		y := math.Round(t.Y)
		if _, ok := byY[y]; !ok {
			ys = append(ys, y)
		}
		byY[y] = append(byY[y], t)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(ys)))

	out := make([][]string, 0, len(ys))
	for _, y := range ys {
		line := byY[y]
		sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })

		var cells []string
		var cur strings.Builder
		end := math.Inf(-1)
		for _, t := range line {
			if cur.Len() > 0 && t.X-end > cellGap {
				cells = append(cells, cleanCell(cur.String()))
				cur.Reset()
			}
			cur.WriteString(t.S)
			end = math.Max(end, t.X+t.W)
		}
		if cur.Len() > 0 {
			cells = append(cells, cleanCell(cur.String()))
		}
		out = append(out, cells)
	}
	return out
}

// cleanCell drops the replacement and control runes the reader leaves at
// the end of gopdf text runs.
func cleanCell(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == unicode.ReplacementChar || (!unicode.IsPrint(r) && !unicode.IsSpace(r)) {
			return -1
		}
		return r
	}, s))
}
