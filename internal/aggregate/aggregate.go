// Package aggregate derives the dashboard views from a ledger. Every function
// here is pure: the same ledger and month always give the same view.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"spendsense/internal/core"
)

// Compute builds the aggregate view for month. A month with no rows yields
// *core.NoDataError and no view.
func Compute(l *core.Ledger, month string) (core.MonthView, error) {
	if month == "" || !l.HasMonth(month) {
		return core.MonthView{}, &core.NoDataError{Month: month}
	}

	byCat := make(map[string]decimal.Decimal)
	byWeek := make(map[string]decimal.Decimal)
	view := core.MonthView{Month: month, Total: decimal.Zero}

	for _, t := range l.Transactions {
		if t.MonthKey != month {
			continue
		}
		view.Count++
		view.Total = view.Total.Add(t.Amount)
		byCat[t.Category] = byCat[t.Category].Add(t.Amount)
		byWeek[t.WeekKey] = byWeek[t.WeekKey].Add(t.Amount)
	}

	view.ByCategory = make([]core.CategoryAmount, 0, len(byCat))
	for name, amt := range byCat {
		view.ByCategory = append(view.ByCategory, core.CategoryAmount{Name: name, Amount: amt})
	}
	sort.Slice(view.ByCategory, func(i, j int) bool {
		return view.ByCategory[i].Name < view.ByCategory[j].Name
	})

	view.ByWeek = toKeyAmounts(byWeek)
	view.ByMonth = Yearly(l)
	view.TopCategory = TopCategory(view.ByCategory)

	return view, nil
}

// Yearly sums every bucketed row by month key.
func Yearly(l *core.Ledger) []core.KeyAmount {
	if l == nil {
		return nil
	}
	byMonth := make(map[string]decimal.Decimal)
	for _, t := range l.Transactions {
		if t.Bucketed() {
			byMonth[t.MonthKey] = byMonth[t.MonthKey].Add(t.Amount)
		}
	}
	return toKeyAmounts(byMonth)
}

// TopCategory returns the category with the largest sum. cats must be ordered
// by name; on a tie the first name wins. Empty input gives "".
func TopCategory(cats []core.CategoryAmount) string {
	top := -1
	for i, c := range cats {
		if top < 0 || c.Amount.GreaterThan(cats[top].Amount) {
			top = i
		}
	}
	if top < 0 {
		return ""
	}
	return cats[top].Name
}

// Budget compares actual spend against a budget.
type Budget struct {
	Budget     decimal.Decimal
	Actual     decimal.Decimal
	Difference decimal.Decimal // Actual - Budget; positive means overspent
}

// CompareBudget returns the budget comparison for a view.
func CompareBudget(v core.MonthView, budget decimal.Decimal) Budget {
	return Budget{
		Budget:     budget,
		Actual:     v.Total,
		Difference: v.Total.Sub(budget),
	}
}

func toKeyAmounts(m map[string]decimal.Decimal) []core.KeyAmount {
	out := make([]core.KeyAmount, 0, len(m))
	for k, v := range m {
		out = append(out, core.KeyAmount{Key: k, Amount: v})
	}
	core.SortKeyAmounts(out)
	return out
}
