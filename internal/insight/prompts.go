package insight

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"spendsense/internal/core"
)

// MonthlySummaryPrompt builds the executive-summary request for a month.
func MonthlySummaryPrompt(v core.MonthView) string {
	var b strings.Builder
	b.WriteString("You are a CFO generating a professional monthly executive summary.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Use clear headings\n")
	b.WriteString("- Use bullet points\n")
	b.WriteString("- Strictly Do NOT use markdown symbols like **\n")
	b.WriteString("- Write in clean formatted plain text\n")
	b.WriteString("- Currency must be in Rs.\n\n")
	fmt.Fprintf(&b, "Month: %s\n", v.Month)
	fmt.Fprintf(&b, "Total Spend: %s\n\n", rupees(v.Total))
	b.WriteString("Category Breakdown:\n")
	b.WriteString(CategoryTable(v.ByCategory))
	return b.String()
}

// BudgetReviewPrompt builds the budget advice request.
func BudgetReviewPrompt(v core.MonthView, budget decimal.Decimal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Month %s\n", v.Month)
	fmt.Fprintf(&b, "Budget %s\n", rupees(budget))
	fmt.Fprintf(&b, "Actual %s\n", rupees(v.Total))
	b.WriteString(CategoryTable(v.ByCategory))
	b.WriteString("Give budget advice in INR.\n")
	return b.String()
}

// NextMonthPlanPrompt builds the next-month advisor request.
func NextMonthPlanPrompt(currentTotal decimal.Decimal, p Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current Month Spend %s\n\n", rupees(currentTotal))
	b.WriteString("Next Month Plan:\n")
	fmt.Fprintf(&b, "Salaries %s\n", rupees(p.Salaries))
	fmt.Fprintf(&b, "Assets %s\n", rupees(p.Assets))
	fmt.Fprintf(&b, "Marketing %s\n", rupees(p.Marketing))
	fmt.Fprintf(&b, "Other %s\n", rupees(p.Other))
	fmt.Fprintf(&b, "Total %s\n\n", rupees(p.Total()))
	b.WriteString("Act as startup finance advisor.\n")
	b.WriteString("Give risks and optimization in INR.\n")
	return b.String()
}

// CategoryTable renders a breakdown as aligned "name  amount" lines with
// exact amounts.
func CategoryTable(cats []core.CategoryAmount) string {
	width := 0
	for _, c := range cats {
		width = max(width, len(c.Name))
	}
	var b strings.Builder
	for _, c := range cats {
		fmt.Fprintf(&b, "%-*s  %s\n", width, c.Name, c.Amount.String())
	}
	return b.String()
}
