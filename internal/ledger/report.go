package ledger

import (
	"github.com/boddenberg/ledger-insights-go/internal/domain"

	"github.com/shopspring/decimal"
)

const reportDateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// BuildFinancialReport folds the transactions of a date range into a report.
// Category lists are ordered by amount descending; ties keep the order in
// which the category first appeared. Margin and percentages are rounded to
// two places; sums are exact.
func BuildFinancialReport(txns []domain.Transaction, params domain.ReportParams) *domain.FinancialReport {
	f := FoldByCategory(txns)

	report := &domain.FinancialReport{
		StartDate:          params.StartDate.Format(reportDateLayout),
		EndDate:            params.EndDate.Format(reportDateLayout),
		TotalIncome:        f.Totals.Income,
		TotalExpenses:      f.Totals.Expenses,
		NetProfit:          f.Totals.Net(),
		ProfitMargin:       Percentage(f.Totals.Net(), f.Totals.Income),
		IncomeByCategory:   make([]domain.CategoryAmount, 0, f.Income.Len()),
		ExpensesByCategory: make([]domain.CategoryExpense, 0, f.Expenses.Len()),
		TransactionCount:   len(txns),
	}

	for _, b := range f.Income.SortedByAmount() {
		report.IncomeByCategory = append(report.IncomeByCategory, domain.CategoryAmount{
			Category: b.Label,
			Amount:   b.Amount,
		})
	}
	for _, b := range f.Expenses.SortedByAmount() {
		report.ExpensesByCategory = append(report.ExpensesByCategory, domain.CategoryExpense{
			Category:   b.Label,
			Amount:     b.Amount,
			Percentage: Percentage(b.Amount, f.Totals.Expenses),
		})
	}

	return report
}

// Percentage is part / whole * 100 rounded to two places, or zero when whole
// is not positive.
func Percentage(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole).Round(2)
}
