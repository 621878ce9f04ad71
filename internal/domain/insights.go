package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Dashboard
// ============================================================

// DashboardStats is returned by GET /api/dashboard/stats.
type DashboardStats struct {
	CashBalance        decimal.Decimal `json:"cashBalance"`
	WeeklyIncome       decimal.Decimal `json:"weeklyIncome"`
	WeeklyExpenses     decimal.Decimal `json:"weeklyExpenses"`
	WeeklyProfit       decimal.Decimal `json:"weeklyProfit"`
	RecentTransactions []Transaction   `json:"recentTransactions"`
	CashFlowData       []CashFlowPoint `json:"cashFlowData"`
}

// CashFlowPoint is the running balance at the end of one calendar day.
type CashFlowPoint struct {
	Date    string          `json:"date"` // YYYY-MM-DD
	Balance decimal.Decimal `json:"balance"`
}

// ============================================================
// Financial Report
// ============================================================

// ReportParams bounds a financial report. Both dates are inclusive.
type ReportParams struct {
	StartDate time.Time
	EndDate   time.Time
	OutletID  string
}

// FinancialReport is returned by GET /api/reports/financial.
type FinancialReport struct {
	StartDate          string            `json:"startDate"`
	EndDate            string            `json:"endDate"`
	TotalIncome        decimal.Decimal   `json:"totalIncome"`
	TotalExpenses      decimal.Decimal   `json:"totalExpenses"`
	NetProfit          decimal.Decimal   `json:"netProfit"`
	ProfitMargin       decimal.Decimal   `json:"profitMargin"`
	IncomeByCategory   []CategoryAmount  `json:"incomeByCategory"`
	ExpensesByCategory []CategoryExpense `json:"expensesByCategory"`
	TransactionCount   int               `json:"transactionCount"`
}

// CategoryAmount is an income bucket.
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// CategoryExpense is an expense bucket with its share of total expenses.
type CategoryExpense struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}
