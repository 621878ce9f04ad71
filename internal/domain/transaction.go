// Package domain defines the core business entities for the ledger insights
// service. These models are independent of any store or transport and
// represent the canonical data structures used throughout the service.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Ledger
// ============================================================

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// Category labels a group of transactions.
type Category struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Type TransactionType `json:"type"`
}

// Transaction is a single ledger entry, joined with its category for display.
// Category is nil when the referenced category could not be resolved.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	CategoryID  string          `json:"categoryId"`
	Category    *Category       `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	OutletID    string          `json:"outletId,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// IsIncome reports whether the transaction adds to the balance.
func (t Transaction) IsIncome() bool {
	return t.Type == TransactionIncome
}

// TransactionFilter narrows a ledger query. Zero values mean "no filter".
// StartDate and EndDate are inclusive. Limit <= 0 means unbounded.
type TransactionFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	CategoryID string
	Type       TransactionType
	Search     string
	OutletID   string
	Limit      int
	Offset     int
}

// TransactionPage is returned by GET /api/transactions.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Total        int64         `json:"total"`
	Limit        int           `json:"limit"`
	Offset       int           `json:"offset"`
	TotalPages   int           `json:"totalPages"`
}

// NewTransactionPage builds a page, computing the page count from the total.
func NewTransactionPage(items []Transaction, total int64, limit, offset int) *TransactionPage {
	if items == nil {
		items = []Transaction{}
	}
	totalPages := 1
	if limit > 0 {
		totalPages = int(total) / limit
		if int(total)%limit > 0 {
			totalPages++
		}
		if totalPages == 0 {
			totalPages = 1
		}
	}
	return &TransactionPage{
		Transactions: items,
		Total:        total,
		Limit:        limit,
		Offset:       offset,
		TotalPages:   totalPages,
	}
}
