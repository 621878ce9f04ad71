package supabase

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/ledger-insights-go/internal/domain"

	"github.com/shopspring/decimal"
)

// ============================================================
// PostgREST query building and row decoding
// ============================================================

const (
	transactionsTable = "transactions"
	categoriesTable   = "categories"

	transactionColumns = "id,user_id,category_id,amount,type,description,date,outlet_id,created_at"

	orderNewestFirst = "date.desc,created_at.desc,id.desc"
	orderOldestFirst = "date.asc,created_at.asc,id.asc"
)

// transactionQuery builds the PostgREST filters for an owner and filter.
// Date bounds repeat the "date" key, which PostgREST ANDs together.
func transactionQuery(ownerID string, f domain.TransactionFilter) url.Values {
	q := url.Values{}
	q.Set("select", transactionColumns)
	q.Set("user_id", "eq."+ownerID)

	if f.StartDate != nil {
		q.Add("date", "gte."+f.StartDate.UTC().Format(time.RFC3339Nano))
	}
	if f.EndDate != nil {
		q.Add("date", "lte."+f.EndDate.UTC().Format(time.RFC3339Nano))
	}
	if f.CategoryID != "" {
		q.Set("category_id", "eq."+f.CategoryID)
	}
	if f.Type != "" {
		q.Set("type", "eq."+string(f.Type))
	}
	if f.OutletID != "" {
		q.Set("outlet_id", "eq."+f.OutletID)
	}
	if f.Search != "" {
		q.Set("description", "ilike.*"+escapeLike(f.Search)+"*")
	}

	q.Set("order", orderNewestFirst)
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	return q
}

// likeEscaper makes user input a literal ILIKE substring: the PostgREST
// wildcard is dropped and the SQL metacharacters get Postgres' default
// backslash escape.
var likeEscaper = strings.NewReplacer("*", "", `\`, `\\`, "%", `\%`, "_", `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// transactionRow maps table columns.
type transactionRow struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	CategoryID  *string         `json:"category_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description *string         `json:"description"`
	Date        string          `json:"date"`
	OutletID    *string         `json:"outlet_id"`
	CreatedAt   string          `json:"created_at"`
}

type categoryRow struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// toDomain converts a row, resolving its category from categories.
func (r transactionRow) toDomain(categories map[string]domain.Category) (domain.Transaction, error) {
	date, err := domain.ParseTimestamp(r.Date)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: date: %w", r.ID, err)
	}

	tx := domain.Transaction{
		ID:          r.ID,
		UserID:      r.UserID,
		CategoryID:  deref(r.CategoryID),
		Amount:      r.Amount,
		Type:        domain.TransactionType(r.Type),
		Description: deref(r.Description),
		Date:        date,
		OutletID:    deref(r.OutletID),
	}
	if r.CreatedAt != "" {
		if tx.CreatedAt, err = domain.ParseTimestamp(r.CreatedAt); err != nil {
			return domain.Transaction{}, fmt.Errorf("transaction %s: created_at: %w", r.ID, err)
		}
	}
	if c, ok := categories[tx.CategoryID]; ok {
		cat := c
		tx.Category = &cat
	}
	return tx, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
