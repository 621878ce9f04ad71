package sqlstore

import (
	"strings"

	"github.com/boddenberg/ledger-insights-go/internal/domain"
)

const selectTransactions = `SELECT
	CAST(t.id AS TEXT), CAST(t.user_id AS TEXT), CAST(t.category_id AS TEXT),
	CAST(t.amount AS TEXT), t.type, t.description, t.date, t.outlet_id, t.created_at,
	c.name, c.type
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id AND c.user_id = t.user_id`

const (
	orderNewestFirst = "ORDER BY t.date DESC, t.created_at DESC, t.id DESC"
	orderOldestFirst = "ORDER BY t.date ASC, t.created_at ASC, t.id ASC"
)

// statement is SQL text with its positional arguments.
type statement struct {
	sql  string
	args []any
}

// builder accumulates a WHERE clause in a given dialect.
type builder struct {
	d     Dialect
	conds []string
	args  []any
}

func newBuilder(d Dialect) *builder {
	return &builder{d: d}
}

// arg appends a bound value and returns its placeholder.
func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return b.d.placeholder(len(b.args))
}

func (b *builder) where(cond string) {
	b.conds = append(b.conds, cond)
}

func (b *builder) whereClause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

// filter adds the owner and filter predicates.
func (b *builder) filter(ownerID string, f domain.TransactionFilter) {
	b.where("t.user_id = " + b.arg(ownerID))

	if f.StartDate != nil {
		b.where("t.date >= " + b.arg(b.d.timeArg(*f.StartDate)))
	}
	if f.EndDate != nil {
		b.where("t.date <= " + b.arg(b.d.timeArg(*f.EndDate)))
	}
	if f.CategoryID != "" {
		b.where("t.category_id = " + b.arg(f.CategoryID))
	}
	if f.Type != "" {
		b.where("t.type = " + b.arg(string(f.Type)))
	}
	if f.OutletID != "" {
		b.where("t.outlet_id = " + b.arg(f.OutletID))
	}
	if f.Search != "" {
		b.where(b.d.match("t.description", b.arg(likePattern(f.Search))))
	}
}

// listStatements builds the page query and the matching count query.
func listStatements(d Dialect, ownerID string, f domain.TransactionFilter) (list, count statement) {
	cb := newBuilder(d)
	cb.filter(ownerID, f)
	count = statement{
		sql:  "SELECT COUNT(*) FROM transactions t" + cb.whereClause(),
		args: cb.args,
	}

	lb := newBuilder(d)
	lb.filter(ownerID, f)
	sql := selectTransactions + lb.whereClause() + " " + orderNewestFirst
	if f.Limit > 0 {
		sql += " LIMIT " + lb.arg(f.Limit)
		if f.Offset > 0 {
			sql += " OFFSET " + lb.arg(f.Offset)
		}
	}
	list = statement{sql: sql, args: lb.args}
	return list, count
}

// allStatement builds the full-ledger scan.
func allStatement(d Dialect, ownerID string) statement {
	b := newBuilder(d)
	b.filter(ownerID, domain.TransactionFilter{})
	return statement{
		sql:  selectTransactions + b.whereClause() + " " + orderOldestFirst,
		args: b.args,
	}
}

func insertCategoryStatement(d Dialect, ownerID string, c domain.Category) statement {
	b := newBuilder(d)
	sql := "INSERT INTO categories (id, user_id, name, type) VALUES (" +
		strings.Join([]string{b.arg(c.ID), b.arg(ownerID), b.arg(c.Name), b.arg(string(c.Type))}, ", ") + ")"
	return statement{sql: sql, args: b.args}
}

func insertTransactionStatement(d Dialect, tx domain.Transaction) statement {
	b := newBuilder(d)
	values := []string{
		b.arg(tx.ID),
		b.arg(tx.UserID),
		b.arg(nullable(tx.CategoryID)),
		b.arg(tx.Amount.String()),
		b.arg(string(tx.Type)),
		b.arg(nullable(tx.Description)),
		b.arg(d.timeArg(tx.Date)),
		b.arg(nullable(tx.OutletID)),
		b.arg(d.timeArg(tx.CreatedAt)),
	}
	sql := "INSERT INTO transactions (id, user_id, category_id, amount, type, description, date, outlet_id, created_at) VALUES (" +
		strings.Join(values, ", ") + ")"
	return statement{sql: sql, args: b.args}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
