// Package ledger implements the financial aggregation engine: single-pass
// folds over an owner's transactions into totals and labelled buckets, and
// the dashboard and report views built on top of them.
//
// Every function here is pure. Reads happen in the service layer; this
// package only computes, so results are deterministic for a given input.
package ledger

import (
	"sort"

	"github.com/boddenberg/ledger-insights-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Totals accumulates income and expenses.
type Totals struct {
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

// Add folds one transaction in. Anything that is not income counts as expense.
func (t *Totals) Add(tx domain.Transaction) {
	if tx.IsIncome() {
		t.Income = t.Income.Add(tx.Amount)
		return
	}
	t.Expenses = t.Expenses.Add(tx.Amount)
}

// Net is income minus expenses.
func (t Totals) Net() decimal.Decimal {
	return t.Income.Sub(t.Expenses)
}

// Fold sums a transaction set into Totals.
func Fold(txns []domain.Transaction) Totals {
	var t Totals
	for _, tx := range txns {
		t.Add(tx)
	}
	return t
}

// Balance is the signed sum of txns: income adds, expense subtracts.
func Balance(txns []domain.Transaction) decimal.Decimal {
	return Fold(txns).Net()
}

// Bucket is one labelled accumulator.
type Bucket struct {
	Label  string
	Amount decimal.Decimal
}

// Buckets is an ordered mapping from label to amount. Iteration follows the
// order in which labels were first added.
type Buckets struct {
	index   map[string]int
	entries []Bucket
}

// NewBuckets returns an empty set of buckets.
func NewBuckets() *Buckets {
	return &Buckets{index: make(map[string]int)}
}

// Add accumulates amount under label.
func (b *Buckets) Add(label string, amount decimal.Decimal) {
	if i, ok := b.index[label]; ok {
		b.entries[i].Amount = b.entries[i].Amount.Add(amount)
		return
	}
	b.index[label] = len(b.entries)
	b.entries = append(b.entries, Bucket{Label: label, Amount: amount})
}

// Get returns the amount accumulated under label.
func (b *Buckets) Get(label string) (decimal.Decimal, bool) {
	i, ok := b.index[label]
	if !ok {
		return decimal.Zero, false
	}
	return b.entries[i].Amount, true
}

// Len is the number of distinct labels.
func (b *Buckets) Len() int {
	return len(b.entries)
}

// Entries returns a copy of the buckets in first-occurrence order.
func (b *Buckets) Entries() []Bucket {
	out := make([]Bucket, len(b.entries))
	copy(out, b.entries)
	return out
}

// SortedByAmount returns the buckets by amount descending. Equal amounts
// keep first-occurrence order.
func (b *Buckets) SortedByAmount() []Bucket {
	out := b.Entries()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}

// Total sums every bucket.
func (b *Buckets) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, e := range b.entries {
		sum = sum.Add(e.Amount)
	}
	return sum
}

// CategoryLabel is the display label of the transaction's category.
func CategoryLabel(tx domain.Transaction) string {
	if tx.Category == nil || tx.Category.Name == "" {
		return domain.UncategorizedLabel
	}
	return tx.Category.Name
}

// CategoryFold is the result of FoldByCategory.
type CategoryFold struct {
	Totals   Totals
	Income   *Buckets
	Expenses *Buckets
}

// FoldByCategory sums txns into totals and per-category buckets, split by type.
func FoldByCategory(txns []domain.Transaction) CategoryFold {
	f := CategoryFold{Income: NewBuckets(), Expenses: NewBuckets()}
	for _, tx := range txns {
		f.Totals.Add(tx)
		if tx.IsIncome() {
			f.Income.Add(CategoryLabel(tx), tx.Amount)
		} else {
			f.Expenses.Add(CategoryLabel(tx), tx.Amount)
		}
	}
	return f
}
