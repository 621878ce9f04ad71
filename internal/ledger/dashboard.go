package ledger

import (
	"sort"
	"time"

	"github.com/boddenberg/ledger-insights-go/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	// WeeklyWindowDays is the length of the trailing income/expense window.
	WeeklyWindowDays = 7
	// CashFlowDays is the number of points in the cash-flow series.
	CashFlowDays = 7
	// RecentTransactionsLimit caps the dashboard's recent list.
	RecentTransactionsLimit = 5

	dayKeyLayout = "2006-01-02"
)

// WeeklyWindowStart is the inclusive lower bound of the trailing window.
func WeeklyWindowStart(now time.Time) time.Time {
	return now.AddDate(0, 0, -WeeklyWindowDays)
}

// ComputeDashboardStats builds the dashboard snapshot.
//
// all is the owner's full ledger; weekly holds the transactions dated on or
// after WeeklyWindowStart(now). Day boundaries are midnights in now's location.
func ComputeDashboardStats(all, weekly []domain.Transaction, now time.Time) *domain.DashboardStats {
	week := Fold(weekly)

	return &domain.DashboardStats{
		CashBalance:        Balance(all),
		WeeklyIncome:       week.Income,
		WeeklyExpenses:     week.Expenses,
		WeeklyProfit:       week.Net(),
		RecentTransactions: RecentTransactions(all, RecentTransactionsLimit),
		CashFlowData:       CashFlowSeries(all, now),
	}
}

// RecentTransactions returns the n newest transactions by date. Ties go to
// the most recently created record, then to the greater id.
func RecentTransactions(txns []domain.Transaction, n int) []domain.Transaction {
	sorted := make([]domain.Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// FoldByDay buckets the signed daily delta (income - expense) of txns by
// calendar day in loc. Keys are YYYY-MM-DD.
func FoldByDay(txns []domain.Transaction, loc *time.Location) *Buckets {
	days := NewBuckets()
	for _, tx := range txns {
		delta := tx.Amount
		if !tx.IsIncome() {
			delta = delta.Neg()
		}
		days.Add(tx.Date.In(loc).Format(dayKeyLayout), delta)
	}
	return days
}

// CashFlowSeries returns one point per calendar day for the CashFlowDays days
// ending today, oldest first. The running balance starts at zero at the
// beginning of the window and carries each day's delta forward; it is not
// anchored on the balance accumulated before the window.
func CashFlowSeries(txns []domain.Transaction, now time.Time) []domain.CashFlowPoint {
	loc := now.Location()
	deltas := FoldByDay(txns, loc)
	today := startOfDay(now)

	points := make([]domain.CashFlowPoint, 0, CashFlowDays)
	running := decimal.Zero
	for i := CashFlowDays - 1; i >= 0; i-- {
		dayStart := today.AddDate(0, 0, -i)
		key := dayStart.Format(dayKeyLayout)
		if d, ok := deltas.Get(key); ok {
			running = running.Add(d)
		}
		points = append(points, domain.CashFlowPoint{Date: key, Balance: running})
	}
	return points
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
