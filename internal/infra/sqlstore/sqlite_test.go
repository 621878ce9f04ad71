package sqlstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/ledger-insights-go/internal/domain"
	"github.com/boddenberg/ledger-insights-go/internal/infra/observability"
	"github.com/boddenberg/ledger-insights-go/internal/infra/resilience"
	"github.com/boddenberg/ledger-insights-go/internal/infra/sqlstore"

	"go.uber.org/zap"
)

func openTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "ledger.db")
	guard := resilience.NewGuard("sqlite", resilience.Config{MaxRetries: 0, MaxConcurrency: 4})

	store, err := sqlstore.OpenSQLite(context.Background(), path, guard, observability.NewMetrics(), zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func seed(t *testing.T, store *sqlstore.Store) {
	t.Helper()
	ctx := context.Background()
	wib := time.FixedZone("WIB", 7*3600)

	for _, c := range []domain.Category{
		{ID: "cat-sales", Name: "Penjualan", Type: domain.TransactionIncome},
		{ID: "cat-raw", Name: "Bahan Baku", Type: domain.TransactionExpense},
	} {
		if err := store.InsertCategory(ctx, "owner-1", c); err != nil {
			t.Fatalf("insert category: %v", err)
		}
	}
	// Same id owned by someone else must not leak into owner-1's join.
	if err := store.InsertCategory(ctx, "owner-2", domain.Category{ID: "cat-other", Name: "Lain", Type: domain.TransactionExpense}); err != nil {
		t.Fatalf("insert category: %v", err)
	}

	txns := []domain.Transaction{
		{ID: "tx-1", UserID: "owner-1", CategoryID: "cat-sales", Amount: domain.MustParseAmount("100000.00"), Type: domain.TransactionIncome, Description: "Kopi susu", Date: time.Date(2024, 1, 10, 9, 0, 0, 0, wib)},
		{ID: "tx-2", UserID: "owner-1", CategoryID: "cat-raw", Amount: domain.MustParseAmount("30000.50"), Type: domain.TransactionExpense, Description: "Gula 100%", Date: time.Date(2024, 1, 10, 10, 0, 0, 0, wib)},
		{ID: "tx-3", UserID: "owner-1", CategoryID: "cat-other", Amount: domain.MustParseAmount("50000"), Type: domain.TransactionIncome, OutletID: "outlet-2", Date: time.Date(2024, 1, 13, 8, 0, 0, 0, wib)},
		{ID: "tx-4", UserID: "owner-2", Amount: domain.MustParseAmount("999"), Type: domain.TransactionIncome, Date: time.Date(2024, 1, 12, 8, 0, 0, 0, wib)},
	}
	for _, tx := range txns {
		if err := store.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("insert %s: %v", tx.ID, err)
		}
	}
}

func TestSQLite_QueryAllTransactions(t *testing.T) {
	store := openTestStore(t)
	seed(t, store)

	txns, err := store.QueryAllTransactions(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(txns) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txns))
	}
	if txns[0].ID != "tx-1" || txns[2].ID != "tx-3" {
		t.Errorf("expected oldest first, got %s..%s", txns[0].ID, txns[2].ID)
	}
	if txns[0].Category == nil || txns[0].Category.Name != "Penjualan" {
		t.Errorf("expected Penjualan, got %+v", txns[0].Category)
	}
	if txns[2].Category != nil {
		t.Errorf("expected foreign category to stay unresolved, got %+v", txns[2].Category)
	}
	if !txns[1].Amount.Equal(domain.MustParseAmount("30000.5")) {
		t.Errorf("unexpected amount %s", txns[1].Amount)
	}
	if !txns[0].Date.Equal(time.Date(2024, 1, 10, 2, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected date %v", txns[0].Date)
	}
	if txns[0].CreatedAt.IsZero() {
		t.Error("expected created_at to be set on insert")
	}
}

func TestSQLite_QueryTransactions_Filters(t *testing.T) {
	store := openTestStore(t)
	seed(t, store)
	ctx := context.Background()

	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 10, 23, 59, 59, 0, time.UTC)

	tests := []struct {
		name    string
		filter  domain.TransactionFilter
		wantIDs []string
		total   int64
	}{
		{"all newest first", domain.TransactionFilter{}, []string{"tx-3", "tx-2", "tx-1"}, 3},
		{"date range", domain.TransactionFilter{StartDate: &start, EndDate: &end}, []string{"tx-2", "tx-1"}, 2},
		{"type", domain.TransactionFilter{Type: domain.TransactionExpense}, []string{"tx-2"}, 1},
		{"category", domain.TransactionFilter{CategoryID: "cat-sales"}, []string{"tx-1"}, 1},
		{"outlet", domain.TransactionFilter{OutletID: "outlet-2"}, []string{"tx-3"}, 1},
		{"search case-insensitive", domain.TransactionFilter{Search: "KOPI"}, []string{"tx-1"}, 1},
		{"search literal percent", domain.TransactionFilter{Search: "100%"}, []string{"tx-2"}, 1},
		{"page", domain.TransactionFilter{Limit: 2, Offset: 1}, []string{"tx-2", "tx-1"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns, total, err := store.QueryTransactions(ctx, "owner-1", tt.filter)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if total != tt.total {
				t.Errorf("expected total %d, got %d", tt.total, total)
			}
			if len(txns) != len(tt.wantIDs) {
				t.Fatalf("expected %v, got %d rows", tt.wantIDs, len(txns))
			}
			for i, id := range tt.wantIDs {
				if txns[i].ID != id {
					t.Errorf("row %d: expected %s, got %s", i, id, txns[i].ID)
				}
			}
		})
	}
}

func TestSQLite_EmptyLedger(t *testing.T) {
	store := openTestStore(t)

	txns, total, err := store.QueryTransactions(context.Background(), "nobody", domain.TransactionFilter{Limit: 10})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if txns == nil || len(txns) != 0 || total != 0 {
		t.Errorf("expected empty non-nil page, got %#v total=%d", txns, total)
	}
}

func TestSQLite_InsertRejectsUnknownType(t *testing.T) {
	store := openTestStore(t)

	err := store.InsertTransaction(context.Background(), domain.Transaction{ID: "x", UserID: "o", Type: "refund", Date: time.Now()})

	var valErr *domain.ErrValidation
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ErrValidation, got %T: %v", err, err)
	}
}

func TestSQLite_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()
	open := func() *sqlstore.Store {
		guard := resilience.NewGuard("sqlite", resilience.Config{MaxConcurrency: 1})
		s, err := sqlstore.OpenSQLite(ctx, path, guard, observability.NewMetrics(), zap.NewNop())
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		return s
	}

	s := open()
	if err := s.InsertTransaction(ctx, domain.Transaction{ID: "tx-1", UserID: "o", Amount: domain.MustParseAmount("1"), Type: domain.TransactionIncome, Date: time.Now()}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	s.Close()

	s = open()
	defer s.Close()
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	txns, err := s.QueryAllTransactions(ctx, "o")
	if err != nil || len(txns) != 1 {
		t.Fatalf("expected 1 row after reopen, got %d (%v)", len(txns), err)
	}
}

func TestSQLite_SearchFoldsNonASCII(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, tx := range []domain.Transaction{
		{ID: "tx-a", UserID: "owner-1", Amount: domain.MustParseAmount("1"), Type: domain.TransactionIncome, Description: "Éclair cokelat", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "tx-b", UserID: "owner-1", Amount: domain.MustParseAmount("1"), Type: domain.TransactionIncome, Description: "ÜBERWEISUNG Straße", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{ID: "tx-c", UserID: "owner-1", Amount: domain.MustParseAmount("1"), Type: domain.TransactionIncome, Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)},
	} {
		if err := store.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("insert %s: %v", tx.ID, err)
		}
	}

	tests := map[string]string{
		"ÉCLAIR":      "tx-a",
		"überweisung": "tx-b",
		"STRASSE":     "tx-b",
		"cokelat":     "tx-a",
	}

	for search, wantID := range tests {
		t.Run(search, func(t *testing.T) {
			txns, total, err := store.QueryTransactions(ctx, "owner-1", domain.TransactionFilter{Search: search})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if total != 1 || len(txns) != 1 || txns[0].ID != wantID {
				t.Errorf("expected only %s, got %d rows (total %d)", wantID, len(txns), total)
			}
		})
	}
}
