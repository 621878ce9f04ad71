package integration_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/ledger-insights-go/internal/domain"
	"github.com/boddenberg/ledger-insights-go/internal/handler"
	"github.com/boddenberg/ledger-insights-go/internal/infra/cache"
	"github.com/boddenberg/ledger-insights-go/internal/infra/observability"
	"github.com/boddenberg/ledger-insights-go/internal/infra/resilience"
	"github.com/boddenberg/ledger-insights-go/internal/infra/sqlstore"
	"github.com/boddenberg/ledger-insights-go/internal/infra/supabase"
	"github.com/boddenberg/ledger-insights-go/internal/port"
	"github.com/boddenberg/ledger-insights-go/internal/service"

	"go.uber.org/zap"
)

var wib = time.FixedZone("WIB", 7*3600)

const secret = "integration-secret"

type flowStore interface {
	port.TransactionStore
	port.HealthChecker
}

func newServer(t *testing.T, store flowStore, metrics *observability.Metrics) (*httptest.Server, string) {
	t.Helper()

	clock := func() time.Time { return time.Date(2024, 1, 16, 15, 0, 0, 0, wib) }
	svc := service.NewLedgerService(store, clock, wib, metrics, zap.NewNop())
	verifier := service.NewTokenVerifier([]byte(secret))

	token, err := verifier.SignAccessToken("owner-1", time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	srv := httptest.NewServer(handler.NewRouter(svc, verifier, []port.HealthChecker{store}, metrics, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv, token
}

func getJSON(t *testing.T, url, token string, out any) int {
	t.Helper()

	req, _ := http.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

// TestIntegration_SQLiteFlow seeds a SQLite ledger and reads it back through
// the HTTP API.
func TestIntegration_SQLiteFlow(t *testing.T) {
	metrics := observability.NewMetrics()
	guard := resilience.NewGuard("sqlite", resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxConcurrency: 4})

	store, err := sqlstore.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "ledger.db"), guard, metrics, zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	for _, c := range []domain.Category{
		{ID: "cat-sales", Name: "Penjualan", Type: domain.TransactionIncome},
		{ID: "cat-raw", Name: "Bahan Baku", Type: domain.TransactionExpense},
	} {
		if err := store.InsertCategory(ctx, "owner-1", c); err != nil {
			t.Fatalf("insert category: %v", err)
		}
	}
	day0 := time.Date(2024, 1, 10, 9, 0, 0, 0, wib)
	for _, tx := range []domain.Transaction{
		{ID: "tx-1", UserID: "owner-1", CategoryID: "cat-sales", Amount: domain.MustParseAmount("100000"), Type: domain.TransactionIncome, Date: day0},
		{ID: "tx-2", UserID: "owner-1", CategoryID: "cat-raw", Amount: domain.MustParseAmount("30000"), Type: domain.TransactionExpense, Date: day0.Add(time.Hour)},
		{ID: "tx-3", UserID: "owner-1", CategoryID: "cat-sales", Amount: domain.MustParseAmount("50000"), Type: domain.TransactionIncome, Date: day0.AddDate(0, 0, 3)},
	} {
		if err := store.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("insert %s: %v", tx.ID, err)
		}
	}

	srv, token := newServer(t, store, metrics)

	// --- Dashboard ---
	var stats domain.DashboardStats
	if code := getJSON(t, srv.URL+"/api/dashboard/stats", token, &stats); code != http.StatusOK {
		t.Fatalf("dashboard: expected 200, got %d", code)
	}
	if !stats.CashBalance.Equal(domain.MustParseAmount("120000")) {
		t.Errorf("expected cash balance 120000, got %s", stats.CashBalance)
	}
	if !stats.WeeklyProfit.Equal(domain.MustParseAmount("120000")) {
		t.Errorf("expected weekly profit 120000, got %s", stats.WeeklyProfit)
	}
	if len(stats.CashFlowData) != 7 {
		t.Fatalf("expected 7 cash flow points, got %d", len(stats.CashFlowData))
	}
	if stats.CashFlowData[0].Date != "2024-01-10" || !stats.CashFlowData[0].Balance.Equal(domain.MustParseAmount("70000")) {
		t.Errorf("unexpected first point: %+v", stats.CashFlowData[0])
	}
	if stats.RecentTransactions[0].ID != "tx-3" || stats.RecentTransactions[0].Category.Name != "Penjualan" {
		t.Errorf("unexpected recent transactions: %+v", stats.RecentTransactions)
	}

	// --- Report ---
	var report domain.FinancialReport
	if code := getJSON(t, srv.URL+"/api/reports/financial?startDate=2024-01-10&endDate=2024-01-10", token, &report); code != http.StatusOK {
		t.Fatalf("report: expected 200, got %d", code)
	}
	if report.TransactionCount != 2 {
		t.Errorf("expected 2 transactions on 2024-01-10, got %d", report.TransactionCount)
	}
	if !report.ProfitMargin.Equal(domain.MustParseAmount("70")) {
		t.Errorf("expected margin 70, got %s", report.ProfitMargin)
	}
	if len(report.ExpensesByCategory) != 1 || report.ExpensesByCategory[0].Category != "Bahan Baku" {
		t.Errorf("unexpected expense buckets: %+v", report.ExpensesByCategory)
	}

	// --- Transactions ---
	var page domain.TransactionPage
	if code := getJSON(t, srv.URL+"/api/transactions?type=income&limit=1", token, &page); code != http.StatusOK {
		t.Fatalf("transactions: expected 200, got %d", code)
	}
	if page.Total != 2 || page.TotalPages != 2 || len(page.Transactions) != 1 || page.Transactions[0].ID != "tx-3" {
		t.Errorf("unexpected page: %+v", page)
	}

	// --- Health ---
	var health domain.HealthStatus
	getJSON(t, srv.URL+"/healthz", "", &health)
	if health.Status != "healthy" {
		t.Errorf("expected healthy, got %s", health.Status)
	}
}

// TestIntegration_StoreUnavailable verifies that a failing backend surfaces
// as a gateway error and opens the circuit instead of returning partial data.
func TestIntegration_StoreUnavailable(t *testing.T) {
	var calls atomic.Int64
	postgrest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer postgrest.Close()

	metrics := observability.NewMetrics()
	guard := resilience.NewGuard(supabase.Backend, resilience.Config{MaxRetries: 0, MaxConcurrency: 2})
	client := supabase.NewClient(postgrest.Client(), postgrest.URL, "service-key", guard, zap.NewNop())
	categories := cache.New[map[string]domain.Category](time.Minute)
	defer categories.Stop()

	srv, token := newServer(t, supabase.NewTransactionStore(client, categories, metrics, zap.NewNop()), metrics)

	// One store read per report request, so every request is one breaker failure.
	var statuses []int
	for i := 0; i < 8; i++ {
		statuses = append(statuses, getJSON(t, srv.URL+"/api/reports/financial?startDate=2024-01-01&endDate=2024-01-31", token, nil))
	}

	if statuses[0] != http.StatusBadGateway {
		t.Errorf("expected first failure to be 502, got %d", statuses[0])
	}
	if last := statuses[len(statuses)-1]; last != http.StatusServiceUnavailable {
		t.Errorf("expected circuit to open (503), got %d", last)
	}

	var health domain.HealthStatus
	getJSON(t, srv.URL+"/healthz", "", &health)
	if health.Status != "degraded" {
		t.Errorf("expected degraded, got %s", health.Status)
	}
	if got := calls.Load(); got != 5 {
		t.Errorf("expected the open circuit to stop calls after 5, got %d", got)
	}
}
