package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/boddenberg/ledger-insights-go/internal/domain"
	"github.com/boddenberg/ledger-insights-go/internal/infra/observability"
	"github.com/boddenberg/ledger-insights-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Backend is the store name used in metrics and errors.
const Backend = "supabase"

// fullScanPageSize matches PostgREST's default max-rows on hosted Supabase.
const fullScanPageSize = 1000

// TransactionStore implements port.TransactionStore over PostgREST.
// Categories are fetched per owner and cached.
type TransactionStore struct {
	client     *Client
	categories port.Cache[map[string]domain.Category]
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewTransactionStore creates the store.
func NewTransactionStore(client *Client, categories port.Cache[map[string]domain.Category], metrics *observability.Metrics, logger *zap.Logger) *TransactionStore {
	return &TransactionStore{
		client:     client,
		categories: categories,
		metrics:    metrics,
		logger:     logger,
	}
}

// Name implements port.HealthChecker.
func (s *TransactionStore) Name() string { return Backend }

// Ping implements port.HealthChecker.
func (s *TransactionStore) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("limit", "1")
	_, err := s.client.get(ctx, categoriesTable, q, false)
	return err
}

// QueryTransactions returns one filtered page, newest first, and the match
// count. A non-positive Limit reads every match, paging past the server's
// row cap.
func (s *TransactionStore) QueryTransactions(ctx context.Context, ownerID string, filter domain.TransactionFilter) ([]domain.Transaction, int64, error) {
	ctx, span := tracer.Start(ctx, "Supabase.QueryTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("owner.id", ownerID))

	if filter.Limit <= 0 {
		rows, err := s.readAll(ctx, transactionQuery(ownerID, filter), filter.Offset)
		if err != nil {
			return nil, 0, err
		}
		txns, err := s.join(ctx, ownerID, rows)
		if err != nil {
			return nil, 0, err
		}
		return txns, int64(len(txns)), nil
	}

	resp, err := s.client.get(ctx, transactionsTable, transactionQuery(ownerID, filter), true)
	if err != nil {
		return nil, 0, s.fail("query", err)
	}

	rows, err := decodeRows(resp.body)
	if err != nil {
		return nil, 0, s.fail("decode", err)
	}

	txns, err := s.join(ctx, ownerID, rows)
	if err != nil {
		return nil, 0, err
	}

	total := resp.total
	if total < 0 {
		total = int64(len(txns))
	}
	return txns, total, nil
}

// QueryAllTransactions pages through the owner's whole ledger, oldest first.
func (s *TransactionStore) QueryAllTransactions(ctx context.Context, ownerID string) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.QueryAllTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("owner.id", ownerID))

	q := transactionQuery(ownerID, domain.TransactionFilter{})
	q.Set("order", orderOldestFirst)

	rows, err := s.readAll(ctx, q, 0)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("transactions.count", len(rows)))
	return s.join(ctx, ownerID, rows)
}

// readAll fetches every row matching q from offset on, fullScanPageSize rows
// per request. The first request asks for the exact count; coming back with
// fewer rows than that fails the read rather than returning a partial ledger.
func (s *TransactionStore) readAll(ctx context.Context, q url.Values, offset int) ([]transactionRow, error) {
	var rows []transactionRow
	want := int64(-1)

	for page := 0; ; page++ {
		q.Set("limit", strconv.Itoa(fullScanPageSize))
		q.Set("offset", strconv.Itoa(offset+page*fullScanPageSize))

		resp, err := s.client.get(ctx, transactionsTable, q, page == 0)
		if err != nil {
			return nil, s.fail("scan", err)
		}
		if page == 0 && resp.total >= 0 {
			want = resp.total - int64(offset)
		}

		batch, err := decodeRows(resp.body)
		if err != nil {
			return nil, s.fail("decode", err)
		}
		rows = append(rows, batch...)
		if len(batch) < fullScanPageSize {
			break
		}
	}

	if want >= 0 && int64(len(rows)) < want {
		return nil, s.fail("scan", fmt.Errorf("read %d of %d rows", len(rows), want))
	}
	return rows, nil
}

// join resolves each row's category through the per-owner cache.
func (s *TransactionStore) join(ctx context.Context, ownerID string, rows []transactionRow) ([]domain.Transaction, error) {
	categories, hit, err := s.categories.GetOrLoad(ownerID, func() (map[string]domain.Category, error) {
		return s.loadCategories(ctx, ownerID)
	})
	if err != nil {
		return nil, s.fail("categories", err)
	}
	if hit {
		s.metrics.IncrCacheHit(observability.CategoryCache)
	} else {
		s.metrics.IncrCacheMiss(observability.CategoryCache)
	}

	txns := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		tx, err := r.toDomain(categories)
		if err != nil {
			return nil, s.fail("decode", err)
		}
		txns = append(txns, tx)
	}
	return txns, nil
}

func (s *TransactionStore) loadCategories(ctx context.Context, ownerID string) (map[string]domain.Category, error) {
	q := url.Values{}
	q.Set("select", "id,name,type")
	q.Set("user_id", "eq."+ownerID)

	resp, err := s.client.get(ctx, categoriesTable, q, false)
	if err != nil {
		return nil, err
	}

	var rows []categoryRow
	if len(resp.body) > 0 {
		if err := json.Unmarshal(resp.body, &rows); err != nil {
			return nil, fmt.Errorf("failed to decode categories: %w", err)
		}
	}

	out := make(map[string]domain.Category, len(rows))
	for _, r := range rows {
		out[r.ID] = domain.Category{ID: r.ID, Name: r.Name, Type: domain.TransactionType(r.Type)}
	}
	return out, nil
}

func decodeRows(body []byte) ([]transactionRow, error) {
	var rows []transactionRow
	if len(body) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	return rows, nil
}

// fail counts and wraps a store error.
func (s *TransactionStore) fail(op string, err error) error {
	s.metrics.IncrStoreError(Backend)
	s.logger.Warn("supabase: ledger read failed", zap.String("op", op), zap.Error(err))
	return &domain.ErrExternalService{Service: Backend + "/" + op, Err: err}
}
