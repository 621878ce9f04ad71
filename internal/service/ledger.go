package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/ledger-insights-go/internal/domain"
	"github.com/boddenberg/ledger-insights-go/internal/infra/observability"
	"github.com/boddenberg/ledger-insights-go/internal/ledger"
	"github.com/boddenberg/ledger-insights-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/ledger")

// Page size bounds for ListTransactions.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// LedgerService reads an owner's ledger from the store and runs the
// aggregations in package ledger over it.
type LedgerService struct {
	store   port.TransactionStore
	now     func() time.Time
	loc     *time.Location
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewLedgerService creates the service with all dependencies injected.
// now is the clock; calendar days are taken in loc.
func NewLedgerService(
	store port.TransactionStore,
	now func() time.Time,
	loc *time.Location,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *LedgerService {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &LedgerService{
		store:   store,
		now:     now,
		loc:     loc,
		metrics: metrics,
		logger:  logger,
	}
}

// Location is the zone calendar days are computed in.
func (s *LedgerService) Location() *time.Location {
	return s.loc
}

// GetDashboardStats reads the full ledger and the trailing week concurrently
// and folds them into the dashboard snapshot.
func (s *LedgerService) GetDashboardStats(ctx context.Context, ownerID string) (*domain.DashboardStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "LedgerService.GetDashboardStats")
	defer span.End()
	span.SetAttributes(attribute.String("owner.id", ownerID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("dashboard", time.Since(start))
	}()

	if ownerID == "" {
		return nil, &domain.ErrValidation{Field: "ownerId", Message: "required"}
	}

	now := s.now().In(s.loc)
	weekStart := ledger.WeeklyWindowStart(now)

	var all, weekly []domain.Transaction

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t, err := s.store.QueryAllTransactions(gCtx, ownerID)
		if err != nil {
			s.logger.Error("failed to read ledger",
				zap.String("owner_id", ownerID),
				observability.TraceID(gCtx),
				zap.Error(err),
			)
			return fmt.Errorf("ledger read: %w", err)
		}
		all = t
		return nil
	})

	g.Go(func() error {
		t, _, err := s.store.QueryTransactions(gCtx, ownerID, domain.TransactionFilter{StartDate: &weekStart})
		if err != nil {
			s.logger.Error("failed to read weekly transactions",
				zap.String("owner_id", ownerID),
				observability.TraceID(gCtx),
				zap.Time("since", weekStart),
				zap.Error(err),
			)
			return fmt.Errorf("weekly read: %w", err)
		}
		weekly = t
		return nil
	})

	if err := g.Wait(); err != nil {
		s.metrics.IncrAggregation(observability.KindDashboard, "error")
		return nil, err
	}

	stats := ledger.ComputeDashboardStats(all, weekly, now)

	s.metrics.IncrAggregation(observability.KindDashboard, "success")
	s.metrics.AddTransactionsScanned(observability.KindDashboard, len(all)+len(weekly))
	span.SetAttributes(attribute.Int("transactions.count", len(all)))

	s.logger.Debug("dashboard computed",
		zap.String("owner_id", ownerID),
		zap.Int("transactions", len(all)),
		zap.Int("weekly_transactions", len(weekly)),
	)
	return stats, nil
}

// GetFinancialReport folds the transactions dated within [StartDate, EndDate]
// (optionally for one outlet) into a report.
func (s *LedgerService) GetFinancialReport(ctx context.Context, ownerID string, params domain.ReportParams) (*domain.FinancialReport, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.GetFinancialReport")
	defer span.End()
	span.SetAttributes(
		attribute.String("owner.id", ownerID),
		attribute.String("report.start", params.StartDate.Format(time.RFC3339)),
		attribute.String("report.end", params.EndDate.Format(time.RFC3339)),
	)

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("report", time.Since(start))
	}()

	if ownerID == "" {
		return nil, &domain.ErrValidation{Field: "ownerId", Message: "required"}
	}
	if params.StartDate.IsZero() || params.EndDate.IsZero() {
		return nil, &domain.ErrValidation{Field: "startDate", Message: "startDate and endDate are required"}
	}
	if params.StartDate.After(params.EndDate) {
		return nil, &domain.ErrValidation{Field: "startDate", Message: "must not be after endDate"}
	}

	txns, _, err := s.store.QueryTransactions(ctx, ownerID, domain.TransactionFilter{
		StartDate: &params.StartDate,
		EndDate:   &params.EndDate,
		OutletID:  params.OutletID,
	})
	if err != nil {
		s.metrics.IncrAggregation(observability.KindReport, "error")
		s.logger.Error("failed to read report range",
			zap.String("owner_id", ownerID),
			observability.TraceID(ctx),
			zap.Error(err),
		)
		return nil, fmt.Errorf("report read: %w", err)
	}

	report := ledger.BuildFinancialReport(txns, params)

	s.metrics.IncrAggregation(observability.KindReport, "success")
	s.metrics.AddTransactionsScanned(observability.KindReport, len(txns))
	return report, nil
}

// ListTransactions returns one page of the owner's transactions, newest first.
// A non-positive limit means DefaultPageSize; larger than MaxPageSize is capped.
func (s *LedgerService) ListTransactions(ctx context.Context, ownerID string, filter domain.TransactionFilter) (*domain.TransactionPage, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.ListTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("owner.id", ownerID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("transactions", time.Since(start))
	}()

	if ownerID == "" {
		return nil, &domain.ErrValidation{Field: "ownerId", Message: "required"}
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, &domain.ErrValidation{Field: "type", Message: "must be income or expense"}
	}
	if filter.Offset < 0 {
		return nil, &domain.ErrValidation{Field: "offset", Message: "must not be negative"}
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.StartDate.After(*filter.EndDate) {
		return nil, &domain.ErrValidation{Field: "startDate", Message: "must not be after endDate"}
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = DefaultPageSize
	case filter.Limit > MaxPageSize:
		filter.Limit = MaxPageSize
	}

	txns, total, err := s.store.QueryTransactions(ctx, ownerID, filter)
	if err != nil {
		s.metrics.IncrAggregation(observability.KindTransactions, "error")
		return nil, fmt.Errorf("transactions read: %w", err)
	}

	s.metrics.IncrAggregation(observability.KindTransactions, "success")
	s.metrics.AddTransactionsScanned(observability.KindTransactions, len(txns))
	return domain.NewTransactionPage(txns, total, filter.Limit, filter.Offset), nil
}
