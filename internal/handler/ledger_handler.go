package handler

import (
	"net/http"
	"strconv"

	"github.com/boddenberg/ledger-insights-go/internal/domain"
	"github.com/boddenberg/ledger-insights-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Dashboard, reports and the transaction list
// ============================================================

type reportQuery struct {
	StartDate string `query:"startDate" validate:"required"`
	EndDate   string `query:"endDate" validate:"required"`
	OutletID  string `query:"outletId" validate:"omitempty,max=64"`
}

type listQuery struct {
	StartDate  string `query:"startDate"`
	EndDate    string `query:"endDate"`
	CategoryID string `query:"categoryId" validate:"omitempty,max=64"`
	Type       string `query:"type" validate:"omitempty,oneof=income expense"`
	Search     string `query:"search" validate:"max=100"`
	OutletID   string `query:"outletId" validate:"omitempty,max=64"`
	Limit      int    `query:"limit" validate:"gte=0"`
	Offset     int    `query:"offset" validate:"gte=0"`
}

func dashboardStatsHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/dashboard/stats")
		defer span.End()

		ownerID := OwnerIDFromContext(ctx)
		span.SetAttributes(attribute.String("owner.id", ownerID))

		stats, err := svc.GetDashboardStats(ctx, ownerID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, stats)
	}
}

func financialReportHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/reports/financial")
		defer span.End()

		q := r.URL.Query()
		req := reportQuery{
			StartDate: q.Get("startDate"),
			EndDate:   q.Get("endDate"),
			OutletID:  q.Get("outletId"),
		}
		if err := validate.Struct(req); err != nil {
			writeValidationErrors(w, err)
			return
		}

		loc := svc.Location()
		start, err := parseDate("startDate", req.StartDate, loc, false)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		end, err := parseDate("endDate", req.EndDate, loc, true)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		ownerID := OwnerIDFromContext(ctx)
		span.SetAttributes(
			attribute.String("owner.id", ownerID),
			attribute.String("report.start", req.StartDate),
			attribute.String("report.end", req.EndDate),
		)

		report, err := svc.GetFinancialReport(ctx, ownerID, domain.ReportParams{
			StartDate: start,
			EndDate:   end,
			OutletID:  req.OutletID,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, report)
	}
}

func listTransactionsHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/transactions")
		defer span.End()

		q := r.URL.Query()
		req := listQuery{
			StartDate:  q.Get("startDate"),
			EndDate:    q.Get("endDate"),
			CategoryID: q.Get("categoryId"),
			Type:       q.Get("type"),
			Search:     q.Get("search"),
			OutletID:   q.Get("outletId"),
		}

		var err error
		if req.Limit, err = queryInt(q.Get("limit"), "limit"); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if req.Offset, err = queryInt(q.Get("offset"), "offset"); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := validate.Struct(req); err != nil {
			writeValidationErrors(w, err)
			return
		}

		filter := domain.TransactionFilter{
			CategoryID: req.CategoryID,
			Type:       domain.TransactionType(req.Type),
			Search:     req.Search,
			OutletID:   req.OutletID,
			Limit:      req.Limit,
			Offset:     req.Offset,
		}

		loc := svc.Location()
		if req.StartDate != "" {
			start, err := parseDate("startDate", req.StartDate, loc, false)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			filter.StartDate = &start
		}
		if req.EndDate != "" {
			end, err := parseDate("endDate", req.EndDate, loc, true)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			filter.EndDate = &end
		}

		ownerID := OwnerIDFromContext(ctx)
		span.SetAttributes(attribute.String("owner.id", ownerID))

		page, err := svc.ListTransactions(ctx, ownerID, filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		span.SetAttributes(attribute.Int64("transactions.total", page.Total))
		writeJSON(w, http.StatusOK, page)
	}
}

// queryInt parses an optional integer parameter; empty is zero.
func queryInt(value, field string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &domain.ErrValidation{Field: field, Message: "must be an integer"}
	}
	return n, nil
}
