package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/ledger-insights-go/internal/config"
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

// store is what the server needs from a backend.
type store interface {
	port.TransactionStore
	port.HealthChecker
}

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.String("business_timezone", cfg.BusinessTimezone),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
	)

	ctx := context.Background()

	// --- Tracing ---
	shutdown, err := observability.InitTracer(ctx, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	guard := resilience.NewGuard(cfg.StoreBackend, resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	})

	// --- Store ---
	st, closeStore, err := openStore(ctx, cfg, guard, metrics, logger)
	if err != nil {
		logger.Fatal("failed to open transaction store",
			zap.String("store_backend", cfg.StoreBackend),
			zap.Error(err),
		)
	}
	defer closeStore()

	// --- Services ---
	ledgerSvc := service.NewLedgerService(st, time.Now, cfg.Location(), metrics, logger)
	verifier := service.NewTokenVerifier([]byte(cfg.JWTSecret))

	// --- Router ---
	router := handler.NewRouter(ledgerSvc, verifier, []port.HealthChecker{st}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// openStore builds the configured backend. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, guard *resilience.Guard, metrics *observability.Metrics, logger *zap.Logger) (store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendSupabase:
		logger.Info("using Supabase as transaction store", zap.String("supabase_url", cfg.SupabaseURL))
		httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
		client := supabase.NewClient(httpClient, cfg.SupabaseURL, cfg.SupabaseServiceKey, guard, logger)
		categories := cache.New[map[string]domain.Category](cfg.CacheTTL)
		return supabase.NewTransactionStore(client, categories, metrics, logger), categories.Stop, nil

	case config.BackendPostgres:
		s, err := sqlstore.OpenPostgres(ctx, cfg.DatabaseURL, guard, metrics, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case config.BackendSQLite:
		s, err := sqlstore.OpenSQLite(ctx, cfg.SQLitePath, guard, metrics, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
