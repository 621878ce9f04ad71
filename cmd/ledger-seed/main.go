// Command ledger-seed creates a local SQLite ledger with demo data and prints
// a bearer token for its owner.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/boddenberg/ledger-insights-go/internal/config"
	"github.com/boddenberg/ledger-insights-go/internal/infra/observability"
	"github.com/boddenberg/ledger-insights-go/internal/infra/resilience"
	"github.com/boddenberg/ledger-insights-go/internal/infra/sqlstore"
	"github.com/boddenberg/ledger-insights-go/internal/seed"
	"github.com/boddenberg/ledger-insights-go/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	_ = config.LoadDotEnv(".env")
	cfg := config.Load()

	dbPath := flag.String("db", cfg.SQLitePath, "SQLite database file")
	owner := flag.String("owner", "", "owner id (random when empty)")
	outlet := flag.String("outlet", "", "outlet id stamped on every transaction")
	days := flag.Int("days", 60, "days of history to generate")
	rngSeed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "random seed")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed token")
	flag.Parse()

	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if *owner == "" {
		*owner = uuid.NewString()
	}

	ctx := context.Background()
	guard := resilience.NewGuard("seed", resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: 1,
	})

	store, err := sqlstore.OpenSQLite(ctx, *dbPath, guard, observability.NewMetrics(), logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.String("path", *dbPath), zap.Error(err))
	}
	defer store.Close()

	res, err := seed.Ledger(ctx, store, seed.Options{
		OwnerID:  *owner,
		OutletID: *outlet,
		Days:     *days,
		Now:      time.Now().In(cfg.Location()),
		Seed:     *rngSeed,
	})
	if err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}

	logger.Info("ledger seeded",
		zap.String("path", *dbPath),
		zap.String("owner_id", *owner),
		zap.Int("categories", res.Categories),
		zap.Int("transactions", res.Transactions),
		zap.String("balance", res.Balance.String()),
	)

	token, err := service.NewTokenVerifier([]byte(cfg.JWTSecret)).SignAccessToken(*owner, *tokenTTL)
	if err != nil {
		logger.Fatal("failed to sign token", zap.Error(err))
	}
	fmt.Println(token)
}
