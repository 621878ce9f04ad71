package sqlstore

import (
	"context"
	"fmt"

	"github.com/boddenberg/ledger-insights-go/internal/infra/observability"
	"github.com/boddenberg/ledger-insights-go/internal/infra/resilience"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// OpenPostgres connects a pgx pool and returns a Store over it. The schema
// is expected to exist.
func OpenPostgres(ctx context.Context, dsn string, guard *resilience.Guard, metrics *observability.Metrics, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("postgres store ready",
		zap.String("host", pool.Config().ConnConfig.Host),
		zap.String("database", pool.Config().ConnConfig.Database),
	)
	return newStore(Postgres, &pgxBackend{pool: pool}, guard, metrics, logger), nil
}

type pgxBackend struct {
	pool *pgxpool.Pool
}

func (b *pgxBackend) query(ctx context.Context, sql string, args ...any) (rows, error) {
	return b.pool.Query(ctx, sql, args...)
}

func (b *pgxBackend) queryInt(ctx context.Context, sql string, args ...any) (int64, error) {
	var n int64
	err := b.pool.QueryRow(ctx, sql, args...).Scan(&n)
	return n, err
}

func (b *pgxBackend) exec(ctx context.Context, sql string, args ...any) error {
	_, err := b.pool.Exec(ctx, sql, args...)
	return err
}

func (b *pgxBackend) ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

func (b *pgxBackend) close() {
	b.pool.Close()
}
