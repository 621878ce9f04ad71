package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"

	"github.com/boddenberg/ledger-insights-go/internal/infra/observability"
	"github.com/boddenberg/ledger-insights-go/internal/infra/resilience"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"modernc.org/sqlite"
)

func init() {
	if err := sqlite.RegisterDeterministicScalarFunction("fold_case", 1, foldCase); err != nil {
		panic("sqlstore: register fold_case: " + err.Error())
	}
}

// foldCase is the SQL function fold_case(text): Unicode case folding, so
// "ÉCLAIR" and "éclair" compare equal. NULL stays NULL.
func foldCase(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return cases.Fold().String(v), nil
	case []byte:
		return cases.Fold().String(string(v)), nil
	default:
		return v, nil
	}
}

// OpenSQLite opens (creating if needed) the database file at path, applies
// migrations and returns a Store over it.
func OpenSQLite(ctx context.Context, path string, guard *resilience.Guard, metrics *observability.Metrics, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(path); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	logger.Info("sqlite store ready", zap.String("path", path))
	return newStore(SQLite, &sqlBackend{db: db}, guard, metrics, logger), nil
}

func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

type sqlBackend struct {
	db *sql.DB
}

// sqlRows adapts *sql.Rows to rows.
type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() { _ = r.Rows.Close() }

func (b *sqlBackend) query(ctx context.Context, query string, args ...any) (rows, error) {
	rs, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{rs}, nil
}

func (b *sqlBackend) queryInt(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	err := b.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func (b *sqlBackend) exec(ctx context.Context, query string, args ...any) error {
	_, err := b.db.ExecContext(ctx, query, args...)
	return err
}

func (b *sqlBackend) ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *sqlBackend) close() {
	_ = b.db.Close()
}
