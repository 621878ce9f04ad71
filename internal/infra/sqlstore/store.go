package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/boddenberg/ledger-insights-go/internal/domain"
	"github.com/boddenberg/ledger-insights-go/internal/infra/observability"
	"github.com/boddenberg/ledger-insights-go/internal/infra/resilience"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("sqlstore")

// rows is the cursor shape shared by pgx.Rows and *sql.Rows.
type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// backend is a connection pool for one driver.
type backend interface {
	query(ctx context.Context, sql string, args ...any) (rows, error)
	queryInt(ctx context.Context, sql string, args ...any) (int64, error)
	exec(ctx context.Context, sql string, args ...any) error
	ping(ctx context.Context) error
	close()
}

// Store implements port.TransactionStore, port.LedgerWriter and
// port.HealthChecker over a SQL backend.
type Store struct {
	dialect Dialect
	db      backend
	guard   *resilience.Guard
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func newStore(d Dialect, db backend, guard *resilience.Guard, metrics *observability.Metrics, logger *zap.Logger) *Store {
	return &Store{
		dialect: d,
		db:      db,
		guard:   guard,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Name implements port.HealthChecker.
func (s *Store) Name() string { return s.dialect.Name }

// Ping implements port.HealthChecker.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() {
	s.db.close()
}

// QueryTransactions returns one filtered page, newest first, and the match count.
func (s *Store) QueryTransactions(ctx context.Context, ownerID string, filter domain.TransactionFilter) ([]domain.Transaction, int64, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.QueryTransactions")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", s.dialect.Name),
		attribute.String("owner.id", ownerID),
	)

	list, count := listStatements(s.dialect, ownerID, filter)

	var (
		txns  []domain.Transaction
		total int64
	)
	err := s.guard.Do(ctx, "query", func(ctx context.Context) error {
		var err error
		if txns, err = s.scan(ctx, list); err != nil {
			return err
		}
		total, err = s.db.queryInt(ctx, count.sql, count.args...)
		return err
	})
	if err != nil {
		return nil, 0, s.fail("query", err)
	}
	return txns, total, nil
}

// QueryAllTransactions returns the owner's full ledger, oldest first.
func (s *Store) QueryAllTransactions(ctx context.Context, ownerID string) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.QueryAllTransactions")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", s.dialect.Name),
		attribute.String("owner.id", ownerID),
	)

	stmt := allStatement(s.dialect, ownerID)

	var txns []domain.Transaction
	err := s.guard.Do(ctx, "scan", func(ctx context.Context) error {
		var err error
		txns, err = s.scan(ctx, stmt)
		return err
	})
	if err != nil {
		return nil, s.fail("scan", err)
	}
	span.SetAttributes(attribute.Int("transactions.count", len(txns)))
	return txns, nil
}

// InsertCategory implements port.LedgerWriter.
func (s *Store) InsertCategory(ctx context.Context, ownerID string, c domain.Category) error {
	stmt := insertCategoryStatement(s.dialect, ownerID, c)
	if err := s.db.exec(ctx, stmt.sql, stmt.args...); err != nil {
		return s.fail("insert_category", err)
	}
	return nil
}

// InsertTransaction implements port.LedgerWriter. A zero CreatedAt is set
// to the current time.
func (s *Store) InsertTransaction(ctx context.Context, tx domain.Transaction) error {
	if !tx.Type.Valid() {
		return &domain.ErrValidation{Field: "type", Message: fmt.Sprintf("unknown transaction type %q", tx.Type)}
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}
	stmt := insertTransactionStatement(s.dialect, tx)
	if err := s.db.exec(ctx, stmt.sql, stmt.args...); err != nil {
		return s.fail("insert_transaction", err)
	}
	return nil
}

// scan runs a select built on selectTransactions. Decode failures are
// permanent.
func (s *Store) scan(ctx context.Context, stmt statement) ([]domain.Transaction, error) {
	rs, err := s.db.query(ctx, stmt.sql, stmt.args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	txns := make([]domain.Transaction, 0)
	for rs.Next() {
		var (
			tx                                domain.Transaction
			typ, amount                       string
			categoryID, description, outletID sql.NullString
			categoryName, categoryType        sql.NullString
			date, createdAt                   any
		)
		if err := rs.Scan(
			&tx.ID, &tx.UserID, &categoryID,
			&amount, &typ, &description, &date, &outletID, &createdAt,
			&categoryName, &categoryType,
		); err != nil {
			return nil, resilience.Permanent(fmt.Errorf("scan transaction: %w", err))
		}

		if tx.Amount, err = domain.ParseAmount(amount); err != nil {
			return nil, resilience.Permanent(fmt.Errorf("transaction %s: %w", tx.ID, err))
		}
		if tx.Date, err = toTime(date); err != nil {
			return nil, resilience.Permanent(fmt.Errorf("transaction %s: date: %w", tx.ID, err))
		}
		if createdAt != nil {
			if tx.CreatedAt, err = toTime(createdAt); err != nil {
				return nil, resilience.Permanent(fmt.Errorf("transaction %s: created_at: %w", tx.ID, err))
			}
		}

		tx.Type = domain.TransactionType(typ)
		tx.CategoryID = categoryID.String
		tx.Description = description.String
		tx.OutletID = outletID.String
		if categoryName.Valid {
			tx.Category = &domain.Category{
				ID:   tx.CategoryID,
				Name: categoryName.String,
				Type: domain.TransactionType(categoryType.String),
			}
		}
		txns = append(txns, tx)
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}
	return txns, nil
}

// toTime converts a scanned date column. pgx yields time.Time; SQLite text
// columns yield string or []byte.
func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return domain.ParseTimestamp(t)
	case []byte:
		return domain.ParseTimestamp(string(t))
	case nil:
		return time.Time{}, fmt.Errorf("null timestamp")
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

// fail counts and wraps a store error.
func (s *Store) fail(op string, err error) error {
	s.metrics.IncrStoreError(s.dialect.Name)
	s.logger.Warn("sqlstore: ledger access failed",
		zap.String("backend", s.dialect.Name),
		zap.String("op", op),
		zap.Error(err),
	)
	return &domain.ErrExternalService{Service: s.dialect.Name + "/" + op, Err: err}
}
