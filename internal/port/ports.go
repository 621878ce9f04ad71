// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/ledger-insights-go/internal/domain"
)

// TransactionStore reads an owner's ledger. Every implementation joins each
// transaction with its category; Category is nil when it cannot be resolved.
type TransactionStore interface {
	// QueryTransactions returns the transactions matching filter, newest
	// first, plus the total number of matches ignoring Limit and Offset.
	QueryTransactions(ctx context.Context, ownerID string, filter domain.TransactionFilter) ([]domain.Transaction, int64, error)

	// QueryAllTransactions returns the owner's full ledger, oldest first.
	QueryAllTransactions(ctx context.Context, ownerID string) ([]domain.Transaction, error)
}

// LedgerWriter inserts ledger rows. Only the SQL stores implement it; the
// seeding tool and tests use it to populate a database.
type LedgerWriter interface {
	InsertCategory(ctx context.Context, ownerID string, c domain.Category) error
	InsertTransaction(ctx context.Context, tx domain.Transaction) error
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Name() string
	Ping(ctx context.Context) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	// GetOrLoad returns the cached value for key, calling load and caching
	// its result on a miss. hit reports whether load was skipped.
	GetOrLoad(key string, load func() (T, error)) (value T, hit bool, err error)
}
