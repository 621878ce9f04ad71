package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/ledger-insights-go/internal/domain"
	"github.com/boddenberg/ledger-insights-go/internal/infra/resilience"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return nil
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_RetriesOnFailure(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     2,
		InitialBackoff: 10 * time.Millisecond,
	}

	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
}

func TestRetryWithBackoff_RespectsContext(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     5,
		InitialBackoff: 1 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := resilience.RetryWithBackoff(ctx, cfg, func() error {
		return errors.New("error")
	})

	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	bh := resilience.NewBulkhead(2)

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}

	// Third acquire should block until the context times out
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := bh.Acquire(ctx)
	if err == nil {
		t.Fatal("expected timeout on third acquire")
	}

	// Release one slot
	bh.Release()

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
}

func TestRetryWithBackoff_StopsOnPermanent(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     5,
		InitialBackoff: 10 * time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return resilience.Permanent(errors.New("bad request"))
	})

	if !resilience.IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_ZeroBackoff(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 2}

	callCount := 0
	_ = resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return errors.New("error")
	})

	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestGuard_UnwrapsPermanent(t *testing.T) {
	g := resilience.NewGuard("sqlite", resilience.Config{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxConcurrency: 2})
	sentinel := &domain.ErrValidation{Field: "amount", Message: "bad"}

	err := g.Do(context.Background(), "query", func(_ context.Context) error {
		return resilience.Permanent(sentinel)
	})

	var valErr *domain.ErrValidation
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ErrValidation, got %T: %v", err, err)
	}
	if resilience.IsPermanent(err) {
		t.Error("expected permanent wrapper to be removed")
	}
}

func TestGuard_OpensCircuit(t *testing.T) {
	g := resilience.NewGuard("postgres", resilience.Config{MaxRetries: 0, MaxConcurrency: 1})

	for i := 0; i < 5; i++ {
		_ = g.Do(context.Background(), "query", func(_ context.Context) error {
			return errors.New("connection refused")
		})
	}

	calls := 0
	err := g.Do(context.Background(), "query", func(_ context.Context) error {
		calls++
		return nil
	})

	var cbErr *domain.ErrCircuitOpen
	if !errors.As(err, &cbErr) {
		t.Fatalf("expected ErrCircuitOpen, got %T: %v", err, err)
	}
	if cbErr.Service != "postgres" {
		t.Errorf("expected service postgres, got %s", cbErr.Service)
	}
	if calls != 0 {
		t.Errorf("expected fn not to run while open, got %d calls", calls)
	}
}

func TestGuard_DeadlineBecomesTimeout(t *testing.T) {
	g := resilience.NewGuard("supabase", resilience.Config{MaxRetries: 0, MaxConcurrency: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := g.Do(ctx, "query", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	var toErr *domain.ErrTimeout
	if !errors.As(err, &toErr) {
		t.Fatalf("expected ErrTimeout, got %T: %v", err, err)
	}
	if toErr.Operation != "supabase.query" {
		t.Errorf("unexpected operation %q", toErr.Operation)
	}
}
