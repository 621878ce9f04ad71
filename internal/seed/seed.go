// Package seed fills a ledger with demo data for local development.
package seed

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/boddenberg/ledger-insights-go/internal/domain"
	"github.com/boddenberg/ledger-insights-go/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCategories is the demo chart of accounts for a small food outlet.
var DefaultCategories = []domain.Category{
	{Name: "Penjualan", Type: domain.TransactionIncome},
	{Name: "Katering", Type: domain.TransactionIncome},
	{Name: "Bahan Baku", Type: domain.TransactionExpense},
	{Name: "Gaji Karyawan", Type: domain.TransactionExpense},
	{Name: "Sewa", Type: domain.TransactionExpense},
	{Name: "Listrik & Air", Type: domain.TransactionExpense},
}

// Options controls what Ledger generates.
type Options struct {
	OwnerID  string
	OutletID string
	Days     int
	Now      time.Time
	Seed     uint64
}

// Result summarizes a seeding run.
type Result struct {
	Categories   int
	Transactions int
	Balance      decimal.Decimal
}

// Ledger writes the default categories and Days days of transactions ending
// at Now. Everything written, ids included, is a function of Seed and Now.
func Ledger(ctx context.Context, w port.LedgerWriter, opts Options) (*Result, error) {
	if opts.OwnerID == "" {
		return nil, &domain.ErrValidation{Field: "owner", Message: "required"}
	}
	if opts.Days <= 0 {
		return nil, &domain.ErrValidation{Field: "days", Message: "must be positive"}
	}

	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], opts.Seed)
	src := rand.NewChaCha8(key)
	rng := rand.New(src)
	newID := func() (string, error) {
		id, err := uuid.NewRandomFromReader(src)
		if err != nil {
			return "", fmt.Errorf("generate id: %w", err)
		}
		return id.String(), nil
	}

	res := &Result{Balance: decimal.Zero}

	byName := make(map[string]domain.Category, len(DefaultCategories))
	for _, c := range DefaultCategories {
		id, err := newID()
		if err != nil {
			return nil, err
		}
		c.ID = id
		if err := w.InsertCategory(ctx, opts.OwnerID, c); err != nil {
			return nil, fmt.Errorf("insert category %s: %w", c.Name, err)
		}
		byName[c.Name] = c
		res.Categories++
	}

	add := func(category string, amount int64, date time.Time, description string) error {
		c := byName[category]
		id, err := newID()
		if err != nil {
			return err
		}
		tx := domain.Transaction{
			ID:          id,
			UserID:      opts.OwnerID,
			CategoryID:  c.ID,
			Amount:      decimal.NewFromInt(amount),
			Type:        c.Type,
			Description: description,
			Date:        date,
			OutletID:    opts.OutletID,
			CreatedAt:   date,
		}
		if err := w.InsertTransaction(ctx, tx); err != nil {
			return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
		}
		if tx.IsIncome() {
			res.Balance = res.Balance.Add(tx.Amount)
		} else {
			res.Balance = res.Balance.Sub(tx.Amount)
		}
		res.Transactions++
		return nil
	}

	start := opts.Now.AddDate(0, 0, -opts.Days+1)
	for i := 0; i < opts.Days; i++ {
		day := time.Date(start.Year(), start.Month(), start.Day()+i, 0, 0, 0, 0, opts.Now.Location())

		// Amounts are whole rupiah rounded to the nearest 500.
		if err := add("Penjualan", roundTo(500_000+rng.Int64N(1_500_000), 500), day.Add(20*time.Hour), "Penjualan harian"); err != nil {
			return nil, err
		}
		if err := add("Bahan Baku", roundTo(150_000+rng.Int64N(350_000), 500), day.Add(7*time.Hour), "Belanja bahan baku"); err != nil {
			return nil, err
		}
		if rng.IntN(7) == 0 {
			if err := add("Katering", roundTo(1_000_000+rng.Int64N(2_000_000), 500), day.Add(13*time.Hour), "Pesanan katering"); err != nil {
				return nil, err
			}
		}
		if rng.IntN(10) == 0 {
			if err := add("Listrik & Air", roundTo(200_000+rng.Int64N(300_000), 500), day.Add(10*time.Hour), "Tagihan utilitas"); err != nil {
				return nil, err
			}
		}
		switch day.Day() {
		case 1:
			if err := add("Sewa", 3_000_000, day.Add(9*time.Hour), "Sewa tempat"); err != nil {
				return nil, err
			}
		case 25:
			if err := add("Gaji Karyawan", 6_500_000, day.Add(17*time.Hour), "Gaji bulanan"); err != nil {
				return nil, err
			}
		}
	}

	return res, nil
}

func roundTo(v, step int64) int64 {
	return (v + step/2) / step * step
}
