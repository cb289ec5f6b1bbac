package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonhee/sweep/internal/contracts"
)

// PriceStore persists daily bars in Postgres.
// ⭐ SSOT: 일봉 저장은 이 저장소에서만
type PriceStore struct {
	db *pgxpool.Pool
}

// NewPriceStore creates the Postgres-backed price cache
func NewPriceStore(db *pgxpool.Pool) *PriceStore {
	return &PriceStore{db: db}
}

// LastKnownDate returns the newest stored trade date for a code
func (s *PriceStore) LastKnownDate(ctx context.Context, code string) (time.Time, bool, error) {
	query := `
		SELECT trade_date
		FROM daily_prices
		WHERE code = $1
		ORDER BY trade_date DESC
		LIMIT 1
	`

	var date time.Time
	err := s.db.QueryRow(ctx, query, code).Scan(&date)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query last trade date for %s: %w", code, err)
	}

	return date, true, nil
}

// LoadHistory returns the full stored history, ascending by date
func (s *PriceStore) LoadHistory(ctx context.Context, code string) (contracts.PriceSeries, error) {
	query := `
		SELECT trade_date, open, high, low, close, volume
		FROM daily_prices
		WHERE code = $1
		ORDER BY trade_date ASC
	`

	rows, err := s.db.Query(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("query history for %s: %w", code, err)
	}
	defer rows.Close()

	var series contracts.PriceSeries
	for rows.Next() {
		var b contracts.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar for %s: %w", code, err)
		}
		series = append(series, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history for %s: %w", code, err)
	}

	return series, nil
}

// UpsertBars inserts new bars, ignoring rows whose (code, trade_date)
// already exist. Concurrent duplicate fetches therefore cannot corrupt
// stored history.
func (s *PriceStore) UpsertBars(ctx context.Context, code string, bars []contracts.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	query := `
		INSERT INTO daily_prices (code, trade_date, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (code, trade_date) DO NOTHING
	`

	// Batch insert using transactions
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, b := range bars {
		_, err := tx.Exec(ctx, query,
			code, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume,
		)
		if err != nil {
			return fmt.Errorf("insert bar %s/%s: %w", code, b.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
