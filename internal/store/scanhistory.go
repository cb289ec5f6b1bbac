package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonhee/sweep/internal/contracts"
)

// ScanHistoryStore persists matched signals per scan date
type ScanHistoryStore struct {
	db *pgxpool.Pool
}

// NewScanHistoryStore creates the Postgres-backed scan history
func NewScanHistoryStore(db *pgxpool.Pool) *ScanHistoryStore {
	return &ScanHistoryStore{db: db}
}

// RecordMatch inserts one match; re-running the same scan day is a no-op
func (s *ScanHistoryStore) RecordMatch(ctx context.Context, m contracts.Match) error {
	query := `
		INSERT INTO scan_history (scan_date, strategy_id, code, name, market, entry_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (scan_date, strategy_id, code) DO NOTHING
	`

	_, err := s.db.Exec(ctx, query,
		m.ScanDate, m.StrategyID, m.Code, m.Name, m.Market, m.EntryPrice,
	)
	if err != nil {
		return fmt.Errorf("insert match %s/%s: %w", m.StrategyID, m.Code, err)
	}

	return nil
}

// DistinctDates lists scan dates with at least one match, newest first
func (s *ScanHistoryStore) DistinctDates(ctx context.Context) ([]time.Time, error) {
	query := `
		SELECT DISTINCT scan_date
		FROM scan_history
		ORDER BY scan_date DESC
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query scan dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scan dates: %w", err)
	}

	return dates, nil
}

// MatchesOn returns every match recorded on one scan date
func (s *ScanHistoryStore) MatchesOn(ctx context.Context, date time.Time) ([]contracts.Match, error) {
	query := `
		SELECT scan_date, strategy_id, code, name, market, entry_price
		FROM scan_history
		WHERE scan_date = $1
		ORDER BY strategy_id, code
	`

	rows, err := s.db.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("query matches on %s: %w", date.Format("2006-01-02"), err)
	}
	defer rows.Close()

	var matches []contracts.Match
	for rows.Next() {
		var m contracts.Match
		if err := rows.Scan(&m.ScanDate, &m.StrategyID, &m.Code, &m.Name, &m.Market, &m.EntryPrice); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}

	return matches, nil
}
