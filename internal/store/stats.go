package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonhee/sweep/internal/contracts"
)

// StrategyStatsStore keeps one aggregate win-rate row per strategy
type StrategyStatsStore struct {
	db *pgxpool.Pool
}

// NewStrategyStatsStore creates the Postgres-backed stats store
func NewStrategyStatsStore(db *pgxpool.Pool) *StrategyStatsStore {
	return &StrategyStatsStore{db: db}
}

// UpsertStats replaces each strategy's aggregate row
func (s *StrategyStatsStore) UpsertStats(ctx context.Context, stats []contracts.StrategyStat) error {
	if len(stats) == 0 {
		return nil
	}

	query := `
		INSERT INTO strategy_stats (strategy_id, wins, total, win_rate, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (strategy_id) DO UPDATE SET
			wins = EXCLUDED.wins,
			total = EXCLUDED.total,
			win_rate = EXCLUDED.win_rate,
			updated_at = NOW()
	`

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, st := range stats {
		if _, err := tx.Exec(ctx, query, st.StrategyID, st.Wins, st.Total, st.WinRate); err != nil {
			return fmt.Errorf("upsert stats for %s: %w", st.StrategyID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// ReadAll returns strategy_id -> win rate for every stored strategy
func (s *StrategyStatsStore) ReadAll(ctx context.Context) (map[string]float64, error) {
	query := `SELECT strategy_id, win_rate FROM strategy_stats`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query strategy stats: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var id string
		var rate float64
		if err := rows.Scan(&id, &rate); err != nil {
			return nil, fmt.Errorf("scan strategy stat: %w", err)
		}
		out[id] = rate
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strategy stats: %w", err)
	}

	return out, nil
}
