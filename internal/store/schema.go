package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements bootstrap the tables the scanner persists into.
// Idempotent; safe to run on every startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS daily_prices (
		code        TEXT             NOT NULL,
		trade_date  DATE             NOT NULL,
		open        DOUBLE PRECISION NOT NULL,
		high        DOUBLE PRECISION NOT NULL,
		low         DOUBLE PRECISION NOT NULL,
		close       DOUBLE PRECISION NOT NULL,
		volume      DOUBLE PRECISION NOT NULL,
		created_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
		PRIMARY KEY (code, trade_date)
	)`,
	`CREATE TABLE IF NOT EXISTS scan_history (
		scan_date   DATE             NOT NULL,
		strategy_id TEXT             NOT NULL,
		code        TEXT             NOT NULL,
		name        TEXT             NOT NULL DEFAULT '',
		market      TEXT             NOT NULL DEFAULT '',
		entry_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
		PRIMARY KEY (scan_date, strategy_id, code)
	)`,
	`CREATE TABLE IF NOT EXISTS strategy_stats (
		strategy_id TEXT             PRIMARY KEY,
		wins        INTEGER          NOT NULL DEFAULT 0,
		total       INTEGER          NOT NULL DEFAULT 0,
		win_rate    DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the persistence tables when missing
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
