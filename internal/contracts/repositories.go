package contracts

import (
	"context"
	"time"
)

// PriceStore is the historical-price cache boundary.
// UpsertBars must be idempotent on primary key (code, date): concurrent
// duplicate fetches for the same code must not corrupt stored data.
type PriceStore interface {
	// LastKnownDate returns the most recent stored trade date for a code.
	// ok is false when no bars are stored at all.
	LastKnownDate(ctx context.Context, code string) (date time.Time, ok bool, err error)

	// LoadHistory returns the full stored history, ascending by date
	LoadHistory(ctx context.Context, code string) (PriceSeries, error)

	// UpsertBars inserts new bars, ignoring duplicates
	UpsertBars(ctx context.Context, code string, bars []Bar) error
}

// BarFetcher pulls new daily bars from the external market-data source.
// The scan core never calls this directly; it goes through the caching
// fetch layer which merges results into the PriceStore first.
type BarFetcher interface {
	FetchSince(ctx context.Context, code string, from time.Time) ([]Bar, error)
}

// MasterFetcher lists scannable instruments per market
type MasterFetcher interface {
	FetchMaster(ctx context.Context, market string) ([]Instrument, error)
}

// ScanHistoryStore persists matched signals for later win-rate reporting.
// RecordMatch is an idempotent insert keyed (scan_date, strategy_id, code).
type ScanHistoryStore interface {
	RecordMatch(ctx context.Context, m Match) error
	DistinctDates(ctx context.Context) ([]time.Time, error)
	MatchesOn(ctx context.Context, date time.Time) ([]Match, error)
}

// StrategyStatsStore keeps per-strategy aggregate win rates
type StrategyStatsStore interface {
	UpsertStats(ctx context.Context, stats []StrategyStat) error
	ReadAll(ctx context.Context) (map[string]float64, error)
}
