package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonhee/sweep/internal/contracts"
)

// testPool connects to the database named by DATABASE_URL and bootstraps
// the schema. Integration tests skip under -short or without a URL.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	// Skip if running in CI without database
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := pgxpool.New(context.Background(), connString)
	require.NoError(t, err, "database connection failed")
	t.Cleanup(db.Close)

	require.NoError(t, EnsureSchema(context.Background(), db))
	return db
}

func TestPriceStore_RoundTrip(t *testing.T) {
	db := testPool(t)
	ctx := context.Background()
	s := NewPriceStore(db)

	code := "TEST-PS-001"
	t.Cleanup(func() {
		db.Exec(ctx, "DELETE FROM daily_prices WHERE code = $1", code)
	})

	_, ok, err := s.LastKnownDate(ctx, code)
	require.NoError(t, err)
	assert.False(t, ok, "unknown code must report no stored bars")

	bars := []contracts.Bar{
		{Date: time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), Open: 100, High: 102, Low: 99, Close: 101, Volume: 1000},
		{Date: time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), Open: 101, High: 104, Low: 100, Close: 103, Volume: 1200},
		{Date: time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), Open: 103, High: 105, Low: 102, Close: 104, Volume: 900},
	}
	require.NoError(t, s.UpsertBars(ctx, code, bars))

	// Re-upserting the same window plus one new bar only adds the new bar
	more := append(bars[1:], contracts.Bar{
		Date: time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), Open: 104, High: 106, Low: 103, Close: 105, Volume: 1100,
	})
	require.NoError(t, s.UpsertBars(ctx, code, more))

	series, err := s.LoadHistory(ctx, code)
	require.NoError(t, err)
	require.Len(t, series, 4)
	assert.True(t, series.IsSorted())
	assert.Equal(t, 101.0, series[0].Close)
	assert.Equal(t, 105.0, series[3].Close)

	date, ok, err := s.LastKnownDate(ctx, code)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), date.UTC())
}

func TestScanHistoryStore_IdempotentRecord(t *testing.T) {
	db := testPool(t)
	ctx := context.Background()
	s := NewScanHistoryStore(db)

	scanDate := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	code := "TEST-SH-001"
	t.Cleanup(func() {
		db.Exec(ctx, "DELETE FROM scan_history WHERE code = $1", code)
	})

	m := contracts.Match{
		ScanDate:   scanDate,
		StrategyID: "turtle",
		Code:       code,
		Name:       "통합테스트",
		Market:     "KOSPI",
		EntryPrice: 50000,
	}
	require.NoError(t, s.RecordMatch(ctx, m))
	// Same tuple again: duplicate key is silently ignored
	require.NoError(t, s.RecordMatch(ctx, m))

	matches, err := s.MatchesOn(ctx, scanDate)
	require.NoError(t, err)

	count := 0
	for _, got := range matches {
		if got.Code == code {
			count++
			assert.Equal(t, "turtle", got.StrategyID)
			assert.Equal(t, 50000.0, got.EntryPrice)
			assert.Equal(t, "KOSPI", got.Market)
		}
	}
	assert.Equal(t, 1, count, "duplicate RecordMatch must not add rows")

	dates, err := s.DistinctDates(ctx)
	require.NoError(t, err)
	found := false
	for _, d := range dates {
		if d.UTC().Equal(scanDate) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestStrategyStatsStore_UpsertReplaces(t *testing.T) {
	db := testPool(t)
	ctx := context.Background()
	s := NewStrategyStatsStore(db)

	id := "test-stat-strategy"
	t.Cleanup(func() {
		db.Exec(ctx, "DELETE FROM strategy_stats WHERE strategy_id = $1", id)
	})

	require.NoError(t, s.UpsertStats(ctx, []contracts.StrategyStat{
		{StrategyID: id, Wins: 2, Total: 3, WinRate: 2.0 / 3.0},
	}))

	rates, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, rates[id], 1e-9)

	// A later scan replaces the aggregate outright
	require.NoError(t, s.UpsertStats(ctx, []contracts.StrategyStat{
		{StrategyID: id, Wins: 5, Total: 8, WinRate: 0.625},
	}))

	rates, err = s.ReadAll(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.625, rates[id], 1e-9)
}
