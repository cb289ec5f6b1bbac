package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonhee/sweep/internal/contracts"
	"github.com/wonhee/sweep/pkg/config"
	"github.com/wonhee/sweep/pkg/logger"
	"github.com/wonhee/sweep/pkg/redis"
)

type fakePriceStore struct {
	last     time.Time
	hasLast  bool
	history  contracts.PriceSeries
	upserted []contracts.Bar
}

func (s *fakePriceStore) LastKnownDate(ctx context.Context, code string) (time.Time, bool, error) {
	return s.last, s.hasLast, nil
}

func (s *fakePriceStore) LoadHistory(ctx context.Context, code string) (contracts.PriceSeries, error) {
	return s.history, nil
}

func (s *fakePriceStore) UpsertBars(ctx context.Context, code string, bars []contracts.Bar) error {
	s.upserted = append(s.upserted, bars...)
	return nil
}

type fakeBarFetcher struct {
	bars  []contracts.Bar
	calls int
	from  time.Time
}

func (f *fakeBarFetcher) FetchSince(ctx context.Context, code string, from time.Time) ([]contracts.Bar, error) {
	f.calls++
	f.from = from
	return f.bars, nil
}

type fakeMasterFetcher struct {
	byMarket map[string][]contracts.Instrument
	calls    int
}

func (f *fakeMasterFetcher) FetchMaster(ctx context.Context, market string) ([]contracts.Instrument, error) {
	f.calls++
	return f.byMarket[market], nil
}

func disabledCache(t *testing.T) *redis.Cache {
	t.Helper()
	client, err := redis.New(&config.Config{})
	require.NoError(t, err)
	return redis.NewCache(client, "sweep-test")
}

func newTestCacher(prices *fakePriceStore, bars *fakeBarFetcher, master *fakeMasterFetcher, t *testing.T) *Cacher {
	cfg := config.FetchConfig{
		Staleness:    24 * time.Hour,
		LookbackDays: 365,
	}
	return NewCacher(prices, bars, master, disabledCache(t), cfg, logger.NewNop())
}

func TestNeedsRefresh(t *testing.T) {
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	staleness := 24 * time.Hour

	tests := []struct {
		name string
		last time.Time
		ok   bool
		want bool
	}{
		{"no stored bars", time.Time{}, false, true},
		{"fresh from yesterday evening", now.Add(-20 * time.Hour), true, false},
		{"stale after a long weekend", now.Add(-72 * time.Hour), true, true},
		{"exactly at the boundary", now.Add(-24 * time.Hour), true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, needsRefresh(tt.last, tt.ok, now, staleness))
		})
	}
}

func TestHistory_FreshStoreSkipsFetch(t *testing.T) {
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	prices := &fakePriceStore{
		last:    now.Add(-15 * time.Hour),
		hasLast: true,
		history: contracts.PriceSeries{{Date: now.Add(-15 * time.Hour), Close: 100}},
	}
	bars := &fakeBarFetcher{}

	c := newTestCacher(prices, bars, &fakeMasterFetcher{}, t)
	c.now = func() time.Time { return now }

	series, err := c.History(context.Background(), "005930")
	require.NoError(t, err)
	assert.Len(t, series, 1)
	assert.Zero(t, bars.calls, "fresh history must not hit the source")
}

func TestHistory_StaleStoreResumesAfterTail(t *testing.T) {
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	tail := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	prices := &fakePriceStore{last: tail, hasLast: true}
	bars := &fakeBarFetcher{bars: []contracts.Bar{
		{Date: time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), Close: 101},
	}}

	c := newTestCacher(prices, bars, &fakeMasterFetcher{}, t)
	c.now = func() time.Time { return now }

	_, err := c.History(context.Background(), "005930")
	require.NoError(t, err)

	assert.Equal(t, 1, bars.calls)
	assert.Equal(t, tail.AddDate(0, 0, 1), bars.from, "refresh resumes the day after the stored tail")
	assert.Len(t, prices.upserted, 1)
}

func TestHistory_UnknownCodeFetchesLookback(t *testing.T) {
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	prices := &fakePriceStore{}
	bars := &fakeBarFetcher{bars: []contracts.Bar{
		{Date: now.AddDate(0, 0, -1), Close: 100},
	}}

	c := newTestCacher(prices, bars, &fakeMasterFetcher{}, t)
	c.now = func() time.Time { return now }

	_, err := c.History(context.Background(), "000660")
	require.NoError(t, err)

	assert.Equal(t, 1, bars.calls)
	assert.Equal(t, now.AddDate(0, 0, -365), bars.from, "new codes pull the full lookback window")
}

func TestUniverse_MergesMarketsAndDeduplicates(t *testing.T) {
	master := &fakeMasterFetcher{byMarket: map[string][]contracts.Instrument{
		"KOSPI": {
			{Code: "005930", Name: "삼성전자", Market: "KOSPI"},
			{Code: "000660", Name: "SK하이닉스", Market: "KOSPI"},
		},
		"KOSDAQ": {
			{Code: "035720", Name: "카카오", Market: "KOSDAQ"},
			{Code: "005930", Name: "삼성전자", Market: "KOSDAQ"}, // duplicate code
		},
	}}

	c := newTestCacher(&fakePriceStore{}, &fakeBarFetcher{}, master, t)

	universe, err := c.Universe(context.Background(), []string{"KOSPI", "KOSDAQ"})
	require.NoError(t, err)
	require.Len(t, universe, 3)
	assert.Equal(t, "005930", universe[0].Code)
	assert.Equal(t, "KOSPI", universe[0].Market, "first market wins on duplicate codes")
	assert.Equal(t, 2, master.calls)
}
