package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonhee/sweep/internal/contracts"
	"github.com/wonhee/sweep/internal/indicator"
	"github.com/wonhee/sweep/internal/scan"
	"github.com/wonhee/sweep/internal/strategy"
	"github.com/wonhee/sweep/pkg/config"
	"github.com/wonhee/sweep/pkg/logger"
)

type memHistory struct {
	mu      sync.Mutex
	matches []contracts.Match
}

func (s *memHistory) RecordMatch(ctx context.Context, m contracts.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches = append(s.matches, m)
	return nil
}

func (s *memHistory) DistinctDates(ctx context.Context) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[time.Time]bool{}
	var out []time.Time
	for _, m := range s.matches {
		if !seen[m.ScanDate] {
			seen[m.ScanDate] = true
			out = append(out, m.ScanDate)
		}
	}
	return out, nil
}

func (s *memHistory) MatchesOn(ctx context.Context, date time.Time) ([]contracts.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []contracts.Match
	for _, m := range s.matches {
		if m.ScanDate.Equal(date) {
			out = append(out, m)
		}
	}
	return out, nil
}

type memStats struct {
	mu    sync.Mutex
	rates map[string]float64
}

func (s *memStats) UpsertStats(ctx context.Context, stats []contracts.StrategyStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rates == nil {
		s.rates = map[string]float64{}
	}
	for _, st := range stats {
		s.rates[st.StrategyID] = st.WinRate
	}
	return nil
}

func (s *memStats) ReadAll(ctx context.Context) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.rates))
	for k, v := range s.rates {
		out[k] = v
	}
	return out, nil
}

type memSource struct {
	series contracts.PriceSeries
}

func (s *memSource) History(ctx context.Context, code string) (contracts.PriceSeries, error) {
	return s.series, nil
}

type memUniverse struct {
	instruments []contracts.Instrument
}

func (s *memUniverse) Universe(ctx context.Context, markets []string) ([]contracts.Instrument, error) {
	return s.instruments, nil
}

// matchAll fires on every frame
type matchAll struct{}

func (matchAll) ID() string                             { return "always" }
func (matchAll) Name() string                           { return "Always" }
func (matchAll) SignalScore(f *indicator.Frame) float64 { return 90 }
func (matchAll) Backtest(f *indicator.Frame) []bool {
	out := make([]bool, f.Len())
	for i := range out {
		out[i] = true
	}
	return out
}
func (matchAll) DeepDive(f *indicator.Frame) strategy.DeepDive {
	return strategy.DeepDive{State: strategy.StateHold}
}
func (matchAll) Report(r *contracts.ScanResult) string { return "always on" }

func flatSeries(n int) contracts.PriceSeries {
	base := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	series := make(contracts.PriceSeries, n)
	for i := range series {
		series[i] = contracts.Bar{
			Date: base.AddDate(0, 0, i),
			Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000,
		}
	}
	return series
}

func newTestOrchestrator(history contracts.ScanHistoryStore, stats contracts.StrategyStatsStore) *scan.Orchestrator {
	cfg := config.ScanConfig{Workers: 2, TaskTimeout: time.Second, MinBars: 60, ChartBars: 30}
	reg := strategy.Registry{matchAll{}}
	return scan.New(cfg, &memSource{series: flatSeries(60)}, history, stats, reg, logger.NewNop())
}

func TestScanHandler_StatusIdleBeforeFirstRun(t *testing.T) {
	h := NewScanHandler(newTestOrchestrator(&memHistory{}, &memStats{}), &memUniverse{}, logger.NewNop())

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/scan/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "IDLE", body["status"])
}

func TestScanHandler_StartRunsAndRecords(t *testing.T) {
	history := &memHistory{}
	stats := &memStats{}
	o := newTestOrchestrator(history, stats)
	universe := &memUniverse{instruments: []contracts.Instrument{
		{Code: "005930", Name: "Alpha", Market: "KOSPI"},
	}}
	h := NewScanHandler(o, universe, logger.NewNop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/scan", strings.NewReader(`{"markets":["KOSPI"]}`))
	h.Start(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	// The scan runs in the background
	require.Eventually(t, func() bool {
		s := o.Current()
		return s != nil && s.Status() == scan.StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	results := o.Current().Results()
	require.Len(t, results, 1)
	assert.Equal(t, "005930", results[0].Code)
	assert.Len(t, history.matches, 1)

	// Results endpoint serves the finished session
	rec = httptest.NewRecorder()
	h.Results(rec, httptest.NewRequest(http.MethodGet, "/api/scan/results", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"005930"`)
}

func TestScanHandler_StartEmptyUniverse(t *testing.T) {
	h := NewScanHandler(newTestOrchestrator(&memHistory{}, &memStats{}), &memUniverse{}, logger.NewNop())

	rec := httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest(http.MethodPost, "/api/scan", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestScanHandler_StopWithoutScan(t *testing.T) {
	h := NewScanHandler(newTestOrchestrator(&memHistory{}, &memStats{}), &memUniverse{}, logger.NewNop())

	rec := httptest.NewRecorder()
	h.Stop(rec, httptest.NewRequest(http.MethodPost, "/api/scan/stop", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHistoryHandler_DatesAndByDate(t *testing.T) {
	history := &memHistory{}
	scanDate := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	history.RecordMatch(context.Background(), contracts.Match{
		ScanDate: scanDate, StrategyID: "turtle", Code: "005930", Name: "Alpha", EntryPrice: 70000, Market: "KOSPI",
	})

	h := NewHistoryHandler(history, &memStats{}, logger.NewNop())

	rec := httptest.NewRecorder()
	h.Dates(rec, httptest.NewRequest(http.MethodGet, "/api/history/dates", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2026-08-28")

	rec = httptest.NewRecorder()
	h.ByDate(rec, httptest.NewRequest(http.MethodGet, "/api/history?date=2026-08-28", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"turtle"`)
	assert.Contains(t, rec.Body.String(), `"005930"`)

	rec = httptest.NewRecorder()
	h.ByDate(rec, httptest.NewRequest(http.MethodGet, "/api/history?date=notadate", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryHandler_Stats(t *testing.T) {
	stats := &memStats{}
	stats.UpsertStats(context.Background(), []contracts.StrategyStat{
		{StrategyID: "turtle", Wins: 2, Total: 3, WinRate: 2.0 / 3.0},
	})

	h := NewHistoryHandler(&memHistory{}, stats, logger.NewNop())

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		WinRates map[string]float64 `json:"win_rates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.InDelta(t, 2.0/3.0, body.WinRates["turtle"], 1e-9)
}
