package jobs

import (
	"context"
	"fmt"
	"sort"

	"github.com/wonhee/sweep/internal/contracts"
	"github.com/wonhee/sweep/pkg/logger"
)

// forwardBars is the holding window used to settle a recorded match:
// a signal wins when the close 5 bars after its scan date is higher
// than the recorded entry price.
const forwardBars = 5

// StatsRefreshJob resettles every recorded match against stored prices
// and rewrites the aggregate per-strategy win rates. Matches younger
// than the holding window stay pending and are not counted.
// ⭐ SSOT: 승률 재정산은 이 Job에서만
type StatsRefreshJob struct {
	history contracts.ScanHistoryStore
	prices  contracts.PriceStore
	stats   contracts.StrategyStatsStore
	logger  *logger.Logger
}

// NewStatsRefreshJob creates a new stats refresh job
func NewStatsRefreshJob(history contracts.ScanHistoryStore, prices contracts.PriceStore, stats contracts.StrategyStatsStore, log *logger.Logger) *StatsRefreshJob {
	return &StatsRefreshJob{
		history: history,
		prices:  prices,
		stats:   stats,
		logger:  log,
	}
}

// Name returns the job name
func (j *StatsRefreshJob) Name() string {
	return "stats_refresh"
}

// Schedule returns the cron schedule (weekdays 5:30 PM KST, after the
// daily scan has topped up prices)
func (j *StatsRefreshJob) Schedule() string {
	return "0 30 17 * * 1-5"
}

// Run resettles all recorded matches
func (j *StatsRefreshJob) Run(ctx context.Context) error {
	dates, err := j.history.DistinctDates(ctx)
	if err != nil {
		return fmt.Errorf("list scan dates: %w", err)
	}

	histories := make(map[string]contracts.PriceSeries)
	agg := make(map[string]*contracts.StrategyStat)
	pending := 0

	for _, date := range dates {
		matches, err := j.history.MatchesOn(ctx, date)
		if err != nil {
			return fmt.Errorf("load matches on %s: %w", date.Format("2006-01-02"), err)
		}

		for _, m := range matches {
			series, ok := histories[m.Code]
			if !ok {
				series, err = j.prices.LoadHistory(ctx, m.Code)
				if err != nil {
					return fmt.Errorf("load history for %s: %w", m.Code, err)
				}
				histories[m.Code] = series
			}

			outcome, settled := settleMatch(series, m)
			if !settled {
				pending++
				continue
			}

			st, ok := agg[m.StrategyID]
			if !ok {
				st = &contracts.StrategyStat{StrategyID: m.StrategyID}
				agg[m.StrategyID] = st
			}
			st.Total++
			if outcome {
				st.Wins++
			}
		}
	}

	if len(agg) == 0 {
		j.logger.WithField("pending", pending).Info("No settled matches to aggregate")
		return nil
	}

	stats := make([]contracts.StrategyStat, 0, len(agg))
	for _, st := range agg {
		st.WinRate = float64(st.Wins) / float64(st.Total)
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].StrategyID < stats[j].StrategyID })

	if err := j.stats.UpsertStats(ctx, stats); err != nil {
		return fmt.Errorf("upsert strategy stats: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"strategies": len(stats),
		"pending":    pending,
	}).Info("Strategy stats refreshed")

	return nil
}

// settleMatch resolves one recorded match against stored history.
// settled is false while fewer than 5 bars exist past the scan date.
func settleMatch(series contracts.PriceSeries, m contracts.Match) (win, settled bool) {
	idx := -1
	for i, b := range series {
		if !b.Date.Before(m.ScanDate) {
			idx = i
			break
		}
	}
	if idx < 0 || idx+forwardBars >= len(series) {
		return false, false
	}

	return series[idx+forwardBars].Close > m.EntryPrice, true
}
