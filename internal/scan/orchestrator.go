package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonhee/sweep/internal/contracts"
	"github.com/wonhee/sweep/internal/indicator"
	"github.com/wonhee/sweep/internal/strategy"
	"github.com/wonhee/sweep/pkg/config"
	"github.com/wonhee/sweep/pkg/logger"
)

// HistorySource yields ready-to-scan price history for one code. The
// fetch layer implements it by refreshing stale data before loading from
// the store; tests implement it in memory.
type HistorySource interface {
	History(ctx context.Context, code string) (contracts.PriceSeries, error)
}

// ErrScanInProgress is returned when a second scan is started while one
// is still running
var ErrScanInProgress = errors.New("scan already in progress")

// ProgressFunc receives progress ticks while a scan runs
type ProgressFunc func(v View)

// Orchestrator fans a universe of instruments across a bounded worker
// pool, runs the per-instrument pipeline, and persists the outcome of
// completed (non-aborted) scans.
// ⭐ SSOT: 스캔 오케스트레이션은 이 패키지에서만
type Orchestrator struct {
	cfg      config.ScanConfig
	source   HistorySource
	history  contracts.ScanHistoryStore
	stats    contracts.StrategyStatsStore
	registry strategy.Registry
	logger   *logger.Logger

	onProgress ProgressFunc

	mu      sync.Mutex
	current *Session
}

// New creates an Orchestrator
func New(
	cfg config.ScanConfig,
	source HistorySource,
	history contracts.ScanHistoryStore,
	stats contracts.StrategyStatsStore,
	registry strategy.Registry,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		source:   source,
		history:  history,
		stats:    stats,
		registry: registry,
		logger:   log.WithField("module", "scan"),
	}
}

// SetProgressFunc registers a callback invoked after every finished task
func (o *Orchestrator) SetProgressFunc(fn ProgressFunc) {
	o.onProgress = fn
}

// Current returns the most recent session, nil before the first scan
func (o *Orchestrator) Current() *Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Stop requests cancellation of the running session. Returns false when
// nothing is running.
func (o *Orchestrator) Stop() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil || o.current.Status() != StatusRunning {
		return false
	}
	o.current.Stop()
	return true
}

// taskResult is one worker's verdict on one instrument
type taskResult struct {
	code    string
	result  *contracts.ScanResult
	records []contracts.BacktestRecord // one per matched strategy
	err     error
}

// Run scans the universe with the strategies named by strategyIDs (empty
// means all) and returns the finished session. Blocking; callers wanting
// a background scan run it in a goroutine and poll Current().
func (o *Orchestrator) Run(ctx context.Context, universe []contracts.Instrument, strategyIDs []string) (*Session, error) {
	strategies := o.registry.Subset(strategyIDs)
	if len(strategies) == 0 {
		return nil, fmt.Errorf("no strategies matched %v", strategyIDs)
	}

	o.mu.Lock()
	if o.current != nil && o.current.Status() == StatusRunning {
		o.mu.Unlock()
		return nil, ErrScanInProgress
	}
	session := NewSession(fmt.Sprintf("scan-%d", time.Now().UnixNano()), len(universe))
	o.current = session
	o.mu.Unlock()

	o.logger.WithFields(map[string]interface{}{
		"session":    session.ID,
		"universe":   len(universe),
		"strategies": strategies.IDs(),
		"workers":    o.cfg.Workers,
	}).Info("Starting scan")

	taskCh := make(chan contracts.Instrument, len(universe))
	resultCh := make(chan taskResult, len(universe))

	var wg sync.WaitGroup
	for i := 0; i < o.cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			o.worker(ctx, workerID, session, strategies, taskCh, resultCh)
		}(i)
	}

	for _, inst := range universe {
		taskCh <- inst
	}
	close(taskCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	agg := make(map[string]*contracts.StrategyStat)
	for res := range resultCh {
		session.markDone(res.err != nil)

		if res.err != nil {
			o.logger.WithError(res.err).WithField("code", res.code).Warn("Scan task failed")
		} else if res.result != nil && !session.Stopped() {
			session.addResult(*res.result)
			for _, rec := range res.records {
				st, ok := agg[rec.StrategyID]
				if !ok {
					st = &contracts.StrategyStat{StrategyID: rec.StrategyID}
					agg[rec.StrategyID] = st
				}
				st.Wins += rec.Wins
				st.Total += rec.Total
			}
		}

		if o.onProgress != nil {
			o.onProgress(session.View())
		}
	}

	if session.Stopped() || ctx.Err() != nil {
		session.finish(StatusAborted)
		o.logger.WithField("session", session.ID).Warn("Scan aborted, skipping persistence")
		return session, nil
	}

	session.finish(StatusCompleted)

	if err := o.persist(ctx, session, agg); err != nil {
		return session, fmt.Errorf("persist scan outcome: %w", err)
	}

	done, failed, total := session.Progress()
	o.logger.WithFields(map[string]interface{}{
		"session": session.ID,
		"done":    done,
		"failed":  failed,
		"total":   total,
		"matched": len(session.Results()),
	}).Info("Scan completed")

	return session, nil
}

// worker drains taskCh, honoring the stop flag between tasks
func (o *Orchestrator) worker(ctx context.Context, workerID int, session *Session, strategies strategy.Registry, taskCh <-chan contracts.Instrument, resultCh chan<- taskResult) {
	for inst := range taskCh {
		if session.Stopped() {
			resultCh <- taskResult{code: inst.Code}
			continue
		}
		select {
		case <-ctx.Done():
			resultCh <- taskResult{code: inst.Code, err: ctx.Err()}
			continue
		default:
		}

		taskCtx, cancel := context.WithTimeout(ctx, o.cfg.TaskTimeout)
		res := o.scanOne(taskCtx, inst, strategies)
		cancel()

		if res.result != nil {
			o.logger.WithFields(map[string]interface{}{
				"worker": workerID,
				"code":   inst.Code,
				"top":    res.result.TopStrategy(),
			}).Debug("Signal matched")
		}

		resultCh <- res
	}
}

// scanOne runs the per-instrument pipeline: history, indicators,
// strategy evaluation, ranking, win-rate and chart payload. A quiet
// instrument returns an empty result, not an error.
func (o *Orchestrator) scanOne(ctx context.Context, inst contracts.Instrument, strategies strategy.Registry) taskResult {
	series, err := o.source.History(ctx, inst.Code)
	if err != nil {
		return taskResult{code: inst.Code, err: fmt.Errorf("load history: %w", err)}
	}
	if len(series) < o.cfg.MinBars {
		// Thin listings are skipped, never failed
		return taskResult{code: inst.Code}
	}

	frame, err := indicator.Compute(series)
	if err != nil {
		if errors.Is(err, indicator.ErrInsufficientHistory) {
			return taskResult{code: inst.Code}
		}
		return taskResult{code: inst.Code, err: fmt.Errorf("compute indicators: %w", err)}
	}

	var matched []contracts.SignalScore
	for _, s := range strategies {
		if score := s.SignalScore(frame); score > 0 {
			matched = append(matched, contracts.SignalScore{StrategyID: s.ID(), Score: score})
		}
	}
	if len(matched) == 0 {
		return taskResult{code: inst.Code}
	}

	// Rank strongest first; registry order breaks ties
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Score > matched[j].Score
	})

	records := make([]contracts.BacktestRecord, 0, len(matched))
	for _, m := range matched {
		s, _ := strategies.ByID(m.StrategyID)
		records = append(records, strategy.WinRate(frame, s))
	}

	top, _ := strategies.ByID(matched[0].StrategyID)

	result := &contracts.ScanResult{
		Code:      inst.Code,
		Name:      inst.Name,
		Market:    inst.Market,
		LastClose: frame.Close.Last(),
		Matched:   matched,
		Backtest:  records[0],
		Snapshot:  frame.Snapshot(),
		Chart:     frame.ChartWindow(o.cfg.ChartBars),
	}
	result.TopReport = top.Report(result)

	return taskResult{code: inst.Code, result: result, records: records}
}

// persist writes the completed session's matches and refreshed strategy
// aggregates. RecordMatch is idempotent on (scan_date, strategy_id,
// code), so a re-run of the same calendar day cannot duplicate rows.
func (o *Orchestrator) persist(ctx context.Context, session *Session, agg map[string]*contracts.StrategyStat) error {
	scanDate := session.StartedAt.Truncate(24 * time.Hour)

	for _, r := range session.Results() {
		for _, m := range r.Matched {
			match := contracts.Match{
				ScanDate:   scanDate,
				StrategyID: m.StrategyID,
				Code:       r.Code,
				Name:       r.Name,
				EntryPrice: r.LastClose,
				Market:     r.Market,
			}
			if err := o.history.RecordMatch(ctx, match); err != nil {
				return fmt.Errorf("record match %s/%s: %w", m.StrategyID, r.Code, err)
			}
		}
	}

	if len(agg) == 0 {
		return nil
	}

	stats := make([]contracts.StrategyStat, 0, len(agg))
	for _, st := range agg {
		if st.Total > 0 {
			st.WinRate = float64(st.Wins) / float64(st.Total)
		}
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].StrategyID < stats[j].StrategyID })

	if err := o.stats.UpsertStats(ctx, stats); err != nil {
		return fmt.Errorf("upsert strategy stats: %w", err)
	}

	return nil
}
