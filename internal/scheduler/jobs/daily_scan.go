package jobs

import (
	"context"
	"fmt"

	"github.com/wonhee/sweep/internal/contracts"
	"github.com/wonhee/sweep/internal/scan"
	"github.com/wonhee/sweep/pkg/logger"
)

// UniverseSource lists the scannable instruments for the chosen markets
type UniverseSource interface {
	Universe(ctx context.Context, markets []string) ([]contracts.Instrument, error)
}

// DailyScanJob runs the full-market scan after the daily close
// ⭐ SSOT: 일일 스캔 스케줄은 이 Job에서만
type DailyScanJob struct {
	orchestrator *scan.Orchestrator
	universe     UniverseSource
	markets      []string
	logger       *logger.Logger
}

// NewDailyScanJob creates a new daily scan job
func NewDailyScanJob(orchestrator *scan.Orchestrator, universe UniverseSource, markets []string, log *logger.Logger) *DailyScanJob {
	return &DailyScanJob{
		orchestrator: orchestrator,
		universe:     universe,
		markets:      markets,
		logger:       log,
	}
}

// Name returns the job name
func (j *DailyScanJob) Name() string {
	return "daily_scan"
}

// Schedule returns the cron schedule (weekdays 5 PM KST, after close)
func (j *DailyScanJob) Schedule() string {
	return "0 0 17 * * 1-5"
}

// Run executes the scheduled scan with every strategy enabled
func (j *DailyScanJob) Run(ctx context.Context) error {
	universe, err := j.universe.Universe(ctx, j.markets)
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}
	if len(universe) == 0 {
		return fmt.Errorf("universe is empty for markets %v", j.markets)
	}

	session, err := j.orchestrator.Run(ctx, universe, nil)
	if err != nil {
		return fmt.Errorf("run scan: %w", err)
	}

	done, failed, total := session.Progress()
	j.logger.WithFields(map[string]interface{}{
		"session": session.ID,
		"status":  session.Status(),
		"done":    done,
		"failed":  failed,
		"total":   total,
		"matched": len(session.Results()),
	}).Info("Scheduled scan finished")

	return nil
}
