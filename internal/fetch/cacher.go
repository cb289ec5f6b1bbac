package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/wonhee/sweep/internal/contracts"
	"github.com/wonhee/sweep/pkg/config"
	"github.com/wonhee/sweep/pkg/logger"
	"github.com/wonhee/sweep/pkg/redis"
)

// Cacher is the read-through layer between the scan pipeline and the
// market-data source: stored history is served as-is while fresh, and
// topped up from the chart API when stale or missing. The instrument
// master is memoized in Redis between scans.
// ⭐ SSOT: 데이터 신선도 판단은 이 레이어에서만
type Cacher struct {
	prices contracts.PriceStore
	bars   contracts.BarFetcher
	master contracts.MasterFetcher
	cache  *redis.Cache
	logger *logger.Logger

	staleness    time.Duration
	lookbackDays int

	now func() time.Time
}

// NewCacher wires the read-through layer
func NewCacher(
	prices contracts.PriceStore,
	bars contracts.BarFetcher,
	master contracts.MasterFetcher,
	cache *redis.Cache,
	cfg config.FetchConfig,
	log *logger.Logger,
) *Cacher {
	return &Cacher{
		prices:       prices,
		bars:         bars,
		master:       master,
		cache:        cache,
		logger:       log.WithField("module", "cacher"),
		staleness:    cfg.Staleness,
		lookbackDays: cfg.LookbackDays,
		now:          time.Now,
	}
}

// History returns ready-to-scan history for one code, refreshing first
// when the stored tail is older than the staleness window
func (c *Cacher) History(ctx context.Context, code string) (contracts.PriceSeries, error) {
	if err := c.ensureFresh(ctx, code); err != nil {
		return nil, err
	}
	return c.prices.LoadHistory(ctx, code)
}

func (c *Cacher) ensureFresh(ctx context.Context, code string) error {
	last, ok, err := c.prices.LastKnownDate(ctx, code)
	if err != nil {
		return fmt.Errorf("check freshness for %s: %w", code, err)
	}

	now := c.now()
	if !needsRefresh(last, ok, now, c.staleness) {
		return nil
	}

	from := now.AddDate(0, 0, -c.lookbackDays)
	if ok {
		// Resume the day after the stored tail
		from = last.AddDate(0, 0, 1)
	}

	bars, err := c.bars.FetchSince(ctx, code, from)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", code, err)
	}
	if len(bars) == 0 {
		return nil
	}

	if err := c.prices.UpsertBars(ctx, code, bars); err != nil {
		return fmt.Errorf("store refreshed bars for %s: %w", code, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"code":  code,
		"count": len(bars),
	}).Debug("Refreshed history")

	return nil
}

// needsRefresh decides whether stored history must be topped up before a
// scan may read it
func needsRefresh(last time.Time, ok bool, now time.Time, staleness time.Duration) bool {
	if !ok {
		return true
	}
	return now.Sub(last) > staleness
}

// Universe lists the scannable instruments across markets, deduplicated
// by code. Each market's master list is memoized in Redis so back-to-back
// scans skip the scrape.
func (c *Cacher) Universe(ctx context.Context, markets []string) ([]contracts.Instrument, error) {
	var universe []contracts.Instrument
	seen := make(map[string]bool)

	for _, market := range markets {
		var instruments []contracts.Instrument
		err := c.cache.GetOrSet(ctx, redis.MasterKey(market), &instruments, redis.TTLMaster,
			func() (interface{}, error) {
				return c.master.FetchMaster(ctx, market)
			})
		if err != nil {
			return nil, fmt.Errorf("load master for %s: %w", market, err)
		}

		for _, inst := range instruments {
			if !seen[inst.Code] {
				seen[inst.Code] = true
				universe = append(universe, inst)
			}
		}
	}

	return universe, nil
}
