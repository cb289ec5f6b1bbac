package commands

import (
	"context"
	"fmt"

	"github.com/wonhee/sweep/internal/fetch"
	"github.com/wonhee/sweep/internal/scan"
	"github.com/wonhee/sweep/internal/store"
	"github.com/wonhee/sweep/internal/strategy"
	"github.com/wonhee/sweep/pkg/config"
	"github.com/wonhee/sweep/pkg/database"
	"github.com/wonhee/sweep/pkg/httputil"
	"github.com/wonhee/sweep/pkg/logger"
	"github.com/wonhee/sweep/pkg/redis"
)

// app bundles the wired components every command starts from
type app struct {
	cfg *config.Config
	log *logger.Logger
	db  *database.DB
	rdb *redis.Client

	prices  *store.PriceStore
	history *store.ScanHistoryStore
	stats   *store.StrategyStatsStore

	cacher       *fetch.Cacher
	orchestrator *scan.Orchestrator
}

// newApp loads configuration and wires the full dependency graph
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := store.EnsureSchema(ctx, db.Pool); err != nil {
		db.Close()
		return nil, err
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	httpClient := httputil.New(log, cfg.Fetch.Timeout).WithRateLimit(cfg.Fetch.RatePerSec)

	prices := store.NewPriceStore(db.Pool)
	history := store.NewScanHistoryStore(db.Pool)
	stats := store.NewStrategyStatsStore(db.Pool)

	chart := fetch.NewChartClient(httpClient, cfg.Fetch, log)
	master := fetch.NewMasterClient(httpClient, cfg.Fetch, log)
	cache := redis.NewCache(rdb, "sweep")
	cacher := fetch.NewCacher(prices, chart, master, cache, cfg.Fetch, log)

	orchestrator := scan.New(cfg.Scan, cacher, history, stats, strategy.DefaultRegistry(), log)

	return &app{
		cfg:          cfg,
		log:          log,
		db:           db,
		rdb:          rdb,
		prices:       prices,
		history:      history,
		stats:        stats,
		cacher:       cacher,
		orchestrator: orchestrator,
	}, nil
}

// Close releases the app's connections
func (a *app) Close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// splitMarkets normalizes the --markets flag
func splitMarkets(markets []string) []string {
	if len(markets) == 0 {
		return []string{"KOSPI", "KOSDAQ"}
	}
	return markets
}
