package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonhee/sweep/internal/api"
	"github.com/wonhee/sweep/internal/api/handlers"
	"github.com/wonhee/sweep/internal/scheduler"
	"github.com/wonhee/sweep/internal/scheduler/jobs"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 + 스케줄러 시작",
	Long: `REST API 서버와 일일 스캔 스케줄러를 시작합니다.

Endpoints:
  GET  /health             - Health check
  POST /api/scan           - 스캔 시작
  POST /api/scan/stop      - 스캔 중단
  GET  /api/scan/status    - 진행 상황
  GET  /api/scan/results   - 최근 결과
  GET  /api/history/dates  - 스캔 기록 날짜
  GET  /api/history        - 날짜별 기록 (?date=YYYY-MM-DD)
  GET  /api/stats          - 전략별 승률
  GET  /ws/scan            - 진행 상황 푸시 (websocket)

Example:
  go run ./cmd/sweep serve
  go run ./cmd/sweep serve --port 8080 --no-scheduler`,
	RunE: runServe,
}

var (
	servePort    string
	noScheduler  bool
	serveMarkets []string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (기본: PORT 환경변수)")
	serveCmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "일일 스캔 스케줄러 비활성화")
	serveCmd.Flags().StringSliceVar(&serveMarkets, "markets", nil, "스케줄 스캔 대상 시장 (기본: KOSPI,KOSDAQ)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort != "" {
		a.cfg.Port = servePort
	}

	// Progress hub feeds websocket clients
	hub := handlers.NewHub(a.log)
	a.orchestrator.SetProgressFunc(hub.Broadcast)

	scanHandler := handlers.NewScanHandler(a.orchestrator, a.cacher, a.log)
	historyHandler := handlers.NewHistoryHandler(a.history, a.stats, a.log)

	router := api.NewRouter(scanHandler, historyHandler, hub, a.log)
	server := api.New(a.cfg, a.log, router)

	// Scheduler: daily scan at close, stats resettlement after
	var sched *scheduler.Scheduler
	if !noScheduler {
		sched = scheduler.New(a.log)
		markets := splitMarkets(serveMarkets)
		if err := sched.AddJob(jobs.NewDailyScanJob(a.orchestrator, a.cacher, markets, a.log)); err != nil {
			return err
		}
		if err := sched.AddJob(jobs.NewStatsRefreshJob(a.history, a.prices, a.stats, a.log)); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	a.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
