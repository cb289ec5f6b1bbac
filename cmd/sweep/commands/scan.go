package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonhee/sweep/internal/scan"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "전체 시장 스캔 실행",
	Long: `선택한 시장 전체를 대상으로 전략 스캔을 실행합니다.

이 명령어는:
- 종목 마스터 조회 (캐시 활용)
- 오래된 일봉 데이터 갱신
- 전 종목 지표 계산 및 전략 평가
- 매칭 결과 저장 및 승률 집계

Example:
  go run ./cmd/sweep scan
  go run ./cmd/sweep scan --markets KOSPI --strategies turtle,bnf`,
	RunE: runScan,
}

var (
	scanMarkets    []string
	scanStrategies []string
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringSliceVar(&scanMarkets, "markets", nil, "대상 시장 (기본: KOSPI,KOSDAQ)")
	scanCmd.Flags().StringSliceVar(&scanStrategies, "strategies", nil, "사용할 전략 ID (기본: 전체)")
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Sweep Market Scan ===")

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	markets := splitMarkets(scanMarkets)
	universe, err := a.cacher.Universe(ctx, markets)
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}
	fmt.Printf("대상: %d개 종목 (%s)\n\n", len(universe), strings.Join(markets, ", "))

	session, err := a.orchestrator.Run(ctx, universe, scanStrategies)
	if err != nil {
		return fmt.Errorf("run scan: %w", err)
	}

	printScanOutcome(session)
	return nil
}

func printScanOutcome(session *scan.Session) {
	done, failed, total := session.Progress()
	results := session.Results()

	fmt.Printf("스캔 %s: %d/%d 처리 (실패 %d)\n", session.Status(), done, total, failed)
	if len(results) == 0 {
		fmt.Println("조건에 맞는 종목이 없습니다.")
		return
	}

	fmt.Printf("\n✅ %d개 종목 포착\n\n", len(results))
	fmt.Printf("%-8s %-16s %-8s %-28s %s\n", "코드", "종목명", "시장", "전략", "과거승률")
	for _, r := range results {
		ids := make([]string, len(r.Matched))
		for i, m := range r.Matched {
			ids[i] = m.StrategyID
		}
		fmt.Printf("%-8s %-16s %-8s %-28s %s\n",
			r.Code, r.Name, r.Market, strings.Join(ids, ","), r.Backtest.String())
	}
}
