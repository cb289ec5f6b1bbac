package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "일봉 데이터 미리 수집",
	Long: `스캔 전에 일봉 데이터를 미리 수집해 둡니다.

--codes 가 주어지면 해당 종목만, 아니면 시장 전체 종목의
오래된 일봉을 갱신합니다. 이미 신선한 종목은 건너뜁니다.

Example:
  go run ./cmd/sweep fetch --codes 005930,000660
  go run ./cmd/sweep fetch --markets KOSDAQ`,
	RunE: runFetch,
}

var (
	fetchCodes   []string
	fetchMarkets []string
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringSliceVar(&fetchCodes, "codes", nil, "수집할 종목 코드 (기본: 시장 전체)")
	fetchCmd.Flags().StringSliceVar(&fetchMarkets, "markets", nil, "대상 시장 (기본: KOSPI,KOSDAQ)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Sweep Data Fetch ===")

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	codes := fetchCodes
	if len(codes) == 0 {
		markets := splitMarkets(fetchMarkets)
		universe, err := a.cacher.Universe(ctx, markets)
		if err != nil {
			return fmt.Errorf("load universe: %w", err)
		}
		for _, inst := range universe {
			codes = append(codes, inst.Code)
		}
		fmt.Printf("대상: %d개 종목 (%s)\n", len(codes), strings.Join(markets, ", "))
	}

	var ok, failed int
	for _, code := range codes {
		series, err := a.cacher.History(ctx, code)
		if err != nil {
			failed++
			a.log.WithError(err).WithField("code", code).Warn("fetch failed")
			continue
		}
		ok++
		if len(codes) <= 10 {
			fmt.Printf("  %s: %d개 일봉\n", code, len(series))
		}
	}

	fmt.Printf("\n✅ 완료: %d개 성공, %d개 실패\n", ok, failed)
	if failed > 0 {
		return fmt.Errorf("%d codes failed to fetch", failed)
	}
	return nil
}
