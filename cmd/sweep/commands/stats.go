package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "전략별 누적 승률 조회",
	Long: `전략별 누적 승률을 출력합니다.

승률은 스캔 확정 시점과 stats_refresh 작업에서 갱신됩니다.

Example:
  go run ./cmd/sweep stats`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rates, err := a.stats.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read stats: %w", err)
	}
	if len(rates) == 0 {
		fmt.Println("집계된 승률이 없습니다. 먼저 scan 을 실행하세요.")
		return nil
	}

	ids := make([]string, 0, len(rates))
	for id := range rates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Printf("%-16s %s\n", "전략", "승률")
	for _, id := range ids {
		fmt.Printf("%-16s %.1f%%\n", id, rates[id]*100)
	}
	return nil
}
