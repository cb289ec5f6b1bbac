package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "과거 스캔 기록 조회",
	Long: `저장된 스캔 기록을 조회합니다.

--date 없이 실행하면 기록이 있는 날짜 목록을,
--date 를 주면 해당 날짜의 매칭 내역을 출력합니다.

Example:
  go run ./cmd/sweep history
  go run ./cmd/sweep history --date 2026-09-01`,
	RunE: runHistory,
}

var historyDate string

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyDate, "date", "", "조회할 스캔 날짜 (YYYY-MM-DD)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if historyDate == "" {
		dates, err := a.history.DistinctDates(ctx)
		if err != nil {
			return fmt.Errorf("list scan dates: %w", err)
		}
		if len(dates) == 0 {
			fmt.Println("저장된 스캔 기록이 없습니다.")
			return nil
		}
		fmt.Printf("스캔 기록: %d일\n", len(dates))
		for _, d := range dates {
			fmt.Printf("  %s\n", d.Format("2006-01-02"))
		}
		return nil
	}

	date, err := time.Parse("2006-01-02", historyDate)
	if err != nil {
		return fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", historyDate, err)
	}

	matches, err := a.history.MatchesOn(ctx, date)
	if err != nil {
		return fmt.Errorf("load matches: %w", err)
	}
	if len(matches) == 0 {
		fmt.Printf("%s 스캔 기록이 없습니다.\n", historyDate)
		return nil
	}

	fmt.Printf("%s: %d건\n\n", historyDate, len(matches))
	fmt.Printf("%-14s %-8s %-16s %-8s %s\n", "전략", "코드", "종목명", "시장", "진입가")
	for _, m := range matches {
		fmt.Printf("%-14s %-8s %-16s %-8s %.0f\n",
			m.StrategyID, m.Code, m.Name, m.Market, m.EntryPrice)
	}
	return nil
}
