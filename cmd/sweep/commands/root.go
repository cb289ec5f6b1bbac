package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Sweep - 기술적 셋업 스캐너",
	Long: `Sweep Unified CLI

일봉 데이터 수집부터 전략 스캔, 승률 집계까지.

Usage:
  go run ./cmd/sweep [command]

Examples:
  go run ./cmd/sweep serve
  go run ./cmd/sweep scan --markets KOSPI
  go run ./cmd/sweep history --date 2026-09-01
  go run ./cmd/sweep stats`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
