package main

import (
	"os"

	"github.com/wonhee/sweep/cmd/sweep/commands"
)

// main is the entry point for the sweep CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/sweep [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
