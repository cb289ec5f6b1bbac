package strategy

import (
	"fmt"

	"github.com/wonhee/sweep/internal/contracts"
	"github.com/wonhee/sweep/internal/indicator"
)

// BNF is the contrarian rebound play: price at least 10% under its
// 25-day average (disparity <= 90) with RSI confirming the washout.
type BNF struct{}

// NewBNF creates the oversold-rebound strategy
func NewBNF() *BNF {
	return &BNF{}
}

func (s *BNF) ID() string   { return "bnf" }
func (s *BNF) Name() string { return "BNF" }

const (
	bnfDisparityCeil = 90.0
	bnfRSICeil       = 35.0
	bnfScoreMult     = 3.0
)

// conditionAt is shared by the live score and the historical predicate
func (s *BNF) conditionAt(f *indicator.Frame, i int) bool {
	return f.Disparity25.At(i) <= bnfDisparityCeil && f.RSI.At(i) < bnfRSICeil
}

// SignalScore grows with the depth of the washout: (100 - disparity) x 3
func (s *BNF) SignalScore(f *indicator.Frame) float64 {
	last := f.Len() - 1
	if !s.conditionAt(f, last) {
		return 0
	}
	return (100 - f.Disparity25.At(last)) * bnfScoreMult
}

// Backtest mirrors the live condition over the whole history
func (s *BNF) Backtest(f *indicator.Frame) []bool {
	out := make([]bool, f.Len())
	for i := range out {
		out[i] = s.conditionAt(f, i)
	}
	return out
}

// DeepDive targets the mean-reversion level (MA25)
func (s *BNF) DeepDive(f *indicator.Frame) DeepDive {
	last := f.Len() - 1
	close := f.Close.At(last)

	dd := DeepDive{
		Markers: s.Backtest(f),
		Entry:   close,
		Stop:    close * 0.95,
		Target:  f.MA25.At(last),
	}

	if dd.Markers[last] {
		dd.State = StateBuyOversold
		dd.Notes = append(dd.Notes,
			fmt.Sprintf("disparity %.1f, RSI %.0f", f.Disparity25.At(last), f.RSI.At(last)))
	} else {
		dd.State = StateWait
	}

	return dd
}

// Report renders the match explanation
func (s *BNF) Report(r *contracts.ScanResult) string {
	return fmt.Sprintf(
		"%s: price %.1f%% below its 25-day average with RSI %.0f, a capitulation washout. Counter-trend entry targeting the 25-day line.",
		s.Name(), 100-r.Snapshot.Disparity25, r.Snapshot.RSI,
	)
}
