package strategy

import (
	"fmt"

	"github.com/wonhee/sweep/internal/contracts"
	"github.com/wonhee/sweep/internal/indicator"
)

// Turtle is the classic 20-day breakout: close takes out the prior
// 20-day high on above-average volume while the long-term trend filter
// (MA200) points up.
type Turtle struct{}

// NewTurtle creates the breakout strategy
func NewTurtle() *Turtle {
	return &Turtle{}
}

func (s *Turtle) ID() string   { return "turtle" }
func (s *Turtle) Name() string { return "Turtle" }

const turtleScore = 90.0

// conditionAt is shared by the live score and the historical predicate
func (s *Turtle) conditionAt(f *indicator.Frame, i int) bool {
	if i < 1 {
		return false
	}

	// Fresh breakout: prior bar was still at or below its ceiling
	breakout := f.Close.At(i) > f.High20.At(i) &&
		f.Close.At(i-1) <= f.High20.At(i-1)
	if !breakout {
		return false
	}

	// Breakout volume above its 20-day average
	if !(f.Volume.At(i) > f.VolMA20.At(i)) {
		return false
	}

	// Long-term uptrend filter
	return f.Close.At(i) > f.MA200.At(i)
}

// SignalScore is fixed: the breakout either fired or it did not
func (s *Turtle) SignalScore(f *indicator.Frame) float64 {
	if !s.conditionAt(f, f.Len()-1) {
		return 0
	}
	return turtleScore
}

// Backtest mirrors the live condition over the whole history
func (s *Turtle) Backtest(f *indicator.Frame) []bool {
	out := make([]bool, f.Len())
	for i := range out {
		out[i] = s.conditionAt(f, i)
	}
	return out
}

// DeepDive uses the breakout level as the structural reference
func (s *Turtle) DeepDive(f *indicator.Frame) DeepDive {
	last := f.Len() - 1
	close := f.Close.At(last)
	high20 := f.High20.At(last)
	atr := f.ATR.At(last)

	dd := DeepDive{
		Markers: s.Backtest(f),
		Entry:   high20,
		Stop:    high20 - 2.0*atr,
		Target:  high20 + 4.0*atr,
	}

	switch {
	case dd.Markers[last]:
		dd.State = StateBuyBreakout
		dd.Notes = append(dd.Notes, "new 20-day high on volume")
	case close < f.Low10.At(last):
		// 10-day low is the turtle exit
		dd.State = StateExit
		dd.Notes = append(dd.Notes, "closed under the 10-day low")
	case close > f.MA200.At(last):
		dd.State = StateHold
	default:
		dd.State = StateWait
	}

	return dd
}

// Report renders the match explanation
func (s *Turtle) Report(r *contracts.ScanResult) string {
	return fmt.Sprintf(
		"%s: close %.2f broke the prior 20-day high %.2f on above-average volume, long-term trend up. Trend-following entry; exit on a 10-day low.",
		s.Name(), r.Snapshot.Close, r.Snapshot.High20,
	)
}
