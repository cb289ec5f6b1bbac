package strategy

import (
	"fmt"

	"github.com/wonhee/sweep/internal/contracts"
	"github.com/wonhee/sweep/internal/indicator"
)

// THAlgorithm rides the low-lag Hull line: enter when it turns up out of
// a decline (V-reversal), or when price pulls back to a rising Hull line
// and recovers above it.
type THAlgorithm struct{}

// NewTHAlgorithm creates the Hull-momentum strategy
func NewTHAlgorithm() *THAlgorithm {
	return &THAlgorithm{}
}

func (s *THAlgorithm) ID() string   { return "th-algorithm" }
func (s *THAlgorithm) Name() string { return "TH Algorithm" }

const (
	thRSIFloor = 40.0
	thRSICeil  = 70.0
)

// conditionAt is shared by the live score and the historical predicate
func (s *THAlgorithm) conditionAt(f *indicator.Frame, i int) (ok, reversal bool) {
	if i < 2 {
		return false, false
	}

	hma := f.HMA.At(i)
	prevHMA := f.HMA.At(i - 1)
	hmaUp := hma > prevHMA
	if !hmaUp {
		return false, false
	}

	// V-reversal: the line was falling or flat, now turns up
	reversal = prevHMA <= f.HMA.At(i-2)

	// Pullback-recover: price dipped to the rising line and closed back
	// above it
	recover := f.Close.At(i) > hma && f.Close.At(i-1) <= prevHMA

	if !reversal && !recover {
		return false, false
	}

	rsi := f.RSI.At(i)
	if !(rsi >= thRSIFloor && rsi <= thRSICeil) {
		return false, false
	}

	return true, reversal
}

// SignalScore scales with momentum confirmation: 80 + RSI/5
func (s *THAlgorithm) SignalScore(f *indicator.Frame) float64 {
	last := f.Len() - 1
	ok, _ := s.conditionAt(f, last)
	if !ok {
		return 0
	}
	return 80 + f.RSI.At(last)/5
}

// Backtest mirrors the live condition over the whole history
func (s *THAlgorithm) Backtest(f *indicator.Frame) []bool {
	out := make([]bool, f.Len())
	for i := range out {
		out[i], _ = s.conditionAt(f, i)
	}
	return out
}

// DeepDive classifies posture along the Hull line
func (s *THAlgorithm) DeepDive(f *indicator.Frame) DeepDive {
	last := f.Len() - 1
	close := f.Close.At(last)
	atr := f.ATR.At(last)

	dd := DeepDive{
		Markers: s.Backtest(f),
		Entry:   close,
		Stop:    close - 3.0*atr,
		Target:  close + 6.0*atr,
	}

	ok, reversal := s.conditionAt(f, last)
	hmaUp := f.HMA.At(last) > f.HMA.At(last-1)
	priceAbove := close > f.HMA.At(last)

	switch {
	case ok && reversal:
		dd.State = StateBuyPullback
		dd.Notes = append(dd.Notes, "Hull line V-reversal")
	case ok:
		dd.State = StateBuyTrend
		dd.Notes = append(dd.Notes, "pullback recovered above rising Hull line")
	case hmaUp && priceAbove:
		dd.State = StateHold
	default:
		dd.State = StateWait
	}

	return dd
}

// Report renders the match explanation
func (s *THAlgorithm) Report(r *contracts.ScanResult) string {
	return fmt.Sprintf(
		"%s: Hull moving average turned up with RSI %.0f in the favorable band. Suggested stop %.2f (3.0 x ATR under entry).",
		s.Name(), r.Snapshot.RSI, r.Snapshot.Close-3.0*r.Snapshot.ATR,
	)
}
