package strategy

import (
	"fmt"

	"github.com/wonhee/sweep/internal/contracts"
	"github.com/wonhee/sweep/internal/indicator"
)

// HyperSniper hunts volatility-squeeze breakouts backed by volume and
// VWAP support: energy compresses inside tight Bollinger Bands, then
// price takes or holds the 20-day line on a bullish, high-volume bar.
type HyperSniper struct{}

// NewHyperSniper creates the squeeze-breakout strategy
func NewHyperSniper() *HyperSniper {
	return &HyperSniper{}
}

func (s *HyperSniper) ID() string   { return "hypersniper" }
func (s *HyperSniper) Name() string { return "Hyper Sniper" }

const (
	sniperVolumeMult    = 1.5
	sniperTightBW       = 0.15
	sniperExpandMaxBW   = 0.30
	sniperExpandPrevBW  = 0.20
	sniperHoldNearMult  = 1.03
	sniperRSIFloor      = 50.0
	sniperRSICeil       = 80.0
	sniperBaseScore     = 90.0
	sniperExpandBonus   = 10.0
)

// conditionAt is the single per-row trigger shared by the live score and
// the historical predicate. Missing indicator values fail the comparison
// and therefore the condition.
func (s *HyperSniper) conditionAt(f *indicator.Frame, i int) (ok bool, expanding bool) {
	if i < 1 {
		return false, false
	}

	// Breakout volume
	if !(f.Volume.At(i) >= sniperVolumeMult*f.VolMA20.At(i)) {
		return false, false
	}

	// Bullish bar
	if !(f.Close.At(i) > f.Open.At(i)) {
		return false, false
	}

	// VWAP support, only when the anchor covers this row
	if f.VWAP.Valid(i) && !(f.Close.At(i) >= f.VWAP.At(i)) {
		return false, false
	}

	// Squeeze: still tight, or tight yesterday and expanding now
	bw := f.Bandwidth.At(i)
	prevBW := f.Bandwidth.At(i - 1)
	tight := bw < sniperTightBW
	expanding = bw < sniperExpandMaxBW && bw > prevBW && prevBW < sniperExpandPrevBW && !tight
	if !tight && !expanding {
		return false, false
	}

	// Short-term alignment
	if !(f.EMA10.At(i) > f.EMA20.At(i)) {
		return false, false
	}

	// Trigger: cross above MA20, or hold just above it
	above := f.Close.At(i) > f.MA20.At(i)
	cross := above && f.Close.At(i-1) <= f.MA20.At(i-1)
	holdNear := above && f.Low.At(i) <= f.MA20.At(i)*sniperHoldNearMult
	if !cross && !holdNear {
		return false, false
	}

	rsi := f.RSI.At(i)
	if !(rsi >= sniperRSIFloor && rsi <= sniperRSICeil) {
		return false, false
	}

	return true, expanding
}

// SignalScore returns 90 for a tight-squeeze trigger, 100 when the
// squeeze is already expanding out of compression
func (s *HyperSniper) SignalScore(f *indicator.Frame) float64 {
	ok, expanding := s.conditionAt(f, f.Len()-1)
	if !ok {
		return 0
	}
	score := sniperBaseScore
	if expanding {
		score += sniperExpandBonus
	}
	return score
}

// Backtest mirrors the live condition over the whole history
func (s *HyperSniper) Backtest(f *indicator.Frame) []bool {
	out := make([]bool, f.Len())
	for i := range out {
		out[i], _ = s.conditionAt(f, i)
	}
	return out
}

// DeepDive classifies posture against the 20-day line
func (s *HyperSniper) DeepDive(f *indicator.Frame) DeepDive {
	last := f.Len() - 1
	close := f.Close.At(last)
	ma20 := f.MA20.At(last)

	dd := DeepDive{
		Markers: s.Backtest(f),
		Entry:   close,
		Stop:    ma20 * 0.97,
		Target:  close * 1.15,
	}

	above := close > ma20
	elite := f.EMA10.At(last) > f.EMA20.At(last)
	cross := above && f.Close.At(last-1) <= f.MA20.At(last-1)
	holdNear := above && f.Low.At(last) <= ma20*sniperHoldNearMult && close > f.Open.At(last)

	switch {
	case cross && dd.Markers[last]:
		dd.State = StateBuyBreakout
	case holdNear && elite && dd.Markers[last]:
		dd.State = StateBuyPullback
	case above && elite:
		dd.State = StateHold
	default:
		dd.State = StateWait
	}

	if f.VWAP.Valid(last) {
		if close >= f.VWAP.At(last) {
			dd.Notes = append(dd.Notes, "VWAP support holding")
		} else {
			dd.Notes = append(dd.Notes, "below VWAP")
		}
	}
	if f.Bandwidth.At(last) < sniperExpandMaxBW {
		dd.Notes = append(dd.Notes, "bands compressed")
	}
	if elite {
		dd.Notes = append(dd.Notes, "EMA10 above EMA20")
	}

	return dd
}

// Report renders the match explanation
func (s *HyperSniper) Report(r *contracts.ScanResult) string {
	return fmt.Sprintf(
		"%s: volatility squeeze (bandwidth %.3f) with VWAP support; bullish volume surge took the 20-day line. RSI %.0f. Suggested stop near %.2f (MA20 -3%%).",
		s.Name(), r.Snapshot.Bandwidth, r.Snapshot.RSI, r.Snapshot.MA20*0.97,
	)
}
