package strategy

import (
	"github.com/wonhee/sweep/internal/contracts"
	"github.com/wonhee/sweep/internal/indicator"
)

// forwardBars is the holding window for win-rate statistics: a signal
// wins when the close 5 bars later is strictly higher.
const forwardBars = 5

// WinRate replays a strategy's historical predicate over one
// instrument's full history. Signals inside the final 5 bars lack a
// forward outcome and are excluded. Zero signals means "no data", not a
// zero rate.
func WinRate(f *indicator.Frame, s Strategy) contracts.BacktestRecord {
	rec := contracts.BacktestRecord{StrategyID: s.ID()}

	pred := s.Backtest(f)
	n := f.Len()

	for i := 0; i+forwardBars < n; i++ {
		if !pred[i] {
			continue
		}
		rec.Total++
		if f.Close.At(i+forwardBars) > f.Close.At(i) {
			rec.Wins++
		}
	}

	return rec
}

// SizePosition applies the 2% risk rule: shares sized so the distance to
// the stop risks at most 2% of capital, capped by what capital can buy.
func SizePosition(capital, entry, stop float64) (shares int, totalRisk float64) {
	riskPerShare := entry - stop
	if capital <= 0 || entry <= 0 || riskPerShare <= 0 {
		return 0, 0
	}

	allowableRisk := capital * 0.02
	shares = int(allowableRisk / riskPerShare)
	if float64(shares)*entry > capital {
		shares = int(capital / entry)
	}

	return shares, float64(shares) * riskPerShare
}
