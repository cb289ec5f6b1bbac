package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonhee/sweep/internal/contracts"
	"github.com/wonhee/sweep/internal/indicator"
)

// barsFromCloses builds a daily series where each bar opens at the prior
// close, brackets high/low around the body, and trades vol(i) shares.
func barsFromCloses(closes []float64, vol func(i int) float64) contracts.PriceSeries {
	bars := make(contracts.PriceSeries, len(closes))
	base := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	prev := closes[0]
	for i, c := range closes {
		open := prev
		if i == 0 {
			open = c
		}
		hi := math.Max(open, c) + 0.2
		lo := math.Min(open, c) - 0.2
		bars[i] = contracts.Bar{
			Date: base.AddDate(0, 0, i),
			Open: open, High: hi, Low: lo, Close: c,
			Volume: vol(i),
		}
		prev = c
	}
	return bars
}

func flatVolume(float64) func(int) float64 {
	return func(int) float64 { return 1000 }
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()
	require.Len(t, reg, 4)
	assert.Equal(t, []string{"hypersniper", "th-algorithm", "turtle", "bnf"}, reg.IDs())

	s, ok := reg.ByID("turtle")
	require.True(t, ok)
	assert.Equal(t, "Turtle", s.Name())

	_, ok = reg.ByID("momentum")
	assert.False(t, ok)

	sub := reg.Subset([]string{"bnf", "turtle"})
	// Registry order is preserved regardless of request order
	assert.Equal(t, []string{"turtle", "bnf"}, sub.IDs())

	assert.Equal(t, reg.IDs(), reg.Subset(nil).IDs())
}

func TestTurtle_BreakoutScenario(t *testing.T) {
	// Long flat base well above its 200-day mean, then a breakout close
	// at 150 on double volume
	closes := make([]float64, 250)
	for i := range closes {
		closes[i] = 100
	}
	closes[249] = 150

	bars := barsFromCloses(closes, flatVolume(0))
	bars[249].Volume = 2500

	f, err := indicator.Compute(bars)
	require.NoError(t, err)

	turtle := NewTurtle()
	score := turtle.SignalScore(f)
	assert.Equal(t, 90.0, score)

	pred := turtle.Backtest(f)
	assert.True(t, pred[249], "breakout bar must flag in the historical predicate")

	// Quiet base bars must not flag
	for i := 220; i < 249; i++ {
		assert.False(t, pred[i], "bar %d", i)
	}

	dd := turtle.DeepDive(f)
	assert.Equal(t, StateBuyBreakout, dd.State)
	assert.Equal(t, f.High20.At(249), dd.Entry)
	assert.Less(t, dd.Stop, dd.Entry)
	assert.Greater(t, dd.Target, dd.Entry)
}

func TestTurtle_NoVolumeNoSignal(t *testing.T) {
	closes := make([]float64, 250)
	for i := range closes {
		closes[i] = 100
	}
	closes[249] = 150

	// Breakout on average volume only
	bars := barsFromCloses(closes, flatVolume(0))

	f, err := indicator.Compute(bars)
	require.NoError(t, err)

	assert.Equal(t, 0.0, NewTurtle().SignalScore(f))
}

func TestBNF_OversoldScenario(t *testing.T) {
	// Flat at 100, then one capitulation bar taking the close to ~88% of
	// its 25-day average: MA25 = (24*100 + d)/25, d/MA25 = 0.88
	d := 2112.0 / 24.12
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	closes[59] = d

	f, err := indicator.Compute(barsFromCloses(closes, flatVolume(0)))
	require.NoError(t, err)

	bnf := NewBNF()
	score := bnf.SignalScore(f)
	require.Greater(t, score, 0.0)

	// Score = (100 - disparity) x 3 with disparity ~= 88
	assert.InDelta(t, 36.0, score, 0.2)

	dd := bnf.DeepDive(f)
	assert.Equal(t, StateBuyOversold, dd.State)
	assert.InDelta(t, d*0.95, dd.Stop, 1e-9)
	assert.Equal(t, f.MA25.Last(), dd.Target)
}

func TestBNF_NoSignalWithoutRSIConfirmation(t *testing.T) {
	// A slow drift keeps disparity high and RSI moderate: no washout
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 - 0.1*float64(i)
	}

	f, err := indicator.Compute(barsFromCloses(closes, flatVolume(0)))
	require.NoError(t, err)

	assert.Equal(t, 0.0, NewBNF().SignalScore(f))
}

func TestTHAlgorithm_VReversal(t *testing.T) {
	// Shallow 70-bar decline, then one strong up bar: the Hull line
	// turns up and RSI lands mid-band
	closes := make([]float64, 71)
	for i := 0; i < 70; i++ {
		closes[i] = 140 - 0.2*float64(i)
	}
	closes[70] = closes[69] + 3.0

	f, err := indicator.Compute(barsFromCloses(closes, flatVolume(0)))
	require.NoError(t, err)

	th := NewTHAlgorithm()
	score := th.SignalScore(f)
	require.Greater(t, score, 0.0)

	// Score = 80 + RSI/5
	rsi := f.RSI.Last()
	assert.True(t, rsi >= 40 && rsi <= 70, "rsi %.1f outside the gate", rsi)
	assert.InDelta(t, 80+rsi/5, score, 1e-9)

	dd := th.DeepDive(f)
	assert.True(t, dd.State.IsBuy())
	atr := f.ATR.Last()
	assert.InDelta(t, closes[70]-3*atr, dd.Stop, 1e-9)
	assert.InDelta(t, closes[70]+6*atr, dd.Target, 1e-9)
}

func TestTHAlgorithm_DeclineStaysQuiet(t *testing.T) {
	closes := make([]float64, 70)
	for i := range closes {
		closes[i] = 140 - 0.5*float64(i)
	}

	f, err := indicator.Compute(barsFromCloses(closes, flatVolume(0)))
	require.NoError(t, err)

	assert.Equal(t, 0.0, NewTHAlgorithm().SignalScore(f))
}

func TestHyperSniper_SqueezeBreakout(t *testing.T) {
	// Tight zigzag advance (+1.0 / -0.6) keeps the bands compressed and
	// RSI mid-band; the final up bar doubles volume
	closes := make([]float64, 80)
	closes[0] = 100
	for i := 1; i < 80; i++ {
		if i%2 == 1 {
			closes[i] = closes[i-1] + 1.0
		} else {
			closes[i] = closes[i-1] - 0.6
		}
	}

	bars := barsFromCloses(closes, flatVolume(0))
	bars[79].Volume = 2000 // final bar is an up bar (79 is odd)

	f, err := indicator.Compute(bars)
	require.NoError(t, err)

	sniper := NewHyperSniper()
	score := sniper.SignalScore(f)
	require.Greater(t, score, 0.0)
	assert.GreaterOrEqual(t, score, 90.0)

	pred := sniper.Backtest(f)
	assert.True(t, pred[79])

	// Ordinary-volume bars never qualify
	for i := 0; i < 79; i++ {
		assert.False(t, pred[i], "bar %d", i)
	}

	dd := sniper.DeepDive(f)
	assert.True(t, dd.State.IsBuy() || dd.State == StateHold)
	assert.InDelta(t, f.MA20.Last()*0.97, dd.Stop, 1e-9)
}

func TestHyperSniper_BearishBarRejected(t *testing.T) {
	closes := make([]float64, 80)
	closes[0] = 100
	for i := 1; i < 80; i++ {
		if i%2 == 1 {
			closes[i] = closes[i-1] + 1.0
		} else {
			closes[i] = closes[i-1] - 0.6
		}
	}
	// Make the final bar a down bar, volume surge or not
	closes[79] = closes[78] - 0.6

	bars := barsFromCloses(closes, flatVolume(0))
	bars[79].Volume = 2000

	f, err := indicator.Compute(bars)
	require.NoError(t, err)

	assert.Equal(t, 0.0, NewHyperSniper().SignalScore(f))
}

// The correctness invariant every refactor must preserve: the vectorized
// predicate's final verdict equals the live signal verdict.
func TestBacktestLiveConsistency(t *testing.T) {
	shapes := map[string]func(i int) float64{
		"uptrend":   func(i int) float64 { return 100 + 0.5*float64(i) },
		"downtrend": func(i int) float64 { return 200 - 0.5*float64(i) },
		"cycle":     func(i int) float64 { return 120 + 15*math.Sin(float64(i)/5) },
		"zigzag": func(i int) float64 {
			base := 100 + 0.2*float64(i)
			if i%2 == 0 {
				return base + 1
			}
			return base
		},
	}

	for shapeName, gen := range shapes {
		for _, n := range []int{60, 97, 150, 240} {
			closes := make([]float64, n)
			for i := range closes {
				closes[i] = gen(i)
			}
			vol := func(i int) float64 { return 1000 + 600*float64(i%3) }

			f, err := indicator.Compute(barsFromCloses(closes, vol))
			require.NoError(t, err)

			for _, s := range DefaultRegistry() {
				pred := s.Backtest(f)
				require.Len(t, pred, f.Len())
				live := s.SignalScore(f) > 0
				assert.Equal(t, pred[f.Len()-1], live,
					"%s on %s[%d]: predicate and live score disagree", s.ID(), shapeName, n)
			}
		}
	}
}

// stubStrategy lets win-rate tests control the predicate directly
type stubStrategy struct {
	marks []bool
}

func (s *stubStrategy) ID() string                                  { return "stub" }
func (s *stubStrategy) Name() string                                { return "Stub" }
func (s *stubStrategy) SignalScore(f *indicator.Frame) float64      { return 0 }
func (s *stubStrategy) DeepDive(f *indicator.Frame) DeepDive        { return DeepDive{State: StateWait} }
func (s *stubStrategy) Report(r *contracts.ScanResult) string       { return "" }
func (s *stubStrategy) Backtest(f *indicator.Frame) []bool          { return s.marks }

func TestWinRate(t *testing.T) {
	// Three known signal bars, none inside the final 5: bars 10 and 20
	// resolve higher 5 bars out, bar 30 resolves lower
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	closes[15] = 110 // close[10]=100 -> win
	closes[25] = 111 // close[20]=100 -> win
	closes[30] = 120
	closes[35] = 90 // close[30]=120 -> loss

	f, err := indicator.Compute(barsFromCloses(closes, flatVolume(0)))
	require.NoError(t, err)

	marks := make([]bool, 60)
	marks[10], marks[20], marks[30] = true, true, true

	rec := WinRate(f, &stubStrategy{marks: marks})
	assert.Equal(t, 3, rec.Total)
	assert.Equal(t, 2, rec.Wins)
	assert.Equal(t, "67% (2/3)", rec.String())
}

func TestWinRate_ExcludesFinalBars(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	f, err := indicator.Compute(barsFromCloses(closes, flatVolume(0)))
	require.NoError(t, err)

	// Signals inside the final 5 bars lack an outcome and must not count
	marks := make([]bool, 60)
	marks[56], marks[58] = true, true

	rec := WinRate(f, &stubStrategy{marks: marks})
	assert.False(t, rec.HasData())
	assert.Equal(t, "no data", rec.String())
}

func TestSizePosition(t *testing.T) {
	shares, risk := SizePosition(10_000_000, 50_000, 48_000)
	assert.Equal(t, 100, shares)
	assert.Equal(t, 200_000.0, risk)

	// Capital cap: the risk budget would buy more than capital affords
	shares, _ = SizePosition(100_000, 50_000, 49_999)
	assert.Equal(t, 2, shares)

	// Degenerate stops size to zero
	shares, risk = SizePosition(1_000_000, 50_000, 50_000)
	assert.Equal(t, 0, shares)
	assert.Equal(t, 0.0, risk)
}
