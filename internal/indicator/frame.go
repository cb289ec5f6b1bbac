package indicator

import (
	"fmt"
	"math"

	"github.com/wonhee/sweep/internal/contracts"
)

// MinBars is the minimum history length the engine accepts. Columns
// needing deeper history (MA200) degrade to missing instead of failing.
const MinBars = 60

// vwapAnchorWindow is the trailing window scanned for the lowest Low that
// anchors the cumulative VWAP
const vwapAnchorWindow = 150

// ErrInsufficientHistory is returned when a series is too short to evaluate
var ErrInsufficientHistory = fmt.Errorf("insufficient history: need at least %d bars", MinBars)

// Frame is a price series extended with the derived indicator columns.
// Every column has one row per input bar; each row depends only on that
// row and earlier rows, except the VWAP anchor search which scans the
// trailing window once per recompute.
type Frame struct {
	Bars contracts.PriceSeries

	Open   Series
	High   Series
	Low    Series
	Close  Series
	Volume Series

	MA5   Series
	MA20  Series
	MA25  Series
	MA60  Series
	MA200 Series

	EMA10 Series
	EMA20 Series
	EMA60 Series

	HMA Series

	MACD       Series
	MACDSignal Series
	MACDHist   Series

	BBUp2     Series
	BBDn2     Series
	BBUp1     Series
	BBDn1     Series
	Bandwidth Series

	RSI Series

	StochK     Series
	StochD     Series
	StochSlowD Series

	Disparity25 Series

	VWAP Series
	MFI  Series

	High20 Series
	Low20  Series
	High10 Series
	Low10  Series

	TR      Series
	ATR     Series
	VolMA20 Series
}

// Len returns the number of bars
func (f *Frame) Len() int {
	return len(f.Bars)
}

// Compute derives the full indicator frame from a price series.
// Pure function of its input: no I/O, deterministic, bit-for-bit
// reproducible.
func Compute(series contracts.PriceSeries) (*Frame, error) {
	n := len(series)
	if n < MinBars {
		return nil, ErrInsufficientHistory
	}

	f := &Frame{
		Bars:   series,
		Open:   make(Series, n),
		High:   make(Series, n),
		Low:    make(Series, n),
		Close:  make(Series, n),
		Volume: make(Series, n),
	}
	for i, b := range series {
		f.Open[i] = b.Open
		f.High[i] = b.High
		f.Low[i] = b.Low
		f.Close[i] = b.Close
		f.Volume[i] = b.Volume
	}

	f.MA5 = rollingMean(f.Close, 5)
	f.MA20 = rollingMean(f.Close, 20)
	f.MA25 = rollingMean(f.Close, 25)
	f.MA60 = rollingMean(f.Close, 60)
	f.MA200 = rollingMean(f.Close, 200)

	f.EMA10 = ema(f.Close, 10)
	f.EMA20 = ema(f.Close, 20)
	f.EMA60 = ema(f.Close, 60)

	f.HMA = hullMA(f.Close, 14)

	f.computeMACD()
	f.computeBollinger()
	f.computeRSI(14)
	f.computeStochastic(14)

	f.Disparity25 = NewSeries(n)
	for i := 0; i < n; i++ {
		f.Disparity25[i] = SafeDiv(f.Close[i], f.MA25[i]) * 100
	}

	f.computeVWAP()
	f.computeMFI(14)

	f.High20 = shift(rollingMax(f.High, 20), 1)
	f.Low20 = shift(rollingMin(f.Low, 20), 1)
	f.High10 = shift(rollingMax(f.High, 10), 1)
	f.Low10 = shift(rollingMin(f.Low, 10), 1)

	f.computeATR(20)
	f.VolMA20 = rollingMean(f.Volume, 20)

	return f, nil
}

// hullMA computes the Hull-style moving average over the close column.
// Both inner averages are windowed simple means rather than weighted
// means; an inherited simplification kept for numeric compatibility.
func hullMA(close Series, period int) Series {
	half := period / 2
	sqrtP := int(math.Sqrt(float64(period)))

	maHalf := rollingMean(close, half)
	maFull := rollingMean(close, period)

	raw := NewSeries(len(close))
	for i := range close {
		if Valid(maHalf[i]) && Valid(maFull[i]) {
			raw[i] = 2*maHalf[i] - maFull[i]
		}
	}

	return rollingMean(raw, sqrtP)
}

func (f *Frame) computeMACD() {
	n := f.Len()
	exp12 := ema(f.Close, 12)
	exp26 := ema(f.Close, 26)

	f.MACD = NewSeries(n)
	for i := 0; i < n; i++ {
		f.MACD[i] = exp12[i] - exp26[i]
	}

	f.MACDSignal = ema(f.MACD, 9)

	f.MACDHist = NewSeries(n)
	for i := 0; i < n; i++ {
		f.MACDHist[i] = f.MACD[i] - f.MACDSignal[i]
	}
}

func (f *Frame) computeBollinger() {
	n := f.Len()
	std20 := rollingStd(f.Close, 20)

	f.BBUp2 = NewSeries(n)
	f.BBDn2 = NewSeries(n)
	f.BBUp1 = NewSeries(n)
	f.BBDn1 = NewSeries(n)
	f.Bandwidth = NewSeries(n)

	for i := 0; i < n; i++ {
		if !Valid(f.MA20[i]) || !Valid(std20[i]) {
			continue
		}
		f.BBUp2[i] = f.MA20[i] + 2*std20[i]
		f.BBDn2[i] = f.MA20[i] - 2*std20[i]
		f.BBUp1[i] = f.MA20[i] + std20[i]
		f.BBDn1[i] = f.MA20[i] - std20[i]
		f.Bandwidth[i] = SafeDiv(f.BBUp2[i]-f.BBDn2[i], f.MA20[i])
	}
}

// computeRSI uses a simple rolling mean of gains and losses over the
// period. A zero average loss means an uninterrupted advance: RSI 100,
// the documented divide-by-zero policy.
func (f *Frame) computeRSI(period int) {
	n := f.Len()
	gains := NewSeries(n)
	losses := NewSeries(n)
	for i := 1; i < n; i++ {
		delta := f.Close[i] - f.Close[i-1]
		gains[i] = math.Max(delta, 0)
		losses[i] = math.Max(-delta, 0)
	}

	avgGain := rollingMean(gains, period)
	avgLoss := rollingMean(losses, period)

	f.RSI = NewSeries(n)
	for i := 0; i < n; i++ {
		if !Valid(avgGain[i]) || !Valid(avgLoss[i]) {
			continue
		}
		if avgLoss[i] == 0 {
			f.RSI[i] = 100
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		f.RSI[i] = 100 - 100/(1+rs)
	}
}

func (f *Frame) computeStochastic(period int) {
	n := f.Len()
	lowN := rollingMin(f.Low, period)
	highN := rollingMax(f.High, period)

	f.StochK = NewSeries(n)
	for i := 0; i < n; i++ {
		// Zero range stays missing
		f.StochK[i] = SafeDiv(f.Close[i]-lowN[i], highN[i]-lowN[i]) * 100
	}

	f.StochD = rollingMean(f.StochK, 3)
	f.StochSlowD = rollingMean(f.StochD, 3)
}

// computeVWAP computes the cumulative volume-weighted average price
// anchored at the lowest Low within the trailing window. Rows before the
// anchor stay missing. The anchor search runs once per full recompute
// over the visible window only, so no row sees future data it could act
// on.
func (f *Frame) computeVWAP() {
	n := f.Len()
	f.VWAP = NewSeries(n)

	start := 0
	if n > vwapAnchorWindow {
		start = n - vwapAnchorWindow
	}

	anchor := start
	for i := start + 1; i < n; i++ {
		if f.Low[i] < f.Low[anchor] {
			anchor = i
		}
	}

	var cumTPV, cumVol float64
	for i := anchor; i < n; i++ {
		tp := (f.High[i] + f.Low[i] + f.Close[i]) / 3
		cumTPV += tp * f.Volume[i]
		cumVol += f.Volume[i]
		f.VWAP[i] = SafeDiv(cumTPV, cumVol)
	}
}

// computeMFI computes the Money Flow Index from signed typical-price
// flows. A zero negative-flow sum substitutes 1 as the ratio denominator,
// the documented policy.
func (f *Frame) computeMFI(period int) {
	n := f.Len()
	posFlow := make(Series, n)
	negFlow := make(Series, n)

	prevTP := math.NaN()
	for i := 0; i < n; i++ {
		tp := (f.High[i] + f.Low[i] + f.Close[i]) / 3
		tpv := tp * f.Volume[i]
		if Valid(prevTP) {
			if tp > prevTP {
				posFlow[i] = tpv
			} else if tp < prevTP {
				negFlow[i] = tpv
			}
		}
		prevTP = tp
	}

	posSum := rollingSum(posFlow, period)
	negSum := rollingSum(negFlow, period)

	f.MFI = NewSeries(n)
	for i := 0; i < n; i++ {
		if !Valid(posSum[i]) || !Valid(negSum[i]) {
			continue
		}
		den := negSum[i]
		if den == 0 {
			den = 1
		}
		ratio := posSum[i] / den
		f.MFI[i] = 100 - 100/(1+ratio)
	}
}

func (f *Frame) computeATR(period int) {
	n := f.Len()
	f.TR = NewSeries(n)
	for i := 0; i < n; i++ {
		hl := f.High[i] - f.Low[i]
		if i == 0 {
			f.TR[i] = hl
			continue
		}
		hpc := math.Abs(f.High[i] - f.Close[i-1])
		lpc := math.Abs(f.Low[i] - f.Close[i-1])
		f.TR[i] = math.Max(hl, math.Max(hpc, lpc))
	}

	f.ATR = rollingMean(f.TR, period)
}

// Snapshot returns the latest-bar indicator state
func (f *Frame) Snapshot() contracts.IndicatorSnapshot {
	last := f.Len() - 1
	return contracts.IndicatorSnapshot{
		Close:       f.Close.At(last),
		MA5:         fillMissing(f.MA5.At(last), 0),
		MA20:        fillMissing(f.MA20.At(last), 0),
		RSI:         fillMissing(f.RSI.At(last), 0),
		Bandwidth:   fillMissing(f.Bandwidth.At(last), 0),
		Disparity25: fillMissing(f.Disparity25.At(last), 0),
		ATR:         fillMissing(f.ATR.At(last), 0),
		HMA:         fillMissing(f.HMA.At(last), 0),
		High20:      fillMissing(f.High20.At(last), 0),
	}
}

// ChartWindow extracts the last n bars for the chart renderer, filling
// missing values the way the consumer expects (zero everywhere, 50 for
// the MFI midline, zero VWAP meaning "not drawn").
func (f *Frame) ChartWindow(n int) contracts.ChartWindow {
	total := f.Len()
	start := 0
	if total > n {
		start = total - n
	}
	size := total - start

	w := contracts.ChartWindow{
		Dates:      make([]string, 0, size),
		Open:       make([]float64, 0, size),
		High:       make([]float64, 0, size),
		Low:        make([]float64, 0, size),
		Close:      make([]float64, 0, size),
		Volume:     make([]float64, 0, size),
		MA20:       make([]float64, 0, size),
		BBUp:       make([]float64, 0, size),
		BBDn:       make([]float64, 0, size),
		VWAP:       make([]float64, 0, size),
		MACD:       make([]float64, 0, size),
		MACDSignal: make([]float64, 0, size),
		MACDHist:   make([]float64, 0, size),
		StochD:     make([]float64, 0, size),
		StochSlowD: make([]float64, 0, size),
		RSI:        make([]float64, 0, size),
		MFI:        make([]float64, 0, size),
	}

	for i := start; i < total; i++ {
		w.Dates = append(w.Dates, f.Bars[i].Date.Format("2006-01-02"))
		w.Open = append(w.Open, f.Open[i])
		w.High = append(w.High, f.High[i])
		w.Low = append(w.Low, f.Low[i])
		w.Close = append(w.Close, f.Close[i])
		w.Volume = append(w.Volume, f.Volume[i])
		w.MA20 = append(w.MA20, fillMissing(f.MA20[i], 0))
		w.BBUp = append(w.BBUp, fillMissing(f.BBUp2[i], 0))
		w.BBDn = append(w.BBDn, fillMissing(f.BBDn2[i], 0))
		w.VWAP = append(w.VWAP, fillMissing(f.VWAP[i], 0))
		w.MACD = append(w.MACD, fillMissing(f.MACD[i], 0))
		w.MACDSignal = append(w.MACDSignal, fillMissing(f.MACDSignal[i], 0))
		w.MACDHist = append(w.MACDHist, fillMissing(f.MACDHist[i], 0))
		w.StochD = append(w.StochD, fillMissing(f.StochD[i], 0))
		w.StochSlowD = append(w.StochSlowD, fillMissing(f.StochSlowD[i], 0))
		w.RSI = append(w.RSI, fillMissing(f.RSI[i], 0))
		w.MFI = append(w.MFI, fillMissing(f.MFI[i], 50))
	}

	return w
}

func fillMissing(v, def float64) float64 {
	if !Valid(v) {
		return def
	}
	return v
}
