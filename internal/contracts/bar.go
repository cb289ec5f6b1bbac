package contracts

import "time"

// Bar is one OHLCV record for one trading day
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is an ordered-by-date sequence of bars, ascending, unique per
// (instrument, date). Calendar gaps from non-trading days are fine.
// The scan core treats a loaded series as immutable input.
type PriceSeries []Bar

// Last returns the most recent bar
func (s PriceSeries) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

// Closes returns the close column
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// IsSorted reports whether dates are strictly ascending
func (s PriceSeries) IsSorted() bool {
	for i := 1; i < len(s); i++ {
		if !s[i].Date.After(s[i-1].Date) {
			return false
		}
	}
	return true
}

// Instrument identifies one scannable equity
type Instrument struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Market string `json:"market"` // KOSPI, KOSDAQ, ...
}
