package indicator

import "math"

// Series is one derived column over a price history. Undefined values
// (insufficient warm-up window, degenerate math) are NaN — the single
// missing marker used across the engine. IEEE semantics make every
// threshold comparison against a missing value false, never a panic.
type Series []float64

// NewSeries returns an all-missing series of length n
func NewSeries(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// Valid reports whether v is a defined value
func Valid(v float64) bool {
	return !math.IsNaN(v)
}

// SafeDiv divides num by den, returning the missing marker on a zero or
// missing denominator
// ⭐ SSOT: 지표 계산의 0-나눗셈 처리는 이 함수에서만
func SafeDiv(num, den float64) float64 {
	if den == 0 || !Valid(num) || !Valid(den) {
		return math.NaN()
	}
	return num / den
}

// At returns the value at index i, missing when out of range
func (s Series) At(i int) float64 {
	if i < 0 || i >= len(s) {
		return math.NaN()
	}
	return s[i]
}

// Valid reports whether index i holds a defined value
func (s Series) Valid(i int) bool {
	return i >= 0 && i < len(s) && Valid(s[i])
}

// Last returns the final value, missing when empty
func (s Series) Last() float64 {
	return s.At(len(s) - 1)
}

// rollingMean is the trailing arithmetic mean over window bars.
// A window containing any missing value yields missing.
func rollingMean(src Series, window int) Series {
	out := NewSeries(len(src))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(src); i++ {
		sum := 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if !Valid(src[j]) {
				ok = false
				break
			}
			sum += src[j]
		}
		if ok {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// rollingSum is the trailing sum over window bars
func rollingSum(src Series, window int) Series {
	out := NewSeries(len(src))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(src); i++ {
		sum := 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if !Valid(src[j]) {
				ok = false
				break
			}
			sum += src[j]
		}
		if ok {
			out[i] = sum
		}
	}
	return out
}

// rollingStd is the trailing sample standard deviation over window bars
func rollingStd(src Series, window int) Series {
	out := NewSeries(len(src))
	if window <= 1 {
		return out
	}
	for i := window - 1; i < len(src); i++ {
		sum := 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if !Valid(src[j]) {
				ok = false
				break
			}
			sum += src[j]
		}
		if !ok {
			continue
		}
		mean := sum / float64(window)
		variance := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := src[j] - mean
			variance += d * d
		}
		out[i] = math.Sqrt(variance / float64(window-1))
	}
	return out
}

// rollingMax is the trailing maximum over window bars
func rollingMax(src Series, window int) Series {
	out := NewSeries(len(src))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(src); i++ {
		best := math.Inf(-1)
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if !Valid(src[j]) {
				ok = false
				break
			}
			if src[j] > best {
				best = src[j]
			}
		}
		if ok {
			out[i] = best
		}
	}
	return out
}

// rollingMin is the trailing minimum over window bars
func rollingMin(src Series, window int) Series {
	out := NewSeries(len(src))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(src); i++ {
		best := math.Inf(1)
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if !Valid(src[j]) {
				ok = false
				break
			}
			if src[j] < best {
				best = src[j]
			}
		}
		if ok {
			out[i] = best
		}
	}
	return out
}

// ema is recursive exponential smoothing with alpha = 2/(span+1),
// seeded from the first value, no bias adjustment
func ema(src Series, span int) Series {
	out := NewSeries(len(src))
	if len(src) == 0 || span <= 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = src[0]
	for i := 1; i < len(src); i++ {
		out[i] = alpha*src[i] + (1-alpha)*out[i-1]
	}
	return out
}

// shift moves values forward by n bars; the head becomes missing.
// Used so breakout levels compare against the prior window, excluding
// the current bar.
func shift(src Series, n int) Series {
	out := NewSeries(len(src))
	for i := n; i < len(src); i++ {
		out[i] = src[i-n]
	}
	return out
}
