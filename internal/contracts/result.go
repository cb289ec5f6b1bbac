package contracts

import (
	"fmt"
	"time"
)

// SignalScore is one fired strategy on one instrument. Score zero means no
// signal; positive means fired, larger is stronger. Scales are
// strategy-specific and only comparable within one instrument's ranking.
type SignalScore struct {
	StrategyID string  `json:"strategy_id"`
	Score      float64 `json:"score"`
}

// BacktestRecord holds empirical win-rate statistics for one strategy
// replayed over one instrument's history.
type BacktestRecord struct {
	StrategyID string `json:"strategy_id"`
	Total      int    `json:"total"`
	Wins       int    `json:"wins"`
}

// HasData reports whether any historical signal existed
func (r BacktestRecord) HasData() bool {
	return r.Total > 0
}

// WinRate returns wins/total, 0 when no data
func (r BacktestRecord) WinRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Total)
}

// String renders e.g. "67% (2/3)", or "no data" when no signal ever fired.
// Zero signals is "no data", never "0%".
func (r BacktestRecord) String() string {
	if r.Total == 0 {
		return "no data"
	}
	return fmt.Sprintf("%.0f%% (%d/%d)", r.WinRate()*100, r.Wins, r.Total)
}

// IndicatorSnapshot is the latest-bar indicator state attached to a result
type IndicatorSnapshot struct {
	Close       float64 `json:"close"`
	MA5         float64 `json:"ma5"`
	MA20        float64 `json:"ma20"`
	RSI         float64 `json:"rsi"`
	Bandwidth   float64 `json:"bandwidth"`
	Disparity25 float64 `json:"disparity25"`
	ATR         float64 `json:"atr"`
	HMA         float64 `json:"hma"`
	High20      float64 `json:"high20"`
}

// ChartWindow carries the recent-window series a chart renderer needs.
// Missing values are encoded as NaN-free zeros by the builder; the renderer
// treats zero VWAP as "not drawn".
type ChartWindow struct {
	Dates      []string  `json:"dates"`
	Open       []float64 `json:"open"`
	High       []float64 `json:"high"`
	Low        []float64 `json:"low"`
	Close      []float64 `json:"close"`
	Volume     []float64 `json:"volume"`
	MA20       []float64 `json:"ma20"`
	BBUp       []float64 `json:"bb_up"`
	BBDn       []float64 `json:"bb_dn"`
	VWAP       []float64 `json:"vwap"`
	MACD       []float64 `json:"macd"`
	MACDSignal []float64 `json:"macd_signal"`
	MACDHist   []float64 `json:"macd_hist"`
	StochD     []float64 `json:"stoch_d"`
	StochSlowD []float64 `json:"stoch_slow_d"`
	RSI        []float64 `json:"rsi"`
	MFI        []float64 `json:"mfi"`
}

// ScanResult is the per-instrument outcome of one scan pass.
// Immutable after creation.
type ScanResult struct {
	Code      string            `json:"code"`
	Name      string            `json:"name"`
	Market    string            `json:"market"`
	LastClose float64           `json:"last_close"`
	Matched   []SignalScore     `json:"matched"` // descending by score
	TopReport string            `json:"top_report"`
	Backtest  BacktestRecord    `json:"backtest"`
	Snapshot  IndicatorSnapshot `json:"snapshot"`
	Chart     ChartWindow       `json:"chart"`
}

// TopStrategy returns the highest-scored strategy ID, empty when none matched
func (r *ScanResult) TopStrategy() string {
	if len(r.Matched) == 0 {
		return ""
	}
	return r.Matched[0].StrategyID
}

// Match is one persisted (date, strategy, code) scan-history tuple
type Match struct {
	ScanDate   time.Time `json:"scan_date"`
	StrategyID string    `json:"strategy_id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	EntryPrice float64   `json:"entry_price"`
	Market     string    `json:"market"`
}

// StrategyStat is an aggregate win-rate row for one strategy
type StrategyStat struct {
	StrategyID string  `json:"strategy_id"`
	Wins       int     `json:"wins"`
	Total      int     `json:"total"`
	WinRate    float64 `json:"win_rate"`
}
