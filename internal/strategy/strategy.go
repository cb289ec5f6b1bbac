package strategy

import (
	"github.com/wonhee/sweep/internal/contracts"
	"github.com/wonhee/sweep/internal/indicator"
)

// State classifies the current posture of one strategy on one instrument
type State string

const (
	StateBuyBreakout State = "BUY_BREAKOUT"
	StateBuyPullback State = "BUY_PULLBACK"
	StateBuyTrend    State = "BUY_TREND"
	StateBuyOversold State = "BUY_OVERSOLD"
	StateHold        State = "HOLD"
	StateExit        State = "EXIT"
	StateWait        State = "WAIT"
)

// IsBuy reports whether the state is an entry signal
func (s State) IsBuy() bool {
	switch s {
	case StateBuyBreakout, StateBuyPullback, StateBuyTrend, StateBuyOversold:
		return true
	}
	return false
}

// DeepDive is the detailed posture report for one strategy on one frame
type DeepDive struct {
	State   State    `json:"state"`
	Markers []bool   `json:"markers"` // historical entry points, one per bar
	Entry   float64  `json:"entry_price"`
	Stop    float64  `json:"stop_price"`
	Target  float64  `json:"target_price"`
	Notes   []string `json:"notes,omitempty"`
}

// Strategy is one rule-based trading hypothesis.
// ⭐ SSOT: 전략 인터페이스는 여기서만 정의
//
// SignalScore and Backtest must agree at the final row: for every frame,
// Backtest(f)[len-1] == (SignalScore(f) > 0). Each variant routes both
// paths through one shared per-row condition to keep that invariant by
// construction.
type Strategy interface {
	// ID is the stable identifier used in persistence and APIs
	ID() string

	// Name is the display name
	Name() string

	// SignalScore inspects the last rows of the frame and returns 0 when
	// the setup is not jointly satisfied, else a positive score. Scores
	// are strategy-specific and only rank within one instrument.
	SignalScore(f *indicator.Frame) float64

	// Backtest evaluates the same condition over the entire history,
	// one verdict per bar
	Backtest(f *indicator.Frame) []bool

	// DeepDive classifies the current posture and suggests entry, stop
	// and target levels
	DeepDive(f *indicator.Frame) DeepDive

	// Report renders a short human-readable explanation for a matched
	// scan result
	Report(r *contracts.ScanResult) string
}

// Registry is the fixed, ordered strategy set. Iteration order is the
// presentation order.
type Registry []Strategy

// DefaultRegistry returns the active strategy set
func DefaultRegistry() Registry {
	return Registry{
		NewHyperSniper(),
		NewTHAlgorithm(),
		NewTurtle(),
		NewBNF(),
	}
}

// ByID looks up a strategy by identifier
func (r Registry) ByID(id string) (Strategy, bool) {
	for _, s := range r {
		if s.ID() == id {
			return s, true
		}
	}
	return nil, false
}

// Subset returns the strategies matching ids, in registry order.
// Empty ids means the whole registry.
func (r Registry) Subset(ids []string) Registry {
	if len(ids) == 0 {
		return r
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make(Registry, 0, len(ids))
	for _, s := range r {
		if want[s.ID()] {
			out = append(out, s)
		}
	}
	return out
}

// IDs returns the identifiers in registry order
func (r Registry) IDs() []string {
	out := make([]string, len(r))
	for i, s := range r {
		out[i] = s.ID()
	}
	return out
}
