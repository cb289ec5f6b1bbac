package scan

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wonhee/sweep/internal/contracts"
)

// Status is the lifecycle state of one scan session
type Status string

const (
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusAborted   Status = "ABORTED"
)

// Session tracks one scan pass: progress counters, the cooperative stop
// flag, and the accumulated results. Safe for concurrent use; workers
// update it while API handlers read it.
type Session struct {
	ID        string
	StartedAt time.Time

	total  int64
	done   atomic.Int64
	failed atomic.Int64
	stop   atomic.Bool

	mu         sync.RWMutex
	status     Status
	finishedAt time.Time
	results    []contracts.ScanResult
}

// NewSession starts tracking a scan over total instruments
func NewSession(id string, total int) *Session {
	return &Session{
		ID:        id,
		StartedAt: time.Now(),
		total:     int64(total),
		status:    StatusRunning,
	}
}

// Stop raises the cooperative stop flag. Workers observe it between
// tasks; already-dispatched tasks are allowed to finish.
func (s *Session) Stop() {
	s.stop.Store(true)
}

// Stopped reports whether a stop was requested
func (s *Session) Stopped() bool {
	return s.stop.Load()
}

// Progress returns done, failed and total task counts
func (s *Session) Progress() (done, failed, total int64) {
	return s.done.Load(), s.failed.Load(), s.total
}

func (s *Session) markDone(failed bool) {
	s.done.Add(1)
	if failed {
		s.failed.Add(1)
	}
}

func (s *Session) addResult(r contracts.ScanResult) {
	s.mu.Lock()
	s.results = append(s.results, r)
	s.mu.Unlock()
}

func (s *Session) finish(st Status) {
	s.mu.Lock()
	s.status = st
	s.finishedAt = time.Now()
	// Presentation order: strongest top score first, code as tiebreak
	sort.SliceStable(s.results, func(i, j int) bool {
		a, b := s.results[i], s.results[j]
		if len(a.Matched) == 0 || len(b.Matched) == 0 {
			return len(a.Matched) > len(b.Matched)
		}
		if a.Matched[0].Score != b.Matched[0].Score {
			return a.Matched[0].Score > b.Matched[0].Score
		}
		return a.Code < b.Code
	})
	s.mu.Unlock()
}

// Status returns the current lifecycle state
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Results returns a copy of the accumulated matches, ranked once the
// session has finished
func (s *Session) Results() []contracts.ScanResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]contracts.ScanResult, len(s.results))
	copy(out, s.results)
	return out
}

// View is the JSON-friendly snapshot served by the status API
type View struct {
	ID         string    `json:"id"`
	Status     Status    `json:"status"`
	Done       int64     `json:"done"`
	Failed     int64     `json:"failed"`
	Total      int64     `json:"total"`
	Matched    int       `json:"matched"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// View snapshots the session for API consumers
func (s *Session) View() View {
	done, failed, total := s.Progress()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{
		ID:         s.ID,
		Status:     s.status,
		Done:       done,
		Failed:     failed,
		Total:      total,
		Matched:    len(s.results),
		StartedAt:  s.StartedAt,
		FinishedAt: s.finishedAt,
	}
}
