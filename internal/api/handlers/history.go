package handlers

import (
	"net/http"
	"time"

	"github.com/wonhee/sweep/internal/contracts"
	"github.com/wonhee/sweep/pkg/logger"
)

// HistoryHandler serves past scan matches and strategy win rates
type HistoryHandler struct {
	history contracts.ScanHistoryStore
	stats   contracts.StrategyStatsStore
	logger  *logger.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(history contracts.ScanHistoryStore, stats contracts.StrategyStatsStore, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		stats:   stats,
		logger:  log,
	}
}

// Dates lists scan dates with recorded matches, newest first
// GET /api/history/dates
func (h *HistoryHandler) Dates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.history.DistinctDates(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list scan dates")
		respondError(w, http.StatusInternalServerError, "Failed to list scan dates")
		return
	}

	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format("2006-01-02")
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"dates": out})
}

// ByDate returns the matches recorded on one scan date
// GET /api/history?date=2026-09-01
func (h *HistoryHandler) ByDate(w http.ResponseWriter, r *http.Request) {
	dateStr := r.URL.Query().Get("date")
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	matches, err := h.history.MatchesOn(r.Context(), date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load matches")
		respondError(w, http.StatusInternalServerError, "Failed to load matches")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":    dateStr,
		"matches": matches,
	})
}

// Stats returns per-strategy aggregate win rates
// GET /api/stats
func (h *HistoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	rates, err := h.stats.ReadAll(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load strategy stats")
		respondError(w, http.StatusInternalServerError, "Failed to load strategy stats")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"win_rates": rates})
}
