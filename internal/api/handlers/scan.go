package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonhee/sweep/internal/contracts"
	"github.com/wonhee/sweep/internal/scan"
	"github.com/wonhee/sweep/pkg/logger"
)

// UniverseSource lists the scannable instruments for the chosen markets
type UniverseSource interface {
	Universe(ctx context.Context, markets []string) ([]contracts.Instrument, error)
}

// ScanHandler drives scan sessions over HTTP
// ⭐ SSOT: 스캔 API 핸들러는 이 구조체에서만
type ScanHandler struct {
	orchestrator *scan.Orchestrator
	universe     UniverseSource
	logger       *logger.Logger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(orchestrator *scan.Orchestrator, universe UniverseSource, log *logger.Logger) *ScanHandler {
	return &ScanHandler{
		orchestrator: orchestrator,
		universe:     universe,
		logger:       log,
	}
}

// StartRequest selects what to scan. Empty markets means the full
// KOSPI+KOSDAQ universe; empty strategies means every strategy.
type StartRequest struct {
	Markets    []string `json:"markets"`
	Strategies []string `json:"strategies"`
}

// Start kicks off a scan in the background
// POST /api/scan
func (h *ScanHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if r.Body != nil {
		// An empty body is a full default scan
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if len(req.Markets) == 0 {
		req.Markets = []string{"KOSPI", "KOSDAQ"}
	}

	universe, err := h.universe.Universe(r.Context(), req.Markets)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load scan universe")
		respondError(w, http.StatusBadGateway, "Failed to load instrument universe")
		return
	}
	if len(universe) == 0 {
		respondError(w, http.StatusUnprocessableEntity, "Universe is empty for the requested markets")
		return
	}

	// Detach from the request context: the scan outlives this call
	go func() {
		if _, err := h.orchestrator.Run(context.Background(), universe, req.Strategies); err != nil &&
			!errors.Is(err, scan.ErrScanInProgress) {
			h.logger.WithError(err).Error("Scan run failed")
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":     "started",
		"markets":    req.Markets,
		"strategies": req.Strategies,
		"universe":   len(universe),
	})
}

// Stop requests cancellation of the running scan
// POST /api/scan/stop
func (h *ScanHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if !h.orchestrator.Stop() {
		respondError(w, http.StatusConflict, "No scan in progress")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
}

// Status reports the current (or last) session's progress
// GET /api/scan/status
func (h *ScanHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.orchestrator.Current()
	if session == nil {
		respondJSON(w, http.StatusOK, map[string]string{"status": "IDLE"})
		return
	}
	respondJSON(w, http.StatusOK, session.View())
}

// Results returns the ranked matches of the most recent session
// GET /api/scan/results
func (h *ScanHandler) Results(w http.ResponseWriter, r *http.Request) {
	session := h.orchestrator.Current()
	if session == nil {
		respondError(w, http.StatusNotFound, "No scan has run yet")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session": session.View(),
		"results": session.Results(),
	})
}
