package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/signalist/internal/interfaces"
	"github.com/ternarybob/signalist/internal/services/scheduler"
)

const defaultRunHistoryLimit = 20

// DigestHandler exposes the digest workflow over HTTP: manual triggering
// and run history.
type DigestHandler struct {
	scheduler *scheduler.Service
	runs      interfaces.RunStorage
	logger    arbor.ILogger
}

// NewDigestHandler creates a new DigestHandler
func NewDigestHandler(scheduler *scheduler.Service, runs interfaces.RunStorage, logger arbor.ILogger) *DigestHandler {
	return &DigestHandler{
		scheduler: scheduler,
		runs:      runs,
		logger:    logger,
	}
}

// TriggerHandler handles POST /api/digest/trigger. The run executes in the
// background; the response carries the run record for polling.
func (h *DigestHandler) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	run, started, err := h.scheduler.Trigger(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to start manual digest run")
		WriteError(w, http.StatusInternalServerError, "Failed to start digest run")
		return
	}
	if !started {
		WriteError(w, http.StatusConflict, "A digest run is already in progress")
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "started",
		"run":    run,
	})
}

// ListRunsHandler handles GET /api/digest/runs?limit=N
func (h *DigestHandler) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := defaultRunHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			WriteError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list digest runs")
		WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(runs),
		"runs":  runs,
	})
}

// GetRunHandler handles GET /api/digest/runs/{id}
func (h *DigestHandler) GetRunHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	runID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/digest/runs/"), "/")
	if runID == "" {
		WriteError(w, http.StatusBadRequest, "Missing run ID")
		return
	}

	run, err := h.runs.GetRun(r.Context(), runID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Run not found")
		return
	}

	WriteJSON(w, http.StatusOK, run)
}
