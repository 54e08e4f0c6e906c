package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/signalist/internal/common"
)

// StatusHandler handles HTTP requests for application status
type StatusHandler struct {
	config    *common.Config
	startedAt time.Time
	logger    arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(config *common.Config, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		config:    config,
		startedAt: time.Now(),
		logger:    logger,
	}
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"service":         "signalist",
		"version":         common.GetVersion(),
		"environment":     h.config.Environment,
		"uptime_seconds":  int(time.Since(h.startedAt).Seconds()),
		"digest_enabled":  h.config.Digest.Enabled,
		"digest_schedule": h.config.Digest.Schedule,
		"llm_provider":    h.config.LLM.DefaultProvider,
	})
}

// HealthHandler handles GET /health
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
