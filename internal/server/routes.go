package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Health and status
	mux.HandleFunc("/health", s.app.StatusHandler.HealthHandler)
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)

	// Digest workflow
	mux.HandleFunc("/api/digest/trigger", s.app.DigestHandler.TriggerHandler) // POST - start a manual run
	mux.HandleFunc("/api/digest/runs", s.app.DigestHandler.ListRunsHandler)   // GET - run history
	mux.HandleFunc("/api/digest/runs/", s.app.DigestHandler.GetRunHandler)    // GET /{id}

	// Stock symbol search
	mux.HandleFunc("/api/search", s.app.SearchHandler.SearchHandler) // GET ?q=

	// Lifecycle events
	mux.HandleFunc("/api/events/user-created", s.app.EventHandler.UserCreatedHandler) // POST
	mux.HandleFunc("/api/events/user-deleted", s.app.EventHandler.UserDeletedHandler) // POST

	return mux
}
