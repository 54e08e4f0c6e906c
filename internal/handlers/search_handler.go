package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/signalist/internal/services/search"
)

// SearchHandler handles HTTP requests for stock symbol search
type SearchHandler struct {
	searchService *search.Service
	logger        arbor.ILogger
}

// NewSearchHandler creates a new SearchHandler
func NewSearchHandler(searchService *search.Service, logger arbor.ILogger) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		logger:        logger,
	}
}

// SearchHandler handles GET /api/search?q=query. A missing query returns
// the popular symbols list.
func (h *SearchHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	query := r.URL.Query().Get("q")
	matches := h.searchService.Search(r.Context(), query)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(matches),
		"results": matches,
	})
}
