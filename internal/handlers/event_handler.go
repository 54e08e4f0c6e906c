package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/signalist/internal/common"
	"github.com/ternarybob/signalist/internal/interfaces"
	"github.com/ternarybob/signalist/internal/models"
	"github.com/ternarybob/signalist/internal/services/digest"
)

// welcomeTimeout bounds the background intro generation plus send.
const welcomeTimeout = 2 * time.Minute

// EventHandler receives application lifecycle events: user sign-up and
// account deletion.
type EventHandler struct {
	users    interfaces.UserStorage
	workflow *digest.Workflow
	logger   arbor.ILogger
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(users interfaces.UserStorage, workflow *digest.Workflow, logger arbor.ILogger) *EventHandler {
	return &EventHandler{
		users:    users,
		workflow: workflow,
		logger:   logger,
	}
}

type userCreatedRequest struct {
	Email             string   `json:"email"`
	Name              string   `json:"name"`
	Country           string   `json:"country"`
	InvestmentGoals   string   `json:"investmentGoals"`
	RiskTolerance     string   `json:"riskTolerance"`
	PreferredIndustry string   `json:"preferredIndustry"`
	Watchlist         []string `json:"watchlist"`
}

// UserCreatedHandler handles POST /api/events/user-created. The account is
// persisted synchronously; the welcome email (including its AI intro) runs
// in the background so sign-up latency never depends on the model.
func (h *EventHandler) UserCreatedHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req userCreatedRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" {
		WriteError(w, http.StatusBadRequest, "Fields 'email' and 'name' are required")
		return
	}

	user, err := h.users.FindUserByEmail(r.Context(), req.Email)
	if err != nil && err != interfaces.ErrKeyNotFound {
		h.logger.Error().Err(err).Str("email", req.Email).Msg("Failed to look up user")
		WriteError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}
	if user == nil {
		user = &models.User{
			ID:    common.NewUserID(),
			Email: req.Email,
			Name:  req.Name,
		}
	} else {
		user.Name = req.Name
	}

	if err := h.users.SaveUser(r.Context(), user); err != nil {
		h.logger.Error().Err(err).Str("email", req.Email).Msg("Failed to save user")
		WriteError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	for _, symbol := range req.Watchlist {
		if err := h.users.AddWatchlistSymbol(r.Context(), user.ID, symbol); err != nil {
			h.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to add watchlist symbol")
		}
	}

	profile := digest.SignupProfile{
		Email:             user.Email,
		Name:              user.Name,
		Country:           req.Country,
		InvestmentGoals:   req.InvestmentGoals,
		RiskTolerance:     req.RiskTolerance,
		PreferredIndustry: req.PreferredIndustry,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), welcomeTimeout)
		defer cancel()
		if err := h.workflow.SendWelcome(ctx, profile); err != nil {
			h.logger.Warn().Err(err).Str("email", profile.Email).Msg("Welcome email failed")
		}
	}()

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "accepted",
		"user":   user,
	})
}

type userDeletedRequest struct {
	Email string `json:"email"`
}

// UserDeletedHandler handles POST /api/events/user-deleted. The account and
// its watchlist are removed; future digest runs no longer see the user.
func (h *EventHandler) UserDeletedHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req userDeletedRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		WriteError(w, http.StatusBadRequest, "Field 'email' is required")
		return
	}

	user, err := h.users.FindUserByEmail(r.Context(), req.Email)
	if err == interfaces.ErrKeyNotFound {
		WriteError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("email", req.Email).Msg("Failed to look up user")
		WriteError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	if err := h.users.DeleteUser(r.Context(), user.ID); err != nil {
		h.logger.Error().Err(err).Str("email", req.Email).Msg("Failed to delete user")
		WriteError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	h.logger.Info().Str("email", req.Email).Str("user_id", user.ID).Msg("User deleted")
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "deleted",
	})
}
