package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/brizzai/auth-relay/internal/auth/models"
	"github.com/brizzai/auth-relay/internal/auth/providers"
	"github.com/brizzai/auth-relay/internal/auth/session"
	"github.com/brizzai/auth-relay/internal/logger"
	"github.com/brizzai/auth-relay/internal/utils"
	"go.uber.org/zap"
)

// Relay is the slice of the auth service the HTTP layer needs.
type Relay interface {
	LoginInit(prompt string) (*models.LoginStart, error)
	Callback(ctx context.Context, code, state string) string
	Refresh(ctx context.Context, refreshToken string) (*models.UserProfile, *models.TokenBundle, error)
	Logout(ctx context.Context, userID string)
	GetSession(userID string) (*models.Session, error)
	Validate(userID string) *models.ValidationResult
}

// Handler translates the relay operations into the HTTP surface consumed by
// the frontend.
type Handler struct {
	relay Relay
}

// NewHandler creates a new Handler instance
func NewHandler(relay Relay) *Handler {
	return &Handler{relay: relay}
}

// HandleLogin handles GET /api/auth/google/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	prompt := r.URL.Query().Get("prompt")

	start, err := h.relay.LoginInit(prompt)
	if err != nil {
		logger.Error("failed to initiate login", zap.Error(err))
		utils.WriteError(w, "server_error", "Failed to initiate login", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, start)
}

// HandleCallback handles GET /api/auth/google/callback. The outcome is
// always a 302 back to the frontend, success or not.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	redirectURL := h.relay.Callback(r.Context(), code, state)
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// HandleRefresh handles POST /api/auth/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		utils.WriteError(w, "invalid_request", "refresh_token is required", http.StatusBadRequest)
		return
	}

	profile, bundle, err := h.relay.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeRefreshError(w, err)
		return
	}

	utils.WriteJSON(w, models.AuthResponse{
		Success: true,
		Message: "Token refreshed successfully",
		User:    profile,
		Tokens: &models.TokenData{
			AccessToken:  bundle.AccessToken,
			RefreshToken: bundle.RefreshToken,
			ExpiresIn:    bundle.ExpiresIn,
			TokenType:    bundle.TokenType,
			Scope:        strings.Join(bundle.Scopes, " "),
		},
	})
}

func (h *Handler) writeRefreshError(w http.ResponseWriter, err error) {
	var exchangeErr *providers.ExchangeError
	var profileErr *providers.ProfileError

	switch {
	case errors.Is(err, providers.ErrInvalidRefreshToken):
		utils.WriteError(w, "invalid_grant", "Refresh token expired or invalid. Please login again.", http.StatusUnauthorized)
	case errors.As(err, &exchangeErr), errors.As(err, &profileErr):
		logger.Error("refresh failed at provider", zap.Error(err))
		utils.WriteError(w, "provider_error", err.Error(), http.StatusBadRequest)
	default:
		logger.Error("unexpected refresh failure", zap.Error(err))
		utils.WriteError(w, "server_error", "An unexpected error occurred", http.StatusInternalServerError)
	}
}

// HandleGetUser handles GET /api/auth/user/{user_id}. Token fields are
// plaintext in the payload; they are only encrypted at rest.
func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")

	sess, err := h.relay.GetSession(userID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			utils.WriteError(w, "not_found", "User session not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to read session", zap.String("user_id", userID), zap.Error(err))
		utils.WriteError(w, "server_error", "Failed to read session", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, sess)
}

// HandleLogout handles POST /api/auth/logout?user_id=
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		utils.WriteError(w, "invalid_request", "user_id is required", http.StatusBadRequest)
		return
	}

	h.relay.Logout(r.Context(), userID)

	utils.WriteJSON(w, map[string]any{
		"success": true,
		"message": "Logged out successfully",
	})
}

// HandleValidate handles GET /api/auth/validate?user_id=
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		utils.WriteError(w, "invalid_request", "user_id is required", http.StatusBadRequest)
		return
	}

	utils.WriteJSON(w, h.relay.Validate(userID))
}
