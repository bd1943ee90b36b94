// Package auth implements the OAuth2 authorization-code relay: state
// issuance, code-for-token exchange, encrypted session storage and the
// refresh/validate/logout lifecycle.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/brizzai/auth-relay/internal/auth/handlers"
	"github.com/brizzai/auth-relay/internal/auth/middleware"
	"github.com/brizzai/auth-relay/internal/auth/mirror"
	"github.com/brizzai/auth-relay/internal/auth/models"
	"github.com/brizzai/auth-relay/internal/auth/providers"
	"github.com/brizzai/auth-relay/internal/auth/session"
	"github.com/brizzai/auth-relay/internal/auth/state"
	"github.com/brizzai/auth-relay/internal/config"
	"github.com/brizzai/auth-relay/internal/logger"
	"go.uber.org/zap"
)

// Service orchestrates a login attempt through its states: state issued,
// callback received, session written. All provider and store failures are
// converted into user-visible outcomes here; nothing escapes to crash a
// request.
type Service struct {
	cfg      *config.OAuthConfig
	provider providers.Provider
	states   *state.Registry
	sessions *session.Store
	mirror   *mirror.Syncer
	handler  *handlers.Handler
	now      func() time.Time
}

// NewService wires the relay's stores and provider into one orchestrator.
func NewService(
	cfg *config.OAuthConfig,
	provider providers.Provider,
	states *state.Registry,
	sessions *session.Store,
	syncer *mirror.Syncer,
) *Service {
	s := &Service{
		cfg:      cfg,
		provider: provider,
		states:   states,
		sessions: sessions,
		mirror:   syncer,
		now:      time.Now,
	}
	s.handler = handlers.NewHandler(s)
	return s
}

// RegisterRoutes registers the relay's HTTP surface on the mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/auth/google/login", s.handler.HandleLogin)
	mux.HandleFunc("GET /api/auth/google/callback", s.handler.HandleCallback)
	mux.HandleFunc("POST /api/auth/refresh", s.handler.HandleRefresh)
	mux.HandleFunc("GET /api/auth/user/{user_id}", s.handler.HandleGetUser)
	mux.HandleFunc("POST /api/auth/logout", s.handler.HandleLogout)
	mux.HandleFunc("GET /api/auth/validate", s.handler.HandleValidate)
}

// WrapWithMiddleware applies CORS and request logging around the mux.
func (s *Service) WrapWithMiddleware(next http.Handler, allowOrigins []string) http.Handler {
	return middleware.CORSWithOrigins(allowOrigins)(middleware.RequestLogger(next))
}

// LoginInit issues a state token and builds the provider authorization URL.
// A caller-supplied prompt is honored; empty defaults to "consent" so Google
// re-issues a refresh token.
func (s *Service) LoginInit(prompt string) (*models.LoginStart, error) {
	if prompt == "" {
		prompt = "consent"
	}

	token, err := s.states.Issue(state.PurposeLogin, map[string]string{"prompt": prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to issue state: %w", err)
	}

	return &models.LoginStart{
		AuthorizationURL: s.provider.AuthCodeURL(token, prompt),
		State:            token,
	}, nil
}

// Callback runs the second half of the login flow and always resolves to a
// frontend redirect URL. State validation happens before any network call:
// a reused or forged state is rejected without touching the provider.
func (s *Service) Callback(ctx context.Context, code, stateToken string) string {
	if _, err := s.states.ValidateAndConsume(stateToken); err != nil {
		logger.Warn("rejected callback with invalid state")
		return s.cfg.FrontendURL + "?error=invalid_state"
	}

	bundle, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		logger.Error("code exchange failed", zap.Error(err))
		return s.errorRedirect(err)
	}

	profile, err := s.provider.FetchProfile(ctx, bundle.AccessToken)
	if err != nil {
		logger.Error("profile fetch failed", zap.Error(err))
		return s.errorRedirect(err)
	}

	if err := s.sessions.Upsert(profile, bundle); err != nil {
		logger.Error("session write failed", zap.String("user_id", profile.ID), zap.Error(err))
		return s.errorRedirect(err)
	}

	s.mirror.Mirror(ctx, profile, bundle)

	logger.Info("login completed", zap.String("user_id", profile.ID))
	return fmt.Sprintf("%s?auth=success&user_id=%s", s.cfg.FrontendURL, url.QueryEscape(profile.ID))
}

// Refresh exchanges the refresh token for a new bundle and updates the
// session. When the provider omits a new refresh token the previous one is
// retained. ErrInvalidRefreshToken propagates distinctly so the caller can
// demand a re-login; on any failure the stored session is left untouched.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.UserProfile, *models.TokenBundle, error) {
	bundle, err := s.provider.ExchangeRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, nil, err
	}

	if bundle.RefreshToken == "" {
		bundle.RefreshToken = refreshToken
	}

	profile, err := s.provider.FetchProfile(ctx, bundle.AccessToken)
	if err != nil {
		return nil, nil, err
	}

	if err := s.sessions.Upsert(profile, bundle); err != nil {
		return nil, nil, err
	}

	s.mirror.Mirror(ctx, profile, bundle)

	logger.Info("token refreshed", zap.String("user_id", profile.ID))
	return profile, bundle, nil
}

// Logout revokes the access token best-effort and removes the session.
// Idempotent: logging out an unknown user succeeds.
func (s *Service) Logout(ctx context.Context, userID string) {
	if sess, err := s.sessions.Get(userID); err == nil && sess.AccessToken != "" {
		if err := s.provider.RevokeToken(ctx, sess.AccessToken); err != nil {
			logger.Warn("token revocation failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	s.sessions.Delete(userID)
	logger.Info("logged out", zap.String("user_id", userID))
}

// GetSession returns the decrypted session for a user id.
func (s *Service) GetSession(userID string) (*models.Session, error) {
	return s.sessions.Get(userID)
}

// Validate reports whether the user's session is live, expired or absent.
func (s *Service) Validate(userID string) *models.ValidationResult {
	sess, err := s.sessions.Get(userID)
	if err != nil {
		return &models.ValidationResult{Valid: false, Message: "No session found"}
	}

	if sess.Expired(s.now()) {
		return &models.ValidationResult{
			Valid:           false,
			Message:         "Token expired",
			RequiresRefresh: true,
		}
	}

	return &models.ValidationResult{
		Valid:   true,
		Message: "Session is valid",
		User: &models.UserProfile{
			ID:      sess.UserID,
			Email:   sess.Email,
			Name:    sess.Name,
			Picture: sess.Picture,
		},
	}
}

func (s *Service) errorRedirect(err error) string {
	return s.cfg.FrontendURL + "?error=" + url.QueryEscape(err.Error())
}

// IsInvalidRefreshToken reports whether err is the terminal refresh failure
// that requires a full re-login.
func IsInvalidRefreshToken(err error) bool {
	return errors.Is(err, providers.ErrInvalidRefreshToken)
}
