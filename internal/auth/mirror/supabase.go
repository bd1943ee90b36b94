// Package mirror pushes session credentials into an external durable store.
// The mirror is a cache, not the system of record: every failure here is
// logged and swallowed so it can never fail the login or refresh that
// triggered it.
package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brizzai/auth-relay/internal/auth/models"
	"github.com/brizzai/auth-relay/internal/config"
	"github.com/brizzai/auth-relay/internal/logger"
	"go.uber.org/zap"
)

const requestTimeout = 10 * time.Second

// Syncer mirrors sessions into a Supabase table via PostgREST upsert, keyed
// by user_id. With no URL configured it is a no-op.
type Syncer struct {
	url    string
	apiKey string
	client *http.Client
}

// NewSyncer creates a Syncer from config.
func NewSyncer(cfg *config.MirrorConfig) *Syncer {
	return &Syncer{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: requestTimeout},
	}
}

type record struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Picture      string `json:"picture,omitempty"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    string `json:"expires_at"`
	UpdatedAt    string `json:"updated_at"`
}

// Mirror upserts the session row. Idempotent: repeating the call with the
// same user id merges into the existing row.
func (s *Syncer) Mirror(ctx context.Context, profile *models.UserProfile, bundle *models.TokenBundle) {
	if s.url == "" {
		return
	}

	now := time.Now().UTC()
	body, err := json.Marshal(record{
		UserID:       profile.ID,
		Email:        profile.Email,
		Name:         profile.Name,
		Picture:      profile.Picture,
		AccessToken:  bundle.AccessToken,
		RefreshToken: bundle.RefreshToken,
		ExpiresAt:    now.Add(time.Duration(bundle.ExpiresIn) * time.Second).Format(time.RFC3339),
		UpdatedAt:    now.Format(time.RFC3339),
	})
	if err != nil {
		logger.Warn("failed to encode session mirror payload", zap.Error(err))
		return
	}

	endpoint := fmt.Sprintf("%s/rest/v1/sessions?on_conflict=user_id", s.url)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		logger.Warn("failed to build session mirror request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Prefer", "resolution=merge-duplicates")

	resp, err := s.client.Do(req)
	if err != nil {
		logger.Warn("session mirror request failed",
			zap.String("user_id", profile.ID),
			zap.Error(err),
		)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		logger.Warn("session mirror rejected",
			zap.String("user_id", profile.ID),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody),
		)
		return
	}

	logger.Debug("session mirrored", zap.String("user_id", profile.ID))
}
