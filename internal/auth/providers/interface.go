package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/brizzai/auth-relay/internal/auth/models"
)

// ErrInvalidRefreshToken marks a refresh token the provider has revoked or
// expired. It is terminal: the only recovery is a full re-login.
var ErrInvalidRefreshToken = errors.New("providers: refresh token expired or invalid")

// ExchangeError is a non-success response from the provider's token
// endpoint. The body is kept verbatim for the caller's error surface.
type ExchangeError struct {
	StatusCode int
	Body       string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed with status %d: %s", e.StatusCode, e.Body)
}

// ProfileError is a non-success response from the userinfo endpoint.
type ProfileError struct {
	StatusCode int
	Body       string
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("userinfo request failed with status %d: %s", e.StatusCode, e.Body)
}

// Provider abstracts the identity provider's four fixed endpoints. None of
// the methods retry: a failed exchange propagates to the caller, since
// replaying an authorization code after a provider-side success would fail
// anyway.
type Provider interface {
	// AuthCodeURL builds the authorization URL embedding the given state
	// token, the configured scopes, access_type=offline and the prompt.
	AuthCodeURL(state, prompt string) string

	// ExchangeCode swaps a one-time authorization code for tokens.
	ExchangeCode(ctx context.Context, code string) (*models.TokenBundle, error)

	// ExchangeRefreshToken obtains a fresh token set. The returned bundle
	// may carry an empty refresh token; the caller must then retain the one
	// it already holds. An invalid_grant response surfaces as
	// ErrInvalidRefreshToken.
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (*models.TokenBundle, error)

	// FetchProfile resolves the profile behind an access token.
	FetchProfile(ctx context.Context, accessToken string) (*models.UserProfile, error)

	// RevokeToken invalidates an access token at the provider.
	RevokeToken(ctx context.Context, accessToken string) error
}
