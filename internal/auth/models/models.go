package models

import "time"

// UserProfile is the identity returned by the provider's userinfo endpoint.
// ID is the stable provider user id and the session primary key.
type UserProfile struct {
	ID         string `json:"user_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Picture    string `json:"picture,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
}

// TokenBundle is one token response from the provider. The refresh token may
// be empty: Google only returns one on the first consent, and refresh
// responses routinely omit it.
type TokenBundle struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	ExpiresIn    int      `json:"expires_in"`
	TokenType    string   `json:"token_type"`
	Scopes       []string `json:"scopes"`
}

// Session binds a user identity to its current token set. Token fields hold
// ciphertext while the record sits in the store; the store decrypts on read.
type Session struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Picture      string    `json:"picture,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scopes       []string  `json:"scopes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Expired reports whether the session's access token has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// LoginStart is the payload of the login-init endpoint.
type LoginStart struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// TokenData mirrors the token fields of the refresh response payload.
type TokenData struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// AuthResponse is the envelope returned by the refresh endpoint.
type AuthResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *UserProfile `json:"user,omitempty"`
	Tokens  *TokenData   `json:"tokens,omitempty"`
}

// ValidationResult is the payload of the validate endpoint.
type ValidationResult struct {
	Valid           bool         `json:"valid"`
	Message         string       `json:"message"`
	RequiresRefresh bool         `json:"requires_refresh,omitempty"`
	User            *UserProfile `json:"user,omitempty"`
}
