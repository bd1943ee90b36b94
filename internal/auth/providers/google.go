package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brizzai/auth-relay/internal/auth/models"
	"github.com/brizzai/auth-relay/internal/config"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	defaultRevokeURL   = "https://oauth2.googleapis.com/revoke"

	// clientTimeout bounds every outbound call so a stalled provider cannot
	// hang a request indefinitely.
	clientTimeout = 30 * time.Second
)

// GoogleProvider talks to Google's token, userinfo and revoke endpoints.
// Endpoint URLs are configurable so tests can point them at stub servers.
type GoogleProvider struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
	userInfoURL  string
	revokeURL    string
	client       *http.Client
}

// NewGoogleProvider builds a provider from config. When an issuer is
// configured, ID tokens returned by the code exchange are verified with OIDC
// discovery; otherwise the id_token is ignored and identity comes from the
// userinfo endpoint alone.
func NewGoogleProvider(cfg *config.OAuthConfig) (*GoogleProvider, error) {
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	oauth2Cfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     endpoint,
		Scopes:       cfg.Scopes,
	}

	p := &GoogleProvider{
		oauth2Config: oauth2Cfg,
		userInfoURL:  defaultUserInfoURL,
		revokeURL:    defaultRevokeURL,
		client:       &http.Client{Timeout: clientTimeout},
	}
	if cfg.UserInfoURL != "" {
		p.userInfoURL = cfg.UserInfoURL
	}
	if cfg.RevokeURL != "" {
		p.revokeURL = cfg.RevokeURL
	}

	if cfg.Issuer != "" {
		provider, err := oidc.NewProvider(context.Background(), cfg.Issuer)
		if err != nil {
			return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
		}
		p.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	}

	return p, nil
}

func (p *GoogleProvider) AuthCodeURL(state, prompt string) string {
	return p.oauth2Config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", prompt),
	)
}

func (p *GoogleProvider) ExchangeCode(ctx context.Context, code string) (*models.TokenBundle, error) {
	tok, err := p.oauth2Config.Exchange(p.withClient(ctx), code)
	if err != nil {
		return nil, exchangeError(err)
	}

	if p.verifier != nil {
		rawIDToken, ok := tok.Extra("id_token").(string)
		if !ok {
			return nil, fmt.Errorf("no id_token in token response")
		}
		if _, err := p.verifier.Verify(ctx, rawIDToken); err != nil {
			return nil, fmt.Errorf("failed to verify ID token: %w", err)
		}
	}

	return bundleFromToken(tok), nil
}

func (p *GoogleProvider) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*models.TokenBundle, error) {
	src := p.oauth2Config.TokenSource(p.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_grant" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRefreshToken, retrieveErr.ErrorDescription)
		}
		return nil, exchangeError(err)
	}
	return bundleFromToken(tok), nil
}

func (p *GoogleProvider) FetchProfile(ctx context.Context, accessToken string) (*models.UserProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call userinfo endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read userinfo response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProfileError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var info struct {
		ID         string `json:"id"`
		Email      string `json:"email"`
		Name       string `json:"name"`
		Picture    string `json:"picture"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo response: %w", err)
	}

	name := info.Name
	if name == "" {
		name = info.Email
	}

	return &models.UserProfile{
		ID:         info.ID,
		Email:      info.Email,
		Name:       name,
		Picture:    info.Picture,
		GivenName:  info.GivenName,
		FamilyName: info.FamilyName,
	}, nil
}

func (p *GoogleProvider) RevokeToken(ctx context.Context, accessToken string) error {
	form := url.Values{"token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call revoke endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke request failed with status %d", resp.StatusCode)
	}
	return nil
}

// withClient routes oauth2's internal HTTP through our bounded client.
func (p *GoogleProvider) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.client)
}

func exchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		return &ExchangeError{StatusCode: status, Body: string(retrieveErr.Body)}
	}
	return fmt.Errorf("token endpoint unreachable: %w", err)
}

func bundleFromToken(tok *oauth2.Token) *models.TokenBundle {
	expiresIn := int(tok.ExpiresIn)
	if expiresIn <= 0 && !tok.Expiry.IsZero() {
		expiresIn = int(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}

	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	var scopes []string
	if scope, ok := tok.Extra("scope").(string); ok {
		scopes = strings.Fields(scope)
	}

	return &models.TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn,
		TokenType:    tokenType,
		Scopes:       scopes,
	}
}
