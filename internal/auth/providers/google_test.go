package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/brizzai/auth-relay/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.Handler) (*GoogleProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewGoogleProvider(&config.OAuthConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8050/api/auth/google/callback",
		Scopes:       []string{"openid", "email", "profile"},
		AuthURL:      srv.URL + "/auth",
		TokenURL:     srv.URL + "/token",
		UserInfoURL:  srv.URL + "/userinfo",
		RevokeURL:    srv.URL + "/revoke",
	})
	require.NoError(t, err)
	return p, srv
}

func TestAuthCodeURL(t *testing.T) {
	p, srv := newTestProvider(t, http.NotFoundHandler())

	raw := p.AuthCodeURL("state-token", "consent")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Contains(t, raw, srv.URL+"/auth")
	q := parsed.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "http://localhost:8050/api/auth/google/callback", q.Get("redirect_uri"))
	assert.Equal(t, "state-token", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Contains(t, q.Get("scope"), "openid")
}

func TestExchangeCode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		assert.Equal(t, "abc", r.Form.Get("code"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "AT1",
			"refresh_token": "RT1",
			"expires_in":    3600,
			"token_type":    "Bearer",
			"scope":         "openid email",
		})
	})

	p, _ := newTestProvider(t, mux)

	bundle, err := p.ExchangeCode(context.Background(), "abc")
	require.NoError(t, err)

	assert.Equal(t, "AT1", bundle.AccessToken)
	assert.Equal(t, "RT1", bundle.RefreshToken)
	assert.Equal(t, "Bearer", bundle.TokenType)
	assert.Equal(t, []string{"openid", "email"}, bundle.Scopes)
	assert.InDelta(t, 3600, bundle.ExpiresIn, 5)
}

func TestExchangeCodeProviderFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_request","error_description":"code expired"}`))
	})

	p, _ := newTestProvider(t, mux)

	_, err := p.ExchangeCode(context.Background(), "stale-code")
	require.Error(t, err)

	var exchangeErr *ExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	assert.Equal(t, http.StatusBadRequest, exchangeErr.StatusCode)
	assert.Contains(t, exchangeErr.Body, "code expired")
}

func TestExchangeRefreshToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "RT1", r.Form.Get("refresh_token"))

		// Google routinely omits refresh_token on refresh responses.
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "AT2",
			"expires_in":   3600,
			"token_type":   "Bearer",
		})
	})

	p, _ := newTestProvider(t, mux)

	bundle, err := p.ExchangeRefreshToken(context.Background(), "RT1")
	require.NoError(t, err)
	assert.Equal(t, "AT2", bundle.AccessToken)
}

func TestExchangeRefreshTokenInvalidGrant(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`))
	})

	p, _ := newTestProvider(t, mux)

	_, err := p.ExchangeRefreshToken(context.Background(), "revoked")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestExchangeRefreshTokenGenericFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream down"))
	})

	p, _ := newTestProvider(t, mux)

	_, err := p.ExchangeRefreshToken(context.Background(), "RT1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestFetchProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer AT1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "u1",
			"email":       "a@b.com",
			"name":        "Test User",
			"picture":     "https://example.com/p.png",
			"given_name":  "Test",
			"family_name": "User",
		})
	})

	p, _ := newTestProvider(t, mux)

	profile, err := p.FetchProfile(context.Background(), "AT1")
	require.NoError(t, err)
	assert.Equal(t, "u1", profile.ID)
	assert.Equal(t, "a@b.com", profile.Email)
	assert.Equal(t, "Test User", profile.Name)
	assert.Equal(t, "Test", profile.GivenName)
}

func TestFetchProfileNameDefaultsToEmail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "u1", "email": "a@b.com"})
	})

	p, _ := newTestProvider(t, mux)

	profile, err := p.FetchProfile(context.Background(), "AT1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", profile.Name)
}

func TestFetchProfileFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad token"))
	})

	p, _ := newTestProvider(t, mux)

	_, err := p.FetchProfile(context.Background(), "expired")
	var profileErr *ProfileError
	require.ErrorAs(t, err, &profileErr)
	assert.Equal(t, http.StatusUnauthorized, profileErr.StatusCode)
}

func TestRevokeToken(t *testing.T) {
	revoked := false
	mux := http.NewServeMux()
	mux.HandleFunc("/revoke", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "AT1", r.Form.Get("token"))
		revoked = true
	})

	p, _ := newTestProvider(t, mux)

	require.NoError(t, p.RevokeToken(context.Background(), "AT1"))
	assert.True(t, revoked)
}

func TestRevokeTokenFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/revoke", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	p, _ := newTestProvider(t, mux)
	assert.Error(t, p.RevokeToken(context.Background(), "AT1"))
}
