package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brizzai/auth-relay/internal/auth"
	"github.com/brizzai/auth-relay/internal/auth/mirror"
	"github.com/brizzai/auth-relay/internal/auth/providers"
	"github.com/brizzai/auth-relay/internal/auth/session"
	"github.com/brizzai/auth-relay/internal/auth/state"
	"github.com/brizzai/auth-relay/internal/auth/vault"
	"github.com/brizzai/auth-relay/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
		OAuth: config.OAuthConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://localhost:8050/api/auth/google/callback",
			FrontendURL:  "http://localhost:3000",
			Scopes:       []string{"openid"},
		},
	}

	provider, err := providers.NewGoogleProvider(&cfg.OAuth)
	require.NoError(t, err)

	v, err := vault.New(&config.VaultConfig{EncryptionSecret: "test-secret"})
	require.NoError(t, err)

	svc := auth.NewService(
		&cfg.OAuth,
		provider,
		state.NewRegistry(),
		session.NewStore(v),
		mirror.NewSyncer(&config.MirrorConfig{}),
	)

	return NewServer(cfg, svc)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "auth-relay", body["service"])
}

func TestAuthRoutesMounted(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/auth/validate?user_id=nobody", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":false`)
}

func TestUnknownRouteIs404(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSAppliedToResponses(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
