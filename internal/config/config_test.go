package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_RELAY_OAUTH_CLIENT_ID", "client-id")
	t.Setenv("AUTH_RELAY_OAUTH_CLIENT_SECRET", "client-secret")
	t.Setenv("AUTH_RELAY_OAUTH_REDIRECT_URL", "http://localhost:8050/api/auth/google/callback")
	t.Setenv("AUTH_RELAY_VAULT_ENCRYPTION_SECRET", "operator-secret")
}

func TestLoadFromEnvironment(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "client-id", cfg.OAuth.ClientID)
	assert.Equal(t, "operator-secret", cfg.Vault.EncryptionSecret)
	assert.Equal(t, 8050, cfg.Server.Port)
	assert.Equal(t, 10*time.Minute, cfg.OAuth.StateTTL)
	assert.Equal(t, DefaultScopes, cfg.OAuth.Scopes)
	assert.Equal(t, "http://localhost:3000", cfg.OAuth.FrontendURL)
}

func TestLoadRequiresClientCredentials(t *testing.T) {
	t.Setenv("AUTH_RELAY_VAULT_ENCRYPTION_SECRET", "operator-secret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oauth.client_id")
}

func TestLoadRequiresEncryptionSecret(t *testing.T) {
	t.Setenv("AUTH_RELAY_OAUTH_CLIENT_ID", "client-id")
	t.Setenv("AUTH_RELAY_OAUTH_CLIENT_SECRET", "client-secret")
	t.Setenv("AUTH_RELAY_OAUTH_REDIRECT_URL", "http://localhost:8050/cb")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault.encryption_secret")
}
