package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("auth-relay version %s, commit %s, built at %s", version, commit, date)
}

// Version returns the bare version string used in the health payload
func Version() string {
	return version
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	OAuth   OAuthConfig   `mapstructure:"oauth"`
	Vault   VaultConfig   `mapstructure:"vault"`
	Mirror  MirrorConfig  `mapstructure:"mirror"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Timeout      time.Duration `mapstructure:"timeout"`
	AllowOrigins []string      `mapstructure:"allow_origins"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	Color             bool   `mapstructure:"color"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// OAuthConfig holds the identity-provider credentials and endpoints.
// The *URL fields default to Google's public endpoints and only need to be
// set when pointing the relay at a stand-in provider.
type OAuthConfig struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	RedirectURL  string        `mapstructure:"redirect_url"`
	FrontendURL  string        `mapstructure:"frontend_url"`
	Scopes       []string      `mapstructure:"scopes"`
	Issuer       string        `mapstructure:"issuer"`
	AuthURL      string        `mapstructure:"auth_url"`
	TokenURL     string        `mapstructure:"token_url"`
	UserInfoURL  string        `mapstructure:"userinfo_url"`
	RevokeURL    string        `mapstructure:"revoke_url"`
	StateTTL     time.Duration `mapstructure:"state_ttl"`
}

// VaultConfig carries the operator secret the token-encryption key is
// derived from. Losing the secret invalidates every stored ciphertext.
type VaultConfig struct {
	EncryptionSecret string `mapstructure:"encryption_secret"`
}

// MirrorConfig points at the external durable store (Supabase PostgREST).
// An empty URL disables mirroring.
type MirrorConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// DefaultScopes are the scopes requested on login when none are configured.
var DefaultScopes = []string{
	"openid",
	"email",
	"profile",
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/calendar.events",
	"https://www.googleapis.com/auth/tasks",
}

// InitFlags initializes command line flags (without parsing)
func InitFlags() {
	pflag.String("config-file", "", "Path to the config file")
	// Note: no pflag.Parse() here as it's called in main.go
}

func Load() (*Config, error) {
	viper.Reset() // Ensure clean state

	viper.SetEnvPrefix("AUTH_RELAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8050)
	viper.SetDefault("server.timeout", "30s")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("oauth.frontend_url", "http://localhost:3000")
	viper.SetDefault("oauth.state_ttl", "10m")

	// Registering the secret-bearing keys lets AutomaticEnv resolve them
	// during Unmarshal even when no config file mentions them.
	for _, key := range []string{
		"oauth.client_id", "oauth.client_secret", "oauth.redirect_url",
		"oauth.issuer", "oauth.auth_url", "oauth.token_url",
		"oauth.userinfo_url", "oauth.revoke_url",
		"vault.encryption_secret", "mirror.url", "mirror.api_key",
	} {
		viper.SetDefault(key, "")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/auth-relay")

	if configFile := viper.GetString("config-file"); configFile != "" {
		viper.SetConfigFile(configFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, everything can come from the environment
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if len(config.OAuth.Scopes) == 0 {
		config.OAuth.Scopes = DefaultScopes
	}

	if config.OAuth.ClientID == "" || config.OAuth.ClientSecret == "" || config.OAuth.RedirectURL == "" {
		return nil, fmt.Errorf("oauth.client_id, oauth.client_secret and oauth.redirect_url are required, please adjust the config or set the AUTH_RELAY_OAUTH_* environment variables")
	}

	if config.Vault.EncryptionSecret == "" {
		return nil, fmt.Errorf("vault.encryption_secret is required, please adjust the config or set AUTH_RELAY_VAULT_ENCRYPTION_SECRET")
	}

	return &config, nil
}
