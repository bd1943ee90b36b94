package config

import "go.uber.org/fx"

// Module derives the configuration sections from an already-loaded *Config
// supplied by the entrypoint.
var Module = fx.Module("config",
	fx.Provide(
		func(cfg *Config) *ServerConfig { return &cfg.Server },
		func(cfg *Config) *LoggingConfig { return &cfg.Logging },
		func(cfg *Config) *OAuthConfig { return &cfg.OAuth },
		func(cfg *Config) *VaultConfig { return &cfg.Vault },
		func(cfg *Config) *MirrorConfig { return &cfg.Mirror },
	),
)
