package auth

import (
	"github.com/brizzai/auth-relay/internal/auth/mirror"
	"github.com/brizzai/auth-relay/internal/auth/providers"
	"github.com/brizzai/auth-relay/internal/auth/session"
	"github.com/brizzai/auth-relay/internal/auth/state"
	"github.com/brizzai/auth-relay/internal/auth/vault"
	"github.com/brizzai/auth-relay/internal/config"
	"go.uber.org/fx"
)

// Module provides the auth service and its stores
var Module = fx.Module("auth",
	fx.Provide(
		vault.New,
		session.NewStore,
		mirror.NewSyncer,
		func(cfg *config.OAuthConfig) *state.Registry {
			var opts []state.Option
			if cfg.StateTTL > 0 {
				opts = append(opts, state.WithTTL(cfg.StateTTL))
			}
			return state.NewRegistry(opts...)
		},
		fx.Annotate(
			providers.NewGoogleProvider,
			fx.As(new(providers.Provider)),
		),
		NewService,
	),
)
