package main

import (
	"fmt"
	"os"

	"github.com/brizzai/auth-relay/internal/auth"
	"github.com/brizzai/auth-relay/internal/config"
	"github.com/brizzai/auth-relay/internal/logger"
	"github.com/brizzai/auth-relay/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	Execute()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "auth-relay",
	Short: "OAuth2 authorization-code relay",
	Long: `auth-relay brokers the Google OAuth2 login flow for a browser frontend.
It exchanges authorization codes for tokens, keeps sessions encrypted at rest,
and exposes refresh, validate and logout endpoints keyed by user id.`,
	Run: runServer,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			fmt.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	config.InitFlags()
	rootCmd.PersistentFlags().AddFlagSet(pflag.CommandLine)
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")
}

func runServer(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := logger.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded", zap.Int("port", cfg.Server.Port))

	app := fx.New(
		fx.Supply(cfg),
		config.Module,
		auth.Module,
		server.Module,
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.GetLogger()}
		}),
	)

	app.Run()
}
