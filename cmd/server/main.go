package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/dsolution-crm/internal/app"
	"github.com/vovakirdan/dsolution-crm/internal/config"
	"github.com/vovakirdan/dsolution-crm/internal/log"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		overrides  config.Config
	)

	cmd := &cobra.Command{
		Use:           "dsolution-crm",
		Short:         "D-solution CRM backend: accounts, catalog, orders and live chat",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// A missing .env file is fine; real deployments use the environment.
			_ = godotenv.Load()

			bootLogger := log.New("info")
			cfg, path, err := config.Load(bootLogger, configPath)
			if err != nil {
				bootLogger.Error().Err(err).Msg("load config")
				return err
			}
			cfg.UpdateFrom(overrides)

			logger := log.New(cfg.LogLevel)
			logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("starting dsolution crm")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(&cfg, logger)
			if err != nil {
				logger.Error().Err(err).Msg("init app")
				return fmt.Errorf("init app: %w", err)
			}
			if err := application.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("server exited with error")
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	flags.StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&overrides.DatabasePath, "db", "", "SQLite database path")
	flags.StringVar(&overrides.RedisURL, "redis-url", "", "keep chat history in Redis at this URL")
	flags.DurationVar(&overrides.ReadHeaderTimeout, "read-header-timeout", 0, "HTTP read header timeout")
	flags.DurationVar(&overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")

	return cmd
}
