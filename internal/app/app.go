package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/dsolution-crm/internal/auth"
	"github.com/vovakirdan/dsolution-crm/internal/config"
	"github.com/vovakirdan/dsolution-crm/internal/core"
	"github.com/vovakirdan/dsolution-crm/internal/objectstore"
	"github.com/vovakirdan/dsolution-crm/internal/service/catalog"
	"github.com/vovakirdan/dsolution-crm/internal/service/orders"
	"github.com/vovakirdan/dsolution-crm/internal/store"
	"github.com/vovakirdan/dsolution-crm/internal/store/redisstore"
	"github.com/vovakirdan/dsolution-crm/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/dsolution-crm/internal/transport/http"
)

const redisConnectTimeout = 5 * time.Second

// App wires together storage, services and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	closers         []namedCloser
	log             *zerolog.Logger
}

type namedCloser struct {
	name string
	io.Closer
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}

	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	a.closers = append(a.closers, namedCloser{"sqlite", st})
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	// Chat history lives in SQLite unless Redis is configured.
	var messages store.MessageStore = st
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
		defer cancel()

		rs, err := redisstore.New(ctx, cfg.RedisURL)
		if err != nil {
			a.cleanup()
			return nil, fmt.Errorf("init redis message store: %w", err)
		}
		a.closers = append(a.closers, namedCloser{"redis", rs})
		messages = rs
		logger.Info().Msg("chat history stored in redis")
	}

	objects, err := objectstore.NewLocal(cfg.UploadDir, cfg.UploadBaseURL, cfg.MaxUploadBytes, logger)
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("init object store: %w", err)
	}

	if cfg.JWTSecret == config.Default().JWTSecret {
		logger.Warn().Msg("jwt_secret is the built-in default; set CRM_JWT_SECRET")
	}
	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}, cfg.StaffEmails)

	hub := core.NewHub(messages, core.Options{MaxBodyBytes: cfg.MaxMessageBytes}, logger)

	a.server = transporthttp.NewServer(transporthttp.Deps{
		Hub:     hub,
		Auth:    authService,
		Catalog: catalog.New(st),
		Orders:  orders.New(st, st, objects, logger),
	}, cfg, logger)

	return a, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes stores in reverse order of creation.
func (a *App) cleanup() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.Close(); err != nil {
			a.log.Warn().Err(err).Str("store", c.name).Msg("failed to close store")
		} else {
			a.log.Info().Str("store", c.name).Msg("store closed")
		}
	}
	a.closers = nil
}
