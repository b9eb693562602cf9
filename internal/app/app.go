package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/courseconnect/courseconnect-server/internal/alias"
	"github.com/courseconnect/courseconnect-server/internal/auth"
	"github.com/courseconnect/courseconnect-server/internal/chat"
	"github.com/courseconnect/courseconnect-server/internal/config"
	"github.com/courseconnect/courseconnect-server/internal/pm"
	"github.com/courseconnect/courseconnect-server/internal/store"
	"github.com/courseconnect/courseconnect-server/internal/store/sqlite"
	transporthttp "github.com/courseconnect/courseconnect-server/internal/transport/http"
)

// App wires together stores, services and the transport layer. Everything is
// constructed explicitly and passed down; no process-wide service locator.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	authService := auth.NewService(st, jwtConfig)

	seed := cfg.AliasSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	allocator := alias.NewAllocator(st, alias.DefaultPool(seed), logger)

	registry := chat.NewRegistry(logger)
	chatService := chat.NewService(registry, st, logger)
	pmService := pm.NewService(st, st, logger)

	server := transporthttp.NewServer(cfg, authService, st, chatService, allocator, pmService, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
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

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
