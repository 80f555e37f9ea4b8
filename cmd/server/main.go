// Command server runs the device lending backend.
//
// It loads configuration from the environment (optionally a .env file),
// sets up structured logging and tracing, opens the configured store
// backend, wires the HTTP API, and serves until interrupted.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/devports/go-lending-backend/internal/config"
	httpapi "github.com/devports/go-lending-backend/internal/http"
	"github.com/devports/go-lending-backend/internal/observability"
	"github.com/devports/go-lending-backend/internal/store"
	"github.com/devports/go-lending-backend/internal/store/fsstore"
	"github.com/devports/go-lending-backend/internal/store/sqlstore"
	"github.com/devports/go-lending-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing (no-op unless OTEL_ENABLED).
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown failed")
		}
	}()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("store setup failed")
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("store close failed")
		}
	}()

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, st, cfg, log.Logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("backend", cfg.Store.Backend).
			Str("version", version).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("server failed")
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}

// setupLogging configures the global zerolog logger from config.
func setupLogging(cfg config.Config) {
	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// openStores opens the store backend selected by STORE_BACKEND.
func openStores(ctx context.Context, cfg config.Config) (store.Stores, error) {
	switch cfg.Store.Backend {
	case config.BackendFirestore:
		return fsstore.Open(ctx, cfg.Store.ProjectID, cfg.Store.CredentialsFile)
	case config.BackendPostgres:
		db, err := sqlstore.OpenPostgres(cfg.Store.DatabaseURL)
		if err != nil {
			return store.Stores{}, err
		}
		if cfg.OTEL.Enabled {
			if err := sqlstore.EnableTracing(db); err != nil {
				return store.Stores{}, err
			}
		}
		if err := sqlstore.AutoMigrate(db); err != nil {
			return store.Stores{}, err
		}
		return sqlstore.New(db), nil
	default: // sqlite
		db, err := sqlstore.OpenSQLite(cfg.Store.DBPath)
		if err != nil {
			return store.Stores{}, err
		}
		if cfg.OTEL.Enabled {
			if err := sqlstore.EnableTracing(db); err != nil {
				return store.Stores{}, err
			}
		}
		if err := sqlstore.AutoMigrate(db); err != nil {
			return store.Stores{}, err
		}
		return sqlstore.New(db), nil
	}
}
