package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/servicepulse/backend/internal/config"
	"github.com/servicepulse/backend/internal/db"
	"github.com/servicepulse/backend/internal/gpsmatch"
	httpapi "github.com/servicepulse/backend/internal/http"
	"github.com/servicepulse/backend/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "servicepulse-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure schema")
	}

	gpsCfg := gpsmatch.DefaultConfig()
	if cfg.MatchWindowMinutes > 0 {
		gpsCfg.Window = time.Duration(cfg.MatchWindowMinutes) * time.Minute
	}
	if cfg.GPSMatchThreshold > 0 {
		gpsCfg.Threshold = cfg.GPSMatchThreshold
	}
	pipe := pipeline.New(gpsCfg, logger)

	router := httpapi.Router(cfg, store, pipe, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
