package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/api"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/app"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/config"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/db"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/eta"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/logging"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/metrics"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/planner"
)

func main() {
	// Load base .env first, then .env.local (which overrides for local development)
	config.LoadDotEnv(".")

	// An invalid environment falls back to the defaults and starts degraded
	cfg, cfgErr := config.LoadOrDefaults()
	logging.Setup(cfg.LogFormat, cfg.LogLevel)
	if cfgErr != nil {
		log.Error().Err(cfgErr).Msg("Invalid configuration, using defaults")
	}

	collector := metrics.NewCollector()
	deps := api.Deps{
		Metrics:                collector,
		OnTimeThresholdSeconds: cfg.OnTimeThresholdSeconds,
		CORSOrigins:            cfg.CORSOrigins,
	}

	// A broken config, schedule or model leaves the server up in degraded mode
	est, err := newEstimator(cfg, cfgErr, collector)
	if err != nil {
		log.Error().Err(err).Msg("Starting in degraded mode")
	} else {
		feed := app.NewFeed(cfg, collector)
		deps.Estimator = est
		deps.Feed = feed
		deps.Planner = planner.New(est, feed, cfg.NearbyRadiusKm)
	}

	// Delay history is optional; the endpoint reports 503 without it
	store, err := db.Connect(cfg.StatsDatabase)
	if err != nil {
		log.Warn().Err(err).Msg("Delay history unavailable")
	} else {
		defer store.Close()
		if err := store.EnsureSchema(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Delay history schema unavailable")
		} else {
			deps.History = store
		}
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("API server starting")
		log.Info().Msg("  GET  /health")
		log.Info().Msg("  GET  /get-system-stats")
		log.Info().Msg("  POST /get-realtime-trip-plan")
		log.Info().Msg("  GET  /get-active-routes")
		log.Info().Msg("  GET  /api/stats/delays")
		log.Info().Msg("  GET  /metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

func newEstimator(cfg *config.Config, cfgErr error, collector *metrics.Collector) (*eta.Estimator, error) {
	if cfgErr != nil {
		return nil, cfgErr
	}
	return app.NewEstimator(cfg, collector)
}
