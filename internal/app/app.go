// Package app assembles the schedule, predictor and live feed from
// configuration for the server and the CLI.
package app

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/config"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/eta"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/livefeed"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/metrics"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/model"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/schedule"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/static"
)

// NewPredictor returns the HTTP predictor when MODEL_URL is set, otherwise
// the YAML table at MODEL_PATH.
func NewPredictor(cfg *config.Config) (model.Predictor, error) {
	if cfg.ModelURL != "" {
		log.Info().Str("url", cfg.ModelURL).Msg("Using remote travel time model")
		return model.NewHTTPPredictor(cfg.ModelURL, cfg.LiveFeedTimeout), nil
	}
	p, err := model.LoadTablePredictor(cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", cfg.ModelPath).Msg("Loaded travel time table")
	return p, nil
}

// NewEstimator loads the static tables and the predictor. Any error here
// means the service cannot answer and should run degraded.
func NewEstimator(cfg *config.Config, collector *metrics.Collector) (*eta.Estimator, error) {
	tables, err := static.Load(cfg.StaticDataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load static data: %w", err)
	}
	sched, err := schedule.NewContext(tables)
	if err != nil {
		return nil, fmt.Errorf("failed to build schedule: %w", err)
	}
	predictor, err := NewPredictor(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	var opts []eta.Option
	if collector != nil {
		collector.StaticLoaded(sched.NumStops(), sched.NumTrips())
		opts = append(opts, eta.WithMetrics(collector))
	}

	log.Info().
		Int("stops", sched.NumStops()).
		Int("trips", sched.NumTrips()).
		Str("tz", cfg.Location.String()).
		Msg("Schedule ready")
	return eta.NewEstimator(sched, predictor, cfg.Location, opts...), nil
}

// NewFeed creates the live feed client.
func NewFeed(cfg *config.Config, collector *metrics.Collector) *livefeed.Client {
	var m livefeed.Metrics
	if collector != nil {
		m = collector
	}
	return livefeed.NewClient(cfg.LiveFeedURL, cfg.LiveFeedTimeout, m)
}
