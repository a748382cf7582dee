// Package recorder polls the live feed on an interval and keeps the delay
// history: one snapshot per poll, hourly per-route aggregates and an optional
// NATS stream of individual observations.
package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/db"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/eta"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/livefeed"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/publisher"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/stats"
)

// Feed supplies live vehicle snapshots.
type Feed interface {
	Snapshot(ctx context.Context) []livefeed.Vehicle
}

// Store persists polls. *db.DB implements it.
type Store interface {
	RecordSnapshot(ctx context.Context, polledAt time.Time, vehicleCount int, observations []db.DelayObservation) (string, error)
	UpdateDelayStats(ctx context.Context, at time.Time, observations []db.DelayObservation, thresholdSeconds float64) error
	Cleanup(ctx context.Context, now time.Time, retention time.Duration) error
}

// Config holds the recorder knobs.
type Config struct {
	OnTimeThresholdSeconds float64
	Retention              time.Duration
}

// Recorder ties the estimator, feed, store and publisher together.
type Recorder struct {
	est   *eta.Estimator
	feed  Feed
	store Store
	pub   publisher.Publisher
	cfg   Config
}

// New creates a Recorder. A nil publisher discards observations.
func New(est *eta.Estimator, feed Feed, store Store, pub publisher.Publisher, cfg Config) *Recorder {
	if pub == nil {
		pub = publisher.Nop{}
	}
	if cfg.OnTimeThresholdSeconds <= 0 {
		cfg.OnTimeThresholdSeconds = stats.DefaultOnTimeThresholdSeconds
	}
	return &Recorder{est: est, feed: feed, store: store, pub: pub, cfg: cfg}
}

// PollResult summarises one poll.
type PollResult struct {
	SnapshotID   string
	Vehicles     int
	Observations int
	Published    int
}

// PollOnce takes one feed snapshot, measures every matched vehicle's segment
// delay and stores the result. Publish failures are logged, not returned.
func (r *Recorder) PollOnce(ctx context.Context) (PollResult, error) {
	now := r.est.Now()
	vehicles := r.feed.Snapshot(ctx)
	matched := stats.MatchedVehicles(r.est.Schedule(), vehicles)

	var observations []db.DelayObservation
	for _, d := range r.est.DelayBatch(ctx, matched) {
		if !d.OK {
			log.Debug().Str("vehicle", d.VehicleID).Str("reason", string(d.Reason)).Err(d.Err).Msg("Skipping vehicle")
			continue
		}
		observations = append(observations, db.DelayObservation{
			VehicleID:    d.VehicleID,
			TripID:       d.TripID,
			RouteID:      d.RouteID,
			DelaySeconds: d.DelaySeconds,
		})
	}

	res := PollResult{Vehicles: len(vehicles), Observations: len(observations)}

	id, err := r.store.RecordSnapshot(ctx, now, len(vehicles), observations)
	if err != nil {
		return res, fmt.Errorf("failed to record snapshot: %w", err)
	}
	res.SnapshotID = id

	if err := r.store.UpdateDelayStats(ctx, now, observations, r.cfg.OnTimeThresholdSeconds); err != nil {
		return res, fmt.Errorf("failed to update delay stats: %w", err)
	}

	for _, obs := range observations {
		err := r.pub.PublishDelay(publisher.DelayMessage{
			VehicleID:    obs.VehicleID,
			TripID:       obs.TripID,
			RouteID:      obs.RouteID,
			DelaySeconds: obs.DelaySeconds,
			ObservedAt:   now.UTC(),
		})
		if err != nil {
			log.Warn().Err(err).Str("vehicle", obs.VehicleID).Msg("Failed to publish delay")
			continue
		}
		res.Published++
	}

	log.Info().
		Str("snapshot", id).
		Int("vehicles", res.Vehicles).
		Int("observations", res.Observations).
		Msg("Recorded poll")
	return res, nil
}

func (r *Recorder) pollAndClean(ctx context.Context) {
	if _, err := r.PollOnce(ctx); err != nil {
		log.Error().Err(err).Msg("Poll failed")
	}
	if err := r.store.Cleanup(ctx, r.est.Now(), r.cfg.Retention); err != nil {
		log.Error().Err(err).Msg("Cleanup failed")
	}
}

// Run polls immediately and then every interval until ctx is cancelled.
func (r *Recorder) Run(ctx context.Context, interval time.Duration) {
	log.Info().Dur("interval", interval).Dur("retention", r.cfg.Retention).Msg("Recorder running")
	r.pollAndClean(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.pollAndClean(ctx)
		case <-ctx.Done():
			log.Info().Msg("Recorder stopped")
			return
		}
	}
}
