package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/stats"
)

// DelayObservation is one vehicle's segment delay at poll time.
type DelayObservation struct {
	VehicleID    string
	TripID       int64
	RouteID      int64
	DelaySeconds float64
}

// HourlyDelayStat is one route/hour row of the delay history.
type HourlyDelayStat struct {
	RouteID          int64   `json:"routeId" groups:"basic"`
	HourBucket       string  `json:"hourBucket" groups:"basic"`
	ObservationCount int     `json:"observationCount" groups:"basic"`
	MeanDelaySeconds float64 `json:"meanDelaySeconds" groups:"basic"`
	StdDevSeconds    float64 `json:"stdDevSeconds" groups:"basic"`
	OnTimePercent    float64 `json:"onTimePercent" groups:"basic"`
	MaxDelaySeconds  float64 `json:"maxDelaySeconds" groups:"basic"`
}

// HourBucket truncates t to the UTC hour it falls in.
func HourBucket(t time.Time) string {
	return t.UTC().Truncate(time.Hour).Format(time.RFC3339)
}

// RecordSnapshot stores one poll: a snapshot row plus its delay observations.
// It returns the new snapshot ID.
func (db *DB) RecordSnapshot(ctx context.Context, polledAt time.Time, vehicleCount int, observations []DelayObservation) (string, error) {
	snapshotID := uuid.New().String()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, db.rebind(`
		INSERT INTO rt_snapshots (snapshot_id, polled_at_utc, vehicle_count, delay_count)
		VALUES (?, ?, ?, ?)
	`), snapshotID, polledAt.UTC().Format(time.RFC3339), vehicleCount, len(observations))
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot: %w", err)
	}

	insert := db.rebind(`
		INSERT INTO rt_vehicle_delays (snapshot_id, vehicle_id, trip_id, route_id, delay_seconds)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (snapshot_id, vehicle_id) DO NOTHING
	`)
	for _, obs := range observations {
		if _, err := tx.ExecContext(ctx, insert, snapshotID, obs.VehicleID, obs.TripID, obs.RouteID, obs.DelaySeconds); err != nil {
			return "", fmt.Errorf("failed to insert delay for vehicle %s: %w", obs.VehicleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return snapshotID, nil
}

// UpdateDelayStats folds observations into the hourly per-route aggregates
// for the hour containing at. thresholdSeconds separates on-time from delayed.
func (db *DB) UpdateDelayStats(ctx context.Context, at time.Time, observations []DelayObservation, thresholdSeconds float64) error {
	byRoute := make(map[int64][]float64)
	for _, obs := range observations {
		if math.IsNaN(obs.DelaySeconds) || math.IsInf(obs.DelaySeconds, 0) {
			continue
		}
		byRoute[obs.RouteID] = append(byRoute[obs.RouteID], obs.DelaySeconds)
	}
	if len(byRoute) == 0 {
		return nil
	}

	bucket := HourBucket(at)

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	selectRow := db.rebind(`
		SELECT observation_count, delay_mean_seconds, delay_m2,
			delayed_count, on_time_count, max_delay_seconds
		FROM stats_delay_hourly
		WHERE route_id = ? AND hour_bucket = ?
	`)
	upsert := db.rebind(`
		INSERT INTO stats_delay_hourly (route_id, hour_bucket, observation_count,
			delay_mean_seconds, delay_m2, delayed_count, on_time_count, max_delay_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (route_id, hour_bucket) DO UPDATE SET
			observation_count = excluded.observation_count,
			delay_mean_seconds = excluded.delay_mean_seconds,
			delay_m2 = excluded.delay_m2,
			delayed_count = excluded.delayed_count,
			on_time_count = excluded.on_time_count,
			max_delay_seconds = excluded.max_delay_seconds
	`)

	for routeID, delays := range byRoute {
		var (
			w                    stats.Welford
			delayedCount, onTime int
			maxDelay             float64
		)
		err := tx.QueryRowContext(ctx, selectRow, routeID, bucket).
			Scan(&w.Count, &w.Mean, &w.M2, &delayedCount, &onTime, &maxDelay)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to read delay stats for route %d: %w", routeID, err)
		}

		for _, d := range delays {
			w.Add(d)
			abs := math.Abs(d)
			if abs > thresholdSeconds {
				delayedCount++
			} else {
				onTime++
			}
			if abs > maxDelay {
				maxDelay = abs
			}
		}

		if _, err := tx.ExecContext(ctx, upsert, routeID, bucket, w.Count, w.Mean, w.M2, delayedCount, onTime, maxDelay); err != nil {
			return fmt.Errorf("failed to upsert delay stats for route %d: %w", routeID, err)
		}
	}

	return tx.Commit()
}

// GetHourlyDelayStats returns hourly rows newer than since, oldest first.
// A zero routeID returns every route.
func (db *DB) GetHourlyDelayStats(ctx context.Context, routeID int64, since time.Time) ([]HourlyDelayStat, error) {
	// RFC3339 UTC buckets sort lexically, so the cutoff is a string compare
	// that works on both backends.
	query := `
		SELECT route_id, hour_bucket, observation_count,
			delay_mean_seconds, delay_m2, delayed_count, on_time_count, max_delay_seconds
		FROM stats_delay_hourly
		WHERE hour_bucket >= ?`
	args := []interface{}{HourBucket(since)}
	if routeID != 0 {
		query += ` AND route_id = ?`
		args = append(args, routeID)
	}
	query += ` ORDER BY hour_bucket ASC, route_id ASC`

	rows, err := db.conn.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query delay stats: %w", err)
	}
	defer rows.Close()

	out := make([]HourlyDelayStat, 0)
	for rows.Next() {
		var (
			s                    HourlyDelayStat
			m2                   float64
			delayedCount, onTime int
		)
		if err := rows.Scan(&s.RouteID, &s.HourBucket, &s.ObservationCount,
			&s.MeanDelaySeconds, &m2, &delayedCount, &onTime, &s.MaxDelaySeconds); err != nil {
			return nil, fmt.Errorf("failed to scan delay stats: %w", err)
		}

		w := stats.Welford{Count: s.ObservationCount, Mean: s.MeanDelaySeconds, M2: m2}
		s.StdDevSeconds = w.StdDev()

		if total := delayedCount + onTime; total > 0 {
			s.OnTimePercent = float64(onTime) / float64(total) * 100
		} else {
			s.OnTimePercent = 100
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate delay stats: %w", err)
	}
	return out, nil
}
