package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Cleanup deletes snapshots, their delays and hourly rows older than
// retention, measured from now.
func (db *DB) Cleanup(ctx context.Context, now time.Time, retention time.Duration) error {
	if retention < time.Hour {
		retention = time.Hour
	}
	cutoff := now.UTC().Add(-retention)
	cutoffTS := cutoff.Format(time.RFC3339)

	queries := []struct {
		name  string
		query string
		arg   string
	}{
		{
			name: "vehicle_delays",
			query: `DELETE FROM rt_vehicle_delays WHERE snapshot_id IN
				(SELECT snapshot_id FROM rt_snapshots WHERE polled_at_utc < ?)`,
			arg: cutoffTS,
		},
		{
			name:  "snapshots",
			query: `DELETE FROM rt_snapshots WHERE polled_at_utc < ?`,
			arg:   cutoffTS,
		},
		{
			name:  "delay_hourly",
			query: `DELETE FROM stats_delay_hourly WHERE hour_bucket < ?`,
			arg:   HourBucket(cutoff),
		},
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	var totalDeleted int64
	for _, q := range queries {
		result, err := db.conn.ExecContext(ctx, db.rebind(q.query), q.arg)
		if err != nil {
			return fmt.Errorf("failed to cleanup %s: %w", q.name, err)
		}
		n, _ := result.RowsAffected()
		totalDeleted += n
	}

	if totalDeleted > 0 {
		log.Info().Int64("deleted", totalDeleted).Dur("retention", retention).Msg("Cleaned up delay history")
	}
	return nil
}
