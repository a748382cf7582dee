package stats

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/eta"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/livefeed"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/schedule"
)

// NotAvailable is reported for delay figures when nothing could be measured.
const NotAvailable = "N/A"

// DefaultOnTimeThresholdSeconds is the on-time band, in either direction.
const DefaultOnTimeThresholdSeconds = 300

// SystemStats summarises the live network.
// AvgDelayMinutes and OnTimePercentage hold a float64 or NotAvailable.
type SystemStats struct {
	ActiveBusesCount   int         `json:"active_buses_count" groups:"basic"`
	AvgDelayMinutes    interface{} `json:"avg_delay_minutes" groups:"basic"`
	OnTimePercentage   interface{} `json:"on_time_percentage" groups:"basic"`
	RoutesCoveredCount int         `json:"routes_covered_count" groups:"basic"`
	LastUpdated        string      `json:"last_updated" groups:"basic"`
}

// ActiveRoute is a route with at least one live vehicle.
type ActiveRoute struct {
	RouteID        int64  `json:"route_id" groups:"basic"`
	RouteShortName string `json:"route_short_name" groups:"basic"`
}

// Compute builds SystemStats from one live snapshot. Every vehicle counts as
// active; only vehicles whose trip is in the schedule contribute routes and
// delays. With no measurable delay both delay figures are NotAvailable.
func Compute(ctx context.Context, est *eta.Estimator, vehicles []livefeed.Vehicle, thresholdSeconds float64) SystemStats {
	now := est.Now()
	out := SystemStats{
		ActiveBusesCount: len(vehicles),
		AvgDelayMinutes:  NotAvailable,
		OnTimePercentage: NotAvailable,
		LastUpdated:      now.Format(time.RFC3339),
	}

	matched := MatchedVehicles(est.Schedule(), vehicles)
	out.RoutesCoveredCount = len(routeSet(est.Schedule(), matched))

	var (
		w      Welford
		onTime int
	)
	for _, r := range est.DelayBatch(ctx, matched) {
		if !r.OK {
			log.Debug().Str("vehicle", r.VehicleID).Str("reason", string(r.Reason)).Err(r.Err).Msg("No delay for vehicle")
			continue
		}
		w.Add(r.DelaySeconds)
		if math.Abs(r.DelaySeconds) <= thresholdSeconds {
			onTime++
		}
	}

	if w.Count > 0 {
		out.AvgDelayMinutes = w.Mean / 60
		out.OnTimePercentage = float64(onTime) / float64(w.Count) * 100
	}
	return out
}

// MatchedVehicles keeps vehicles whose trip exists in the schedule.
func MatchedVehicles(sched *schedule.Context, vehicles []livefeed.Vehicle) []livefeed.Vehicle {
	matched := make([]livefeed.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if !v.HasTrip() {
			continue
		}
		if _, ok := sched.RouteOf(*v.TripID); ok {
			matched = append(matched, v)
		}
	}
	return matched
}

func routeSet(sched *schedule.Context, vehicles []livefeed.Vehicle) map[int64]bool {
	routes := make(map[int64]bool)
	for _, v := range vehicles {
		if !v.HasTrip() {
			continue
		}
		if routeID, ok := sched.RouteOf(*v.TripID); ok {
			routes[routeID] = true
		}
	}
	return routes
}

// ActiveRoutes lists the routes served by live vehicles in ascending id.
func ActiveRoutes(sched *schedule.Context, vehicles []livefeed.Vehicle) []ActiveRoute {
	set := routeSet(sched, vehicles)
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	routes := make([]ActiveRoute, 0, len(ids))
	for _, id := range ids {
		routes = append(routes, ActiveRoute{RouteID: id, RouteShortName: sched.RouteName(id)})
	}
	return routes
}
