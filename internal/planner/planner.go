package planner

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/eta"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/livefeed"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/schedule"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/stats"
)

const (
	MessageNoLiveBuses        = "No buses are currently live."
	MessageNoDestinationStops = "Could not find any bus stops near your destination."
)

// Coordinate is a WGS84 point in degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// PossibleRoute is one scheduled way of riding from a stop near the start to
// a stop near the end.
type PossibleRoute struct {
	RouteID                int64   `json:"route_id" groups:"basic"`
	RouteName              string  `json:"route_name" groups:"basic"`
	StartStop              string  `json:"start_stop" groups:"basic"`
	EndStop                string  `json:"end_stop" groups:"basic"`
	NextScheduledDeparture *string `json:"next_scheduled_departure" groups:"basic"`
	StartStopID            int64   `json:"start_stop_id" groups:"detailed"`
	EndStopID              int64   `json:"end_stop_id" groups:"detailed"`
}

// Feed supplies one live snapshot per call. Failures yield an empty slice.
type Feed interface {
	Snapshot(ctx context.Context) []livefeed.Vehicle
}

// Planner answers trip planning requests against the schedule and the live
// feed.
type Planner struct {
	est      *eta.Estimator
	feed     Feed
	radiusKm float64
}

// New creates a Planner. A non-positive radius uses schedule.DefaultRadiusKm.
func New(est *eta.Estimator, feed Feed, radiusKm float64) *Planner {
	if radiusKm <= 0 {
		radiusKm = schedule.DefaultRadiusKm
	}
	return &Planner{est: est, feed: feed, radiusKm: radiusKm}
}

type journeyKey struct {
	routeID, startStopID, endStopID int64
}

// Plan lists the scheduled routes connecting stops near start to stops near
// end, in the direction of travel. Each (route, start stop, end stop)
// appears once, first occurrence in (trip, sequence) order wins.
func (p *Planner) Plan(start, end Coordinate, now time.Time) []PossibleRoute {
	sched := p.est.Schedule()
	out := make([]PossibleRoute, 0)

	nearStart := sched.NearStops(start.Lat, start.Lon, p.radiusKm)
	nearEnd := sched.NearStops(end.Lat, end.Lon, p.radiusKm)
	if len(nearStart) == 0 || len(nearEnd) == 0 {
		return out
	}

	endByTrip := make(map[int64][]schedule.JoinRow)
	for _, r := range sched.RowsAtStops(nearEnd) {
		endByTrip[r.TripID] = append(endByTrip[r.TripID], r)
	}

	seen := make(map[journeyKey]bool)
	for _, s := range sched.RowsAtStops(nearStart) {
		for _, e := range endByTrip[s.TripID] {
			if s.StopSequence >= e.StopSequence {
				continue
			}
			key := journeyKey{routeID: s.RouteID, startStopID: s.StopID, endStopID: e.StopID}
			if seen[key] {
				continue
			}
			seen[key] = true

			route := PossibleRoute{
				RouteID:     s.RouteID,
				RouteName:   sched.RouteName(s.RouteID),
				StartStop:   s.StopName,
				EndStop:     e.StopName,
				StartStopID: s.StopID,
				EndStopID:   e.StopID,
			}
			if dep, ok := sched.NextDeparture(s.TripID, s.StopID, now); ok {
				route.NextScheduledDeparture = &dep
			}
			out = append(out, route)
		}
	}
	return out
}

// RealtimePlan combines scheduled routes with the live vehicles serving them.
type RealtimePlan struct {
	PossibleRoutes []PossibleRoute
	ActiveRoutes   []stats.ActiveRoute
	// RouteIDs are the routes both possible and live, ascending.
	RouteIDs  []int64
	FinalPlan map[int64][]eta.ETA
	// Message is set when the plan stops early.
	Message string
	// NoDestination means the body is only Message.
	NoDestination bool
}

// Realtime answers a trip plan with ETAs from every live bus on a route that
// connects start and end.
func (p *Planner) Realtime(ctx context.Context, start, end Coordinate) RealtimePlan {
	now := p.est.Now()
	sched := p.est.Schedule()

	plan := RealtimePlan{
		PossibleRoutes: p.Plan(start, end, now),
		ActiveRoutes:   []stats.ActiveRoute{},
		FinalPlan:      map[int64][]eta.ETA{},
	}

	vehicles := p.feed.Snapshot(ctx)
	if len(vehicles) == 0 {
		plan.Message = MessageNoLiveBuses
		return plan
	}

	plan.ActiveRoutes = stats.ActiveRoutes(sched, vehicles)
	plan.RouteIDs = intersectRoutes(plan.PossibleRoutes, plan.ActiveRoutes)

	nearEnd := sched.NearStops(end.Lat, end.Lon, p.radiusKm)
	if len(nearEnd) == 0 {
		plan.Message = MessageNoDestinationStops
		plan.NoDestination = true
		return plan
	}

	byRoute := make(map[int64][]livefeed.Vehicle)
	for _, v := range stats.MatchedVehicles(sched, vehicles) {
		routeID, _ := sched.RouteOf(*v.TripID)
		byRoute[routeID] = append(byRoute[routeID], v)
	}

	for _, routeID := range plan.RouteIDs {
		var jobs []eta.ETAJob
		for _, v := range byRoute[routeID] {
			dest, ok := p.est.Destination(v, nearEnd, end.Lat, end.Lon)
			if !ok {
				log.Debug().Str("vehicle", v.VehicleID).Int64("route", routeID).Msg("No destination stop on vehicle trip")
				continue
			}
			jobs = append(jobs, eta.ETAJob{Vehicle: v, Destination: dest})
		}

		etas := make([]eta.ETA, 0, len(jobs))
		for _, r := range p.est.ETABatch(ctx, jobs) {
			if !r.OK {
				log.Debug().Str("vehicle", r.ETA.VehicleID).Str("reason", string(r.Reason)).Err(r.Err).Msg("No ETA for vehicle")
				continue
			}
			etas = append(etas, r.ETA)
		}
		plan.FinalPlan[routeID] = etas
	}
	return plan
}

func intersectRoutes(possible []PossibleRoute, active []stats.ActiveRoute) []int64 {
	live := make(map[int64]bool, len(active))
	for _, a := range active {
		live[a.RouteID] = true
	}
	seen := make(map[int64]bool)
	ids := make([]int64, 0)
	for _, r := range possible {
		if live[r.RouteID] && !seen[r.RouteID] {
			seen[r.RouteID] = true
			ids = append(ids, r.RouteID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
