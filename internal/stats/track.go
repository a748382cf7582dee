package stats

import (
	"context"
	"sort"

	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/eta"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/livefeed"
)

// StatusBandSeconds separates LATE and EARLY from ON TIME when tracking a
// single bus.
const StatusBandSeconds = 60

const (
	StatusLate    = "LATE"
	StatusEarly   = "EARLY"
	StatusOnTime  = "ON TIME"
	StatusUnknown = "UNKNOWN"
)

// BusStatus is the next-stop view of one live bus.
type BusStatus struct {
	VehicleID    string
	TripID       int64
	NextStop     string
	ETA          string
	DelaySeconds float64
	Status       string
}

// DelayStatus classifies a segment delay.
func DelayStatus(delaySeconds float64) string {
	switch {
	case delaySeconds > StatusBandSeconds:
		return StatusLate
	case delaySeconds < -StatusBandSeconds:
		return StatusEarly
	default:
		return StatusOnTime
	}
}

// TrackRoute reports every live bus on routeID that can be placed on its
// trip and has a stop ahead, ordered by vehicle id.
func TrackRoute(ctx context.Context, est *eta.Estimator, vehicles []livefeed.Vehicle, routeID int64) []BusStatus {
	sched := est.Schedule()

	var onRoute []livefeed.Vehicle
	for _, v := range MatchedVehicles(sched, vehicles) {
		if r, _ := sched.RouteOf(*v.TripID); r == routeID {
			onRoute = append(onRoute, v)
		}
	}

	var jobs []eta.ETAJob
	for _, v := range onRoute {
		_, seg, reason, _ := est.Locate(v)
		if reason != eta.ReasonNone || !seg.HasNext {
			continue
		}
		jobs = append(jobs, eta.ETAJob{Vehicle: v, Destination: seg.Next})
	}

	etas := est.ETABatch(ctx, jobs)
	delays := est.DelayBatch(ctx, vehiclesOf(jobs))

	out := make([]BusStatus, 0, len(jobs))
	for i, job := range jobs {
		if !etas[i].OK {
			continue
		}
		s := BusStatus{
			VehicleID: job.Vehicle.VehicleID,
			TripID:    *job.Vehicle.TripID,
			NextStop:  job.Destination.StopName,
			ETA:       etas[i].ETA.FinalETA,
			Status:    StatusUnknown,
		}
		if delays[i].OK {
			s.DelaySeconds = delays[i].DelaySeconds
			s.Status = DelayStatus(s.DelaySeconds)
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out
}

func vehiclesOf(jobs []eta.ETAJob) []livefeed.Vehicle {
	vs := make([]livefeed.Vehicle, len(jobs))
	for i, j := range jobs {
		vs[i] = j.Vehicle
	}
	return vs
}
