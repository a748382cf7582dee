package eta

import (
	"context"
	"math"
	"time"

	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/geo"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/livefeed"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/model"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/schedule"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/static"
)

// ETAFormat is the display layout of final_eta.
const ETAFormat = "03:04:05 PM"

// Reason explains why a per-vehicle computation produced no result.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonNoTrip               Reason = "vehicle has no trip"
	ReasonUnknownTrip          Reason = "trip not in schedule"
	ReasonNoPosition           Reason = "vehicle has no position"
	ReasonPastFinalStop        Reason = "vehicle is past the final stop"
	ReasonDestinationNotOnTrip Reason = "destination not on trip"
	ReasonDestinationPassed    Reason = "destination already passed"
	ReasonPredictionFailed     Reason = "prediction failed"
	ReasonMissingScheduleTime  Reason = "scheduled time missing"
)

// ETA is a successful arrival estimate.
type ETA struct {
	VehicleID            string    `json:"vehicle_id" groups:"basic"`
	FromStop             string    `json:"from_stop" groups:"basic"`
	ToStop               string    `json:"to_stop" groups:"basic"`
	FinalDestinationStop string    `json:"final_destination_stop" groups:"basic"`
	FinalETA             string    `json:"final_eta" groups:"basic"`
	TotalSeconds         float64   `json:"total_seconds" groups:"detailed"`
	Arrival              time.Time `json:"-"`
}

// ETAResult carries either an ETA or the reason there is none.
type ETAResult struct {
	ETA    ETA
	OK     bool
	Reason Reason
	Err    error
}

// DelayResult carries either a segment delay or the reason there is none.
// DelaySeconds is positive when the vehicle runs behind schedule.
type DelayResult struct {
	VehicleID    string
	TripID       int64
	RouteID      int64
	DelaySeconds float64
	OK           bool
	Reason       Reason
	Err          error
}

// Metrics receives prediction outcomes. A nil Metrics is ignored.
type Metrics interface {
	PredictionDone(ok bool)
}

// Estimator combines the static schedule with a segment predictor.
// It holds no mutable state and is safe for concurrent use.
type Estimator struct {
	sched     *schedule.Context
	predictor model.Predictor
	loc       *time.Location
	now       func() time.Time
	metrics   Metrics
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithClock overrides the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Estimator) { e.now = now }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(e *Estimator) { e.metrics = m }
}

// NewEstimator creates an Estimator. A nil location means UTC.
func NewEstimator(sched *schedule.Context, predictor model.Predictor, loc *time.Location, opts ...Option) *Estimator {
	if loc == nil {
		loc = time.UTC
	}
	e := &Estimator{
		sched:     sched,
		predictor: predictor,
		loc:       loc,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Schedule returns the static context the estimator reads from.
func (e *Estimator) Schedule() *schedule.Context { return e.sched }

// Now returns the current time in the service time zone.
func (e *Estimator) Now() time.Time { return e.now().In(e.loc) }

// Locate resolves the vehicle's trip and current segment.
func (e *Estimator) Locate(v livefeed.Vehicle) ([]schedule.JoinRow, Segment, Reason, error) {
	if !v.HasTrip() {
		return nil, Segment{}, ReasonNoTrip, nil
	}
	rows, err := e.sched.TripRows(*v.TripID)
	if err != nil {
		return nil, Segment{}, ReasonUnknownTrip, err
	}
	if math.IsNaN(v.Latitude) || math.IsNaN(v.Longitude) {
		return rows, Segment{}, ReasonNoPosition, nil
	}
	seg, ok := LocateSegment(rows, v.Latitude, v.Longitude)
	if !ok {
		return rows, Segment{}, ReasonNoPosition, nil
	}
	return rows, seg, ReasonNone, nil
}

// Destination picks, among the stops near the requested end point, the one
// served by the vehicle's trip that lies closest to (endLat, endLon).
func (e *Estimator) Destination(v livefeed.Vehicle, nearEnd []static.Stop, endLat, endLon float64) (schedule.JoinRow, bool) {
	if !v.HasTrip() || len(nearEnd) == 0 {
		return schedule.JoinRow{}, false
	}
	rows, err := e.sched.TripRows(*v.TripID)
	if err != nil {
		return schedule.JoinRow{}, false
	}

	wanted := make(map[int64]bool, len(nearEnd))
	for _, s := range nearEnd {
		wanted[s.StopID] = true
	}

	var (
		best  schedule.JoinRow
		found bool
		dist  = math.Inf(1)
	)
	for _, r := range rows {
		if !wanted[r.StopID] {
			continue
		}
		d := geo.Haversine(endLat, endLon, r.StopLat, r.StopLon)
		if d < dist {
			dist = d
			best = r
			found = true
		}
	}
	return best, found
}

func (e *Estimator) predict(ctx context.Context, routeID int64, row schedule.JoinRow, at time.Time) (float64, error) {
	f := model.BuildFeatures(routeID, row.StopID, row.StopSequence, at)
	seconds, err := model.SafePredict(ctx, e.predictor, f)
	if e.metrics != nil {
		e.metrics.PredictionDone(err == nil)
	}
	return seconds, err
}

// PredictETA estimates when the vehicle reaches dest, a row of its own trip.
func (e *Estimator) PredictETA(ctx context.Context, v livefeed.Vehicle, dest schedule.JoinRow) ETAResult {
	res := ETAResult{ETA: ETA{VehicleID: v.VehicleID}}

	rows, seg, reason, err := e.Locate(v)
	if reason != ReasonNone {
		res.Reason, res.Err = reason, err
		return res
	}
	if !seg.HasNext {
		res.Reason = ReasonPastFinalStop
		return res
	}
	if dest.TripID != seg.Last.TripID {
		res.Reason = ReasonDestinationNotOnTrip
		return res
	}
	if dest.StopSequence <= seg.Last.StopSequence {
		res.Reason = ReasonDestinationPassed
		return res
	}

	now := e.Now()
	routeID := seg.Last.RouteID

	full, err := e.predict(ctx, routeID, seg.Last, now)
	if err != nil {
		res.Reason, res.Err = ReasonPredictionFailed, err
		return res
	}
	remaining := full * (1 - fractionTraveled(seg, v.Latitude, v.Longitude))
	if remaining < 0 {
		remaining = 0
	}

	// One whole leg per stop in (last, destination], keyed on the stop the
	// leg starts from. The first one starts at the last passed stop.
	var future float64
	for i := seg.lastIndex; i+1 < len(rows); i++ {
		if rows[i+1].StopSequence > dest.StopSequence {
			break
		}
		s, err := e.predict(ctx, routeID, rows[i], now)
		if err != nil {
			res.Reason, res.Err = ReasonPredictionFailed, err
			return res
		}
		future += s
	}

	total := remaining + future
	arrival := now.Add(time.Duration(total * float64(time.Second)))

	res.ETA = ETA{
		VehicleID:            v.VehicleID,
		FromStop:             seg.Last.StopName,
		ToStop:               seg.Next.StopName,
		FinalDestinationStop: dest.StopName,
		FinalETA:             arrival.Format(ETAFormat),
		TotalSeconds:         total,
		Arrival:              arrival,
	}
	res.OK = true
	return res
}

// SegmentDelay compares the predicted time of the vehicle's current leg with
// the scheduled one.
func (e *Estimator) SegmentDelay(ctx context.Context, v livefeed.Vehicle) DelayResult {
	res := DelayResult{VehicleID: v.VehicleID}
	if v.HasTrip() {
		res.TripID = *v.TripID
	}

	_, seg, reason, err := e.Locate(v)
	if reason != ReasonNone {
		res.Reason, res.Err = reason, err
		return res
	}
	res.RouteID = seg.Last.RouteID
	if !seg.HasNext {
		res.Reason = ReasonPastFinalStop
		return res
	}

	scheduled, ok := ScheduledTravel(seg.Last.DepartureSeconds, seg.Next.ArrivalSeconds)
	if !ok {
		res.Reason = ReasonMissingScheduleTime
		return res
	}

	predicted, err := e.predict(ctx, seg.Last.RouteID, seg.Last, e.Now())
	if err != nil {
		res.Reason, res.Err = ReasonPredictionFailed, err
		return res
	}

	res.DelaySeconds = predicted - float64(scheduled)
	res.OK = true
	return res
}

// ScheduledTravel returns arrival - departure in seconds, adding a day when
// the arrival falls before the departure.
func ScheduledTravel(departure, arrival int) (int, bool) {
	if departure == schedule.NoTime || arrival == schedule.NoTime {
		return 0, false
	}
	if arrival < departure {
		arrival += 24 * 3600
	}
	return arrival - departure, true
}
