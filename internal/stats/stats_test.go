package stats

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/eta"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/livefeed"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/model"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/schedule/scheduletest"
)

func TestWelford(t *testing.T) {
	var w Welford
	assert.Equal(t, 0.0, w.StdDev())

	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		w.Add(x)
	}
	assert.Equal(t, 8, w.Count)
	assert.InDelta(t, 5.0, w.Mean, 1e-12)
	assert.InDelta(t, 2.0, w.StdDev(), 1e-12)
}

type constPredictor float64

func (c constPredictor) Predict(context.Context, model.FeatureVector) (float64, error) {
	return float64(c), nil
}

func estimator(seconds float64) *eta.Estimator {
	now := time.Date(2025, 3, 10, 8, 7, 0, 0, time.UTC)
	return eta.NewEstimator(scheduletest.MustContext(), constPredictor(seconds), time.UTC,
		eta.WithClock(func() time.Time { return now }))
}

func bus(id string, trip int64, lat float64) livefeed.Vehicle {
	return livefeed.Vehicle{VehicleID: id, TripID: &trip, Latitude: lat, Longitude: scheduletest.Lon}
}

func TestComputeEmptyFeed(t *testing.T) {
	s := Compute(context.Background(), estimator(100), []livefeed.Vehicle{}, DefaultOnTimeThresholdSeconds)

	assert.Equal(t, 0, s.ActiveBusesCount)
	assert.Equal(t, 0, s.RoutesCoveredCount)
	assert.Equal(t, NotAvailable, s.AvgDelayMinutes)
	assert.Equal(t, NotAvailable, s.OnTimePercentage)
	assert.Equal(t, "2025-03-10T08:07:00Z", s.LastUpdated)
}

func TestComputeNoMeasurableDelay(t *testing.T) {
	vehicles := []livefeed.Vehicle{
		{VehicleID: "no-trip", Latitude: 28.6, Longitude: 77.2},
		bus("finished", scheduletest.TripMorning, 28.66),
	}
	s := Compute(context.Background(), estimator(100), vehicles, DefaultOnTimeThresholdSeconds)

	assert.Equal(t, 2, s.ActiveBusesCount)
	assert.Equal(t, 1, s.RoutesCoveredCount)
	assert.Equal(t, NotAvailable, s.AvgDelayMinutes)
	assert.Equal(t, NotAvailable, s.OnTimePercentage)
}

func TestCompute(t *testing.T) {
	unknown := int64(999)
	vehicles := []livefeed.Vehicle{
		bus("a", scheduletest.TripMorning, 28.604), // leg 1->2 scheduled 270s
		bus("b", scheduletest.TripLater, 28.614),   // leg 2->3 scheduled 270s
		bus("c", scheduletest.TripNight, 28.638),   // leg 5->4 scheduled 300s
		{VehicleID: "d", TripID: &unknown, Latitude: 28.6, Longitude: 77.2},
		{VehicleID: "e"},
	}

	// Predicting 900s puts a and b 630s late and c 600s late.
	s := Compute(context.Background(), estimator(900), vehicles, DefaultOnTimeThresholdSeconds)
	assert.Equal(t, 5, s.ActiveBusesCount)
	assert.Equal(t, 2, s.RoutesCoveredCount)
	assert.InDelta(t, (630.0+630+600)/3/60, s.AvgDelayMinutes, 1e-9)
	assert.InDelta(t, 0.0, s.OnTimePercentage, 1e-9)

	// Predicting 300s leaves everyone within the band.
	s = Compute(context.Background(), estimator(300), vehicles, DefaultOnTimeThresholdSeconds)
	assert.InDelta(t, 100.0, s.OnTimePercentage, 1e-9)
	avg, ok := s.AvgDelayMinutes.(float64)
	require.True(t, ok)
	assert.False(t, math.IsNaN(avg))
}

func TestActiveRoutes(t *testing.T) {
	sched := scheduletest.MustContext()
	unknown := int64(999)
	vehicles := []livefeed.Vehicle{
		bus("a", scheduletest.TripNight, 28.6),
		bus("b", scheduletest.TripMorning, 28.6),
		bus("c", scheduletest.TripLater, 28.6),
		{VehicleID: "d", TripID: &unknown},
		{VehicleID: "e"},
	}

	assert.Equal(t, []ActiveRoute{
		{RouteID: scheduletest.RouteNorth, RouteShortName: "30A"},
		{RouteID: scheduletest.RouteSouth, RouteShortName: "Route 31"},
	}, ActiveRoutes(sched, vehicles))

	assert.Empty(t, ActiveRoutes(sched, nil))
	assert.Len(t, MatchedVehicles(sched, vehicles), 3)
}

func TestDelayStatus(t *testing.T) {
	tests := []struct {
		delay float64
		want  string
	}{
		{61, StatusLate},
		{60, StatusOnTime},
		{0, StatusOnTime},
		{-60, StatusOnTime},
		{-61, StatusEarly},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DelayStatus(tt.delay), "delay %v", tt.delay)
	}
}

func TestTrackRoute(t *testing.T) {
	vehicles := []livefeed.Vehicle{
		bus("z", scheduletest.TripMorning, scheduletest.StopLat(1)),
		bus("b", scheduletest.TripLater, scheduletest.StopLat(1)),
		bus("done", scheduletest.TripMorning, 28.66),
		bus("south", scheduletest.TripNight, 28.638),
		{VehicleID: "no-trip", Latitude: 28.6, Longitude: 77.2},
	}

	// 400s predicted against a 270s scheduled leg. The next stop ETA is the
	// full current leg plus the whole leg keyed on stop A.
	got := TrackRoute(context.Background(), estimator(400), vehicles, scheduletest.RouteNorth)
	require.Len(t, got, 2)

	assert.Equal(t, "b", got[0].VehicleID)
	assert.Equal(t, scheduletest.TripLater, got[0].TripID)
	assert.Equal(t, "z", got[1].VehicleID)
	for _, s := range got {
		assert.Equal(t, "Stop B", s.NextStop)
		assert.Equal(t, "08:20:20 AM", s.ETA)
		assert.InDelta(t, 130.0, s.DelaySeconds, 1e-9)
		assert.Equal(t, StatusLate, s.Status)
	}

	assert.Empty(t, TrackRoute(context.Background(), estimator(400), vehicles, 77))
}
