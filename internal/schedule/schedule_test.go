package schedule_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/schedule"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/schedule/scheduletest"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/static"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00:00", 0, false},
		{"08:05:30", 29130, false},
		{"8:05:30", 29130, false},
		{"23:59:59", 86399, false},
		{"25:10:00", 90600, false},
		{"", 0, true},
		{"08:05", 0, true},
		{"08:61:00", 0, true},
		{"aa:bb:cc", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := schedule.ParseClock(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFormatClock12h(t *testing.T) {
	assert.Equal(t, "08:05 AM", schedule.FormatClock12h(29130))
	assert.Equal(t, "12:00 PM", schedule.FormatClock12h(12*3600))
	assert.Equal(t, "11:30 PM", schedule.FormatClock12h(23*3600+30*60))
	assert.Equal(t, "01:10 AM", schedule.FormatClock12h(90600))
}

func TestJoinOrdersBySequence(t *testing.T) {
	tables := scheduletest.Tables()
	// Shuffle the stop times of one trip; the join must restore order.
	st := tables.StopTimes
	st[0], st[4] = st[4], st[0]
	st[1], st[3] = st[3], st[1]
	// An orphan row referencing an unknown trip is dropped.
	tables.StopTimes = append(tables.StopTimes, static.StopTime{TripID: 999, StopID: 1, StopSequence: 1})

	byTrip := schedule.Join(tables)
	require.Len(t, byTrip, 3)

	rows := byTrip[scheduletest.TripMorning]
	require.Len(t, rows, 5)
	for i := 1; i < len(rows); i++ {
		assert.Less(t, rows[i-1].StopSequence, rows[i].StopSequence)
	}
	assert.Equal(t, scheduletest.RouteNorth, rows[0].RouteID)
	assert.Equal(t, "Stop A", rows[0].StopName)
	assert.Equal(t, 8*3600+30, rows[0].DepartureSeconds)
}

func TestJoinUnparseableTimes(t *testing.T) {
	tables := scheduletest.Tables()
	tables.StopTimes[0].DepartureTime = "soon"

	rows := schedule.Join(tables)[scheduletest.TripMorning]
	assert.Equal(t, schedule.NoTime, rows[0].DepartureSeconds)
	assert.Equal(t, 8*3600, rows[0].ArrivalSeconds)
}

func TestNewContextEmpty(t *testing.T) {
	_, err := schedule.NewContext(&static.Tables{})
	assert.True(t, errors.Is(err, schedule.ErrEmptySchedule))

	tables := scheduletest.Tables()
	tables.StopTimes = nil
	_, err = schedule.NewContext(tables)
	assert.True(t, errors.Is(err, schedule.ErrEmptySchedule))
}

func TestContextLookups(t *testing.T) {
	c := scheduletest.MustContext()

	assert.Equal(t, 3, c.NumTrips())
	assert.Equal(t, 7, c.NumStops())

	_, err := c.TripRows(12345)
	assert.True(t, errors.Is(err, schedule.ErrTripNotFound))

	route, ok := c.RouteOf(scheduletest.TripNight)
	require.True(t, ok)
	assert.Equal(t, scheduletest.RouteSouth, route)

	assert.Equal(t, "30A", c.RouteName(scheduletest.RouteNorth))
	assert.Equal(t, "Route 31", c.RouteName(scheduletest.RouteSouth))

	stop, ok := c.Stop(3)
	require.True(t, ok)
	assert.Equal(t, "Stop C", stop.StopName)
}

func TestNearStops(t *testing.T) {
	c := scheduletest.MustContext()

	tests := []struct {
		name   string
		lat    float64
		lon    float64
		radius float64
		want   []int64
	}{
		{"stop 1 and its unserved neighbour", 28.60, 77.20, 0.5, []int64{1, 7}},
		{"exactly on stop 3", scheduletest.StopLat(3), scheduletest.Lon, 0.5, []int64{3}},
		{"wide radius covers the line", 28.62, 77.20, 2.5, []int64{1, 2, 3, 4, 5, 7}},
		{"nothing nearby", 10.0, 10.0, 0.5, nil},
		{"zero radius on a stop", scheduletest.StopLat(2), scheduletest.Lon, 0, []int64{2}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got []int64
			for _, s := range c.NearStops(tc.lat, tc.lon, tc.radius) {
				got = append(got, s.StopID)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNearStopsNaN(t *testing.T) {
	c := scheduletest.MustContext()
	assert.Empty(t, c.NearStops(math.NaN(), 77.2, 0.5))
	assert.Empty(t, c.NearStops(28.6, math.NaN(), 0.5))
}

func TestStopIndexMatchesBruteForce(t *testing.T) {
	tables := scheduletest.Tables()
	idx := schedule.NewStopIndex(tables.Stops)

	for _, radius := range []float64{0.1, 0.5, 1.2, 5, 50} {
		got := idx.Near(28.615, 77.201, radius)
		var want []static.Stop
		for _, s := range tables.Stops {
			if haversine(28.615, 77.201, s.StopLat, s.StopLon) <= radius {
				want = append(want, s)
			}
		}
		assert.Equal(t, want, got, "radius %v", radius)
	}
}

func TestStopIndexAcrossAntimeridian(t *testing.T) {
	stops := []static.Stop{
		{StopID: 1, StopName: "West of the line", StopLat: -17, StopLon: -179.999},
		{StopID: 2, StopName: "East of the line", StopLat: -17, StopLon: 179.999},
		{StopID: 3, StopName: "Far", StopLat: -17, StopLon: 178},
	}
	idx := schedule.NewStopIndex(stops)

	tests := []struct {
		name    string
		lat     float64
		lon     float64
		radius  float64
		wantIDs []int64
	}{
		{"query east of the line", -17, 179.999, 0.5, []int64{1, 2}},
		{"query west of the line", -17, -179.999, 0.5, []int64{1, 2}},
		{"query on the line", -17, 180, 0.5, []int64{1, 2}},
		{"radius too small to cross", -17, 179.999, 0.1, []int64{2}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var ids []int64
			for _, s := range idx.Near(tc.lat, tc.lon, tc.radius) {
				ids = append(ids, s.StopID)
			}
			assert.Equal(t, tc.wantIDs, ids)
		})
	}
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const r = 6371.0
	p1, p2 := lat1*math.Pi/180, lat2*math.Pi/180
	dp, dl := (lat2-lat1)*math.Pi/180, (lon2-lon1)*math.Pi/180
	a := math.Sin(dp/2)*math.Sin(dp/2) + math.Cos(p1)*math.Cos(p2)*math.Sin(dl/2)*math.Sin(dl/2)
	return 2 * r * math.Asin(math.Sqrt(a))
}

func TestRowsAtStops(t *testing.T) {
	c := scheduletest.MustContext()
	stop2, _ := c.Stop(2)
	stop4, _ := c.Stop(4)

	rows := c.RowsAtStops([]static.Stop{stop4, stop2, stop2})
	require.Len(t, rows, 6)

	type key struct {
		trip int64
		stop int64
	}
	var got []key
	for _, r := range rows {
		got = append(got, key{r.TripID, r.StopID})
	}
	assert.Equal(t, []key{
		{100, 2}, {100, 4},
		{101, 2}, {101, 4},
		{200, 4}, {200, 2},
	}, got)
}

func TestNextDeparture(t *testing.T) {
	c := scheduletest.MustContext()
	day := func(h, m, s int) time.Time { return time.Date(2025, 3, 10, h, m, s, 0, time.UTC) }

	tests := []struct {
		name   string
		trip   int64
		stop   int64
		now    time.Time
		want   string
		wantOK bool
	}{
		{"before departure", scheduletest.TripMorning, 2, day(7, 0, 0), "08:05 AM", true},
		{"exactly at departure", scheduletest.TripMorning, 2, day(8, 5, 30), "08:05 AM", true},
		{"departure passed", scheduletest.TripMorning, 2, day(8, 5, 31), "", false},
		{"unknown pair", scheduletest.TripMorning, 6, day(7, 0, 0), "", false},
		{"no rollover after midnight", scheduletest.TripNight, 5, day(23, 59, 0), "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := c.NextDeparture(tc.trip, tc.stop, tc.now)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
