// Package scheduletest provides a small deterministic network for tests.
//
// Five stops lie on a north-south line along longitude 77.20, 0.01 degrees
// (about 1.11 km) apart:
//
//	stop 1 (28.60) - stop 2 (28.61) - stop 3 (28.62) - stop 4 (28.63) - stop 5 (28.64)
//
// Route 30 ("30A") runs northbound on trips 100 and 101 with sequences
// 10..50. Route 31 has no short name and runs southbound on trip 200 across
// midnight. Stop 7 sits next to stop 1 but no trip serves it; stop 6 is far
// away.
package scheduletest

import (
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/schedule"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/static"
)

const (
	Lon = 77.20

	RouteNorth int64 = 30
	RouteSouth int64 = 31

	TripMorning int64 = 100
	TripLater   int64 = 101
	TripNight   int64 = 200
)

// StopLat returns the latitude of stops 1..5.
func StopLat(stopID int64) float64 {
	return 28.60 + 0.01*float64(stopID-1)
}

// Tables returns a fresh copy of the fixture tables.
func Tables() *static.Tables {
	t := &static.Tables{
		Stops: []static.Stop{
			{StopID: 1, StopName: "Stop A", StopLat: StopLat(1), StopLon: Lon},
			{StopID: 2, StopName: "Stop B", StopLat: StopLat(2), StopLon: Lon},
			{StopID: 3, StopName: "Stop C", StopLat: StopLat(3), StopLon: Lon},
			{StopID: 4, StopName: "Stop D", StopLat: StopLat(4), StopLon: Lon},
			{StopID: 5, StopName: "Stop E", StopLat: StopLat(5), StopLon: Lon},
			{StopID: 6, StopName: "Far Away", StopLat: 28.90, StopLon: 77.50},
			{StopID: 7, StopName: "Unserved", StopLat: 28.6005, StopLon: 77.2005},
		},
		Trips: []static.Trip{
			{TripID: TripMorning, RouteID: RouteNorth},
			{TripID: TripLater, RouteID: RouteNorth},
			{TripID: TripNight, RouteID: RouteSouth},
		},
		Routes: []static.Route{
			{RouteID: RouteNorth, RouteShortName: "30A"},
		},
	}

	north := func(tripID int64, hour string) []static.StopTime {
		return []static.StopTime{
			{TripID: tripID, StopID: 1, StopSequence: 10, ArrivalTime: hour + ":00:00", DepartureTime: hour + ":00:30"},
			{TripID: tripID, StopID: 2, StopSequence: 20, ArrivalTime: hour + ":05:00", DepartureTime: hour + ":05:30"},
			{TripID: tripID, StopID: 3, StopSequence: 30, ArrivalTime: hour + ":10:00", DepartureTime: hour + ":10:30"},
			{TripID: tripID, StopID: 4, StopSequence: 40, ArrivalTime: hour + ":15:00", DepartureTime: hour + ":15:30"},
			{TripID: tripID, StopID: 5, StopSequence: 50, ArrivalTime: hour + ":20:00", DepartureTime: hour + ":20:00"},
		}
	}
	t.StopTimes = append(t.StopTimes, north(TripMorning, "08")...)
	t.StopTimes = append(t.StopTimes, north(TripLater, "09")...)
	t.StopTimes = append(t.StopTimes,
		static.StopTime{TripID: TripNight, StopID: 5, StopSequence: 1, ArrivalTime: "23:50:00", DepartureTime: "23:58:00"},
		static.StopTime{TripID: TripNight, StopID: 4, StopSequence: 2, ArrivalTime: "00:03:00", DepartureTime: "00:03:30"},
		static.StopTime{TripID: TripNight, StopID: 3, StopSequence: 3, ArrivalTime: "00:08:00", DepartureTime: "00:08:30"},
		static.StopTime{TripID: TripNight, StopID: 2, StopSequence: 4, ArrivalTime: "00:13:00", DepartureTime: "00:13:30"},
		static.StopTime{TripID: TripNight, StopID: 1, StopSequence: 5, ArrivalTime: "00:18:00", DepartureTime: "00:18:00"},
	)
	return t
}

// MustContext builds a schedule.Context over Tables and panics on error.
func MustContext() *schedule.Context {
	c, err := schedule.NewContext(Tables())
	if err != nil {
		panic(err)
	}
	return c
}
