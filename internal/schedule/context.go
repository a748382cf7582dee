package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/static"
)

var (
	// ErrTripNotFound is returned when a trip has no rows in the schedule join.
	ErrTripNotFound = errors.New("trip not found in schedule")
	// ErrEmptySchedule is returned when the static tables produce no usable rows.
	ErrEmptySchedule = errors.New("schedule is empty")
)

type tripStop struct {
	tripID int64
	stopID int64
}

// Context is the immutable static view every request reads from. It is built
// once at startup and shared between goroutines without locking.
type Context struct {
	byTrip     map[int64][]JoinRow
	byStop     map[int64][]JoinRow
	departures map[tripStop][]int
	routeNames map[int64]string
	stops      map[int64]static.Stop
	index      *StopIndex
}

// NewContext joins the static tables and builds the lookup structures.
func NewContext(tables *static.Tables) (*Context, error) {
	if tables == nil || len(tables.Stops) == 0 {
		return nil, fmt.Errorf("no stops: %w", ErrEmptySchedule)
	}

	byTrip := Join(tables)
	if len(byTrip) == 0 {
		return nil, fmt.Errorf("no joinable stop times: %w", ErrEmptySchedule)
	}

	c := &Context{
		byTrip:     byTrip,
		byStop:     make(map[int64][]JoinRow),
		departures: make(map[tripStop][]int),
		routeNames: make(map[int64]string, len(tables.Routes)),
		stops:      make(map[int64]static.Stop, len(tables.Stops)),
		index:      NewStopIndex(tables.Stops),
	}

	for _, s := range tables.Stops {
		if _, seen := c.stops[s.StopID]; !seen {
			c.stops[s.StopID] = s
		}
	}
	for _, r := range tables.Routes {
		if _, seen := c.routeNames[r.RouteID]; !seen && r.RouteShortName != "" {
			c.routeNames[r.RouteID] = r.RouteShortName
		}
	}

	// Visiting trips in ascending id keeps byStop in (trip, sequence) order
	for _, tripID := range sortedKeys(byTrip) {
		for _, row := range byTrip[tripID] {
			c.byStop[row.StopID] = append(c.byStop[row.StopID], row)
			if row.DepartureSeconds != NoTime {
				key := tripStop{tripID: row.TripID, stopID: row.StopID}
				c.departures[key] = append(c.departures[key], row.DepartureSeconds)
			}
		}
	}
	for key, deps := range c.departures {
		c.departures[key] = uniqueSorted(deps)
	}

	return c, nil
}

// NumTrips returns the number of trips with at least one joined row.
func (c *Context) NumTrips() int { return len(c.byTrip) }

// NumStops returns the number of stops in the index.
func (c *Context) NumStops() int { return c.index.Len() }

// TripRows returns the trip's rows ordered by stop_sequence.
// The returned slice is shared and must not be modified.
func (c *Context) TripRows(tripID int64) ([]JoinRow, error) {
	rows, ok := c.byTrip[tripID]
	if !ok || len(rows) == 0 {
		return nil, fmt.Errorf("trip %d: %w", tripID, ErrTripNotFound)
	}
	return rows, nil
}

// RouteOf returns the route serving a trip.
func (c *Context) RouteOf(tripID int64) (int64, bool) {
	rows, ok := c.byTrip[tripID]
	if !ok || len(rows) == 0 {
		return 0, false
	}
	return rows[0].RouteID, true
}

// RouteName returns route_short_name, or "Route {id}" when unknown.
func (c *Context) RouteName(routeID int64) string {
	if name, ok := c.routeNames[routeID]; ok {
		return name
	}
	return fmt.Sprintf("Route %d", routeID)
}

// Stop looks up a stop by id.
func (c *Context) Stop(stopID int64) (static.Stop, bool) {
	s, ok := c.stops[stopID]
	return s, ok
}

// NearStops returns stops within radiusKm of the coordinate.
func (c *Context) NearStops(lat, lon, radiusKm float64) []static.Stop {
	return c.index.Near(lat, lon, radiusKm)
}

// RowsAtStops returns every join row visiting one of the given stops,
// ordered by (trip_id, stop_sequence).
func (c *Context) RowsAtStops(stops []static.Stop) []JoinRow {
	var rows []JoinRow
	seen := make(map[int64]bool, len(stops))
	for _, s := range stops {
		if seen[s.StopID] {
			continue
		}
		seen[s.StopID] = true
		rows = append(rows, c.byStop[s.StopID]...)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TripID != rows[j].TripID {
			return rows[i].TripID < rows[j].TripID
		}
		return rows[i].StopSequence < rows[j].StopSequence
	})
	return rows
}

// NextDeparture returns the first scheduled departure of the trip from the
// stop at or after now's time of day, formatted "03:04 PM". now must already
// be in the service time zone. There is no rollover into the next service
// day: once every departure has passed the result is ("", false).
func (c *Context) NextDeparture(tripID, stopID int64, now time.Time) (string, bool) {
	deps := c.departures[tripStop{tripID: tripID, stopID: stopID}]
	current := SecondsSinceMidnight(now)

	i := sort.SearchInts(deps, current)
	if i == len(deps) {
		return "", false
	}
	return FormatClock12h(deps[i]), true
}

func sortedKeys(m map[int64][]JoinRow) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func uniqueSorted(values []int) []int {
	sort.Ints(values)
	out := values[:0]
	for _, v := range values {
		if len(out) == 0 || out[len(out)-1] != v {
			out = append(out, v)
		}
	}
	return out
}
