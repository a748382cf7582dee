package static

// Tables holds the four schedule tables after type conversion.
type Tables struct {
	Stops     []Stop
	Trips     []Trip
	StopTimes []StopTime
	Routes    []Route
}

// Stop represents a row of stops.txt
type Stop struct {
	StopID   int64
	StopName string
	StopLat  float64
	StopLon  float64
}

// Trip represents a row of trips.txt
type Trip struct {
	TripID  int64
	RouteID int64
}

// StopTime represents a row of stop_times.txt.
// Times are kept as HH:MM:SS strings; hours may exceed 23.
type StopTime struct {
	TripID        int64
	StopID        int64
	StopSequence  int
	ArrivalTime   string
	DepartureTime string
}

// Route represents a row of routes.txt
type Route struct {
	RouteID        int64
	RouteShortName string
}

// Raw CSV rows. Keys are decoded as strings so a single malformed id only
// drops its own row instead of failing the whole file.

type stopRecord struct {
	StopID   string `csv:"stop_id"`
	StopName string `csv:"stop_name"`
	StopLat  string `csv:"stop_lat"`
	StopLon  string `csv:"stop_lon"`
}

type tripRecord struct {
	RouteID string `csv:"route_id"`
	TripID  string `csv:"trip_id"`
}

type stopTimeRecord struct {
	TripID        string `csv:"trip_id"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	StopID        string `csv:"stop_id"`
	StopSequence  string `csv:"stop_sequence"`
}

type routeRecord struct {
	RouteID        string `csv:"route_id"`
	RouteShortName string `csv:"route_short_name"`
}
