package model

import "time"

// Kind tells a predictor how to treat a feature.
type Kind int

const (
	// Numeric features are ordered quantities.
	Numeric Kind = iota
	// Categorical features are identifiers; only exact matches are meaningful.
	Categorical
)

func (k Kind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "numeric"
}

// Feature describes one column of the model input.
type Feature struct {
	Name string
	Kind Kind
}

// Weekdays lists the one-hot weekday columns, Monday first.
var Weekdays = [7]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Schema is the exact, ordered input of the segment travel-time model.
var Schema = []Feature{
	{Name: "route_id", Kind: Categorical},
	{Name: "stop_id", Kind: Categorical},
	{Name: "stop_sequence", Kind: Numeric},
	{Name: "hour_of_day", Kind: Numeric},
	{Name: Weekdays[0], Kind: Numeric},
	{Name: Weekdays[1], Kind: Numeric},
	{Name: Weekdays[2], Kind: Numeric},
	{Name: Weekdays[3], Kind: Numeric},
	{Name: Weekdays[4], Kind: Numeric},
	{Name: Weekdays[5], Kind: Numeric},
	{Name: Weekdays[6], Kind: Numeric},
}

// FeatureVector is the model input for one segment, keyed on the segment's
// starting stop.
type FeatureVector struct {
	RouteID      int64
	StopID       int64
	StopSequence int
	HourOfDay    int
	// Weekday is 0 for Monday through 6 for Sunday.
	Weekday int
}

// BuildFeatures assembles the feature vector for a segment starting at stopID.
// at must already be in the service time zone.
func BuildFeatures(routeID, stopID int64, stopSequence int, at time.Time) FeatureVector {
	return FeatureVector{
		RouteID:      routeID,
		StopID:       stopID,
		StopSequence: stopSequence,
		HourOfDay:    at.Hour(),
		Weekday:      mondayFirst(at.Weekday()),
	}
}

func mondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// OneHot returns the seven weekday flags; exactly one is 1.
func (f FeatureVector) OneHot() [7]int {
	var flags [7]int
	if f.Weekday >= 0 && f.Weekday < 7 {
		flags[f.Weekday] = 1
	}
	return flags
}

// Map renders the vector with the column names of Schema.
func (f FeatureVector) Map() map[string]interface{} {
	m := map[string]interface{}{
		"route_id":      f.RouteID,
		"stop_id":       f.StopID,
		"stop_sequence": f.StopSequence,
		"hour_of_day":   f.HourOfDay,
	}
	for i, v := range f.OneHot() {
		m[Weekdays[i]] = v
	}
	return m
}
