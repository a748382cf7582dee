package schedule

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/static"
)

// JoinRow is one stop visit of a trip with the trip's route and the stop's
// coordinates attached.
type JoinRow struct {
	TripID           int64
	RouteID          int64
	StopID           int64
	StopSequence     int
	StopName         string
	StopLat          float64
	StopLon          float64
	ArrivalSeconds   int // NoTime when unparseable
	DepartureSeconds int // NoTime when unparseable
}

// Join builds StopTime ⋈ Trip ⋈ Stop as an inner join, grouped by trip and
// ordered by stop_sequence within each trip. Stop times referencing an unknown
// trip or stop are dropped.
func Join(tables *static.Tables) map[int64][]JoinRow {
	tripRoute := make(map[int64]int64, len(tables.Trips))
	for _, t := range tables.Trips {
		if _, seen := tripRoute[t.TripID]; !seen {
			tripRoute[t.TripID] = t.RouteID
		}
	}

	stops := make(map[int64]static.Stop, len(tables.Stops))
	for _, s := range tables.Stops {
		if _, seen := stops[s.StopID]; !seen {
			stops[s.StopID] = s
		}
	}

	byTrip := make(map[int64][]JoinRow)
	var orphaned, badTimes int
	for _, st := range tables.StopTimes {
		routeID, ok := tripRoute[st.TripID]
		if !ok {
			orphaned++
			continue
		}
		stop, ok := stops[st.StopID]
		if !ok {
			orphaned++
			continue
		}

		arr, err := ParseClock(st.ArrivalTime)
		if err != nil {
			arr = NoTime
			badTimes++
		}
		dep, err := ParseClock(st.DepartureTime)
		if err != nil {
			dep = NoTime
			badTimes++
		}

		byTrip[st.TripID] = append(byTrip[st.TripID], JoinRow{
			TripID:           st.TripID,
			RouteID:          routeID,
			StopID:           st.StopID,
			StopSequence:     st.StopSequence,
			StopName:         stop.StopName,
			StopLat:          stop.StopLat,
			StopLon:          stop.StopLon,
			ArrivalSeconds:   arr,
			DepartureSeconds: dep,
		})
	}

	for _, rows := range byTrip {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].StopSequence < rows[j].StopSequence
		})
	}

	if orphaned > 0 || badTimes > 0 {
		log.Warn().
			Int("orphaned_stop_times", orphaned).
			Int("unparseable_times", badTimes).
			Msg("Schedule join dropped or degraded rows")
	}

	return byTrip
}
