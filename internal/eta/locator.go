package eta

import (
	"math"

	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/geo"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/schedule"
)

// Segment is the stretch of a trip a vehicle is currently on.
type Segment struct {
	Last    schedule.JoinRow
	Next    schedule.JoinRow
	HasNext bool

	lastIndex int
}

// LocateSegment places a vehicle on its trip. rows must be the trip's rows
// in ascending stop_sequence.
//
// The closest stop is found first. If it is the first stop, it becomes the
// last stop. Otherwise the vehicle is projected onto the leg arriving at the
// closest stop: before the stop the previous one is the last stop, at or past
// it the closest stop is. The next stop is the following row, if any.
func LocateSegment(rows []schedule.JoinRow, lat, lon float64) (Segment, bool) {
	if len(rows) == 0 || math.IsNaN(lat) || math.IsNaN(lon) {
		return Segment{}, false
	}

	closest := -1
	best := math.Inf(1)
	for i, r := range rows {
		d := geo.Haversine(lat, lon, r.StopLat, r.StopLon)
		if d < best {
			best = d
			closest = i
		}
	}
	if closest < 0 {
		return Segment{}, false
	}

	last := closest
	if closest > 0 {
		prev := rows[closest-1]
		cur := rows[closest]
		t := geo.ProjectOntoSegment(lat, lon, prev.StopLat, prev.StopLon, cur.StopLat, cur.StopLon)
		if t < 1 {
			last = closest - 1
		}
	}

	seg := Segment{Last: rows[last], lastIndex: last}
	if last+1 < len(rows) {
		seg.Next = rows[last+1]
		seg.HasNext = true
	}
	return seg, true
}

// fractionTraveled is the share of the current leg already covered, measured
// as straight-line distance from the last stop. It is clamped to [0, 1] and
// is 0 for coincident stops or a non-finite ratio.
func fractionTraveled(seg Segment, lat, lon float64) float64 {
	total := geo.Haversine(seg.Last.StopLat, seg.Last.StopLon, seg.Next.StopLat, seg.Next.StopLon)
	if !(total > 0) {
		return 0
	}
	covered := geo.Haversine(seg.Last.StopLat, seg.Last.StopLon, lat, lon)
	ratio := covered / total
	if math.IsNaN(ratio) || ratio < 0 {
		return 0
	}
	return geo.Clamp(ratio, 0, 1)
}
