package schedule

import (
	"math"
	"sort"

	"github.com/tidwall/rtree"

	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/geo"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/static"
)

// DefaultRadiusKm is the default search radius for stops near a coordinate.
const DefaultRadiusKm = 0.5

// kmPerDegreeLat is the length of one degree of latitude on the sphere used
// by geo.Haversine.
const kmPerDegreeLat = geo.EarthRadiusKm * math.Pi / 180

// StopIndex answers "which stops are within r km of this point".
// An R-tree narrows candidates to a bounding box, then haversine decides.
type StopIndex struct {
	tree  rtree.RTreeG[int]
	stops []static.Stop
}

// NewStopIndex builds an index over stops. The slice is retained and must
// not be modified afterwards.
func NewStopIndex(stops []static.Stop) *StopIndex {
	idx := &StopIndex{stops: stops}
	for i, s := range stops {
		if math.IsNaN(s.StopLat) || math.IsNaN(s.StopLon) {
			continue
		}
		// For points, min and max are the same [lat, lon]
		p := [2]float64{s.StopLat, s.StopLon}
		idx.tree.Insert(p, p, i)
	}
	return idx
}

// Len returns the number of stops indexed.
func (idx *StopIndex) Len() int {
	return len(idx.stops)
}

// Near returns every stop whose haversine distance to (lat, lon) is at most
// radiusKm, in input order. NaN coordinates yield an empty result.
func (idx *StopIndex) Near(lat, lon, radiusKm float64) []static.Stop {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsNaN(radiusKm) || radiusKm < 0 {
		return nil
	}

	dLat := 1.001 * radiusKm / kmPerDegreeLat
	// Widen the longitude span using the latitude closest to the pole the
	// box reaches, plus a margin for great-circle vs parallel arc length
	cosLat := math.Cos(math.Min(90, math.Abs(lat)+dLat) * math.Pi / 180)
	dLon := 180.0
	if cosLat > 1e-9 {
		dLon = math.Min(180, 1.01*dLat/cosLat)
	}

	var candidates []int
	seen := make(map[int]bool)
	for _, span := range lonSpans(lon-dLon, lon+dLon) {
		idx.tree.Search(
			[2]float64{lat - dLat, span[0]},
			[2]float64{lat + dLat, span[1]},
			func(_, _ [2]float64, i int) bool {
				if !seen[i] {
					seen[i] = true
					candidates = append(candidates, i)
				}
				return true
			},
		)
	}
	if len(candidates) == 0 {
		return nil
	}

	// Sorting the candidate indices keeps the output in table order
	sort.Ints(candidates)

	lats := make([]float64, len(candidates))
	lons := make([]float64, len(candidates))
	for j, i := range candidates {
		lats[j] = idx.stops[i].StopLat
		lons[j] = idx.stops[i].StopLon
	}
	dists := geo.HaversineBatch(lat, lon, lats, lons, nil)

	var result []static.Stop
	for j, i := range candidates {
		if dists[j] <= radiusKm {
			result = append(result, idx.stops[i])
		}
	}
	return result
}

// lonSpans returns the longitude ranges covering [minLon, maxLon]. A box
// that crosses the antimeridian also gets the wrapped part on the other
// side of ±180.
func lonSpans(minLon, maxLon float64) [][2]float64 {
	spans := [][2]float64{{minLon, maxLon}}
	if minLon < -180 {
		spans = append(spans, [2]float64{minLon + 360, 180})
	}
	if maxLon > 180 {
		spans = append(spans, [2]float64{-180, maxLon - 360})
	}
	return spans
}
