package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by every distance in this module.
const EarthRadiusKm = 6371.0

const degToRad = math.Pi / 180

// Haversine returns the great-circle distance between two points in kilometres.
// NaN inputs propagate to a NaN result.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	deltaPhi := (lat2 - lat1) * degToRad
	deltaLambda := (lon2 - lon1) * degToRad

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	// Guard against a drifting just above 1 for antipodal points
	if a > 1 {
		a = 1
	}
	c := 2 * math.Asin(math.Sqrt(a))

	return EarthRadiusKm * c
}

// HaversineBatch computes the distance from (lat, lon) to every point of
// lats/lons and writes it into out. out is grown when it is too short and
// the (possibly reallocated) slice is returned.
func HaversineBatch(lat, lon float64, lats, lons []float64, out []float64) []float64 {
	n := len(lats)
	if len(lons) < n {
		n = len(lons)
	}
	if cap(out) < n {
		out = make([]float64, n)
	}
	out = out[:n]

	phi1 := lat * degToRad
	cosPhi1 := math.Cos(phi1)
	for i := 0; i < n; i++ {
		phi2 := lats[i] * degToRad
		deltaPhi := phi2 - phi1
		deltaLambda := (lons[i] - lon) * degToRad
		sp := math.Sin(deltaPhi / 2)
		sl := math.Sin(deltaLambda / 2)
		a := sp*sp + cosPhi1*math.Cos(phi2)*sl*sl
		if a > 1 {
			a = 1
		}
		out[i] = EarthRadiusKm * 2 * math.Asin(math.Sqrt(a))
	}
	return out
}

// Clamp constrains a value between min and max.
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ProjectOntoSegment returns the parameter t of the orthogonal projection of
// point P onto the directed segment A->B, using an equirectangular plane
// centred on A. t < 0 lies before A, t > 1 lies beyond B. A degenerate
// segment yields t = 0.
func ProjectOntoSegment(pLat, pLon, aLat, aLon, bLat, bLon float64) float64 {
	cosLat := math.Cos(aLat * degToRad)

	bx := (bLon - aLon) * cosLat
	by := bLat - aLat
	px := (pLon - aLon) * cosLat
	py := pLat - aLat

	lenSq := bx*bx + by*by
	if lenSq == 0 {
		return 0
	}
	return (px*bx + py*by) / lenSq
}
