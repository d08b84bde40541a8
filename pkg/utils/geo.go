package utils

import "math"

const (
	earthRadiusMeters = 6371000.0

	// Two coordinates closer than this in both axes (~11 m) are treated
	// as the same point, so no route is requested between them.
	samePointEpsilonDeg = 0.0001
)

// LocationPoint is an immutable WGS84 coordinate.
type LocationPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(a, b LocationPoint) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Midpoint returns the arithmetic midpoint of two points. This is not a
// geodesic midpoint, which is fine at city scale.
func Midpoint(a, b LocationPoint) LocationPoint {
	return LocationPoint{
		Lat: (a.Lat + b.Lat) / 2,
		Lon: (a.Lon + b.Lon) / 2,
	}
}

// IsSamePoint reports whether two points are close enough to short-circuit
// routing with a zero-cost leg.
func IsSamePoint(a, b LocationPoint) bool {
	return math.Abs(a.Lat-b.Lat) < samePointEpsilonDeg &&
		math.Abs(a.Lon-b.Lon) < samePointEpsilonDeg
}

// PointInPolygon runs a ray-casting containment test against an ordered
// polygon ring. Points on an edge may land on either side.
func PointInPolygon(p LocationPoint, ring []LocationPoint) bool {
	if len(ring) < 3 {
		return false
	}

	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		pi := ring[i]
		pj := ring[j]
		if (pi.Lat > p.Lat) != (pj.Lat > p.Lat) &&
			p.Lon < (pj.Lon-pi.Lon)*(p.Lat-pi.Lat)/(pj.Lat-pi.Lat)+pi.Lon {
			inside = !inside
		}
		j = i
	}
	return inside
}
