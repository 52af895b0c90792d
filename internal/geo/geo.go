// Package geo provides great-circle distance and containment primitives
// shared by the branch locator and the campaign targeting filter.
package geo

import "math"

// Point is a geographic coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// HaversineKm calculates the great-circle distance between two points in kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371.0 // Earth radius km
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

// DistanceKm is HaversineKm over two Points.
func DistanceKm(a, b Point) float64 {
	return HaversineKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

// InCircle reports whether p lies within radiusM meters of center.
func InCircle(p, center Point, radiusM float64) bool {
	return DistanceKm(p, center)*1000 <= radiusM
}

// InPolygon reports whether p lies inside the polygon using the ray-casting
// rule. Polygons with fewer than three vertices contain nothing.
func InPolygon(p Point, polygon []Point) bool {
	if len(polygon) < 3 {
		return false
	}
	inside := false
	j := len(polygon) - 1
	for i := 0; i < len(polygon); i++ {
		vi, vj := polygon[i], polygon[j]
		if (vi.Lat > p.Lat) != (vj.Lat > p.Lat) &&
			p.Lng < (vj.Lng-vi.Lng)*(p.Lat-vi.Lat)/(vj.Lat-vi.Lat)+vi.Lng {
			inside = !inside
		}
		j = i
	}
	return inside
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
