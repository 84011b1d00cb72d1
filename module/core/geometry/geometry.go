// Package geometry decides whether a position lies inside a geofence and how
// far it is from the geofence's reference point. Every function is pure.
package geometry

import (
	"math"

	"github.com/nandanugg/fleet-geofence/module/core/domain"
)

const (
	EarthRadiusKm = 6371.0

	// PointerRadiusKm is the tolerance applied to pointer geofences.
	PointerRadiusKm = 0.1
)

// HaversineDistanceKm returns the great-circle distance between two points.
func HaversineDistanceKm(p1, p2 domain.GeoPoint) float64 {
	lat1 := toRad(p1.Lat)
	lat2 := toRad(p2.Lat)
	dLat := toRad(p2.Lat - p1.Lat)
	dLon := toRad(p2.Lon - p1.Lon)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push a marginally past 1 for antipodal points
	a = math.Min(a, 1)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// IsInsideCircle reports whether point is within radiusKm of center. The
// boundary counts as inside.
func IsInsideCircle(point, center domain.GeoPoint, radiusKm float64) bool {
	return HaversineDistanceKm(point, center) <= radiusKm
}

// IsInsidePolygon runs the crossing-number test with longitude as the x axis.
// The ring is closed implicitly. Rings with fewer than three vertices contain
// nothing. Points exactly on an edge or vertex may land on either side.
func IsInsidePolygon(point domain.GeoPoint, vertices []domain.GeoPoint) bool {
	n := len(vertices)
	if n < 3 {
		return false
	}

	inside := false
	x, y := point.Lon, point.Lat
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := vertices[i].Lon, vertices[i].Lat
		xj, yj := vertices[j].Lon, vertices[j].Lat
		if (xi > x) == (xj > x) {
			continue
		}
		if y < (yj-yi)*(x-xi)/(xj-xi)+yi {
			inside = !inside
		}
	}
	return inside
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
