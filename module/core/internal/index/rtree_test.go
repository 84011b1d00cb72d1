package index

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandanugg/fleet-geofence/module/core/domain"
	"github.com/nandanugg/fleet-geofence/module/core/geometry"
)

func ids(fences []*domain.Geofence) []string {
	out := make([]string, len(fences))
	for i, f := range fences {
		out[i] = f.ID
	}
	return out
}

func TestCandidates(t *testing.T) {
	jakarta := domain.GeoPoint{Lat: -6.2088, Lon: 106.8456}
	fences := []*domain.Geofence{
		{ID: "depot", Center: domain.PositionOf(jakarta), Shape: domain.Circle{RadiusMeters: 500}},
		{ID: "gate", Center: domain.PositionOf(jakarta), Shape: domain.Pointer{}},
		{ID: "yard", Center: domain.PositionOf(domain.GeoPoint{Lat: 0.5, Lon: 0.5}), Shape: domain.Polygon{Vertices: []domain.GeoPoint{
			{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 1}, {Lat: 1, Lon: 0},
		}}},
	}

	idx := NewGeofenceIndex()
	skipped := idx.Rebuild(fences)
	require.Empty(t, skipped)
	assert.Equal(t, 3, idx.Size())

	assert.ElementsMatch(t, []string{"depot", "gate"}, ids(idx.Candidates(jakarta)))
	assert.ElementsMatch(t, []string{"yard"}, ids(idx.Candidates(domain.GeoPoint{Lat: 0.5, Lon: 0.5})))
	assert.Empty(t, idx.Candidates(domain.GeoPoint{Lat: 40, Lon: -74}))
}

func TestCandidates_CircleBoundaryIncluded(t *testing.T) {
	center := domain.GeoPoint{Lat: 60, Lon: 10}
	gf := &domain.Geofence{ID: "north", Center: domain.PositionOf(center), Shape: domain.Circle{RadiusMeters: 1000}}

	idx := NewGeofenceIndex()
	idx.Rebuild([]*domain.Geofence{gf})

	// due east on the circle, where longitude degrees are shortest
	east := domain.GeoPoint{Lat: center.Lat, Lon: center.Lon + 0.0179}
	require.True(t, geometry.IsInsideCircle(east, center, 1))
	assert.Len(t, idx.Candidates(east), 1)
}

func TestCandidates_LargeCircleWidestLongitude(t *testing.T) {
	center := domain.GeoPoint{Lat: 60, Lon: 10}
	gf := &domain.Geofence{ID: "region", Center: domain.PositionOf(center), Shape: domain.Circle{RadiusMeters: 1_000_000}}

	idx := NewGeofenceIndex()
	idx.Rebuild([]*domain.Geofence{gf})

	// the cap is widest in longitude north of its center
	a := 999 / geometry.EarthRadiusKm
	lat0 := center.Lat * math.Pi / 180
	widest := domain.GeoPoint{
		Lat: math.Asin(math.Sin(lat0)/math.Cos(a)) * 180 / math.Pi,
		Lon: center.Lon + math.Asin(math.Sin(a)/math.Cos(lat0))*180/math.Pi,
	}
	require.InDelta(t, 999, geometry.HaversineDistanceKm(widest, center), 0.01)
	require.True(t, geometry.IsInsideCircle(widest, center, 1000))
	assert.Len(t, idx.Candidates(widest), 1)
}

func TestCandidates_CircleOverPole(t *testing.T) {
	center := domain.GeoPoint{Lat: 85, Lon: 0}
	gf := &domain.Geofence{ID: "polar", Center: domain.PositionOf(center), Shape: domain.Circle{RadiusMeters: 1_000_000}}

	idx := NewGeofenceIndex()
	idx.Rebuild([]*domain.Geofence{gf})

	// across the pole from the center
	far := domain.GeoPoint{Lat: 88, Lon: 170}
	require.True(t, geometry.IsInsideCircle(far, center, 1000))
	assert.Len(t, idx.Candidates(far), 1)
}

func TestRebuild_SkipsUnindexable(t *testing.T) {
	fences := []*domain.Geofence{
		{ID: "no-center", Shape: domain.Circle{RadiusMeters: 100}},
		{ID: "unknown", Center: domain.PositionOf(domain.GeoPoint{Lat: 1, Lon: 1}), Shape: domain.UnknownShape{Code: 5}},
		{ID: "ok", Center: domain.PositionOf(domain.GeoPoint{Lat: 1, Lon: 1}), Shape: domain.Pointer{}},
	}

	idx := NewGeofenceIndex()
	skipped := idx.Rebuild(fences)

	assert.ElementsMatch(t, []string{"no-center", "unknown"}, ids(skipped))
	assert.Equal(t, 1, idx.Size())
}

func TestRebuild_ReplacesPreviousSet(t *testing.T) {
	idx := NewGeofenceIndex()

	var many []*domain.Geofence
	for i := 0; i < 200; i++ {
		many = append(many, &domain.Geofence{
			ID:     fmt.Sprintf("f%d", i),
			Center: domain.PositionOf(domain.GeoPoint{Lat: float64(i % 80), Lon: float64(i)}),
			Shape:  domain.Pointer{},
		})
	}
	idx.Rebuild(many)
	assert.Equal(t, 200, idx.Size())

	idx.Rebuild(many[:1])
	assert.Equal(t, 1, idx.Size())
	assert.Empty(t, idx.Candidates(domain.GeoPoint{Lat: 5, Lon: 5}))
}
