// Package index narrows the geofences that can contain a position using an
// R-Tree over their bounding boxes.
package index

import (
	"math"
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/nandanugg/fleet-geofence/module/core/domain"
	"github.com/nandanugg/fleet-geofence/module/core/geometry"
)

const (
	dimensions  = 2
	minChildren = 25
	maxChildren = 50

	// smallest box side in degrees, rtreego rejects zero-length sides
	minSide = 1e-9
	// widening applied to circle boxes so boundary points stay candidates
	margin = 1.01
)

type fenceItem struct {
	fence *domain.Geofence
	rect  *rtreego.Rect
}

func (f *fenceItem) Bounds() *rtreego.Rect {
	return f.rect
}

// GeofenceIndex is safe for concurrent use. Boxes are not split at the
// antimeridian, so fences crossing it only match on the side of their center.
type GeofenceIndex struct {
	mu   sync.RWMutex
	tree *rtreego.Rtree
	size int
}

func NewGeofenceIndex() *GeofenceIndex {
	return &GeofenceIndex{tree: rtreego.NewTree(dimensions, minChildren, maxChildren)}
}

// Rebuild replaces the indexed set. Fences without a usable box (missing
// center, unknown shape) are skipped and returned.
func (g *GeofenceIndex) Rebuild(fences []*domain.Geofence) []*domain.Geofence {
	var skipped []*domain.Geofence
	tree := rtreego.NewTree(dimensions, minChildren, maxChildren)
	size := 0
	for _, gf := range fences {
		rect, ok := boundsOf(gf)
		if !ok {
			skipped = append(skipped, gf)
			continue
		}
		tree.Insert(&fenceItem{fence: gf, rect: rect})
		size++
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.tree = tree
	g.size = size
	return skipped
}

// Candidates returns the fences whose bounding box contains p. Callers still
// need an exact containment check.
func (g *GeofenceIndex) Candidates(p domain.GeoPoint) []*domain.Geofence {
	g.mu.RLock()
	defer g.mu.RUnlock()

	results := g.tree.SearchIntersect(rtreego.Point{p.Lat, p.Lon}.ToRect(minSide))
	fences := make([]*domain.Geofence, 0, len(results))
	for _, r := range results {
		fences = append(fences, r.(*fenceItem).fence)
	}
	return fences
}

func (g *GeofenceIndex) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.size
}

func boundsOf(gf *domain.Geofence) (*rtreego.Rect, bool) {
	center, ok := gf.Center.Point()
	if !ok {
		return nil, false
	}

	switch s := gf.Shape.(type) {
	case domain.Circle:
		return circleBounds(center, s.RadiusMeters/1000)
	case domain.Pointer:
		return circleBounds(center, geometry.PointerRadiusKm)
	case domain.Polygon:
		minLat, minLon := math.Inf(1), math.Inf(1)
		maxLat, maxLon := math.Inf(-1), math.Inf(-1)
		for _, v := range s.Vertices {
			minLat, maxLat = math.Min(minLat, v.Lat), math.Max(maxLat, v.Lat)
			minLon, maxLon = math.Min(minLon, v.Lon), math.Max(maxLon, v.Lon)
		}
		return rect(minLat, minLon, maxLat-minLat, maxLon-minLon)
	default:
		return nil, false
	}
}

// circleBounds returns the box around a spherical cap. The longitude
// half-width is the cap's widest extent, asin(sin(a)/cos(lat)), which sits
// poleward of the center. A cap that reaches a pole spans every longitude.
func circleBounds(center domain.GeoPoint, radiusKm float64) (*rtreego.Rect, bool) {
	angular := radiusKm / geometry.EarthRadiusKm
	lat := center.Lat * math.Pi / 180
	latDeg := angular * 180 / math.Pi * margin

	if angular >= math.Pi/2-math.Abs(lat) {
		return rect(center.Lat-latDeg, -180, 2*latDeg, 360)
	}
	lonDeg := math.Asin(math.Min(1, math.Sin(angular)/math.Cos(lat))) * 180 / math.Pi * margin
	lonDeg = math.Min(lonDeg, 180)
	return rect(center.Lat-latDeg, center.Lon-lonDeg, 2*latDeg, 2*lonDeg)
}

func rect(lat, lon, dLat, dLon float64) (*rtreego.Rect, bool) {
	r, err := rtreego.NewRect(rtreego.Point{lat, lon}, []float64{math.Max(dLat, minSide), math.Max(dLon, minSide)})
	if err != nil {
		return nil, false
	}
	return r, true
}
