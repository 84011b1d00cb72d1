package domain

import (
	"errors"
	"fmt"
)

var ErrInvalidGeofence = errors.New("invalid geofence")

// GeofenceRecord is a geofence as delivered by the listing endpoint and stored
// in the geofences table. Radius is in meters.
type GeofenceRecord struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Type      ShapeCode      `json:"type"`
	Latitude  Coord          `json:"latitude"`
	Longitude Coord          `json:"longitude"`
	Radius    Coord          `json:"radius"`
	Vertices  []VertexRecord `json:"vertices,omitempty"`
}

type VertexRecord struct {
	Lat Coord `json:"lat"`
	Lng Coord `json:"lng"`
}

// ToGeofence resolves the integer shape code into a Shape. Missing center
// coordinates are kept as missing so that classification reports the
// geofence as unavailable instead of rejecting it here. A polygon without an
// explicit center uses the mean of its vertices as reference point.
func (r GeofenceRecord) ToGeofence() (*Geofence, error) {
	if r.ID == "" {
		return nil, fmt.Errorf("%w: id: required", ErrInvalidGeofence)
	}

	gf := &Geofence{
		ID:     r.ID,
		Name:   r.Name,
		Center: Position{Lat: r.Latitude, Lon: r.Longitude},
	}

	switch r.Type {
	case ShapeCircle:
		if !r.Radius.Valid || r.Radius.Value < 0 {
			return nil, fmt.Errorf("%w: %s: circle radius must be a non-negative number", ErrInvalidGeofence, r.ID)
		}
		gf.Shape = Circle{RadiusMeters: r.Radius.Value}
	case ShapePointer:
		gf.Shape = Pointer{}
	case ShapePolygon:
		vertices := make([]GeoPoint, 0, len(r.Vertices))
		for i, v := range r.Vertices {
			p, ok := Position{Lat: v.Lat, Lon: v.Lng}.Point()
			if !ok {
				return nil, fmt.Errorf("%w: %s: vertex %d has missing coordinates", ErrInvalidGeofence, r.ID, i)
			}
			vertices = append(vertices, p)
		}
		if len(vertices) < 3 {
			return nil, fmt.Errorf("%w: %s: polygon needs at least 3 vertices, got %d", ErrInvalidGeofence, r.ID, len(vertices))
		}
		gf.Shape = Polygon{Vertices: vertices}
		if _, ok := gf.Center.Point(); !ok {
			gf.Center = PositionOf(centroid(vertices))
		}
	default:
		gf.Shape = UnknownShape{Code: r.Type}
	}

	return gf, nil
}

// RecordOf is the inverse of ToGeofence, used when writing geofences out.
func RecordOf(gf *Geofence) GeofenceRecord {
	r := GeofenceRecord{
		ID:        gf.ID,
		Name:      gf.Name,
		Type:      ShapeCodeOf(gf.Shape),
		Latitude:  gf.Center.Lat,
		Longitude: gf.Center.Lon,
	}
	switch s := gf.Shape.(type) {
	case Circle:
		r.Radius = NewCoord(s.RadiusMeters)
	case Polygon:
		r.Vertices = make([]VertexRecord, len(s.Vertices))
		for i, v := range s.Vertices {
			r.Vertices[i] = VertexRecord{Lat: NewCoord(v.Lat), Lng: NewCoord(v.Lon)}
		}
	}
	return r
}

func centroid(vertices []GeoPoint) GeoPoint {
	var c GeoPoint
	for _, v := range vertices {
		c.Lat += v.Lat
		c.Lon += v.Lon
	}
	n := float64(len(vertices))
	return GeoPoint{Lat: c.Lat / n, Lon: c.Lon / n}
}
