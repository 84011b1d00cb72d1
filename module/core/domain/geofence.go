package domain

import (
	"fmt"
	"time"
)

// GeoPoint is a WGS84 coordinate in degrees.
type GeoPoint struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Shape is the geometry variant of a geofence. The set of implementations is closed.
type Shape interface {
	shape()
}

// Circle contains every point within RadiusMeters of the geofence center.
type Circle struct {
	RadiusMeters float64
}

// Pointer is a bare location, matched with a fixed tolerance.
type Pointer struct{}

// Polygon is an implicitly closed ring of vertices.
type Polygon struct {
	Vertices []GeoPoint
}

// UnknownShape keeps the raw code of a shape this service does not understand.
type UnknownShape struct {
	Code ShapeCode
}

func (Circle) shape()       {}
func (Pointer) shape()      {}
func (Polygon) shape()      {}
func (UnknownShape) shape() {}

type Geofence struct {
	ID     string
	Name   string
	Center Position
	Shape  Shape
}

// ShapeCode is the integer shape discriminator used by the geofence listing payload.
type ShapeCode int

const (
	ShapeCircle  ShapeCode = 0
	ShapePointer ShapeCode = 1
	ShapePolygon ShapeCode = 2
)

func (c ShapeCode) String() string {
	switch c {
	case ShapeCircle:
		return "circle"
	case ShapePointer:
		return "pointer"
	case ShapePolygon:
		return "polygon"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// ShapeCodeOf maps a shape back to its wire code.
func ShapeCodeOf(s Shape) ShapeCode {
	switch v := s.(type) {
	case Circle:
		return ShapeCircle
	case Pointer:
		return ShapePointer
	case Polygon:
		return ShapePolygon
	case UnknownShape:
		return v.Code
	default:
		return -1
	}
}

type GeofenceEventType string

const (
	GeofenceEntry GeofenceEventType = "geofence_entry"
	GeofenceExit  GeofenceEventType = "geofence_exit"
)

// GeofenceEvent is one recorded boundary crossing.
type GeofenceEvent struct {
	ID         string            `json:"id"`
	VehicleID  string            `json:"vehicle_id"`
	GeofenceID string            `json:"geofence_id"`
	Type       GeofenceEventType `json:"event"`
	Location   Location          `json:"location"`
	Timestamp  time.Time         `json:"timestamp"`
}

type EventQuery struct {
	VehicleID  string
	GeofenceID string
}

// GeofenceAlert is published once per recorded crossing. EventID matches the
// stored GeofenceEvent so consumers can drop redeliveries.
type GeofenceAlert struct {
	EventID      string            `json:"event_id"`
	VehicleID    string            `json:"vehicle_id"`
	GeofenceID   string            `json:"geofence_id"`
	GeofenceName string            `json:"geofence_name"`
	Event        GeofenceEventType `json:"event"`
	Location     Location          `json:"location"`
	Timestamp    int64             `json:"timestamp"`
}
