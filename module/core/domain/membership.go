package domain

import "time"

type Category string

const (
	CategoryNotArrived     Category = "NOT_ARRIVED"
	CategoryStillInside    Category = "STILL_INSIDE"
	CategoryArrivedAndLeft Category = "ARRIVED_AND_LEFT"
)

// Membership is the relationship of one vehicle to one geofence at the time
// of evaluation. When Available is false neither Inside nor DistanceKm carry
// information.
type Membership struct {
	VehicleID  string     `json:"vehicle_id"`
	GeofenceID string     `json:"geofence_id"`
	Available  bool       `json:"available"`
	Inside     bool       `json:"is_inside"`
	DistanceKm float64    `json:"distance_from_center_km"`
	Category   Category   `json:"category"`
	EnteredAt  *time.Time `json:"entered_at,omitempty"`
	ExitedAt   *time.Time `json:"exited_at,omitempty"`
}
