package domain

import "time"

type Location struct {
	Lat       float64   `json:"latitude"`
	Lon       float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

func (l Location) Point() GeoPoint {
	return GeoPoint{Lat: l.Lat, Lon: l.Lon}
}

type VehicleLocation struct {
	VehicleID string   `json:"vehicle_id"`
	Location  Location `json:"location"`
}

// Entity converts a stored location into the input of membership classification.
func (vl VehicleLocation) Entity() TrackedEntity {
	return TrackedEntity{
		ID:       vl.VehicleID,
		Position: PositionOf(vl.Location.Point()),
	}
}

// HistoryQuery selects the positions of one vehicle within [Start, End],
// oldest first. A zero Limit returns every match.
type HistoryQuery struct {
	VehicleID string
	Start     time.Time
	End       time.Time
	Limit     int
}

// TrackedEntity is a vehicle as seen by the dashboard listing. Only the
// position takes part in geofence checks.
type TrackedEntity struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
}
