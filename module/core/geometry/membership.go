package geometry

import (
	"time"

	"github.com/nandanugg/fleet-geofence/module/core/domain"
)

// ClassifyMembership evaluates entity against gf. The arrival category is
// derived from history, which should hold the recorded crossings of this
// vehicle and geofence; events for other pairs are ignored.
//
// The result is unavailable when gf is nil, when the entity or the geofence
// center lacks coordinates, or when the geofence has no shape. Unknown shapes
// yield the distance only and are never reported as inside.
func ClassifyMembership(entity domain.TrackedEntity, gf *domain.Geofence, history []domain.GeofenceEvent) domain.Membership {
	m := domain.Membership{VehicleID: entity.ID}
	if gf == nil {
		m.Category = domain.CategoryNotArrived
		return m
	}

	m.GeofenceID = gf.ID
	m.Category, m.EnteredAt, m.ExitedAt = Arrival(entity.ID, gf.ID, history)

	point, ok := entity.Position.Point()
	if !ok {
		return m
	}
	center, ok := gf.Center.Point()
	if !ok || gf.Shape == nil {
		return m
	}

	m.Available = true
	m.DistanceKm = HaversineDistanceKm(point, center)

	switch s := gf.Shape.(type) {
	case domain.Circle:
		m.Inside = IsInsideCircle(point, center, s.RadiusMeters/1000)
	case domain.Pointer:
		m.Inside = IsInsideCircle(point, center, PointerRadiusKm)
	case domain.Polygon:
		m.Inside = IsInsidePolygon(point, s.Vertices)
	}
	return m
}

// Arrival folds the crossings of one vehicle and geofence into a category.
// Without any event the vehicle has not arrived; otherwise the latest event
// decides. Events with equal timestamps are ordered by their position in
// history.
func Arrival(vehicleID, geofenceID string, history []domain.GeofenceEvent) (domain.Category, *time.Time, *time.Time) {
	var last, lastEntry, lastExit *domain.GeofenceEvent
	for i := range history {
		e := &history[i]
		if e.VehicleID != vehicleID || e.GeofenceID != geofenceID {
			continue
		}
		if last == nil || !e.Timestamp.Before(last.Timestamp) {
			last = e
		}
		switch e.Type {
		case domain.GeofenceEntry:
			if lastEntry == nil || !e.Timestamp.Before(lastEntry.Timestamp) {
				lastEntry = e
			}
		case domain.GeofenceExit:
			if lastExit == nil || !e.Timestamp.Before(lastExit.Timestamp) {
				lastExit = e
			}
		}
	}

	if last == nil {
		return domain.CategoryNotArrived, nil, nil
	}

	var enteredAt, exitedAt *time.Time
	if lastEntry != nil {
		ts := lastEntry.Timestamp
		enteredAt = &ts
	}
	if lastExit != nil && (lastEntry == nil || !lastExit.Timestamp.Before(lastEntry.Timestamp)) {
		ts := lastExit.Timestamp
		exitedAt = &ts
	}

	if last.Type == domain.GeofenceExit {
		return domain.CategoryArrivedAndLeft, enteredAt, exitedAt
	}
	return domain.CategoryStillInside, enteredAt, nil
}
