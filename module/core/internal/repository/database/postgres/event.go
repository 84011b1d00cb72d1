package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nandanugg/fleet-geofence/module/core/domain"
	"github.com/nandanugg/fleet-geofence/module/core/internal/repository/database"
)

var _ database.EventRepository = (*EventRepo)(nil)

type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

func (r *EventRepo) Insert(ctx context.Context, e *domain.GeofenceEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO geofence_events (id, vehicle_id, geofence_id, event_type, latitude, longitude, timestamp) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.VehicleID, e.GeofenceID, string(e.Type), e.Location.Lat, e.Location.Lon, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert geofence event: %w", err)
	}
	return nil
}

// List returns events in chronological order. Empty query fields match everything.
func (r *EventRepo) List(ctx context.Context, query *domain.EventQuery) ([]domain.GeofenceEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, vehicle_id, geofence_id, event_type, latitude, longitude, timestamp FROM geofence_events
		WHERE ($1 = '' OR vehicle_id = $1) AND ($2 = '' OR geofence_id = $2) ORDER BY timestamp ASC, id ASC`,
		query.VehicleID, query.GeofenceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list geofence events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []domain.GeofenceEvent
	for rows.Next() {
		var (
			e   domain.GeofenceEvent
			typ string
		)
		if err := rows.Scan(&e.ID, &e.VehicleID, &e.GeofenceID, &typ, &e.Location.Lat, &e.Location.Lon, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan geofence event: %w", err)
		}
		e.Type = domain.GeofenceEventType(typ)
		e.Location.Timestamp = e.Timestamp
		results = append(results, e)
	}
	return results, rows.Err()
}
