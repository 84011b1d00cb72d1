package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS vehicle_locations (
		vehicle_id TEXT NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS vehicle_locations_vehicle_ts_key ON vehicle_locations (vehicle_id, timestamp)`,
	`CREATE TABLE IF NOT EXISTS geofences (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		shape_type SMALLINT NOT NULL,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		radius DOUBLE PRECISION,
		vertices JSONB
	)`,
	`CREATE TABLE IF NOT EXISTS geofence_events (
		id UUID PRIMARY KEY,
		vehicle_id TEXT NOT NULL,
		geofence_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS geofence_events_pair_ts ON geofence_events (geofence_id, vehicle_id, timestamp)`,
}

// InitSchema creates the tables used by the repositories. It is idempotent.
func InitSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
