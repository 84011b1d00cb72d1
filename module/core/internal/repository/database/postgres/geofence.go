package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/nandanugg/fleet-geofence/module/core/domain"
	"github.com/nandanugg/fleet-geofence/module/core/internal/repository/database"
)

var _ database.GeofenceRepository = (*GeofenceRepo)(nil)

type GeofenceRepo struct {
	db *sql.DB
}

func NewGeofenceRepo(db *sql.DB) *GeofenceRepo {
	return &GeofenceRepo{db: db}
}

func (r *GeofenceRepo) List(ctx context.Context) ([]domain.GeofenceRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, shape_type, latitude, longitude, radius, vertices FROM geofences ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list geofences: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []domain.GeofenceRecord
	for rows.Next() {
		var (
			rec           domain.GeofenceRecord
			lat, lon, rad sql.NullFloat64
			vertices      []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Type, &lat, &lon, &rad, &vertices); err != nil {
			return nil, fmt.Errorf("scan geofence: %w", err)
		}
		rec.Latitude = nullCoord(lat)
		rec.Longitude = nullCoord(lon)
		rec.Radius = nullCoord(rad)
		if len(vertices) > 0 {
			// a corrupt row must not hide the others, decoding rejects it later
			if err := json.Unmarshal(vertices, &rec.Vertices); err != nil {
				log.WithError(err).WithField("geofence_id", rec.ID).Warn("undecodable geofence vertices")
				rec.Vertices = nil
			}
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

func (r *GeofenceRepo) Upsert(ctx context.Context, rec *domain.GeofenceRecord) error {
	// NULL for shapes without vertices
	var vertices sql.NullString
	if len(rec.Vertices) > 0 {
		b, err := json.Marshal(rec.Vertices)
		if err != nil {
			return fmt.Errorf("encode vertices: %w", err)
		}
		vertices = sql.NullString{String: string(b), Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO geofences (id, name, shape_type, latitude, longitude, radius, vertices) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, shape_type = EXCLUDED.shape_type, latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude, radius = EXCLUDED.radius, vertices = EXCLUDED.vertices`,
		rec.ID, rec.Name, int(rec.Type), coordArg(rec.Latitude), coordArg(rec.Longitude), coordArg(rec.Radius), vertices,
	)
	if err != nil {
		return fmt.Errorf("upsert geofence %s: %w", rec.ID, err)
	}
	return nil
}

func nullCoord(n sql.NullFloat64) domain.Coord {
	if !n.Valid {
		return domain.Coord{}
	}
	return domain.NewCoord(n.Float64)
}

func coordArg(c domain.Coord) sql.NullFloat64 {
	return sql.NullFloat64{Float64: c.Value, Valid: c.Valid}
}
