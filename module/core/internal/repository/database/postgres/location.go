package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nandanugg/fleet-geofence/module/core/domain"
	"github.com/nandanugg/fleet-geofence/module/core/internal/repository/database"
)

var _ database.LocationRepository = (*LocationRepo)(nil)

const locationColumns = `vehicle_id, latitude, longitude, timestamp`

type LocationRepo struct {
	db *sql.DB
}

func NewLocationRepo(db *sql.DB) *LocationRepo {
	return &LocationRepo{db: db}
}

// Insert ignores a position the vehicle already reported at the same
// timestamp. MQTT QoS 1 redelivers messages after reconnects.
func (r *LocationRepo) Insert(ctx context.Context, loc *domain.VehicleLocation) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO vehicle_locations (`+locationColumns+`) VALUES ($1, $2, $3, $4)
		ON CONFLICT (vehicle_id, timestamp) DO NOTHING`,
		loc.VehicleID, loc.Location.Lat, loc.Location.Lon, loc.Location.Timestamp,
	)
	if err != nil {
		return false, fmt.Errorf("insert location: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert location: %w", err)
	}
	return n > 0, nil
}

func (r *LocationRepo) GetLatest(ctx context.Context, vehicleID string) (*domain.VehicleLocation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+locationColumns+` FROM vehicle_locations WHERE vehicle_id = $1 ORDER BY timestamp DESC LIMIT 1`,
		vehicleID,
	)

	vl, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("vehicle %s: %w", vehicleID, database.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get latest location: %w", err)
	}
	return &vl, nil
}

// GetLatestAll returns the most recent location of every vehicle, ordered by
// vehicle id.
func (r *LocationRepo) GetLatestAll(ctx context.Context) ([]domain.VehicleLocation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT ON (vehicle_id) `+locationColumns+` FROM vehicle_locations ORDER BY vehicle_id, timestamp DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("get latest locations: %w", err)
	}
	return collectLocations(rows)
}

func (r *LocationRepo) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.VehicleLocation, error) {
	// LIMIT NULL is no limit
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+locationColumns+` FROM vehicle_locations
		WHERE vehicle_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC LIMIT NULLIF($4, 0)`,
		query.VehicleID, query.Start, query.End, query.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return collectLocations(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(row rowScanner) (domain.VehicleLocation, error) {
	var vl domain.VehicleLocation
	err := row.Scan(&vl.VehicleID, &vl.Location.Lat, &vl.Location.Lon, &vl.Location.Timestamp)
	return vl, err
}

func collectLocations(rows *sql.Rows) ([]domain.VehicleLocation, error) {
	defer func() { _ = rows.Close() }()

	results := []domain.VehicleLocation{}
	for rows.Next() {
		vl, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		results = append(results, vl)
	}
	return results, rows.Err()
}
