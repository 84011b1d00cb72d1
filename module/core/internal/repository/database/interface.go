package database

import (
	"context"
	"errors"

	"github.com/nandanugg/fleet-geofence/module/core/domain"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

type LocationRepository interface {
	// Insert stores a position and reports false when the same vehicle already
	// has a position at that timestamp.
	Insert(ctx context.Context, loc *domain.VehicleLocation) (bool, error)
	GetLatest(ctx context.Context, vehicleID string) (*domain.VehicleLocation, error)
	GetLatestAll(ctx context.Context) ([]domain.VehicleLocation, error)
	GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.VehicleLocation, error)
}

type GeofenceRepository interface {
	List(ctx context.Context) ([]domain.GeofenceRecord, error)
	Upsert(ctx context.Context, record *domain.GeofenceRecord) error
}

type EventRepository interface {
	Insert(ctx context.Context, event *domain.GeofenceEvent) error
	List(ctx context.Context, query *domain.EventQuery) ([]domain.GeofenceEvent, error)
}
