package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nandanugg/fleet-geofence/module/core/domain"
	"github.com/nandanugg/fleet-geofence/module/core/internal/repository/database"
)

const (
	MaxHistoryWindow = 31 * 24 * time.Hour
	MaxHistoryLimit  = 10000
)

var (
	ErrDuplicateLocation = errors.New("duplicate location")
	ErrInvalidQuery      = errors.New("invalid query")
)

type LocationService struct {
	repo database.LocationRepository
}

func NewLocationService(repo database.LocationRepository) *LocationService {
	return &LocationService{repo: repo}
}

// SaveLocation returns ErrDuplicateLocation when the vehicle already reported
// a position at the same timestamp. Callers should not re-run geofence checks
// for duplicates.
func (s *LocationService) SaveLocation(ctx context.Context, vl *domain.VehicleLocation) error {
	inserted, err := s.repo.Insert(ctx, vl)
	if err != nil {
		return err
	}
	if !inserted {
		return fmt.Errorf("%s at %d: %w", vl.VehicleID, vl.Location.Timestamp.Unix(), ErrDuplicateLocation)
	}
	return nil
}

func (s *LocationService) GetLatest(ctx context.Context, vehicleID string) (*domain.VehicleLocation, error) {
	vl, err := s.repo.GetLatest(ctx, vehicleID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", vehicleID, ErrVehicleNotFound)
	}
	return vl, err
}

// GetHistory rejects ranges that are inverted or wider than MaxHistoryWindow.
// A limit of zero or above MaxHistoryLimit is capped to MaxHistoryLimit.
func (s *LocationService) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.VehicleLocation, error) {
	if query.End.Before(query.Start) {
		return nil, fmt.Errorf("%w: end must not be before start", ErrInvalidQuery)
	}
	if query.End.Sub(query.Start) > MaxHistoryWindow {
		return nil, fmt.Errorf("%w: range exceeds %s", ErrInvalidQuery, MaxHistoryWindow)
	}
	if query.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidQuery)
	}

	capped := *query
	if capped.Limit == 0 || capped.Limit > MaxHistoryLimit {
		capped.Limit = MaxHistoryLimit
	}
	return s.repo.GetHistory(ctx, &capped)
}

// ListVehicles returns the last known position of every vehicle.
func (s *LocationService) ListVehicles(ctx context.Context) ([]domain.VehicleLocation, error) {
	return s.repo.GetLatestAll(ctx)
}
