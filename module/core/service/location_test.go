package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nandanugg/fleet-geofence/module/core/domain"
	"github.com/nandanugg/fleet-geofence/module/core/internal/repository/database"
)

type mockLocationRepo struct {
	insertFn       func(ctx context.Context, loc *domain.VehicleLocation) (bool, error)
	getLatestFn    func(ctx context.Context, vehicleID string) (*domain.VehicleLocation, error)
	getLatestAllFn func(ctx context.Context) ([]domain.VehicleLocation, error)
	getHistoryFn   func(ctx context.Context, query *domain.HistoryQuery) ([]domain.VehicleLocation, error)
}

func (m *mockLocationRepo) Insert(ctx context.Context, loc *domain.VehicleLocation) (bool, error) {
	return m.insertFn(ctx, loc)
}

func (m *mockLocationRepo) GetLatest(ctx context.Context, vehicleID string) (*domain.VehicleLocation, error) {
	return m.getLatestFn(ctx, vehicleID)
}

func (m *mockLocationRepo) GetLatestAll(ctx context.Context) ([]domain.VehicleLocation, error) {
	return m.getLatestAllFn(ctx)
}

func (m *mockLocationRepo) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.VehicleLocation, error) {
	return m.getHistoryFn(ctx, query)
}

func TestSaveLocation(t *testing.T) {
	vl := &domain.VehicleLocation{
		VehicleID: "B1234XYZ",
		Location:  domain.Location{Lat: -6.2088, Lon: 106.8456, Timestamp: time.Unix(1715003456, 0)},
	}

	tests := []struct {
		name     string
		inserted bool
		repoErr  error
		wantErr  error
	}{
		{name: "stored", inserted: true},
		{name: "duplicate", inserted: false, wantErr: ErrDuplicateLocation},
		{name: "repo error", repoErr: errors.New("db error")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *domain.VehicleLocation
			svc := NewLocationService(&mockLocationRepo{
				insertFn: func(_ context.Context, loc *domain.VehicleLocation) (bool, error) {
					got = loc
					return tt.inserted, tt.repoErr
				},
			})

			err := svc.SaveLocation(context.Background(), vl)
			switch {
			case tt.repoErr != nil:
				if !errors.Is(err, tt.repoErr) {
					t.Fatalf("expected repo error, got %v", err)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			case err != nil:
				t.Fatalf("unexpected error: %v", err)
			}
			if got != vl {
				t.Error("expected the location to be passed to the repository")
			}
		})
	}
}

func TestGetLatest_Success(t *testing.T) {
	ts := time.Unix(1715003456, 0)
	svc := NewLocationService(&mockLocationRepo{
		getLatestFn: func(_ context.Context, vehicleID string) (*domain.VehicleLocation, error) {
			return &domain.VehicleLocation{
				VehicleID: vehicleID,
				Location:  domain.Location{Lat: -6.2088, Lon: 106.8456, Timestamp: ts},
			}, nil
		},
	})

	result, err := svc.GetLatest(context.Background(), "B1234XYZ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.VehicleID != "B1234XYZ" || result.Location.Lat != -6.2088 {
		t.Errorf("unexpected location: %+v", result)
	}
}

func TestGetLatest_NotFound(t *testing.T) {
	svc := NewLocationService(&mockLocationRepo{
		getLatestFn: func(_ context.Context, _ string) (*domain.VehicleLocation, error) {
			return nil, fmt.Errorf("vehicle UNKNOWN: %w", database.ErrNotFound)
		},
	})

	_, err := svc.GetLatest(context.Background(), "UNKNOWN")
	if !errors.Is(err, ErrVehicleNotFound) {
		t.Fatalf("expected ErrVehicleNotFound, got %v", err)
	}
}

func TestGetHistory_Limits(t *testing.T) {
	start := time.Unix(1715000000, 0)

	tests := []struct {
		name      string
		end       time.Time
		limit     int
		wantErr   bool
		wantLimit int
	}{
		{name: "default limit", end: start.Add(time.Hour), wantLimit: MaxHistoryLimit},
		{name: "explicit limit", end: start.Add(time.Hour), limit: 50, wantLimit: 50},
		{name: "limit capped", end: start.Add(time.Hour), limit: MaxHistoryLimit + 1, wantLimit: MaxHistoryLimit},
		{name: "empty range", end: start, wantLimit: MaxHistoryLimit},
		{name: "end before start", end: start.Add(-time.Second), wantErr: true},
		{name: "window too wide", end: start.Add(MaxHistoryWindow + time.Second), wantErr: true},
		{name: "negative limit", end: start.Add(time.Hour), limit: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *domain.HistoryQuery
			svc := NewLocationService(&mockLocationRepo{
				getHistoryFn: func(_ context.Context, query *domain.HistoryQuery) ([]domain.VehicleLocation, error) {
					got = query
					return []domain.VehicleLocation{}, nil
				},
			})

			query := &domain.HistoryQuery{VehicleID: "B1234XYZ", Start: start, End: tt.end, Limit: tt.limit}
			_, err := svc.GetHistory(context.Background(), query)

			if tt.wantErr {
				if !errors.Is(err, ErrInvalidQuery) {
					t.Fatalf("expected ErrInvalidQuery, got %v", err)
				}
				if got != nil {
					t.Fatal("repository should not be queried")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Limit != tt.wantLimit {
				t.Errorf("expected limit %d, got %d", tt.wantLimit, got.Limit)
			}
			if query.Limit != tt.limit {
				t.Error("caller query must not be modified")
			}
		})
	}
}

func TestGetHistory_RepoError(t *testing.T) {
	svc := NewLocationService(&mockLocationRepo{
		getHistoryFn: func(_ context.Context, _ *domain.HistoryQuery) ([]domain.VehicleLocation, error) {
			return nil, errors.New("db error")
		},
	})

	_, err := svc.GetHistory(context.Background(), &domain.HistoryQuery{VehicleID: "X"})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestListVehicles(t *testing.T) {
	svc := NewLocationService(&mockLocationRepo{
		getLatestAllFn: func(_ context.Context) ([]domain.VehicleLocation, error) {
			return []domain.VehicleLocation{{VehicleID: "A"}, {VehicleID: "B"}}, nil
		},
	})

	vehicles, err := svc.ListVehicles(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vehicles) != 2 || vehicles[1].VehicleID != "B" {
		t.Errorf("unexpected vehicles: %+v", vehicles)
	}
}
