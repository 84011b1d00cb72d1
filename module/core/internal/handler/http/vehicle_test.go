package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/fleet-geofence/module/core/domain"
	"github.com/nandanugg/fleet-geofence/module/core/service"
)

type mockLocationService struct {
	getLatestFn    func(ctx context.Context, vehicleID string) (*domain.VehicleLocation, error)
	getHistoryFn   func(ctx context.Context, query *domain.HistoryQuery) ([]domain.VehicleLocation, error)
	listVehiclesFn func(ctx context.Context) ([]domain.VehicleLocation, error)
}

func (m *mockLocationService) GetLatest(ctx context.Context, vehicleID string) (*domain.VehicleLocation, error) {
	return m.getLatestFn(ctx, vehicleID)
}

func (m *mockLocationService) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.VehicleLocation, error) {
	return m.getHistoryFn(ctx, query)
}

func (m *mockLocationService) ListVehicles(ctx context.Context) ([]domain.VehicleLocation, error) {
	return m.listVehiclesFn(ctx)
}

var fixedNow = time.Unix(1715100000, 0)

func setupRouter(svc locationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewVehicleHandler(svc)
	h.now = func() time.Time { return fixedNow }
	h.Register(r.Group(""))
	return r
}

func serve(r *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, target, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestGetLatestLocation_Success(t *testing.T) {
	ts := time.Unix(1715003456, 0)
	svc := &mockLocationService{
		getLatestFn: func(_ context.Context, vehicleID string) (*domain.VehicleLocation, error) {
			if vehicleID != "B1234XYZ" {
				t.Fatalf("unexpected vehicleID: %s", vehicleID)
			}
			return &domain.VehicleLocation{
				VehicleID: "B1234XYZ",
				Location:  domain.Location{Lat: -6.2088, Lon: 106.8456, Timestamp: ts},
			}, nil
		},
	}

	w := serve(setupRouter(svc), "GET", "/vehicles/B1234XYZ/location")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp locationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.VehicleID != "B1234XYZ" || resp.Latitude != -6.2088 || resp.Timestamp != 1715003456 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestGetLatestLocation_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("UNKNOWN: %w", service.ErrVehicleNotFound), http.StatusNotFound},
		{"service error", errors.New("db error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockLocationService{
				getLatestFn: func(_ context.Context, _ string) (*domain.VehicleLocation, error) {
					return nil, tt.err
				},
			}
			w := serve(setupRouter(svc), "GET", "/vehicles/UNKNOWN/location")
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestGetHistory_ExplicitRange(t *testing.T) {
	ts1 := time.Unix(1715000000, 0)
	ts2 := time.Unix(1715005000, 0)
	svc := &mockLocationService{
		getHistoryFn: func(_ context.Context, query *domain.HistoryQuery) ([]domain.VehicleLocation, error) {
			if query.VehicleID != "B1234XYZ" || query.Start.Unix() != 1715000000 || query.End.Unix() != 1715009999 {
				t.Fatalf("unexpected query: %+v", query)
			}
			if query.Limit != 100 {
				t.Fatalf("expected limit 100, got %d", query.Limit)
			}
			return []domain.VehicleLocation{
				{VehicleID: "B1234XYZ", Location: domain.Location{Lat: -6.2, Lon: 106.8, Timestamp: ts1}},
				{VehicleID: "B1234XYZ", Location: domain.Location{Lat: -6.3, Lon: 106.9, Timestamp: ts2}},
			}, nil
		},
	}

	w := serve(setupRouter(svc), "GET", "/vehicles/B1234XYZ/history?start=1715000000&end=1715009999&limit=100")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp []locationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp) != 2 || resp[1].Timestamp != 1715005000 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGetHistory_DefaultRange(t *testing.T) {
	svc := &mockLocationService{
		getHistoryFn: func(_ context.Context, query *domain.HistoryQuery) ([]domain.VehicleLocation, error) {
			if !query.End.Equal(fixedNow) {
				t.Errorf("expected end %v, got %v", fixedNow, query.End)
			}
			if want := fixedNow.Add(-defaultHistoryWindow); !query.Start.Equal(want) {
				t.Errorf("expected start %v, got %v", want, query.Start)
			}
			return []domain.VehicleLocation{}, nil
		},
	}

	w := serve(setupRouter(svc), "GET", "/vehicles/B1234XYZ/history")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "[]" {
		t.Errorf("expected empty array, got %s", w.Body.String())
	}
}

func TestGetHistory_BadRequest(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"invalid start", "/vehicles/B1234XYZ/history?start=abc&end=1715009999"},
		{"invalid end", "/vehicles/B1234XYZ/history?start=1715000000&end=abc"},
		{"invalid limit", "/vehicles/B1234XYZ/history?limit=ten"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(setupRouter(&mockLocationService{}), "GET", tt.target)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestGetHistory_ServiceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid range", fmt.Errorf("%w: end must not be before start", service.ErrInvalidQuery), http.StatusBadRequest},
		{"db error", errors.New("db error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockLocationService{
				getHistoryFn: func(_ context.Context, _ *domain.HistoryQuery) ([]domain.VehicleLocation, error) {
					return nil, tt.err
				},
			}
			w := serve(setupRouter(svc), "GET", "/vehicles/B1234XYZ/history?start=1715009999&end=1715000000")
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestListVehicles_Success(t *testing.T) {
	svc := &mockLocationService{
		listVehiclesFn: func(_ context.Context) ([]domain.VehicleLocation, error) {
			return []domain.VehicleLocation{
				{VehicleID: "B1234XYZ", Location: domain.Location{Lat: -6.2, Lon: 106.8, Timestamp: time.Unix(1715000000, 0)}},
				{VehicleID: "B5678ABC", Location: domain.Location{Lat: -6.3, Lon: 106.9, Timestamp: time.Unix(1715000100, 0)}},
			}, nil
		},
	}

	w := serve(setupRouter(svc), "GET", "/vehicles")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp []locationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 vehicles, got %d", len(resp))
	}
	if resp[1].VehicleID != "B5678ABC" || resp[1].Longitude != 106.9 {
		t.Errorf("unexpected second vehicle: %+v", resp[1])
	}
}

func TestListVehicles_Error(t *testing.T) {
	svc := &mockLocationService{
		listVehiclesFn: func(_ context.Context) ([]domain.VehicleLocation, error) {
			return nil, errors.New("db error")
		},
	}

	w := serve(setupRouter(svc), "GET", "/vehicles")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
