package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/fleet-geofence/module/core/domain"
)

// defaultHistoryWindow applies when a history request omits start.
const defaultHistoryWindow = 24 * time.Hour

type locationService interface {
	GetLatest(ctx context.Context, vehicleID string) (*domain.VehicleLocation, error)
	GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.VehicleLocation, error)
	ListVehicles(ctx context.Context) ([]domain.VehicleLocation, error)
}

type locationResponse struct {
	VehicleID string  `json:"vehicle_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

type VehicleHandler struct {
	locationSvc locationService
	now         func() time.Time
}

func NewVehicleHandler(locationSvc locationService) *VehicleHandler {
	return &VehicleHandler{locationSvc: locationSvc, now: time.Now}
}

func (h *VehicleHandler) Register(r *gin.RouterGroup) {
	r.GET("/vehicles", h.ListVehicles)
	r.GET("/vehicles/:vehicle_id/location", h.GetLatestLocation)
	r.GET("/vehicles/:vehicle_id/history", h.GetHistory)
}

// ListVehicles returns every vehicle with its last known position.
func (h *VehicleHandler) ListVehicles(c *gin.Context) {
	vehicles, err := h.locationSvc.ListVehicles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLocationResponses(vehicles))
}

func (h *VehicleHandler) GetLatestLocation(c *gin.Context) {
	vl, err := h.locationSvc.GetLatest(c.Request.Context(), c.Param("vehicle_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLocationResponse(vl))
}

// GetHistory accepts optional unix-second start and end parameters and an
// optional limit. end defaults to now and start to one day before end.
func (h *VehicleHandler) GetHistory(c *gin.Context) {
	end, ok := unixParam(c, "end", h.now())
	if !ok {
		return
	}
	start, ok := unixParam(c, "start", end.Add(-defaultHistoryWindow))
	if !ok {
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
			return
		}
		limit = n
	}

	locations, err := h.locationSvc.GetHistory(c.Request.Context(), &domain.HistoryQuery{
		VehicleID: c.Param("vehicle_id"),
		Start:     start,
		End:       end,
		Limit:     limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLocationResponses(locations))
}

// unixParam writes a 400 and returns false when the parameter is present but
// not an integer.
func unixParam(c *gin.Context, name string, fallback time.Time) (time.Time, bool) {
	v := c.Query(name)
	if v == "" {
		return fallback, true
	}
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + " parameter"})
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

func toLocationResponse(vl *domain.VehicleLocation) locationResponse {
	return locationResponse{
		VehicleID: vl.VehicleID,
		Latitude:  vl.Location.Lat,
		Longitude: vl.Location.Lon,
		Timestamp: vl.Location.Timestamp.Unix(),
	}
}

func toLocationResponses(locations []domain.VehicleLocation) []locationResponse {
	results := make([]locationResponse, len(locations))
	for i := range locations {
		results[i] = toLocationResponse(&locations[i])
	}
	return results
}
