package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/fleet-geofence/module/core/domain"
)

type geofenceService interface {
	List() []*domain.Geofence
	Get(id string) (*domain.Geofence, error)
	Save(ctx context.Context, rec *domain.GeofenceRecord) error
	VehicleMemberships(ctx context.Context, vehicleID string) ([]domain.Membership, error)
	GeofenceMemberships(ctx context.Context, geofenceID string) ([]domain.Membership, error)
	Evaluate(ctx context.Context, geofenceID string, entities []domain.TrackedEntity) ([]domain.Membership, error)
	Events(ctx context.Context, query *domain.EventQuery) ([]domain.GeofenceEvent, error)
}

type pointResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type geofenceResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	TypeCode     int             `json:"type_code"`
	Center       *pointResponse  `json:"center"`
	RadiusMeters *float64        `json:"radius_meters,omitempty"`
	Vertices     []pointResponse `json:"vertices,omitempty"`
}

// entityRequest accepts both the long and short coordinate keys used by
// vehicle listings. Values may be numbers or numeric strings.
type entityRequest struct {
	ID        string       `json:"id"`
	Latitude  domain.Coord `json:"latitude"`
	Longitude domain.Coord `json:"longitude"`
	Lat       domain.Coord `json:"lat"`
	Lng       domain.Coord `json:"lng"`
}

type evaluateRequest struct {
	Vehicles []entityRequest `json:"vehicles"`
}

type eventResponse struct {
	ID         string  `json:"id"`
	VehicleID  string  `json:"vehicle_id"`
	GeofenceID string  `json:"geofence_id"`
	Event      string  `json:"event"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Timestamp  int64   `json:"timestamp"`
}

type GeofenceHandler struct {
	geofenceSvc geofenceService
}

func NewGeofenceHandler(geofenceSvc geofenceService) *GeofenceHandler {
	return &GeofenceHandler{geofenceSvc: geofenceSvc}
}

func (h *GeofenceHandler) Register(r *gin.RouterGroup) {
	r.GET("/geofences", h.ListGeofences)
	r.GET("/geofences/:geofence_id", h.GetGeofence)
	r.PUT("/geofences/:geofence_id", h.PutGeofence)
	r.GET("/geofences/:geofence_id/vehicles", h.GetGeofenceVehicles)
	r.POST("/geofences/:geofence_id/evaluate", h.Evaluate)
	r.GET("/geofences/:geofence_id/events", h.GetEvents)
	r.GET("/vehicles/:vehicle_id/geofences", h.GetVehicleGeofences)
}

func (h *GeofenceHandler) ListGeofences(c *gin.Context) {
	fences := h.geofenceSvc.List()
	results := make([]geofenceResponse, len(fences))
	for i, gf := range fences {
		results[i] = toGeofenceResponse(gf)
	}
	c.JSON(http.StatusOK, results)
}

func (h *GeofenceHandler) GetGeofence(c *gin.Context) {
	gf, err := h.geofenceSvc.Get(c.Param("geofence_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toGeofenceResponse(gf))
}

// PutGeofence creates or replaces a geofence. The path id wins over any id
// in the body.
func (h *GeofenceHandler) PutGeofence(c *gin.Context) {
	var rec domain.GeofenceRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	rec.ID = c.Param("geofence_id")

	if err := h.geofenceSvc.Save(c.Request.Context(), &rec); err != nil {
		respondError(c, err)
		return
	}

	gf, err := h.geofenceSvc.Get(rec.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toGeofenceResponse(gf))
}

func (h *GeofenceHandler) GetGeofenceVehicles(c *gin.Context) {
	results, err := h.geofenceSvc.GeofenceMemberships(c.Request.Context(), c.Param("geofence_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *GeofenceHandler) GetVehicleGeofences(c *gin.Context) {
	results, err := h.geofenceSvc.VehicleMemberships(c.Request.Context(), c.Param("vehicle_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *GeofenceHandler) Evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	entities := make([]domain.TrackedEntity, len(req.Vehicles))
	for i, v := range req.Vehicles {
		entities[i] = v.toEntity()
	}

	results, err := h.geofenceSvc.Evaluate(c.Request.Context(), c.Param("geofence_id"), entities)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *GeofenceHandler) GetEvents(c *gin.Context) {
	query := &domain.EventQuery{
		GeofenceID: c.Param("geofence_id"),
		VehicleID:  c.Query("vehicle_id"),
	}

	events, err := h.geofenceSvc.Events(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]eventResponse, len(events))
	for i, e := range events {
		results[i] = eventResponse{
			ID:         e.ID,
			VehicleID:  e.VehicleID,
			GeofenceID: e.GeofenceID,
			Event:      string(e.Type),
			Latitude:   e.Location.Lat,
			Longitude:  e.Location.Lon,
			Timestamp:  e.Timestamp.Unix(),
		}
	}
	c.JSON(http.StatusOK, results)
}

func (r entityRequest) toEntity() domain.TrackedEntity {
	lat, lon := r.Latitude, r.Longitude
	if !lat.Valid {
		lat = r.Lat
	}
	if !lon.Valid {
		lon = r.Lng
	}
	return domain.TrackedEntity{ID: r.ID, Position: domain.Position{Lat: lat, Lon: lon}}
}

func toGeofenceResponse(gf *domain.Geofence) geofenceResponse {
	code := domain.ShapeCodeOf(gf.Shape)
	resp := geofenceResponse{
		ID:       gf.ID,
		Name:     gf.Name,
		Type:     code.String(),
		TypeCode: int(code),
	}
	if p, ok := gf.Center.Point(); ok {
		resp.Center = &pointResponse{Latitude: p.Lat, Longitude: p.Lon}
	}

	switch s := gf.Shape.(type) {
	case domain.Circle:
		radius := s.RadiusMeters
		resp.RadiusMeters = &radius
	case domain.Polygon:
		resp.Vertices = make([]pointResponse, len(s.Vertices))
		for i, v := range s.Vertices {
			resp.Vertices[i] = pointResponse{Latitude: v.Lat, Longitude: v.Lon}
		}
	}
	return resp
}
