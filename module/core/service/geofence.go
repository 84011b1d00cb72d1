package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/nandanugg/fleet-geofence/module/core/domain"
	"github.com/nandanugg/fleet-geofence/module/core/geometry"
	"github.com/nandanugg/fleet-geofence/module/core/internal/index"
	"github.com/nandanugg/fleet-geofence/module/core/internal/repository/database"
	"github.com/nandanugg/fleet-geofence/module/core/internal/repository/publisher"
	"github.com/nandanugg/fleet-geofence/module/core/internal/repository/state"
)

var (
	ErrGeofenceNotFound = errors.New("geofence not found")
	ErrVehicleNotFound  = errors.New("vehicle not found")
)

type GeofenceService struct {
	repo      database.GeofenceRepository
	events    database.EventRepository
	locations database.LocationRepository
	state     state.MembershipStore
	publisher publisher.GeofencePublisher
	index     *index.GeofenceIndex
	newID     func() string

	mu     sync.RWMutex
	fences map[string]*domain.Geofence
	sorted []*domain.Geofence
}

func NewGeofenceService(
	repo database.GeofenceRepository,
	events database.EventRepository,
	locations database.LocationRepository,
	store state.MembershipStore,
	pub publisher.GeofencePublisher,
) *GeofenceService {
	return &GeofenceService{
		repo:      repo,
		events:    events,
		locations: locations,
		state:     store,
		publisher: pub,
		index:     index.NewGeofenceIndex(),
		newID:     func() string { return uuid.NewString() },
		fences:    make(map[string]*domain.Geofence),
	}
}

// SetGeofences replaces the active geofence set.
func (s *GeofenceService) SetGeofences(fences []*domain.Geofence) {
	byID := make(map[string]*domain.Geofence, len(fences))
	for _, gf := range fences {
		byID[gf.ID] = gf
	}
	sorted := make([]*domain.Geofence, 0, len(byID))
	for _, gf := range byID {
		sorted = append(sorted, gf)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, gf := range s.index.Rebuild(sorted) {
		log.WithField("geofence_id", gf.ID).Warn("geofence has no usable bounds, it will not trigger alerts")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fences = byID
	s.sorted = sorted
}

// Reload reads geofence records from the repository. Records that cannot be
// decoded are logged and skipped.
func (s *GeofenceService) Reload(ctx context.Context) (int, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("reload geofences: %w", err)
	}

	fences := make([]*domain.Geofence, 0, len(records))
	for _, rec := range records {
		gf, err := rec.ToGeofence()
		if err != nil {
			log.WithError(err).WithField("geofence_id", rec.ID).Warn("skipping geofence")
			continue
		}
		fences = append(fences, gf)
	}

	s.SetGeofences(fences)
	return len(fences), nil
}

// RunRefresher reloads geofences every interval until ctx is done.
func (s *GeofenceService) RunRefresher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Reload(ctx)
			if err != nil {
				log.WithError(err).Error("geofence refresh failed")
				continue
			}
			log.WithField("count", n).Debug("geofences refreshed")
		}
	}
}

// Save stores a geofence record and makes it active.
func (s *GeofenceService) Save(ctx context.Context, rec *domain.GeofenceRecord) error {
	if _, err := rec.ToGeofence(); err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return err
	}
	_, err := s.Reload(ctx)
	return err
}

func (s *GeofenceService) List() []*domain.Geofence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*domain.Geofence(nil), s.sorted...)
}

func (s *GeofenceService) Get(id string) (*domain.Geofence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	gf, ok := s.fences[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrGeofenceNotFound)
	}
	return gf, nil
}

// CheckAndAlert compares a new position against the geofences the vehicle may
// be inside and the ones it was inside before. Each crossing is recorded as an
// event, remembered in the state store and published as an alert. Staying on
// the same side of a boundary produces nothing. Positions older than the
// vehicle's latest stored one arrived late and are not evaluated.
func (s *GeofenceService) CheckAndAlert(ctx context.Context, vl *domain.VehicleLocation) error {
	stale, err := s.isStale(ctx, vl)
	if err != nil {
		return err
	}
	if stale {
		log.WithFields(log.Fields{
			"vehicle_id": vl.VehicleID,
			"timestamp":  vl.Location.Timestamp.Unix(),
		}).Debug("late position skipped for geofence check")
		return nil
	}

	prev, err := s.state.Inside(ctx, vl.VehicleID)
	if err != nil {
		return fmt.Errorf("load membership state: %w", err)
	}

	check := make(map[string]*domain.Geofence)
	for _, gf := range s.index.Candidates(vl.Location.Point()) {
		check[gf.ID] = gf
	}
	for id := range prev {
		gf, err := s.Get(id)
		if err != nil {
			// geofence was removed while the vehicle was inside it
			if err := s.state.Set(ctx, vl.VehicleID, id, false); err != nil {
				return fmt.Errorf("clear membership state: %w", err)
			}
			continue
		}
		check[id] = gf
	}

	ids := make([]string, 0, len(check))
	for id := range check {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entity := vl.Entity()
	for _, id := range ids {
		gf := check[id]
		m := geometry.ClassifyMembership(entity, gf, nil)
		if !m.Available || m.Inside == prev[id] {
			continue
		}

		eventType := domain.GeofenceExit
		if m.Inside {
			eventType = domain.GeofenceEntry
		}
		if err := s.recordCrossing(ctx, vl, gf, eventType); err != nil {
			return err
		}
	}
	return nil
}

func (s *GeofenceService) isStale(ctx context.Context, vl *domain.VehicleLocation) (bool, error) {
	latest, err := s.locations.GetLatest(ctx, vl.VehicleID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load latest location: %w", err)
	}
	return latest.Location.Timestamp.After(vl.Location.Timestamp), nil
}

func (s *GeofenceService) recordCrossing(ctx context.Context, vl *domain.VehicleLocation, gf *domain.Geofence, eventType domain.GeofenceEventType) error {
	event := &domain.GeofenceEvent{
		ID:         s.newID(),
		VehicleID:  vl.VehicleID,
		GeofenceID: gf.ID,
		Type:       eventType,
		Location:   vl.Location,
		Timestamp:  vl.Location.Timestamp,
	}
	if err := s.events.Insert(ctx, event); err != nil {
		return fmt.Errorf("record %s: %w", eventType, err)
	}
	if err := s.state.Set(ctx, vl.VehicleID, gf.ID, eventType == domain.GeofenceEntry); err != nil {
		return fmt.Errorf("store membership state: %w", err)
	}

	log.WithFields(log.Fields{
		"vehicle_id":  vl.VehicleID,
		"geofence_id": gf.ID,
		"event":       eventType,
	}).Info("geofence crossing")

	alert := &domain.GeofenceAlert{
		EventID:      event.ID,
		VehicleID:    vl.VehicleID,
		GeofenceID:   gf.ID,
		GeofenceName: gf.Name,
		Event:        eventType,
		Location:     vl.Location,
		Timestamp:    vl.Location.Timestamp.Unix(),
	}
	if err := s.publisher.PublishAlert(ctx, alert); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// VehicleMemberships evaluates the latest position of one vehicle against
// every active geofence.
func (s *GeofenceService) VehicleMemberships(ctx context.Context, vehicleID string) ([]domain.Membership, error) {
	latest, err := s.locations.GetLatest(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", vehicleID, ErrVehicleNotFound)
		}
		return nil, err
	}

	history, err := s.events.List(ctx, &domain.EventQuery{VehicleID: vehicleID})
	if err != nil {
		return nil, err
	}

	entity := latest.Entity()
	fences := s.List()
	results := make([]domain.Membership, len(fences))
	for i, gf := range fences {
		results[i] = geometry.ClassifyMembership(entity, gf, history)
	}
	return results, nil
}

// GeofenceMemberships evaluates the latest position of every vehicle against
// one geofence.
func (s *GeofenceService) GeofenceMemberships(ctx context.Context, geofenceID string) ([]domain.Membership, error) {
	gf, err := s.Get(geofenceID)
	if err != nil {
		return nil, err
	}

	latest, err := s.locations.GetLatestAll(ctx)
	if err != nil {
		return nil, err
	}

	entities := make([]domain.TrackedEntity, len(latest))
	for i, vl := range latest {
		entities[i] = vl.Entity()
	}
	return s.classifyAll(ctx, gf, entities)
}

// Evaluate classifies caller supplied entities against one geofence. Entities
// with missing coordinates come back unavailable.
func (s *GeofenceService) Evaluate(ctx context.Context, geofenceID string, entities []domain.TrackedEntity) ([]domain.Membership, error) {
	gf, err := s.Get(geofenceID)
	if err != nil {
		return nil, err
	}
	return s.classifyAll(ctx, gf, entities)
}

func (s *GeofenceService) Events(ctx context.Context, query *domain.EventQuery) ([]domain.GeofenceEvent, error) {
	return s.events.List(ctx, query)
}

func (s *GeofenceService) classifyAll(ctx context.Context, gf *domain.Geofence, entities []domain.TrackedEntity) ([]domain.Membership, error) {
	history, err := s.events.List(ctx, &domain.EventQuery{GeofenceID: gf.ID})
	if err != nil {
		return nil, err
	}

	results := make([]domain.Membership, len(entities))
	for i, e := range entities {
		results[i] = geometry.ClassifyMembership(e, gf, history)
	}
	return results, nil
}
