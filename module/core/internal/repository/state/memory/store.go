package memory

import (
	"context"
	"sync"

	"github.com/nandanugg/fleet-geofence/module/core/internal/repository/state"
)

var _ state.MembershipStore = (*Store)(nil)

// Store keeps membership state in process memory. State is lost on restart.
type Store struct {
	mu     sync.RWMutex
	inside map[string]map[string]struct{}
}

func NewStore() *Store {
	return &Store{inside: make(map[string]map[string]struct{})}
}

func (s *Store) Inside(_ context.Context, vehicleID string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]bool, len(s.inside[vehicleID]))
	for id := range s.inside[vehicleID] {
		out[id] = true
	}
	return out, nil
}

func (s *Store) Set(_ context.Context, vehicleID, geofenceID string, inside bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fences := s.inside[vehicleID]
	if !inside {
		delete(fences, geofenceID)
		if len(fences) == 0 {
			delete(s.inside, vehicleID)
		}
		return nil
	}
	if fences == nil {
		fences = make(map[string]struct{})
		s.inside[vehicleID] = fences
	}
	fences[geofenceID] = struct{}{}
	return nil
}
