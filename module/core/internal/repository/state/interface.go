package state

import "context"

// MembershipStore remembers which geofences each vehicle was last seen inside.
// It is the baseline for detecting entry and exit transitions.
type MembershipStore interface {
	Inside(ctx context.Context, vehicleID string) (map[string]bool, error)
	Set(ctx context.Context, vehicleID, geofenceID string, inside bool) error
}
