package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nandanugg/fleet-geofence/module/core/internal/repository/state"
)

var _ state.MembershipStore = (*Store)(nil)

const keyPrefix = "fleet:geofence:inside:"

// Store keeps one hash per vehicle whose fields are the geofences it is inside.
type Store struct {
	client goredis.UniversalClient
}

func NewStore(client goredis.UniversalClient) *Store {
	return &Store{client: client}
}

func (s *Store) Inside(ctx context.Context, vehicleID string) (map[string]bool, error) {
	ids, err := s.client.HKeys(ctx, keyPrefix+vehicleID).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hkeys %s: %w", vehicleID, err)
	}

	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (s *Store) Set(ctx context.Context, vehicleID, geofenceID string, inside bool) error {
	key := keyPrefix + vehicleID

	var err error
	if inside {
		err = s.client.HSet(ctx, key, geofenceID, 1).Err()
	} else {
		err = s.client.HDel(ctx, key, geofenceID).Err()
	}
	if err != nil {
		return fmt.Errorf("redis set membership %s/%s: %w", vehicleID, geofenceID, err)
	}
	return nil
}
