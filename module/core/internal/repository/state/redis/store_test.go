package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client), mr
}

func TestStore_SetAndInside(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	require.NoError(t, s.Set(ctx, "B1234XYZ", "depot", true))
	require.NoError(t, s.Set(ctx, "B1234XYZ", "yard", true))

	inside, err := s.Inside(ctx, "B1234XYZ")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"depot": true, "yard": true}, inside)
	assert.Equal(t, "1", mr.HGet(keyPrefix+"B1234XYZ", "depot"))

	require.NoError(t, s.Set(ctx, "B1234XYZ", "depot", false))
	inside, err = s.Inside(ctx, "B1234XYZ")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"yard": true}, inside)
}

func TestStore_UnknownVehicle(t *testing.T) {
	s, _ := newTestStore(t)

	inside, err := s.Inside(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, inside)
}

func TestStore_ServerDown(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()

	_, err := s.Inside(context.Background(), "B1234XYZ")
	assert.Error(t, err)
	assert.Error(t, s.Set(context.Background(), "B1234XYZ", "depot", true))
}
