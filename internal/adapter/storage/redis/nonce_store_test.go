package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonceStore_Next_Increments(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewNonceStore(client)
	ctx := context.Background()

	for want := uint64(1); want <= 3; want++ {
		n, err := store.Next(ctx, "engine-1", "client-seed")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
}

func TestNonceStore_Next_IndependentPairs(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewNonceStore(client)
	ctx := context.Background()

	_, err := store.Next(ctx, "engine-1", "seed-a")
	require.NoError(t, err)

	n, err := store.Next(ctx, "engine-1", "seed-b")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n, "different client seed starts its own counter")

	n, err = store.Next(ctx, "engine-2", "seed-a")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n, "different server starts its own counter")
}

func TestNonceStore_Next_Persistent(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewNonceStore(client)
	ctx := context.Background()

	_, err := store.Next(ctx, "engine-1", "seed")
	require.NoError(t, err)
	assert.Zero(t, s.TTL("nonce:engine-1:seed"), "nonce counters must not expire")
}

func TestNonceStore_Next_RedisDown(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewNonceStore(client)
	s.Close()

	_, err := store.Next(context.Background(), "engine-1", "seed")
	assert.Error(t, err)
}
