package redis

import (
	"context"
	"testing"
	"time"

	"blackjack-engine/config"
	"blackjack-engine/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return s, client
}

func TestNewClient(t *testing.T) {
	s := miniredis.RunT(t)
	host, port := s.Host(), s.Server().Addr().Port

	client, err := NewClient(context.Background(), config.RedisConfig{Host: host, Port: port}, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, "redis", NewHealthCheck(client).Name())
	assert.NoError(t, NewHealthCheck(client).Ping(context.Background()))
}

func TestHealthCheck_ReportsOutage(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr(), MaxRetries: -1})
	defer client.Close()

	hc := NewHealthCheck(client)
	require.NoError(t, hc.Ping(context.Background()))

	s.Close()
	err := hc.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coordination store not ready")
}

func TestNewClient_Unreachable(t *testing.T) {
	s := miniredis.RunT(t)
	host, port := s.Host(), s.Server().Addr().Port
	s.Close()

	_, err := NewClient(context.Background(), config.RedisConfig{Host: host, Port: port}, zerolog.Nop())
	assert.Error(t, err)
}

func TestCommitmentRegistry_Register(t *testing.T) {
	s, client := newTestClient(t)
	reg := NewCommitmentRegistry(client)
	ctx := context.Background()

	ok, err := reg.Register(ctx, "hash-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "first commitment should register")

	ok, err = reg.Register(ctx, "hash-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "reused commitment must be refused")

	ok, err = reg.Register(ctx, "hash-2", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, time.Hour, s.TTL("commitment:hash-1"))
}

func TestRoundLock_AcquireRelease(t *testing.T) {
	_, client := newTestClient(t)
	lock := NewRoundLock(client)
	ctx := context.Background()
	roundID := uuid.New()

	token, ok, err := lock.Acquire(ctx, roundID, 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, token, 32)

	_, ok, err = lock.Acquire(ctx, roundID, 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must wait")

	_, ok, err = lock.Acquire(ctx, uuid.New(), 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "other rounds are independent")

	require.NoError(t, lock.Release(ctx, roundID, token))

	_, ok, err = lock.Acquire(ctx, roundID, 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "released lock can be taken again")
}

func TestRoundLock_ReleaseForeignToken(t *testing.T) {
	s, client := newTestClient(t)
	lock := NewRoundLock(client)
	ctx := context.Background()
	roundID := uuid.New()

	token, ok, err := lock.Acquire(ctx, roundID, 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, lock.Release(ctx, roundID, "not-the-owner"))
	got, err := s.Get("round-lock:" + roundID.String())
	require.NoError(t, err)
	assert.Equal(t, token, got, "a foreign token must not release the lock")
}

func TestRoundLock_Expires(t *testing.T) {
	s, client := newTestClient(t)
	lock := NewRoundLock(client)
	ctx := context.Background()
	roundID := uuid.New()

	_, ok, err := lock.Acquire(ctx, roundID, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	s.FastForward(2 * time.Second)

	_, ok, err = lock.Acquire(ctx, roundID, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSettlementCache_GetSet(t *testing.T) {
	s, client := newTestClient(t)
	cache := NewSettlementCache(client)
	ctx := context.Background()

	resID, roundID := uuid.New(), uuid.New()

	got, err := cache.Get(ctx, resID)
	require.NoError(t, err)
	assert.Nil(t, got, "cache miss returns nil")

	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Kind:          domain.LedgerEntrySettlement,
		ReservationID: &resID,
		RoundID:       &roundID,
		Amount:        750,
		Released:      500,
		BalanceAfter:  1750,
		CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, cache.Set(ctx, entry, time.Hour))

	got, err = cache.Get(ctx, resID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, int64(750), got.Amount)
	assert.Equal(t, int64(1750), got.BalanceAfter)
	assert.True(t, entry.CreatedAt.Equal(got.CreatedAt))

	s.FastForward(2 * time.Hour)
	got, err = cache.Get(ctx, resID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSettlementCache_SetWithoutReservation(t *testing.T) {
	_, client := newTestClient(t)
	cache := NewSettlementCache(client)

	err := cache.Set(context.Background(), &domain.LedgerEntry{Kind: domain.LedgerEntryDeposit}, time.Hour)
	assert.Error(t, err)
}

func TestSettlementCache_CorruptValue(t *testing.T) {
	s, client := newTestClient(t)
	cache := NewSettlementCache(client)
	resID := uuid.New()

	require.NoError(t, s.Set("settlement:"+resID.String(), "not-json"))

	_, err := cache.Get(context.Background(), resID)
	assert.Error(t, err)
}
