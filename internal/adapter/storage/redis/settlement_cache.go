package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"blackjack-engine/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// SettlementCache implements ports.SettlementCache using Redis.
type SettlementCache struct {
	client *goredis.Client
	prefix string
}

// NewSettlementCache creates a new Redis-backed settlement cache.
func NewSettlementCache(client *goredis.Client) *SettlementCache {
	return &SettlementCache{
		client: client,
		prefix: "settlement:",
	}
}

// Get retrieves the settlement entry of a reservation.
// Returns nil, nil if the key does not exist.
func (c *SettlementCache) Get(ctx context.Context, reservationID uuid.UUID) (*domain.LedgerEntry, error) {
	val, err := c.client.Get(ctx, c.prefix+reservationID.String()).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis settlement get: %w", err)
	}

	var entry domain.LedgerEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, fmt.Errorf("decode cached settlement: %w", err)
	}
	return &entry, nil
}

// Set caches a settlement entry keyed by its reservation.
func (c *SettlementCache) Set(ctx context.Context, entry *domain.LedgerEntry, ttl time.Duration) error {
	if entry.ReservationID == nil {
		return errors.New("settlement entry has no reservation")
	}
	val, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode settlement: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+entry.ReservationID.String(), val, ttl).Err(); err != nil {
		return fmt.Errorf("redis settlement set: %w", err)
	}
	return nil
}
