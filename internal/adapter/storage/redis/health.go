package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// HealthCheck reports whether the Redis instance holding round locks, nonce
// counters and seed commitments is reachable.
type HealthCheck struct {
	client *goredis.Client
}

// NewHealthCheck returns the readiness check for the coordination store.
func NewHealthCheck(client *goredis.Client) *HealthCheck {
	return &HealthCheck{client: client}
}

// Ping fails while Redis cannot be reached; round creation and actions need
// it for locking.
func (h *HealthCheck) Ping(ctx context.Context) error {
	if err := h.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("coordination store not ready: %w", err)
	}
	return nil
}

// Name labels the check in the /health response.
func (h *HealthCheck) Name() string {
	return "redis"
}
