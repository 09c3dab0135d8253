package postgres

import (
	"context"
	"fmt"
)

// HealthCheck reports whether the round store is ready to serve. It is
// registered with GET /health.
type HealthCheck struct {
	pool Pool
}

// NewHealthCheck returns the readiness check for the round store.
func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

// Ping fails until the database is reachable and the schema has been applied.
func (h *HealthCheck) Ping(ctx context.Context) error {
	if _, err := h.pool.Exec(ctx, "SELECT 1 FROM rounds LIMIT 1"); err != nil {
		return fmt.Errorf("round store not ready: %w", err)
	}
	return nil
}

// Name labels the check in the /health response.
func (h *HealthCheck) Name() string {
	return "postgresql"
}
