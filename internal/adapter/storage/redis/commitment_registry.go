package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// CommitmentRegistry implements ports.CommitmentRegistry using Redis SET NX.
// The rounds table also carries a UNIQUE constraint on the hash; this is the
// fast check in front of it.
type CommitmentRegistry struct {
	client *goredis.Client
	prefix string
}

// NewCommitmentRegistry creates a new Redis-backed commitment registry.
func NewCommitmentRegistry(client *goredis.Client) *CommitmentRegistry {
	return &CommitmentRegistry{
		client: client,
		prefix: "commitment:",
	}
}

// Register records serverSeedHash. Returns false if it was already committed.
func (r *CommitmentRegistry) Register(ctx context.Context, serverSeedHash string, ttl time.Duration) (bool, error) {
	result, err := r.client.SetArgs(ctx, r.prefix+serverSeedHash, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis commitment register: %w", err)
	}
	return result == "OK", nil
}
