package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// NonceStore implements ports.NonceStore with one INCR counter per
// (server, client seed) pair. Counters never expire so a nonce is never
// handed out twice for the same pair.
type NonceStore struct {
	client *goredis.Client
	prefix string
}

// NewNonceStore creates a new Redis-backed nonce store.
func NewNonceStore(client *goredis.Client) *NonceStore {
	return &NonceStore{
		client: client,
		prefix: "nonce:",
	}
}

// Next returns the next nonce for the pair, starting at 1.
func (s *NonceStore) Next(ctx context.Context, serverID, clientSeed string) (uint64, error) {
	n, err := s.client.Incr(ctx, s.prefix+serverID+":"+clientSeed).Result()
	if err != nil {
		return 0, fmt.Errorf("redis nonce incr: %w", err)
	}
	return uint64(n), nil
}
