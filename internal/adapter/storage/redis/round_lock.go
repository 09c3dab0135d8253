package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds the caller's token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RoundLock implements ports.RoundLocker with a token-guarded Redis key.
// It keeps concurrent requests for one round from racing to the version
// check; the version check still decides correctness when a lock expires.
type RoundLock struct {
	client *goredis.Client
	prefix string
}

// NewRoundLock creates a new Redis-backed round lock.
func NewRoundLock(client *goredis.Client) *RoundLock {
	return &RoundLock{
		client: client,
		prefix: "round-lock:",
	}
}

// Acquire takes the lock for ttl. ok is false if another holder has it.
func (l *RoundLock) Acquire(ctx context.Context, roundID uuid.UUID, ttl time.Duration) (string, bool, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", false, fmt.Errorf("generate lock token: %w", err)
	}
	token := hex.EncodeToString(buf)

	result, err := l.client.SetArgs(ctx, l.prefix+roundID.String(), token, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis round lock acquire: %w", err)
	}
	return token, result == "OK", nil
}

// Release frees the lock if token still owns it. Releasing an expired or
// foreign lock is a no-op.
func (l *RoundLock) Release(ctx context.Context, roundID uuid.UUID, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.prefix + roundID.String()}, token).Err(); err != nil {
		return fmt.Errorf("redis round lock release: %w", err)
	}
	return nil
}
