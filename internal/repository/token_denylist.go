package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aryan0dhankhar/okrboard/internal/infrastructure/redis"
)

// RedisTokenDenylist remembers revoked token ids until the token would have expired anyway.
type RedisTokenDenylist struct {
	redis *redis.Client
	now   func() time.Time
}

func NewRedisTokenDenylist(redisClient *redis.Client) *RedisTokenDenylist {
	return &RedisTokenDenylist{redis: redisClient, now: time.Now}
}

func denylistKey(tokenID string) string {
	return "revoked:" + tokenID
}

// Revoke denies tokenID until expiresAt. Already expired tokens are ignored.
func (d *RedisTokenDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.redis.Set(ctx, denylistKey(tokenID), "1", ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID was revoked.
func (d *RedisTokenDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	ok, err := d.redis.Exists(ctx, denylistKey(tokenID))
	if err != nil {
		return false, fmt.Errorf("failed to check token: %w", err)
	}
	return ok, nil
}
