package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/okrboard/internal/infrastructure/redis"
)

// RedisSelectionStore persists a root user's selected tenant in Redis.
// It satisfies session.SelectionStore.
type RedisSelectionStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisSelectionStore creates a selection store. Selections expire after ttl of
// inactivity; zero keeps them until cleared.
func NewRedisSelectionStore(redisClient *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisSelectionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisSelectionStore{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

func selectionKey(userID string) string {
	return "selection:" + userID
}

// Load returns the stored tenant id, or "" when none is stored
func (r *RedisSelectionStore) Load(ctx context.Context, userID string) (string, error) {
	v, err := r.redis.Get(ctx, selectionKey(userID))
	if redis.IsNil(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load selection: %w", err)
	}
	return v, nil
}

// Save stores tenantID for userID
func (r *RedisSelectionStore) Save(ctx context.Context, userID, tenantID string) error {
	if err := r.redis.Set(ctx, selectionKey(userID), tenantID, r.ttl); err != nil {
		return fmt.Errorf("failed to store selection: %w", err)
	}
	r.logger.Debug("tenant selection saved",
		slog.String("user_id", userID),
		slog.String("tenant_id", tenantID),
	)
	return nil
}

// Clear removes any stored selection
func (r *RedisSelectionStore) Clear(ctx context.Context, userID string) error {
	if err := r.redis.Delete(ctx, selectionKey(userID)); err != nil {
		return fmt.Errorf("failed to clear selection: %w", err)
	}
	return nil
}
