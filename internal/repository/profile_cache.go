package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/infrastructure/redis"
)

// CachedProfileRepository caches GetByID results in Redis in front of another
// ProfileRepository. Every write drops the cached copy.
type CachedProfileRepository struct {
	domain.ProfileRepository
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedProfileRepository wraps next. A zero ttl disables caching.
func NewCachedProfileRepository(next domain.ProfileRepository, redisClient *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedProfileRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedProfileRepository{
		ProfileRepository: next,
		redis:             redisClient,
		ttl:               ttl,
		logger:            logger,
	}
}

func profileKey(id string) string {
	return "profile:" + id
}

// GetByID reads through the cache. Cache failures fall back to the database.
func (r *CachedProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	if r.ttl > 0 {
		if data, err := r.redis.Get(ctx, profileKey(id)); err == nil {
			var p domain.Profile
			if err := json.Unmarshal([]byte(data), &p); err == nil {
				return &p, nil
			}
		} else if !redis.IsNil(err) {
			r.logger.Warn("profile cache read failed", slog.String("error", err.Error()))
		}
	}

	p, err := r.ProfileRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if r.ttl > 0 {
		data, err := json.Marshal(p)
		if err == nil {
			err = r.redis.Set(ctx, profileKey(id), string(data), r.ttl)
		}
		if err != nil {
			r.logger.Warn("profile cache write failed", slog.String("error", err.Error()))
		}
	}
	return p, nil
}

func (r *CachedProfileRepository) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	defer r.invalidate(ctx, id)
	return r.ProfileRepository.UpdateRole(ctx, id, role)
}

func (r *CachedProfileRepository) SetActive(ctx context.Context, id string, active bool) error {
	defer r.invalidate(ctx, id)
	return r.ProfileRepository.SetActive(ctx, id, active)
}

func (r *CachedProfileRepository) AssignTenant(ctx context.Context, id string, tenantID *string) error {
	defer r.invalidate(ctx, id)
	return r.ProfileRepository.AssignTenant(ctx, id, tenantID)
}

func (r *CachedProfileRepository) invalidate(ctx context.Context, id string) {
	if err := r.redis.Delete(ctx, profileKey(id)); err != nil {
		r.logger.Warn("profile cache invalidation failed",
			slog.String("profile_id", id),
			slog.String("error", err.Error()),
		)
	}
}
