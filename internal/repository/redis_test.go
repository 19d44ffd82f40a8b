package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/infrastructure/redis"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, redis.Wrap(rdb)
}

func TestRedisSelectionStore(t *testing.T) {
	mr, client := newRedis(t)
	store := NewRedisSelectionStore(client, time.Hour, nil)
	ctx := context.Background()

	got, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.Save(ctx, "u1", "t1"))
	got, err = store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "t1", got)

	mr.FastForward(2 * time.Hour)
	got, err = store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got, "selection should expire")

	require.NoError(t, store.Save(ctx, "u1", "t2"))
	require.NoError(t, store.Clear(ctx, "u1"))
	got, err = store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisSelectionStore_Unavailable(t *testing.T) {
	mr, client := newRedis(t)
	store := NewRedisSelectionStore(client, time.Hour, nil)
	mr.Close()

	_, err := store.Load(context.Background(), "u1")
	assert.ErrorContains(t, err, "failed to load selection")
}

func TestRedisTokenDenylist(t *testing.T) {
	mr, client := newRedis(t)
	d := NewRedisTokenDenylist(client)
	ctx := context.Background()

	revoked, err := d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, d.Revoke(ctx, "jti-1", time.Now().Add(time.Minute)))
	revoked, err = d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, err = d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, d.Revoke(ctx, "jti-2", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists(denylistKey("jti-2")))
}

type countingProfiles struct {
	domain.ProfileRepository
	profiles map[string]*domain.Profile
	reads    int
}

func (c *countingProfiles) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	c.reads++
	p, ok := c.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (c *countingProfiles) UpdateRole(_ context.Context, id string, role domain.Role) error {
	c.profiles[id].Role = role
	return nil
}

func TestCachedProfileRepository(t *testing.T) {
	_, client := newRedis(t)
	tenant := "t1"
	inner := &countingProfiles{profiles: map[string]*domain.Profile{
		"u1": {ID: "u1", Email: "ana@example.com", Role: domain.RoleMember, TenantID: &tenant, IsActive: true},
	}}
	repo := NewCachedProfileRepository(inner, client, time.Minute, nil)
	ctx := context.Background()

	p, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, p.Role)

	p, err = repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "t1", p.Tenant())
	assert.Equal(t, 1, inner.reads, "second read should hit the cache")

	require.NoError(t, repo.UpdateRole(ctx, "u1", domain.RoleLeader))
	p, err = repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleLeader, p.Role)
	assert.Equal(t, 2, inner.reads)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCachedProfileRepository_RedisDownFallsBack(t *testing.T) {
	mr, client := newRedis(t)
	inner := &countingProfiles{profiles: map[string]*domain.Profile{"u1": {ID: "u1", Role: domain.RoleAdmin}}}
	repo := NewCachedProfileRepository(inner, client, time.Minute, nil)
	mr.Close()

	p, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, p.Role)
}
