package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	defer c.Close()
	assert.NoError(t, c.Ping(context.Background()))

	_, err = NewClient("://bad")
	assert.ErrorContains(t, err, "invalid redis url")
}

func TestClient_SetGetDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	c := Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "k")
	assert.True(t, IsNil(err))

	require.NoError(t, c.Set(ctx, "k2", "v", 0))
	require.NoError(t, c.Delete(ctx, "k2"))
	ok, _ = c.Exists(ctx, "k2")
	assert.False(t, ok)
}
