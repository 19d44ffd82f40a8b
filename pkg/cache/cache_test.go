package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestSetAndGet(t *testing.T) {
	c := New()
	c.Set("key1", "value1", time.Second)
	val, ok := c.Get("key1")
	assert.True(t, ok)
	assert.Equal(t, "value1", val)
}

func TestExpiration(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	c := NewWithClock(clk.now)
	c.Set("key1", "value1", 100*time.Millisecond)

	clk.t = clk.t.Add(150 * time.Millisecond)
	_, ok := c.Get("key1")
	assert.False(t, ok, "expired key")

	c.Prune()
	assert.Zero(t, c.Len())
}

func TestDelete(t *testing.T) {
	c := New()
	c.Set("key1", "value1", time.Second)
	c.Delete("key1")
	_, ok := c.Get("key1")
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	c := New()
	c.Set("tenant:a|objectives", 1, time.Second)
	c.Set("tenant:a|wiki", 2, time.Second)
	c.Set("tenant:b|objectives", 3, time.Second)

	assert.Equal(t, 2, c.Invalidate("tenant:a|"))

	_, okA := c.Get("tenant:a|objectives")
	_, okB := c.Get("tenant:b|objectives")
	assert.False(t, okA)
	assert.True(t, okB)
}

func TestLastWriteWins(t *testing.T) {
	c := New()
	c.Set("k", "first", time.Second)
	c.Set("k", "second", time.Second)
	v, _ := c.Get("k")
	assert.Equal(t, "second", v)
}
