package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoCacheBackend(t *testing.T) {
	c := NewGoCache(LocalConfig{
		DefaultExpiration: 5 * time.Minute,
		CleanupInterval:   10 * time.Minute,
	})
	defer c.Close()

	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "resp:abc", "seen", time.Minute))

		v, ok := c.Get(ctx, "resp:abc")
		require.True(t, ok)
		assert.Equal(t, "seen", v)
		assert.True(t, c.Exists(ctx, "resp:abc"))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "gone", 1, time.Minute))
		require.NoError(t, c.Delete(ctx, "gone"))
		assert.False(t, c.Exists(ctx, "gone"))
	})

	t.Run("Expiration", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "short", 1, 20*time.Millisecond))
		time.Sleep(50 * time.Millisecond)
		assert.False(t, c.Exists(ctx, "short"))
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "a", 1, time.Minute))
		require.NoError(t, c.Clear(ctx))
		assert.Equal(t, 0, c.Len(ctx))
	})
}

func TestLRUCacheBackend(t *testing.T) {
	c := NewLRUCache(LocalConfig{MaxSize: 2, DefaultExpiration: time.Minute})
	defer c.Close()

	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "clip1", "h1", 0))
	require.NoError(t, c.Set(ctx, "clip2", "h2", 0))
	require.NoError(t, c.Set(ctx, "clip3", "h3", 0))

	// 容量2，最早的clip1被淘汰
	assert.False(t, c.Exists(ctx, "clip1"))
	assert.True(t, c.Exists(ctx, "clip2"))
	assert.True(t, c.Exists(ctx, "clip3"))
	assert.Equal(t, 2, c.Len(ctx))
}

func TestFactory(t *testing.T) {
	c, err := NewCache(Config{Type: "gocache", Local: DefaultLocalConfig()})
	require.NoError(t, err)
	require.NotNil(t, c)
	c.Close()

	c, err = NewCache(Config{Type: "lru", Local: DefaultLocalConfig()})
	require.NoError(t, err)
	require.NotNil(t, c)
	c.Close()

	_, err = NewCache(Config{Type: "memcached"})
	assert.Error(t, err)
}
