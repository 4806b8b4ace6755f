package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMiniRedis creates a test Redis server using miniredis.
func setupMiniRedis(t *testing.T) *RedisCache {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return &RedisCache{client: client, logger: zerolog.Nop()}
}

func TestRedisCacheSetGet(t *testing.T) {
	c := setupMiniRedis(t)

	c.Set("k", []byte("v"), 5*time.Minute)

	got, found := c.Get("k")
	require.True(t, found)
	assert.Equal(t, []byte("v"), got)

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Sets)
	assert.Equal(t, 1, stats.CurrentSize)
}

func TestRedisCacheMiss(t *testing.T) {
	c := setupMiniRedis(t)

	_, found := c.Get("missing")
	assert.False(t, found)
	assert.EqualValues(t, 1, c.Stats().Misses)
}

func TestRedisCacheDeleteAndClear(t *testing.T) {
	c := setupMiniRedis(t)

	c.Set("a", []byte("1"), time.Minute)
	c.Set("b", []byte("2"), time.Minute)

	c.Delete("a")
	_, found := c.Get("a")
	assert.False(t, found)

	c.Clear()
	_, found = c.Get("b")
	assert.False(t, found)
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	_, err := NewRedisCache(RedisConfig{Addr: "127.0.0.1:1"}, zerolog.Nop())
	assert.Error(t, err)
}
