package geo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-travelmate/internal/types"
)

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "geo:new york", CacheKey("  New   York "))
	assert.Equal(t, CacheKey("PARIS"), CacheKey("paris"))
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)
	rome := &types.LocationData{DisplayName: "Roma, Lazio, Italia", Lat: 41.89, Lon: 12.48}

	got, err := c.Get(ctx, "Rome")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Set(ctx, "Rome", rome))
	got, err = c.Get(ctx, "rome")
	require.NoError(t, err)
	assert.Equal(t, rome, got)

	got.Lat = 0
	again, _ := c.Get(ctx, "Rome")
	assert.Equal(t, 41.89, again.Lat, "cached value must not alias caller's copy")

	require.NoError(t, c.Set(ctx, "nil", nil))
	got, _ = c.Get(ctx, "nil")
	assert.Nil(t, got)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedisCache(client, time.Hour)
	kyoto := &types.LocationData{DisplayName: "Kyoto, Japan", Lat: 35.01, Lon: 135.76}

	t.Run("miss", func(t *testing.T) {
		got, err := c.Get(ctx, "Kyoto")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("round trip with ttl", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "Kyoto", kyoto))
		assert.True(t, mr.Exists("geo:kyoto"))
		assert.Equal(t, time.Hour, mr.TTL("geo:kyoto"))

		got, err := c.Get(ctx, "KYOTO")
		require.NoError(t, err)
		assert.Equal(t, kyoto, got)
	})

	t.Run("expired entry is a miss", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "Oslo", &types.LocationData{DisplayName: "Oslo", Lat: 59.9, Lon: 10.7}))
		mr.FastForward(2 * time.Hour)

		got, err := c.Get(ctx, "Oslo")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("corrupt value is an error", func(t *testing.T) {
		require.NoError(t, mr.Set("geo:lima", "not json"))
		_, err := c.Get(ctx, "Lima")
		assert.Error(t, err)
	})

	t.Run("server down is an error", func(t *testing.T) {
		mr.Close()
		_, err := c.Get(ctx, "Kyoto")
		assert.Error(t, err)
	})
}
