package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/FACorreiaa/go-travelmate/internal/types"
)

// LocationCache stores successful resolutions across requests. Get returns
// (nil, nil) on a miss.
type LocationCache interface {
	Get(ctx context.Context, name string) (*types.LocationData, error)
	Set(ctx context.Context, name string, loc *types.LocationData) error
}

// CacheKey normalizes a place name so spelling variants share one entry.
func CacheKey(name string) string {
	return "geo:" + strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// MemoryCache keeps resolutions in process.
type MemoryCache struct {
	store *gocache.Cache
}

var _ LocationCache = (*MemoryCache)(nil)

func NewMemoryCache(ttl, cleanupInterval time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Hour
	}
	return &MemoryCache{store: gocache.New(ttl, cleanupInterval)}
}

func (m *MemoryCache) Get(_ context.Context, name string) (*types.LocationData, error) {
	v, ok := m.store.Get(CacheKey(name))
	if !ok {
		return nil, nil
	}
	loc := v.(types.LocationData)
	return &loc, nil
}

func (m *MemoryCache) Set(_ context.Context, name string, loc *types.LocationData) error {
	if loc == nil {
		return nil
	}
	m.store.Set(CacheKey(name), *loc, gocache.DefaultExpiration)
	return nil
}

// RedisCache shares resolutions between instances as JSON values.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ LocationCache = (*RedisCache)(nil)

func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, name string) (*types.LocationData, error) {
	raw, err := r.client.Get(ctx, CacheKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var loc types.LocationData
	if err := json.Unmarshal(raw, &loc); err != nil {
		return nil, fmt.Errorf("redis decode: %w", err)
	}
	return &loc, nil
}

func (r *RedisCache) Set(ctx context.Context, name string, loc *types.LocationData) error {
	if loc == nil {
		return nil
	}
	raw, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("redis encode: %w", err)
	}
	if err := r.client.Set(ctx, CacheKey(name), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
