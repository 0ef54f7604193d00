package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/washgeo/internal/models"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

type Cache struct {
	client *redis.Client
	prefix string
}

func NewCache(client *redis.Client, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	return json.Unmarshal(val, dest)
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	return c.client.Set(ctx, c.key(key), data, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Del(ctx, full...).Err()
}

// PermissionCache stores resolved permission snapshots per user.
type PermissionCache struct {
	cache *Cache
	ttl   time.Duration
}

func NewPermissionCache(client *redis.Client, ttl time.Duration) *PermissionCache {
	return &PermissionCache{cache: NewCache(client, "washgeo:"), ttl: ttl}
}

func permissionKey(userID uuid.UUID) string {
	return "perm:" + userID.String()
}

func (p *PermissionCache) GetPermissions(ctx context.Context, userID uuid.UUID) (*models.Permissions, error) {
	var perm models.Permissions
	if err := p.cache.Get(ctx, permissionKey(userID), &perm); err != nil {
		return nil, err
	}
	return &perm, nil
}

func (p *PermissionCache) SetPermissions(ctx context.Context, perm models.Permissions) error {
	return p.cache.Set(ctx, permissionKey(perm.UserID), perm, p.ttl)
}

func (p *PermissionCache) InvalidatePermissions(ctx context.Context, userIDs ...uuid.UUID) error {
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = permissionKey(id)
	}
	return p.cache.Delete(ctx, keys...)
}
