// Package cache contains the Redis backed cache of the user list.
// The list is stored as one JSON value and dropped whenever a user is written.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/technotes/user-service/internal/models/user"
)

// UserListKey is the Redis key holding the cached user list.
const UserListKey = "users:list"

type UserListCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewUserListCache creates a cache that keeps the list for ttl.
func NewUserListCache(rdb *redis.Client, ttl time.Duration) *UserListCache {
	return &UserListCache{rdb: rdb, ttl: ttl}
}

// GetUsers returns the cached list. found is false on a cache miss.
func (c *UserListCache) GetUsers(ctx context.Context) ([]user.View, bool, error) {
	val, err := c.rdb.Get(ctx, UserListKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}

	var users []user.View
	if err := json.Unmarshal(val, &users); err != nil {
		return nil, false, err
	}
	return users, true, nil
}

// SetUsers caches users for the configured TTL.
func (c *UserListCache) SetUsers(ctx context.Context, users []user.View) error {
	b, err := json.Marshal(users)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, UserListKey, b, c.ttl).Err()
}

// Invalidate drops the cached list.
func (c *UserListCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, UserListKey).Err()
}
