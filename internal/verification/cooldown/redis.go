// Package cooldown rate-limits code resends per (email, purpose).
package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "verification:cooldown:"

// RedisCooldown claims a short-lived key with SET NX; a second claim inside
// the window fails.
type RedisCooldown struct {
	client *redis.Client
	window time.Duration
}

// NewRedis returns a cooldown backed by client.
func NewRedis(client *redis.Client, window time.Duration) *RedisCooldown {
	return &RedisCooldown{client: client, window: window}
}

// Acquire reports whether the caller may proceed for key.
func (c *RedisCooldown) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := c.client.SetNX(ctx, keyPrefix+key, 1, c.window).Result()
	if err != nil {
		return false, fmt.Errorf("acquire cooldown: %w", err)
	}
	return ok, nil
}

// Release drops key so the next request may proceed immediately.
func (c *RedisCooldown) Release(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release cooldown: %w", err)
	}
	return nil
}
