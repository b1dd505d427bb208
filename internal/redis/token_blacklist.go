package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lifeshare/internal/auth"

	"github.com/redis/go-redis/v9"
)

const blacklistKeyPrefix = "bl:jti:"

// redisTokenBlacklist is the Redis implementation of auth.TokenBlacklist.
type redisTokenBlacklist struct {
	client *redis.Client
}

// NewRedisTokenBlacklist creates a new Redis-backed token blacklist.
func NewRedisTokenBlacklist(client *redis.Client) auth.TokenBlacklist {
	return &redisTokenBlacklist{client: client}
}

// Add blacklists the jti with a TTL equal to the token's remaining lifetime.
func (r *redisTokenBlacklist) Add(ctx context.Context, jti string, originalTokenExpTime time.Time) error {
	duration := time.Until(originalTokenExpTime)
	if duration <= 0 {
		// Token already expired; JWT validation rejects it anyway.
		return nil
	}

	key := blacklistKeyPrefix + jti
	if err := r.client.Set(ctx, key, "revoked", duration).Err(); err != nil {
		return fmt.Errorf("failed to add JTI %s to blacklist: %w", jti, err)
	}
	return nil
}

// IsBlacklisted checks whether the jti is on the blacklist.
func (r *redisTokenBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	key := blacklistKeyPrefix + jti
	_, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to query blacklist for JTI %s: %w", jti, err)
	}
	return true, nil
}
