package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker tracks refresh tokens that were logged out, keyed by their jti.
type Revoker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// Revoke keeps jti revoked for ttl, which should cover the token's remaining lifetime.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// NoopRevoker never revokes anything.
type NoopRevoker struct{}

func (NoopRevoker) IsRevoked(context.Context, string) (bool, error) { return false, nil }

func (NoopRevoker) Revoke(context.Context, string, time.Duration) error { return nil }

const revokedKeyPrefix = "auth:revoked:refresh:"

// RedisRevoker stores revoked jtis as expiring redis keys.
type RedisRevoker struct {
	client redis.Cmdable
}

// NewRedisRevoker builds a revoker over client.
func NewRedisRevoker(client redis.Cmdable) *RedisRevoker {
	return &RedisRevoker{client: client}
}

// IsRevoked reports whether jti has been revoked.
func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}

// Revoke marks jti as revoked.
func (r *RedisRevoker) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revokedKeyPrefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}
