package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/assettrack/internal/shared"
)

// RedisRevocations keeps revoked token ids in Redis until the token would
// have expired anyway.
type RedisRevocations struct {
	client redis.Cmdable
	prefix string
}

// NewRedisRevocations constructs a denylist backed by client.
func NewRedisRevocations(client redis.Cmdable) *RedisRevocations {
	return &RedisRevocations{client: client, prefix: "assettrack:auth:revoked:"}
}

// Revoke marks tokenID as unusable until expiresAt.
func (r *RedisRevocations) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.prefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w: %w", shared.ErrStoreUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether tokenID has been revoked.
func (r *RedisRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w: %w", shared.ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

var _ RevocationList = (*RedisRevocations)(nil)
