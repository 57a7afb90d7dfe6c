// Package blacklist tracks revoked access tokens in Redis. Access tokens
// are self-contained and would otherwise stay valid until expiry; the
// blacklist lets logout and password/permission changes take effect
// immediately.
package blacklist

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type TokenBlacklist struct {
	redis *redis.Client
}

func NewTokenBlacklist(redisClient *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{redis: redisClient}
}

// AddAccessToken blacklists a single token for its remaining lifetime.
// An already-expired token needs no entry.
func (b *TokenBlacklist) AddAccessToken(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	key := fmt.Sprintf("blacklist:token:%s", token)
	if err := b.redis.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to add token to blacklist: %w", err)
	}
	return nil
}

// IsBlacklisted checks whether a single token has been revoked.
func (b *TokenBlacklist) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	key := fmt.Sprintf("blacklist:token:%s", token)

	exists, err := b.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return exists > 0, nil
}

// BlacklistUser invalidates every token issued to the user before now.
// The marker expires after ttl, which must exceed the access token
// lifetime.
func (b *TokenBlacklist) BlacklistUser(ctx context.Context, username string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	key := fmt.Sprintf("blacklist:user:%s", username)
	return b.redis.Set(ctx, key, time.Now().Unix(), ttl).Err()
}

// IsUserBlacklisted reports whether a token issued at the given time
// predates the user's invalidation marker.
func (b *TokenBlacklist) IsUserBlacklisted(ctx context.Context, username string, tokenIssuedAt time.Time) (bool, error) {
	key := fmt.Sprintf("blacklist:user:%s", username)

	timestamp, err := b.redis.Get(ctx, key).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return tokenIssuedAt.Before(time.Unix(timestamp, 0)), nil
}
