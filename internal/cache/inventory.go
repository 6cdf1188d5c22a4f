package cache

import (
	"context"
	"fmt"
	"time"
)

// Key inventory. Content rows are never cached; profile reads and token
// revocation are the only cached concerns.
const (
	UserKeyPrefix      = "user:%s"
	BlacklistKeyPrefix = "jwt:blacklist:%s"
)

const (
	UserTTL = 5 * time.Minute
)

func UserKey(username string) string {
	return fmt.Sprintf(UserKeyPrefix, username)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, username string) {
	Invalidate(ctx, UserKey(username))
}

// BlacklistToken marks a token id as revoked until the token would have
// expired anyway.
func BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	return client.Set(ctx, BlacklistKey(jti), "1", ttl).Err()
}

// IsTokenBlacklisted reports whether a token id has been revoked.
func IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	if client == nil {
		return false, nil
	}
	n, err := client.Exists(ctx, BlacklistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
