package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedProfile struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestGetSetJSON(t *testing.T) {
	withMiniredis(t)
	ctx := context.Background()

	var missed cachedProfile
	found, err := GetJSON(ctx, UserKey("ghost"), &missed)
	require.NoError(t, err)
	assert.False(t, found)

	stored := cachedProfile{Username: "alice", Name: "Alice"}
	require.NoError(t, SetJSON(ctx, UserKey("alice"), stored, UserTTL))

	var got cachedProfile
	found, err = GetJSON(ctx, UserKey("alice"), &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, stored, got)
}

func TestGetJSON_CorruptPayload(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(UserKey("alice"), "not json"))

	var got cachedProfile
	found, err := GetJSON(ctx, UserKey("alice"), &got)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestAside(t *testing.T) {
	withMiniredis(t)
	ctx := context.Background()

	fetches := 0
	fetch := func(dest *cachedProfile) func() error {
		return func() error {
			fetches++
			dest.Username = "alice"
			dest.Name = "Alice"
			return nil
		}
	}

	var first cachedProfile
	require.NoError(t, Aside(ctx, UserKey("alice"), &first, UserTTL, fetch(&first)))
	assert.Equal(t, 1, fetches)
	assert.Equal(t, "alice", first.Username)

	// Second read is served from the cache
	var second cachedProfile
	require.NoError(t, Aside(ctx, UserKey("alice"), &second, UserTTL, fetch(&second)))
	assert.Equal(t, 1, fetches)
	assert.Equal(t, first, second)
}

func TestInvalidateUser(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, UserKey("alice"), cachedProfile{Username: "alice"}, UserTTL))
	InvalidateUser(ctx, "alice")

	assert.False(t, mr.Exists(UserKey("alice")))
}

func TestTokenBlacklist(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	revoked, err := IsTokenBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, BlacklistToken(ctx, "jti-1", time.Minute))

	revoked, err = IsTokenBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// Entry lapses with the token's own lifetime
	mr.FastForward(2 * time.Minute)
	revoked, err = IsTokenBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestNilClientNoOps(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	var got cachedProfile
	found, err := GetJSON(ctx, UserKey("alice"), &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, UserKey("alice"), cachedProfile{}, UserTTL))
	require.NoError(t, BlacklistToken(ctx, "jti-1", time.Minute))

	revoked, err := IsTokenBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	// Cache misses fall through to the fetch every time
	fetches := 0
	require.NoError(t, Aside(ctx, UserKey("alice"), &got, UserTTL, func() error {
		fetches++
		got.Username = "alice"
		return nil
	}))
	assert.Equal(t, 1, fetches)
	assert.Equal(t, "alice", got.Username)
}
