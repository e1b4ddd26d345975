package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/galatea/internal/cache"
	"github.com/oggyb/galatea/internal/config"
)

func setupCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	rc := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestLikeCount(t *testing.T) {
	ctx := context.Background()
	rc, mr := setupCache(t)

	_, found, err := rc.GetLikeCount(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, found)

	// increment on a cold key is a no-op
	require.NoError(t, rc.IncrLikeCount(ctx, "c1"))
	assert.False(t, mr.Exists(rc.KeyForLikeCount("c1")))

	require.NoError(t, rc.SetLikeCount(ctx, "c1", 4))
	require.NoError(t, rc.IncrLikeCount(ctx, "c1"))

	n, found, err := rc.GetLikeCount(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, time.Hour, mr.TTL(rc.KeyForLikeCount("c1")))
}

func TestRecommendationsCache(t *testing.T) {
	ctx := context.Background()
	rc, mr := setupCache(t)

	var got []string
	found, err := rc.GetRecommendations(ctx, "u1", 10, &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, rc.SetRecommendations(ctx, "u1", 10, []string{"a", "b"}))
	require.NoError(t, rc.SetRecommendations(ctx, "u1", 5, []string{"a"}))

	found, err = rc.GetRecommendations(ctx, "u1", 10, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a", "b"}, got)

	mr.FastForward(11 * time.Minute)
	found, err = rc.GetRecommendations(ctx, "u1", 10, &got)
	require.NoError(t, err)
	assert.False(t, found, "expired")

	require.NoError(t, rc.SetRecommendations(ctx, "u1", 10, []string{"c"}))
	require.NoError(t, rc.InvalidateRecommendations(ctx, "u1"))
	found, err = rc.GetRecommendations(ctx, "u1", 10, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRevokeToken(t *testing.T) {
	ctx := context.Background()
	rc, mr := setupCache(t)

	revoked, err := rc.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, rc.RevokeToken(ctx, "jti-1", time.Now().Add(time.Hour)))
	revoked, err = rc.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = rc.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	// already expired tokens need no entry
	require.NoError(t, rc.RevokeToken(ctx, "jti-2", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists("session:revoked:jti-2"))
}

func TestAllowFixedWindow(t *testing.T) {
	ctx := context.Background()
	rc, mr := setupCache(t)

	for i := 0; i < 3; i++ {
		ok, remaining, err := rc.Allow(ctx, "ip:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 2-i, remaining)
	}
	ok, remaining, err := rc.Allow(ctx, "ip:1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, remaining)

	mr.FastForward(time.Minute + time.Second)
	ok, _, err = rc.Allow(ctx, "ip:1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	rc, _ := setupCache(t)

	type payload struct{ N int }
	require.NoError(t, rc.SetJSON(ctx, "k", payload{N: 7}, time.Minute))

	var p payload
	found, err := rc.GetJSON(ctx, "k", &p)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 7, p.N)

	found, err = rc.GetJSON(ctx, "missing", &p)
	require.NoError(t, err)
	assert.False(t, found)
}
