package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/galatea/internal/config"
)

const (
	likeCountTTL       = time.Hour
	recommendationsTTL = 10 * time.Minute
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error { return c.Client.Close() }

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	return c.Client.Del(ctx, keys...).Err()
}

// GetJSON reads key into dest. found is false on a cache miss.
func (c *RedisCache) GetJSON(ctx context.Context, key string, dest any) (found bool, err error) {
	s, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and stores it with ttl.
func (c *RedisCache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, key, b, ttl).Err()
}

// --- companion like counters ---

// KeyForLikeCount generates Redis key for a companion's positive-swipe count.
func (c *RedisCache) KeyForLikeCount(companionID string) string {
	return fmt.Sprintf("companion:likes:%s", companionID)
}

// SetLikeCount stores the DB-computed count. Always refreshes TTL.
func (c *RedisCache) SetLikeCount(ctx context.Context, companionID string, count int64) error {
	return c.Client.Set(ctx, c.KeyForLikeCount(companionID), count, likeCountTTL).Err()
}

// GetLikeCount returns the cached count. found is false on a cache miss.
func (c *RedisCache) GetLikeCount(ctx context.Context, companionID string) (count int64, found bool, err error) {
	key := c.KeyForLikeCount(companionID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, likeCountTTL).Err()
	return n, true, nil
}

// IncrLikeCount bumps a cached counter. A missing key is left missing so the
// next read recomputes from the database instead of starting at 1.
func (c *RedisCache) IncrLikeCount(ctx context.Context, companionID string) error {
	key := c.KeyForLikeCount(companionID)
	n, err := c.Client.Exists(ctx, key).Result()
	if err != nil || n == 0 {
		return err
	}
	pipe := c.Client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, likeCountTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// --- recommendation cache ---

func (c *RedisCache) keyForRecommendations(userID string) string {
	return fmt.Sprintf("recs:%s", userID)
}

// GetRecommendations reads a cached recommendation page for (user, limit).
func (c *RedisCache) GetRecommendations(ctx context.Context, userID string, limit int, dest any) (bool, error) {
	s, err := c.Client.HGet(ctx, c.keyForRecommendations(userID), strconv.Itoa(limit)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal([]byte(s), dest)
}

// SetRecommendations caches one page. All pages of a user share one key and TTL.
func (c *RedisCache) SetRecommendations(ctx context.Context, userID string, limit int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	key := c.keyForRecommendations(userID)
	pipe := c.Client.TxPipeline()
	pipe.HSet(ctx, key, strconv.Itoa(limit), b)
	pipe.Expire(ctx, key, recommendationsTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateRecommendations drops every cached page for the user.
func (c *RedisCache) InvalidateRecommendations(ctx context.Context, userID string) error {
	return c.Client.Del(ctx, c.keyForRecommendations(userID)).Err()
}

// --- session revocation ---

func (c *RedisCache) keyForRevokedToken(tokenID string) string {
	return fmt.Sprintf("session:revoked:%s", tokenID)
}

// RevokeToken marks a token id as signed out until it would have expired anyway.
func (c *RedisCache) RevokeToken(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return c.Client.Set(ctx, c.keyForRevokedToken(tokenID), 1, ttl).Err()
}

// IsRevoked reports whether the token id was signed out.
func (c *RedisCache) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := c.Client.Exists(ctx, c.keyForRevokedToken(tokenID)).Result()
	return n > 0, err
}

// --- rate limiting ---

// Allow implements a fixed-window counter: at most limit hits per window for key.
// remaining is never negative.
func (c *RedisCache) Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, err error) {
	k := fmt.Sprintf("ratelimit:%s", key)
	cnt, err := c.Client.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, err
	}
	if cnt == 1 {
		_ = c.Client.Expire(ctx, k, window).Err()
	}
	remaining = limit - int(cnt)
	if remaining < 0 {
		remaining = 0
	}
	return cnt <= int64(limit), remaining, nil
}
