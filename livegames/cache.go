package livegames

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/dwiwad/hockeydecoded"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Cache defaults.
const (
	LiveScoresKey = "games:live"
	DefaultTTL    = 2 * time.Minute
)

// RedisCache stores the latest live-score snapshot under one key.
type RedisCache struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// NewRedisClient connects to the Redis server at url and pings it.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("livegames: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("livegames: ping redis: %w", err)
	}
	return client, nil
}

// NewRedisCache wraps client. A ttl of zero uses DefaultTTL.
func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, key: LiveScoresKey, ttl: ttl}
}

// Store replaces the snapshot.
func (c *RedisCache) Store(ctx context.Context, scores []hockeydecoded.LiveScore) error {
	if scores == nil {
		scores = []hockeydecoded.LiveScore{}
	}
	data, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("livegames: encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("livegames: write snapshot: %w", err)
	}
	return nil
}

// LiveScores returns the cached snapshot. ok is false when no snapshot is
// cached or it has expired.
func (c *RedisCache) LiveScores(ctx context.Context) ([]hockeydecoded.LiveScore, bool, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("livegames: read snapshot: %w", err)
	}
	var scores []hockeydecoded.LiveScore
	if err := json.Unmarshal(data, &scores); err != nil {
		return nil, false, fmt.Errorf("livegames: decode snapshot: %w", err)
	}
	return scores, true, nil
}
