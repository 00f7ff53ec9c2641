package source

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"trade-briefing/internal/interfaces"
	"trade-briefing/internal/logger"
	"trade-briefing/internal/types"
)

const keyPrefix = "briefing:"

// CachedSource keeps raw captions and video metadata in Redis so reruns on the
// same day do not download again. Cache failures fall through to the wrapped
// source.
type CachedSource struct {
	next   interfaces.TranscriptSource
	client *redis.Client
	ttl    time.Duration
}

var _ interfaces.TranscriptSource = (*CachedSource)(nil)

func NewCachedSource(next interfaces.TranscriptSource, client *redis.Client, ttl time.Duration) *CachedSource {
	return &CachedSource{next: next, client: client, ttl: ttl}
}

// NewRedisClient accepts either a redis:// URL or a bare host:port address.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("redis url is empty")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{Addr: redisURL}
	}
	return redis.NewClient(opts), nil
}

func cacheKey(kind, videoURL string) string {
	sum := sha1.Sum([]byte(videoURL))
	return keyPrefix + kind + ":" + hex.EncodeToString(sum[:])
}

func (c *CachedSource) Captions(ctx context.Context, videoURL string) (string, error) {
	key := cacheKey("captions", videoURL)
	if raw, err := c.client.Get(ctx, key).Result(); err == nil {
		logger.Debug(ctx, "Caption cache hit", "url", videoURL)
		return raw, nil
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn(ctx, "Caption cache read failed", "url", videoURL, "error", err)
	}

	raw, err := c.next.Captions(ctx, videoURL)
	if err != nil {
		return "", err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		logger.Warn(ctx, "Caption cache write failed", "url", videoURL, "error", err)
	}
	return raw, nil
}

func (c *CachedSource) Info(ctx context.Context, videoURL string) (types.VideoInfo, error) {
	key := cacheKey("info", videoURL)
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var info types.VideoInfo
		if jerr := json.Unmarshal(raw, &info); jerr == nil {
			return info, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn(ctx, "Info cache read failed", "url", videoURL, "error", err)
	}

	info, err := c.next.Info(ctx, videoURL)
	if err != nil {
		return types.VideoInfo{}, err
	}
	b, _ := json.Marshal(info)
	if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
		logger.Warn(ctx, "Info cache write failed", "url", videoURL, "error", err)
	}
	return info, nil
}
