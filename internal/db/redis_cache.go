package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"chat-core/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	briefKeyPrefix  = "user:brief:"
	DefaultBriefTTL = 5 * time.Minute
)

// Directory resolves user briefs. Unknown users yield nil, nil.
type Directory interface {
	BriefOf(ctx context.Context, userID string) (*models.UserBrief, error)
}

// CachedDirectory is a read-through Redis cache in front of a Directory.
// Redis failures fall back to the inner directory.
type CachedDirectory struct {
	inner  Directory
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewCachedDirectory(inner Directory, client *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedDirectory {
	if ttl <= 0 {
		ttl = DefaultBriefTTL
	}
	return &CachedDirectory{
		inner:  inner,
		client: client,
		ttl:    ttl,
		log:    log.With().Str("component", "brief_cache").Logger(),
	}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (c *CachedDirectory) BriefOf(ctx context.Context, userID string) (*models.UserBrief, error) {
	key := briefKeyPrefix + userID

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var b models.UserBrief
		if jsonErr := json.Unmarshal(data, &b); jsonErr == nil {
			return &b, nil
		}
		c.log.Warn().Str("key", key).Msg("dropping undecodable cache entry")
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Str("key", key).Msg("cache get failed")
	}

	b, err := c.inner.BriefOf(ctx, userID)
	if err != nil || b == nil {
		return b, err
	}

	if data, err := json.Marshal(b); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
		}
	}
	return b, nil
}
