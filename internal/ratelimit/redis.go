package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const DefaultKeyPrefix = "chat:ratelimit:"

// slidingWindow trims the key's sorted set to the window, then records the
// hit if there is room. Returns 1 when allowed.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	if redis.call('ZCARD', key) >= limit then
		return 0
	end

	local counter = redis.call('INCR', key .. ':seq')
	redis.call('ZADD', key, now, now .. ':' .. counter)
	redis.call('PEXPIRE', key, window_ms)
	redis.call('PEXPIRE', key .. ':seq', window_ms)
	return 1
`)

// Redis is a sliding-window limiter shared by every server instance. When
// Redis can't be reached it falls back to an in-process limiter.
type Redis struct {
	client   *redis.Client
	prefix   string
	limit    int
	window   time.Duration
	fallback *Memory
	log      zerolog.Logger
}

func NewRedis(client *redis.Client, prefix string, limit int, window time.Duration, log zerolog.Logger) *Redis {
	limit, window = normalize(limit, window)
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{
		client:   client,
		prefix:   prefix,
		limit:    limit,
		window:   window,
		fallback: NewMemory(limit, window),
		log:      log.With().Str("component", "ratelimit").Logger(),
	}
}

func (r *Redis) Allow(ctx context.Context, key string) bool {
	allowed, err := r.check(ctx, key)
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("redis limiter unavailable, using local window")
		return r.fallback.Allow(ctx, key)
	}
	return allowed
}

func (r *Redis) check(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	res, err := slidingWindow.Run(ctx, r.client, []string{r.prefix + key},
		now.UnixMilli(), now.Add(-r.window).UnixMilli(), r.limit, r.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("redis script error: %w", err)
	}
	return res == 1, nil
}

func (r *Redis) Forget(ctx context.Context, key string) {
	r.fallback.Forget(ctx, key)
	if err := r.client.Del(ctx, r.prefix+key, r.prefix+key+":seq").Err(); err != nil {
		r.log.Debug().Err(err).Str("key", key).Msg("forget rate limit key")
	}
}
