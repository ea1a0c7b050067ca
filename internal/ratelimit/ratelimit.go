// Package ratelimit caps how often a key (a connection, a user) may act
// within a sliding window.
package ratelimit

import (
	"context"
	"time"
)

const (
	DefaultLimit  = 20
	DefaultWindow = 2 * time.Second
)

// Limiter decides whether key may act again now.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
	// Forget drops a key's history once its owner is gone.
	Forget(ctx context.Context, key string)
}

func normalize(limit int, window time.Duration) (int, time.Duration) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return limit, window
}
