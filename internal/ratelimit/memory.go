package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory is a sliding-window limiter held in process memory. Keys idle for
// a full window are swept, so short-lived keys don't accumulate.
type Memory struct {
	mu        sync.Mutex
	hits      map[string][]time.Time
	limit     int
	window    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func NewMemory(limit int, window time.Duration) *Memory {
	limit, window = normalize(limit, window)
	return &Memory{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, key string) bool {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	windowStart := now.Add(-m.window)
	if now.Sub(m.lastSweep) >= m.window {
		m.sweepLocked(windowStart)
		m.lastSweep = now
	}

	slice := m.hits[key]
	idx := 0
	for _, ts := range slice {
		if ts.After(windowStart) {
			slice[idx] = ts
			idx++
		}
	}
	slice = slice[:idx]
	if len(slice) >= m.limit {
		m.hits[key] = slice
		return false
	}
	m.hits[key] = append(slice, now)
	return true
}

func (m *Memory) Forget(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hits, key)
}

// sweepLocked drops keys whose newest hit fell out of the window.
func (m *Memory) sweepLocked(windowStart time.Time) {
	for key, slice := range m.hits {
		if len(slice) == 0 || !slice[len(slice)-1].After(windowStart) {
			delete(m.hits, key)
		}
	}
}

func (m *Memory) keys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hits)
}
