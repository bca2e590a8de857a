package api

import (
	"sync"
	"time"
)

// rateLimiter admits at most one accepted request per key per window.
type rateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	last   map[uint64]time.Time

	now func() time.Time
}

func newRateLimiter(window time.Duration) *rateLimiter {
	return &rateLimiter{
		window: window,
		last:   make(map[uint64]time.Time),
		now:    time.Now,
	}
}

// Allow stamps the key and reports whether it was admitted. A rejected
// call does not move the window.
func (rl *rateLimiter) Allow(key uint64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if last, ok := rl.last[key]; ok && now.Sub(last) < rl.window {
		return false
	}

	rl.last[key] = now

	return true
}
