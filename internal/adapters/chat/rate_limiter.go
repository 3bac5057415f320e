package chat

import (
	"sync"
	"time"

	"github.com/trycode2018/chathub/internal/domain"
)

// TypingRateLimiter bounds how often one user may emit typing
// indicators, sliding-window per user name.
type TypingRateLimiter struct {
	mu       sync.Mutex
	history  map[domain.UserName][]time.Time
	limit    int
	interval time.Duration
}

func NewTypingRateLimiter(limit int, interval time.Duration) *TypingRateLimiter {
	return &TypingRateLimiter{
		history:  make(map[domain.UserName][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *TypingRateLimiter) Allow(name domain.UserName) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[name]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[name] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[name] = fresh
	return true
}
