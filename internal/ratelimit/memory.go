package ratelimit

import (
	"context"
	"sync"
	"time"
)

const memoryLimiterMaxKeys = 10000

// MemoryLimiter is the in-process fallback used when Redis is not
// configured or unreachable. Expired entries are dropped on access and the
// map is capped so an attack on many phone numbers cannot grow it without
// bound.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expires, ok := l.entries[key]; ok && now.Before(expires) {
		return false, nil
	}

	if len(l.entries) >= memoryLimiterMaxKeys {
		l.sweep(now)
	}

	l.entries[key] = now.Add(window)
	return true, nil
}

// sweep removes expired entries; called under the lock.
func (l *MemoryLimiter) sweep(now time.Time) {
	for key, expires := range l.entries {
		if !now.Before(expires) {
			delete(l.entries, key)
		}
	}
}
