// Package ratelimiter keeps one token bucket per key. Idle buckets are
// dropped after an expiration period.
package ratelimiter

import (
	"sync"
	"time"
)

type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
	lastSeen   time.Time
}

// KeyedLimiter rate limits independent keys such as client IPs or message
// ids.
type KeyedLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rate     float64 // tokens per second
	capacity float64
	idle     time.Duration
	now      func() time.Time
}

func New(rate, capacity float64, idle time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		buckets:  make(map[string]*bucket),
		rate:     rate,
		capacity: capacity,
		idle:     idle,
		now:      time.Now,
	}
}

// PerMinute allows n requests per minute with a burst of n.
func PerMinute(n int) *KeyedLimiter {
	return New(float64(n)/60, float64(n), time.Hour)
}

func (l *KeyedLimiter) get(key string, now time.Time) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idle {
			delete(l.buckets, k)
		}
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.capacity, lastRefill: now}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b
}

// Allow takes a token from key's bucket if one is available.
func (l *KeyedLimiter) Allow(key string) bool {
	now := l.now()
	b := l.get(key, now)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens += now.Sub(b.lastRefill).Seconds() * l.rate
	if b.tokens > l.capacity {
		b.tokens = l.capacity
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Len reports how many keys are tracked.
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
