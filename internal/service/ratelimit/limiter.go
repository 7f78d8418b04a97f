// Package ratelimit provides a token-bucket limiter keyed by caller,
// used to throttle the demo-simulation endpoint per client IP.
package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	cap    float64
	rate   float64 // tokens per second
	seen   time.Time
}

// Limiter tracks one token bucket per key. Buckets idle longer than
// staleAfter are dropped on the next Allow so per-IP keys cannot grow
// without bound.
type Limiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	staleAfter time.Duration
	lastSweep  time.Time
}

func New() *Limiter {
	return &Limiter{
		buckets:    make(map[string]*bucket),
		staleAfter: 10 * time.Minute,
		lastSweep:  time.Now(),
	}
}

// Allow consumes one token for key, creating a full bucket on first use.
// capacity is the burst size, refillPerSec the sustained rate.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.staleAfter {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: capacity, cap: capacity, rate: refillPerSec, seen: now}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.seen).Seconds(); elapsed > 0 {
		b.tokens += elapsed * b.rate
		if b.tokens > b.cap {
			b.tokens = b.cap
		}
	}
	b.seen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops buckets not touched within staleAfter. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.seen) > l.staleAfter {
			delete(l.buckets, k)
		}
	}
	l.lastSweep = now
}
