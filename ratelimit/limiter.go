// Package ratelimit provides sliding-window counters keyed by actor.
// The same limiter type backs connection-level throttling (keyed by IP)
// and per-participant message throttling (keyed by session token).
package ratelimit

import (
	"log/slog"
	"sync"
	"time"
)

// Limiter rejects an actor once it has recorded `limit` events within the
// trailing window. Windows are rebuilt by filtering on each check; entries
// are never persisted.
type Limiter struct {
	mu      sync.Mutex
	log     *slog.Logger
	window  time.Duration
	limit   int
	windows map[string][]time.Time
	now     func() time.Time
}

func NewLimiter(log *slog.Logger, window time.Duration, limit int) *Limiter {
	return &Limiter{
		log:     log,
		window:  window,
		limit:   limit,
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow drops timestamps older than the window, then fails closed if the
// remaining count has reached the limit. On success the current instant
// is recorded; on rejection nothing is recorded.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.trim(key, now)
	if len(recent) >= l.limit {
		l.windows[key] = recent
		l.log.Debug("Rate limit hit", "key", key, "limit", l.limit)
		return false
	}
	l.windows[key] = append(recent, now)
	return true
}

// Forget removes the actor's window entirely, used when a participant
// is removed after grace expiry.
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Sweep removes entries for keys whose window is now empty. This is a
// memory-bound housekeeping pass, not a correctness requirement: filtering
// on read is already correct.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key := range l.windows {
		kept := l.trim(key, now)
		if len(kept) == 0 {
			delete(l.windows, key)
			removed++
			continue
		}
		l.windows[key] = kept
	}
	return removed
}

// trim returns the key's timestamps still inside the window ending at now.
// Caller holds the lock.
func (l *Limiter) trim(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	stamps := l.windows[key]
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
