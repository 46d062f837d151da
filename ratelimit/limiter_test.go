package ratelimit

import (
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const window = time.Minute

func newTestLimiter(limit int) (*Limiter, *time.Time) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	l := NewLimiter(log, window, limit)
	current := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }
	return l, &current
}

func TestLimiter_Allow_RejectsAtLimit(t *testing.T) {
	req := require.New(t)
	limiter, _ := newTestLimiter(15)

	// Given a participant sending up to the limit
	for i := 0; i < 15; i++ {
		req.True(limiter.Allow("conn-1"), "message %d should pass", i+1)
	}

	// Then the 16th within the window is rejected
	req.False(limiter.Allow("conn-1"))

	// And the rejection did not record, so the window does not extend itself
	req.False(limiter.Allow("conn-1"))
}

func TestLimiter_Allow_RecoversAfterWindow(t *testing.T) {
	req := require.New(t)
	limiter, current := newTestLimiter(15)

	for i := 0; i < 15; i++ {
		req.True(limiter.Allow("conn-1"))
	}
	req.False(limiter.Allow("conn-1"))

	// When the window elapses
	*current = current.Add(window + time.Second)

	// Then sending succeeds again
	req.True(limiter.Allow("conn-1"))
}

func TestLimiter_Allow_KeysAreIndependent(t *testing.T) {
	req := require.New(t)
	limiter, _ := newTestLimiter(1)

	req.True(limiter.Allow("10.0.0.1"))
	req.False(limiter.Allow("10.0.0.1"))

	// Another actor is unaffected
	req.True(limiter.Allow("10.0.0.2"))
}

func TestLimiter_Sweep_RemovesEmptyWindows(t *testing.T) {
	req := require.New(t)
	limiter, current := newTestLimiter(100)

	limiter.Allow("10.0.0.1")
	limiter.Allow("10.0.0.2")
	*current = current.Add(30 * time.Second)
	limiter.Allow("10.0.0.3")

	// When only the first two windows have fully expired
	*current = current.Add(31 * time.Second)
	removed := limiter.Sweep()

	// Then exactly those are dropped
	req.Equal(2, removed)
	req.Len(limiter.windows, 1)
}

func TestLimiter_Forget(t *testing.T) {
	req := require.New(t)
	limiter, _ := newTestLimiter(1)

	req.True(limiter.Allow("conn-1"))
	limiter.Forget("conn-1")

	// A fresh window applies after removal
	req.True(limiter.Allow("conn-1"))
}
