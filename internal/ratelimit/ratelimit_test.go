package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countAllowed(rl *KeyedRateLimiter, key string, calls int) int {
	n := 0
	for range calls {
		if rl.Allow(key) {
			n++
		}
	}
	return n
}

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name  string
		burst int
		calls int
		want  int
	}{
		{name: "within burst", burst: 3, calls: 3, want: 3},
		{name: "beyond burst", burst: 2, calls: 5, want: 2},
		{name: "single token", burst: 1, calls: 4, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(0.01, tt.burst)
			defer rl.Stop()

			assert.Equal(t, tt.want, countAllowed(rl, "203.0.113.7", tt.calls))
		})
	}
}

func TestNewPerInterval(t *testing.T) {
	rl := NewPerInterval(20, time.Minute, 5)
	defer rl.Stop()

	assert.Equal(t, 5, countAllowed(rl, "1.2.3.4", 10))
	assert.True(t, rl.Allow("5.6.7.8"), "each address has its own bucket")
	assert.Equal(t, 2, rl.Len())
}

func TestNewPerInterval_Refills(t *testing.T) {
	// 1 request every 50ms.
	rl := NewPerInterval(20, time.Second, 1)
	defer rl.Stop()

	require.True(t, rl.Allow("10.0.0.1"))
	require.False(t, rl.Allow("10.0.0.1"))

	assert.Eventually(t, func() bool { return rl.Allow("10.0.0.1") },
		time.Second, 10*time.Millisecond)
}

func TestKeyedRateLimiter_EvictIdle(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(DefaultIdleTTL / 2)
	rl.Allow("recent")
	now = now.Add(DefaultIdleTTL/2 + time.Second)

	assert.Equal(t, 1, rl.evictIdle())
	assert.Equal(t, 1, rl.Len())
	assert.True(t, rl.Allow("old"), "an evicted key starts with a fresh bucket")
}

func TestKeyedRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := New(1, 1)
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}
