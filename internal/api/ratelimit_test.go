package api

import (
	"sync"
	"testing"
	"time"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()
	clock := &stepClock{now: time.Unix(1_700_000_000, 0)}
	rl.now = clock.Now

	if !rl.Allow("anon_a") || !rl.Allow("anon_a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("anon_a") {
		t.Fatal("third request inside the window should be denied")
	}
	if !rl.Allow("anon_b") {
		t.Fatal("limits are per key")
	}

	clock.Advance(61 * time.Second)
	if !rl.Allow("anon_a") {
		t.Fatal("request after the window should pass")
	}
}

func TestRateLimiterEvict(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	defer rl.Stop()
	clock := &stepClock{now: time.Unix(1_700_000_000, 0)}
	rl.now = clock.Now

	rl.Allow("anon_a")
	clock.Advance(30 * time.Second)
	rl.Allow("anon_b")
	clock.Advance(45 * time.Second)
	rl.evict()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.requests["anon_a"]; ok {
		t.Fatal("stale key should be evicted")
	}
	if len(rl.requests["anon_b"]) != 1 {
		t.Fatalf("fresh key lost: %v", rl.requests["anon_b"])
	}
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	rl.Stop()
	rl.Stop()
}
