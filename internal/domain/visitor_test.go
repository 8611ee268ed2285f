package domain

import (
	"testing"
	"time"
)

func TestVisitorIdle(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	v := &Visitor{LastSeenAt: now.Add(-10 * time.Minute)}

	if got := v.IdleFor(now); got != 10*time.Minute {
		t.Fatalf("IdleFor = %v, want 10m", got)
	}
	if v.Expired(now, 30*time.Minute) {
		t.Fatal("should not expire before ttl")
	}
	if !v.Expired(now, 5*time.Minute) {
		t.Fatal("should expire after ttl")
	}

	future := &Visitor{LastSeenAt: now.Add(time.Hour)}
	if got := future.IdleFor(now); got != 0 {
		t.Fatalf("IdleFor with clock skew = %v, want 0", got)
	}
}
