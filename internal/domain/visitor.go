// Package domain contains core domain types for the fitcoach service.
package domain

import (
	"time"
)

// Visitor is an anonymous device that has talked to the coach.
type Visitor struct {
	VisitorID   string    `json:"visitor_id"`
	DisplayName string    `json:"display_name"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IdleFor returns how long the visitor has been inactive at now.
// It never returns a negative duration.
func (v *Visitor) IdleFor(now time.Time) time.Duration {
	d := now.Sub(v.LastSeenAt)
	if d < 0 {
		return 0
	}
	return d
}

// Expired reports whether the visitor has been idle longer than ttl.
func (v *Visitor) Expired(now time.Time, ttl time.Duration) bool {
	return v.IdleFor(now) > ttl
}
