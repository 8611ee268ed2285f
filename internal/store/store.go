// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/fitcoach/internal/domain"
)

// Repository persists visitors and conversation transcripts.
type Repository interface {
	// GetVisitor retrieves a visitor by ID. It returns nil, nil when absent.
	GetVisitor(ctx context.Context, visitorID string) (*domain.Visitor, error)

	// UpsertVisitor creates or updates a visitor record.
	UpsertVisitor(ctx context.Context, v *domain.Visitor) error

	// TouchVisitor updates the last_seen_at timestamp for a visitor.
	TouchVisitor(ctx context.Context, visitorID string, seen time.Time) error

	// AppendTranscript stores entries in one transaction.
	AppendTranscript(ctx context.Context, entries []domain.TranscriptEntry) error

	// ListTranscript returns matching entries oldest first.
	ListTranscript(ctx context.Context, f domain.TranscriptFilter) ([]domain.TranscriptEntry, error)

	// DeleteTranscriptsBefore removes entries created before cutoff.
	DeleteTranscriptsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
