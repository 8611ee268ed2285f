package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/fitcoach/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "coach.db"))
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestVisitorLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	got, err := s.GetVisitor(ctx, "anon_missing")
	if err != nil || got != nil {
		t.Fatalf("GetVisitor(missing) = %v, %v; want nil, nil", got, err)
	}

	now := time.Unix(1_700_000_000, 0)
	v := &domain.Visitor{
		VisitorID:   "anon_0123",
		DisplayName: "visitor-0123",
		LastSeenAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.UpsertVisitor(ctx, v); err != nil {
		t.Fatalf("UpsertVisitor() error = %v", err)
	}

	later := now.Add(time.Hour)
	if err := s.TouchVisitor(ctx, v.VisitorID, later); err != nil {
		t.Fatalf("TouchVisitor() error = %v", err)
	}

	got, err = s.GetVisitor(ctx, v.VisitorID)
	if err != nil {
		t.Fatalf("GetVisitor() error = %v", err)
	}
	if !got.LastSeenAt.Equal(later) || !got.CreatedAt.Equal(now) {
		t.Fatalf("visitor = %+v", got)
	}

	// Unknown visitors are not an error.
	if err := s.TouchVisitor(ctx, "anon_ghost", later); err != nil {
		t.Fatalf("TouchVisitor(unknown) error = %v", err)
	}
}

func TestTranscriptAppendListPurge(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	old := time.Now().Add(-48 * time.Hour)
	fresh := time.Now()
	entries := []domain.TranscriptEntry{
		{VisitorID: "v1", SessionID: "tab", ConversationID: "c1", Seq: 1, Speaker: "user", Text: "metric", Step: "unitSelect", CreatedAt: old},
		{VisitorID: "v1", SessionID: "tab", ConversationID: "c1", Seq: 2, Speaker: "bot", Text: "Nice", Step: "heightInput", CreatedAt: old},
		{VisitorID: "v1", SessionID: "tab", ConversationID: "c2", Seq: 1, Speaker: "user", Text: "hi", Step: "greeting", CreatedAt: fresh},
		{VisitorID: "v2", SessionID: "tab", ConversationID: "c3", Seq: 1, Speaker: "user", Text: "hey", Step: "greeting", CreatedAt: fresh},
	}
	if err := s.AppendTranscript(ctx, entries); err != nil {
		t.Fatalf("AppendTranscript() error = %v", err)
	}
	if err := s.AppendTranscript(ctx, nil); err != nil {
		t.Fatalf("AppendTranscript(nil) error = %v", err)
	}

	got, err := s.ListTranscript(ctx, domain.TranscriptFilter{VisitorID: "v1", SessionID: "tab"})
	if err != nil {
		t.Fatalf("ListTranscript() error = %v", err)
	}
	ignore := cmpopts.IgnoreFields(domain.TranscriptEntry{}, "ID", "CreatedAt")
	if diff := cmp.Diff(entries[:3], got, ignore); diff != "" {
		t.Fatalf("transcript (-want +got):\n%s", diff)
	}

	got, err = s.ListTranscript(ctx, domain.TranscriptFilter{VisitorID: "v1", SessionID: "tab", ConversationID: "c1", Limit: 1})
	if err != nil {
		t.Fatalf("ListTranscript(filtered) error = %v", err)
	}
	if len(got) != 1 || got[0].Text != "metric" {
		t.Fatalf("filtered transcript = %+v", got)
	}

	n, err := s.DeleteTranscriptsBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteTranscriptsBefore() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("purged %d rows, want 2", n)
	}

	got, _ = s.ListTranscript(ctx, domain.TranscriptFilter{VisitorID: "v1", SessionID: "tab"})
	if len(got) != 1 || got[0].ConversationID != "c2" {
		t.Fatalf("after purge = %+v", got)
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}
