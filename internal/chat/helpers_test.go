package chat

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashureev/fitcoach/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeTranscripts struct {
	mu      sync.Mutex
	entries []domain.TranscriptEntry
	purged  []time.Time
	err     error
}

func (f *fakeTranscripts) AppendTranscript(_ context.Context, entries []domain.TranscriptEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *fakeTranscripts) DeleteTranscriptsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purged = append(f.purged, cutoff)
	return 0, nil
}

func (f *fakeTranscripts) all() []domain.TranscriptEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.TranscriptEntry(nil), f.entries...)
}

type countingLifecycle struct {
	mu     sync.Mutex
	opened int
	closed int
}

func (l *countingLifecycle) ConversationOpened() {
	l.mu.Lock()
	l.opened++
	l.mu.Unlock()
}

func (l *countingLifecycle) ConversationClosed() {
	l.mu.Lock()
	l.closed++
	l.mu.Unlock()
}

func (l *countingLifecycle) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opened, l.closed
}

// gatedTranscripts blocks the first append after arm until release.
type gatedTranscripts struct {
	armed   atomic.Bool
	entered chan struct{}
	gate    chan struct{}
}

func newGatedTranscripts() *gatedTranscripts {
	return &gatedTranscripts{entered: make(chan struct{}), gate: make(chan struct{})}
}

func (g *gatedTranscripts) arm()     { g.armed.Store(true) }
func (g *gatedTranscripts) release() { close(g.gate) }

func (g *gatedTranscripts) AppendTranscript(ctx context.Context, _ []domain.TranscriptEntry) error {
	if !g.armed.CompareAndSwap(true, false) {
		return nil
	}
	close(g.entered)
	select {
	case <-g.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gatedTranscripts) DeleteTranscriptsBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}
