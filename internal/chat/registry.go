package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/fitcoach/internal/coach"
	"github.com/ashureev/fitcoach/internal/convlog"
	"github.com/ashureev/fitcoach/internal/domain"
	"github.com/google/uuid"
)

// TranscriptWriter persists transcript lines.
type TranscriptWriter interface {
	AppendTranscript(ctx context.Context, entries []domain.TranscriptEntry) error
}

// Lifecycle is told when conversations enter and leave the registry.
type Lifecycle interface {
	ConversationOpened()
	ConversationClosed()
}

// TurnTimer records how long turns take per channel.
type TurnTimer interface {
	ObserveDuration(channel string, d time.Duration)
}

// Config configures a Registry. Every collaborator is optional.
type Config struct {
	Greeting    bool
	HistorySize int
	Observer    coach.Observer
	Transcripts TranscriptWriter
	ConvLog     convlog.Logger
	Lifecycle   Lifecycle
	Timer       TurnTimer
	Logger      *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type environment struct {
	greeting    bool
	historySize int
	observer    coach.Observer
	transcripts TranscriptWriter
	convlog     convlog.Logger
	lifecycle   Lifecycle
	timer       TurnTimer
	logger      *slog.Logger
	now         func() time.Time
}

// Registry maps visitor and tab session to a live conversation. No two keys
// share a conversation.
type Registry struct {
	env *environment

	mu     sync.RWMutex
	active map[string]map[string]*Conversation
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config) *Registry {
	env := &environment{
		greeting:    cfg.Greeting,
		historySize: cfg.HistorySize,
		observer:    cfg.Observer,
		transcripts: cfg.Transcripts,
		convlog:     cfg.ConvLog,
		lifecycle:   cfg.Lifecycle,
		timer:       cfg.Timer,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
	if env.convlog == nil {
		env.convlog = convlog.Noop{}
	}
	if env.logger == nil {
		env.logger = slog.Default()
	}
	if env.now == nil {
		env.now = time.Now
	}
	return &Registry{
		env:    env,
		active: make(map[string]map[string]*Conversation),
	}
}

// Get returns the conversation for key, if any.
func (r *Registry) Get(key Key) (*Conversation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.active[key.VisitorID][key.SessionID]
	return c, ok
}

// GetOrCreate returns the conversation for key, starting a new one and
// emitting its opening messages when none exists.
func (r *Registry) GetOrCreate(ctx context.Context, key Key) *Conversation {
	if c, ok := r.Get(key); ok {
		return c
	}

	r.mu.Lock()
	if c, ok := r.active[key.VisitorID][key.SessionID]; ok {
		r.mu.Unlock()
		return c
	}
	sessions, ok := r.active[key.VisitorID]
	if !ok {
		sessions = make(map[string]*Conversation)
		r.active[key.VisitorID] = sessions
	}
	c := newConversation(key, uuid.NewString(), r.env)
	// Hold the conversation lock across publication so no turn runs before
	// the opening messages, without holding the registry lock during I/O.
	c.mu.Lock()
	sessions[key.SessionID] = c
	if r.env.lifecycle != nil {
		r.env.lifecycle.ConversationOpened()
	}
	r.mu.Unlock()

	c.open(ctx)
	c.mu.Unlock()

	r.env.logger.Info("Conversation opened",
		"conversation_id", c.id, "visitor_id", key.VisitorID, "session_id", key.SessionID)
	return c
}

// Remove drops the conversation for key. It reports whether one existed.
func (r *Registry) Remove(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(key)
}

func (r *Registry) removeLocked(key Key) bool {
	sessions, ok := r.active[key.VisitorID]
	if !ok {
		return false
	}
	c, ok := sessions[key.SessionID]
	if !ok {
		return false
	}
	delete(sessions, key.SessionID)
	if len(sessions) == 0 {
		delete(r.active, key.VisitorID)
	}
	if r.env.lifecycle != nil {
		r.env.lifecycle.ConversationClosed()
	}
	r.env.logger.Info("Conversation closed",
		"conversation_id", c.id, "visitor_id", key.VisitorID, "session_id", key.SessionID)
	return true
}

// RemoveVisitor drops every conversation of a visitor and returns how many.
func (r *Registry) RemoveVisitor(visitorID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for sid := range r.active[visitorID] {
		if r.removeLocked(Key{VisitorID: visitorID, SessionID: sid}) {
			n++
		}
	}
	return n
}

// EvictIdle removes conversations inactive since before cutoff and returns
// their keys. Activity is read outside the registry lock so a conversation
// busy persisting a turn does not stall lookups of other conversations.
func (r *Registry) EvictIdle(cutoff time.Time) []Key {
	type candidate struct {
		key  Key
		conv *Conversation
	}

	r.mu.RLock()
	var all []candidate
	for vid, sessions := range r.active {
		for sid, c := range sessions {
			all = append(all, candidate{key: Key{VisitorID: vid, SessionID: sid}, conv: c})
		}
	}
	r.mu.RUnlock()

	var idle []candidate
	for _, cand := range all {
		if cand.conv.LastActive().Before(cutoff) {
			idle = append(idle, cand)
		}
	}
	if len(idle) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var evicted []Key
	for _, cand := range idle {
		// Skip keys reopened with a fresh conversation since the scan.
		if r.active[cand.key.VisitorID][cand.key.SessionID] != cand.conv {
			continue
		}
		if r.removeLocked(cand.key) {
			evicted = append(evicted, cand.key)
		}
	}
	return evicted
}

// Len returns the number of live conversations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, sessions := range r.active {
		n += len(sessions)
	}
	return n
}

// Greeting reports whether new conversations open with the greeting step.
func (r *Registry) Greeting() bool {
	return r.env.greeting
}
