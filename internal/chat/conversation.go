// Package chat hosts coaching conversations for network clients: a registry
// keyed by visitor and tab session, replay history, transcript persistence,
// paced websocket delivery and idle eviction.
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/ashureev/fitcoach/internal/coach"
	"github.com/ashureev/fitcoach/internal/convlog"
	"github.com/ashureev/fitcoach/internal/domain"
	"github.com/ashureev/fitcoach/internal/measure"
)

// Channel names the surface a turn arrived on.
type Channel string

const (
	ChannelHTTP   Channel = "chat_http"
	ChannelWS     Channel = "chat_ws"
	channelSystem Channel = "system"
)

const persistTimeout = 5 * time.Second

// Key identifies a conversation.
type Key struct {
	VisitorID string
	SessionID string
}

// Turn is the result of one submitted utterance or restart.
type Turn struct {
	ConversationID string          `json:"conversation_id"`
	Messages       []coach.Message `json:"messages"`
	Choices        []coach.Choice  `json:"choices"`
	Step           coach.Step      `json:"step"`
}

// State is a read-only view of the conversation's session.
type State struct {
	ConversationID string           `json:"conversation_id"`
	Step           coach.Step       `json:"step"`
	Units          coach.UnitSystem `json:"units,omitempty"`
	Goal           coach.Goal       `json:"goal,omitempty"`
	HeightM        *float64         `json:"height_m,omitempty"`
	WeightKg       *float64         `json:"weight_kg,omitempty"`
	BMI            *float64         `json:"bmi,omitempty"`
	BMIDisplay     string           `json:"bmi_display,omitempty"`
	Category       measure.Category `json:"category,omitempty"`
	Choices        []coach.Choice   `json:"choices"`
}

// Conversation is one live dialogue. All methods are safe for concurrent
// use; turns are processed one at a time.
type Conversation struct {
	key Key
	id  string
	env *environment

	mu         sync.Mutex
	ctrl       *coach.Controller
	rec        *coach.Recorder
	history    *MessageRing
	seq        int
	lastActive time.Time
}

func newConversation(key Key, id string, env *environment) *Conversation {
	rec := coach.NewRecorder()
	c := &Conversation{
		key:        key,
		id:         id,
		env:        env,
		rec:        rec,
		history:    NewMessageRing(env.historySize),
		lastActive: env.now(),
	}

	opts := []coach.Option{
		coach.WithGreeting(env.greeting),
		coach.WithChooser(rec),
		coach.WithLogger(env.logger.With(
			"conversation_id", id, "visitor_id", key.VisitorID, "session_id", key.SessionID)),
	}
	if env.observer != nil {
		opts = append(opts, coach.WithObserver(env.observer))
	}
	c.ctrl = coach.New(rec, opts...)
	return c
}

// open emits the opening messages. Called with c.mu held.
func (c *Conversation) open(ctx context.Context) {
	c.ctrl.Start()
	c.record(ctx, channelSystem, c.rec.Drain())
}

// ID returns the conversation ID.
func (c *Conversation) ID() string { return c.id }

// Key returns the registry key.
func (c *Conversation) Key() Key { return c.key }

// Submit processes one user utterance.
func (c *Conversation) Submit(ctx context.Context, ch Channel, text string) Turn {
	return c.run(ctx, ch, func() { c.ctrl.SubmitUtterance(text) })
}

// Restart discards the session and replays the opening prompts.
func (c *Conversation) Restart(ctx context.Context, ch Channel) Turn {
	return c.run(ctx, ch, c.ctrl.Restart)
}

func (c *Conversation) run(ctx context.Context, ch Channel, step func()) Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	step()
	msgs := c.rec.Drain()
	if c.env.timer != nil {
		c.env.timer.ObserveDuration(string(ch), time.Since(start))
	}

	c.lastActive = c.env.now()
	c.record(ctx, ch, msgs)

	return Turn{
		ConversationID: c.id,
		Messages:       msgs,
		Choices:        c.rec.Choices(),
		Step:           c.ctrl.Session().Step,
	}
}

// Touch marks the conversation active without a turn.
func (c *Conversation) Touch() {
	c.mu.Lock()
	c.lastActive = c.env.now()
	c.mu.Unlock()
}

// LastActive returns when the conversation last saw activity.
func (c *Conversation) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// History returns the retained messages oldest first.
func (c *Conversation) History() []coach.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Snapshot()
}

// Snapshot returns the current session view.
func (c *Conversation) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Conversation) snapshotLocked() State {
	s := c.ctrl.Session()
	st := State{
		ConversationID: c.id,
		Step:           s.Step,
		Units:          s.Units,
		Goal:           s.Goal,
		Choices:        c.rec.Choices(),
	}
	if h, ok := s.Height(); ok {
		st.HeightM = &h
	}
	if w, ok := s.Weight(); ok {
		st.WeightKg = &w
	}
	if bmi, ok := s.BMI(); ok {
		st.BMI = &bmi
		st.BMIDisplay = measure.Format1(bmi)
	}
	if cat, ok := s.Category(); ok {
		st.Category = cat
	}
	return st
}

// record appends msgs to history, the transcript store and the
// conversation log. Called with c.mu held.
func (c *Conversation) record(ctx context.Context, ch Channel, msgs []coach.Message) {
	if len(msgs) == 0 {
		return
	}
	c.history.Push(msgs...)

	step := c.ctrl.Session().Step.String()
	now := c.env.now()
	entries := make([]domain.TranscriptEntry, 0, len(msgs))
	for _, m := range msgs {
		c.seq++
		entries = append(entries, domain.TranscriptEntry{
			VisitorID:      c.key.VisitorID,
			SessionID:      c.key.SessionID,
			ConversationID: c.id,
			Seq:            c.seq,
			Speaker:        string(m.Speaker),
			Text:           m.Text,
			Step:           step,
			CreatedAt:      now,
		})
		c.env.convlog.Log(convlog.Event{
			Timestamp:      now.UTC().Format(time.RFC3339Nano),
			VisitorID:      c.key.VisitorID,
			SessionID:      c.key.SessionID,
			ConversationID: c.id,
			Channel:        string(ch),
			Direction:      direction(m.Speaker),
			EventType:      string(m.Speaker) + "_message",
			ContentRaw:     m.Text,
			Meta:           map[string]any{"step": step, "seq": c.seq},
		})
	}

	if c.env.transcripts == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := c.env.transcripts.AppendTranscript(pctx, entries); err != nil {
		c.env.logger.Warn("failed to persist transcript",
			"conversation_id", c.id, "visitor_id", c.key.VisitorID, "count", len(entries), "error", err)
	}
}

func direction(s coach.Speaker) string {
	if s == coach.SpeakerUser {
		return "inbound"
	}
	return "outbound"
}
