package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ashureev/fitcoach/internal/chat"
	"github.com/ashureev/fitcoach/internal/coach"
	"github.com/ashureev/fitcoach/internal/domain"
	"github.com/go-chi/chi/v5"
)

const (
	defaultTranscriptLimit = 200
	maxTranscriptLimit     = 1000
)

// TranscriptLister reads persisted transcript rows.
type TranscriptLister interface {
	ListTranscript(ctx context.Context, f domain.TranscriptFilter) ([]domain.TranscriptEntry, error)
}

// ChatHandler serves the request/response chat surface.
type ChatHandler struct {
	reg         *chat.Registry
	transcripts TranscriptLister
	limiter     chat.Limiter
}

// NewChatHandler creates a chat handler. A nil limiter disables throttling.
func NewChatHandler(reg *chat.Registry, transcripts TranscriptLister, limiter chat.Limiter) *ChatHandler {
	return &ChatHandler{reg: reg, transcripts: transcripts, limiter: limiter}
}

// RegisterRoutes registers the chat routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/chat", func(r chi.Router) {
		r.Post("/messages", h.PostMessage)
		r.Post("/restart", h.Restart)
		r.Get("/state", h.State)
		r.Get("/history", h.History)
		r.Get("/transcript", h.Transcript)
	})
	r.Get("/api/config", h.Config)
}

type messageRequest struct {
	Message string `json:"message"`
}

// PostMessage submits one utterance and returns the resulting turn.
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	key, ok := conversationKey(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "missing visitor identity")
		return
	}

	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}
	if !h.allow(key) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	conv := h.reg.GetOrCreate(r.Context(), key)
	JSON(w, http.StatusOK, conv.Submit(r.Context(), chat.ChannelHTTP, req.Message))
}

// Restart resets the conversation and returns the opening prompts.
func (h *ChatHandler) Restart(w http.ResponseWriter, r *http.Request) {
	key, ok := conversationKey(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "missing visitor identity")
		return
	}
	if !h.allow(key) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	conv := h.reg.GetOrCreate(r.Context(), key)
	JSON(w, http.StatusOK, conv.Restart(r.Context(), chat.ChannelHTTP))
}

// State returns the current session snapshot, opening a conversation if
// none exists yet.
func (h *ChatHandler) State(w http.ResponseWriter, r *http.Request) {
	key, ok := conversationKey(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "missing visitor identity")
		return
	}
	JSON(w, http.StatusOK, h.reg.GetOrCreate(r.Context(), key).Snapshot())
}

// History returns the in-memory messages of the conversation.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	key, ok := conversationKey(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "missing visitor identity")
		return
	}
	conv := h.reg.GetOrCreate(r.Context(), key)
	JSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": conv.ID(),
		"messages":        conv.History(),
	})
}

// Transcript returns persisted transcript rows for the tab session. The
// conversation_id query parameter narrows them to one conversation.
func (h *ChatHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	key, ok := conversationKey(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "missing visitor identity")
		return
	}
	if h.transcripts == nil {
		Error(w, http.StatusServiceUnavailable, "transcripts unavailable")
		return
	}

	limit := defaultTranscriptLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxTranscriptLimit)
	}

	entries, err := h.transcripts.ListTranscript(r.Context(), domain.TranscriptFilter{
		VisitorID:      key.VisitorID,
		SessionID:      key.SessionID,
		ConversationID: r.URL.Query().Get("conversation_id"),
		Limit:          limit,
	})
	if err != nil {
		slog.Error("Failed to list transcript", "visitor_id", key.VisitorID, "session_id", key.SessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}
	if entries == nil {
		entries = []domain.TranscriptEntry{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// Config returns the conversation settings for the frontend.
func (h *ChatHandler) Config(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"greeting":     h.reg.Greeting(),
		"unit_choices": coach.UnitChoices(),
		"goal_choices": coach.GoalChoices(),
	})
}

func (h *ChatHandler) allow(key chat.Key) bool {
	if h.limiter == nil {
		return true
	}
	return h.limiter.Allow(key.VisitorID)
}
