package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/fitcoach/internal/coach"
	"github.com/ashureev/fitcoach/internal/identity"
	"github.com/coder/websocket"
)

const (
	wsReadLimit    = 16 << 10
	wsWriteTimeout = 5 * time.Second
	wsOutQueue     = 64
)

// Limiter decides whether a visitor may submit another turn.
type Limiter interface {
	Allow(key string) bool
}

// VisitorToucher records visitor activity.
type VisitorToucher interface {
	TouchVisitor(ctx context.Context, visitorID string, seen time.Time) error
}

// inFrame is a client to server websocket frame.
type inFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// outFrame is a server to client websocket frame.
type outFrame struct {
	Type     string          `json:"type"`
	Message  *coach.Message  `json:"message,omitempty"`
	Messages []coach.Message `json:"messages,omitempty"`
	Choices  []coach.Choice  `json:"choices,omitempty"`
	State    *State          `json:"state,omitempty"`
	Error    string          `json:"error,omitempty"`

	delay time.Duration
}

// WebSocketHandler serves paced chat conversations over websockets.
type WebSocketHandler struct {
	reg            *Registry
	pacer          *Pacer
	conns          *connections
	limiter        Limiter
	visitors       VisitorToucher
	allowedOrigins []string
	isDev          bool
}

// NewWebSocketHandler creates a websocket handler. A nil pacer delivers
// messages immediately.
func NewWebSocketHandler(reg *Registry, pacer *Pacer, allowedOrigins []string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		reg:            reg,
		pacer:          pacer,
		conns:          newConnections(),
		allowedOrigins: allowedOrigins,
		isDev:          isDev,
	}
}

// SetLimiter sets the per-visitor turn limiter.
func (h *WebSocketHandler) SetLimiter(l Limiter) { h.limiter = l }

// SetVisitorStore sets where visitor activity is recorded.
func (h *WebSocketHandler) SetVisitorStore(v VisitorToucher) { h.visitors = v }

// CloseConversation closes the websocket attached to key, if any.
func (h *WebSocketHandler) CloseConversation(key Key) {
	h.conns.close(key, "conversation expired")
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := Key{
		VisitorID: identity.VisitorIDFromContext(r.Context()),
		SessionID: identity.SessionIDFromContext(r.Context()),
	}
	if key.VisitorID == "" {
		http.Error(w, `{"error":"missing visitor identity"}`, http.StatusUnauthorized)
		return
	}
	slog.Info("Chat websocket request", "visitor_id", key.VisitorID, "session_id", key.SessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin is checked above.
		InsecureSkipVerify: true,
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "visitor_id", key.VisitorID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "visitor_id", key.VisitorID)
		}
	}()
	ws.SetReadLimit(wsReadLimit)

	h.conns.register(key, ws)
	defer h.conns.unregister(key, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conv := h.reg.GetOrCreate(ctx, key)
	out := make(chan outFrame, wsOutQueue)

	state := conv.Snapshot()
	out <- outFrame{Type: "history", Messages: conv.History(), Choices: state.Choices, State: &state}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer cancel()
		h.inputLoop(ctx, ws, conv, out)
	}()

	go func() {
		defer wg.Done()
		defer cancel()
		h.outputLoop(ctx, ws, out)
	}()

	wg.Wait()
	slog.Info("Chat websocket ended", "visitor_id", key.VisitorID, "session_id", key.SessionID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	// Same-origin page served by this binary.
	if strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://") == r.Host {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}

func (h *WebSocketHandler) inputLoop(ctx context.Context, ws *websocket.Conn, conv *Conversation, out chan<- outFrame) {
	key := conv.Key()
	send := func(f outFrame) bool {
		select {
		case out <- f:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				slog.Debug("WebSocket closed", "visitor_id", key.VisitorID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "visitor_id", key.VisitorID)
			}
			return
		}

		var msg inFrame
		if err := json.Unmarshal(data, &msg); err != nil {
			if !send(outFrame{Type: "error", Error: "invalid_frame"}) {
				return
			}
			continue
		}

		var turn Turn
		switch msg.Type {
		case "ping":
			conv.Touch()
			if !send(outFrame{Type: "pong"}) {
				return
			}
			continue
		case "message", "choice":
			if !h.allow(key) {
				if !send(outFrame{Type: "error", Error: "rate_limited"}) {
					return
				}
				continue
			}
			turn = conv.Submit(ctx, ChannelWS, msg.Content)
		case "restart":
			if !h.allow(key) {
				if !send(outFrame{Type: "error", Error: "rate_limited"}) {
					return
				}
				continue
			}
			turn = conv.Restart(ctx, ChannelWS)
		default:
			if !send(outFrame{Type: "error", Error: "unknown_frame_type"}) {
				return
			}
			continue
		}

		if !h.deliver(conv, turn, send) {
			return
		}
		h.touchVisitor(key.VisitorID)
	}
}

// deliver queues a turn's frames in order: every message, then the current
// choices, then the session state.
func (h *WebSocketHandler) deliver(conv *Conversation, turn Turn, send func(outFrame) bool) bool {
	for i := range turn.Messages {
		m := turn.Messages[i]
		d := h.pacer.Delay(m)
		if d > 0 {
			if !send(outFrame{Type: "typing"}) {
				return false
			}
		}
		if !send(outFrame{Type: "message", Message: &m, delay: d}) {
			return false
		}
	}
	if !send(outFrame{Type: "choices", Choices: turn.Choices}) {
		return false
	}
	state := conv.Snapshot()
	return send(outFrame{Type: "state", State: &state})
}

func (h *WebSocketHandler) outputLoop(ctx context.Context, ws *websocket.Conn, out <-chan outFrame) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-out:
			if f.delay > 0 {
				if err := h.pacer.Wait(ctx, f.delay); err != nil {
					return
				}
			}
			if err := writeJSON(ctx, ws, f); err != nil {
				if ctx.Err() == nil {
					slog.Debug("WebSocket write error", "error", err)
				}
				return
			}
		}
	}
}

func (h *WebSocketHandler) allow(key Key) bool {
	if h.limiter == nil {
		return true
	}
	return h.limiter.Allow(key.VisitorID)
}

func (h *WebSocketHandler) touchVisitor(visitorID string) {
	if h.visitors == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.visitors.TouchVisitor(ctx, visitorID, time.Now()); err != nil {
			slog.Warn("Failed to update last seen", "visitor_id", visitorID, "error", err)
		}
	}()
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return ws.Write(wctx, websocket.MessageText, data)
}

// connections tracks the websocket attached to each conversation. A newer
// connection for the same key replaces the older one.
type connections struct {
	mu     sync.Mutex
	active map[Key]*websocket.Conn
}

func newConnections() *connections {
	return &connections{active: make(map[Key]*websocket.Conn)}
}

func (c *connections) register(key Key, conn *websocket.Conn) {
	c.mu.Lock()
	existing, ok := c.active[key]
	c.active[key] = conn
	c.mu.Unlock()
	if ok && existing != conn {
		go func() { _ = existing.Close(websocket.StatusPolicyViolation, "session replaced") }()
	}
}

func (c *connections) unregister(key Key, conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.active[key]; ok && current == conn {
		delete(c.active, key)
	}
}

func (c *connections) get(key Key) *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active[key]
}

func (c *connections) close(key Key, reason string) {
	c.mu.Lock()
	conn, ok := c.active[key]
	delete(c.active, key)
	c.mu.Unlock()
	if ok {
		go func() { _ = conn.Close(websocket.StatusGoingAway, reason) }()
	}
}
