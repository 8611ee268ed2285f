package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/fitcoach/internal/coach"
	"github.com/ashureev/fitcoach/internal/identity"
	"github.com/coder/websocket"
	"github.com/google/go-cmp/cmp"
)

type denyAfter struct {
	mu    sync.Mutex
	left  int
	calls []string
}

func (d *denyAfter) Allow(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, key)
	if d.left <= 0 {
		return false
	}
	d.left--
	return true
}

type clientFrame struct {
	Type     string          `json:"type"`
	Message  *coach.Message  `json:"message"`
	Messages []coach.Message `json:"messages"`
	Choices  []coach.Choice  `json:"choices"`
	State    *struct {
		Step       string `json:"step"`
		Units      string `json:"units"`
		BMIDisplay string `json:"bmi_display"`
	} `json:"state"`
	Error string `json:"error"`
}

func startWSServer(t *testing.T, h *WebSocketHandler, visitorID string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := r.URL.Query().Get("session_id")
		h.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), visitorID, sid)))
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close(websocket.StatusNormalClosure, "") })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) clientFrame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := ws.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	var f clientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return f
}

func sendFrame(t *testing.T, ws *websocket.Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

// readTurn collects frames up to and including the state frame.
func readTurn(t *testing.T, ws *websocket.Conn) []clientFrame {
	t.Helper()
	var frames []clientFrame
	for {
		f := readFrame(t, ws)
		frames = append(frames, f)
		if f.Type == "state" {
			return frames
		}
		if len(frames) > 20 {
			t.Fatalf("no state frame after %d frames", len(frames))
		}
	}
}

func frameTypes(frames []clientFrame) []string {
	types := make([]string, len(frames))
	for i, f := range frames {
		types[i] = f.Type
	}
	return types
}

func TestWebSocketConversation(t *testing.T) {
	reg, _, _, _ := newTestRegistry(t)
	h := NewWebSocketHandler(reg, nil, nil, true)
	ws := dialWS(t, startWSServer(t, h, "anon_a")+"?session_id=tab-1")

	hist := readFrame(t, ws)
	if hist.Type != "history" || len(hist.Messages) != 2 {
		t.Fatalf("history frame = %+v", hist)
	}
	if diff := cmp.Diff(coach.UnitChoices(), hist.Choices); diff != "" {
		t.Fatalf("history choices (-want +got):\n%s", diff)
	}

	sendFrame(t, ws, map[string]string{"type": "choice", "content": "metric"})
	frames := readTurn(t, ws)
	if diff := cmp.Diff([]string{"message", "message", "choices", "state"}, frameTypes(frames)); diff != "" {
		t.Fatalf("frame order (-want +got):\n%s", diff)
	}
	if m := frames[0].Message; m == nil || m.Speaker != coach.SpeakerUser || m.Text != "metric" {
		t.Fatalf("echo = %+v", frames[0].Message)
	}
	if st := frames[3].State; st.Step != "heightInput" || st.Units != "metric" {
		t.Fatalf("state = %+v", st)
	}

	sendFrame(t, ws, map[string]string{"type": "message", "content": "175 70"})
	frames = readTurn(t, ws)
	last := frames[len(frames)-1]
	if last.State.Step != "goalInput" || last.State.BMIDisplay != "22.9" {
		t.Fatalf("state after measurements = %+v", last.State)
	}
	if diff := cmp.Diff(coach.GoalChoices(), frames[len(frames)-2].Choices); diff != "" {
		t.Fatalf("goal choices (-want +got):\n%s", diff)
	}

	sendFrame(t, ws, map[string]string{"type": "restart"})
	frames = readTurn(t, ws)
	if frames[len(frames)-1].State.Step != "unitSelect" {
		t.Fatalf("restart state = %+v", frames[len(frames)-1].State)
	}
}

func TestWebSocketResumesHistory(t *testing.T) {
	reg, _, _, _ := newTestRegistry(t)
	h := NewWebSocketHandler(reg, nil, nil, true)
	url := startWSServer(t, h, "anon_a") + "?session_id=tab-1"

	first := dialWS(t, url)
	readFrame(t, first)
	sendFrame(t, first, map[string]string{"type": "message", "content": "imperial"})
	readTurn(t, first)
	_ = first.Close(websocket.StatusNormalClosure, "")

	second := dialWS(t, url)
	hist := readFrame(t, second)
	if len(hist.Messages) != 4 {
		t.Fatalf("replayed %d messages, want 4", len(hist.Messages))
	}
	if hist.State.Step != "heightInput" || hist.State.Units != "imperial" {
		t.Fatalf("resumed state = %+v", hist.State)
	}
}

func TestWebSocketControlFrames(t *testing.T) {
	reg, _, _, _ := newTestRegistry(t)
	lim := &denyAfter{left: 1}
	h := NewWebSocketHandler(reg, nil, nil, true)
	h.SetLimiter(lim)
	ws := dialWS(t, startWSServer(t, h, "anon_a"))
	readFrame(t, ws)

	sendFrame(t, ws, map[string]string{"type": "ping"})
	if f := readFrame(t, ws); f.Type != "pong" {
		t.Fatalf("ping reply = %+v", f)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ws.Write(ctx, websocket.MessageText, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if f := readFrame(t, ws); f.Type != "error" || f.Error != "invalid_frame" {
		t.Fatalf("invalid frame reply = %+v", f)
	}

	sendFrame(t, ws, map[string]string{"type": "dance"})
	if f := readFrame(t, ws); f.Error != "unknown_frame_type" {
		t.Fatalf("unknown frame reply = %+v", f)
	}

	sendFrame(t, ws, map[string]string{"type": "message", "content": "metric"})
	readTurn(t, ws)
	sendFrame(t, ws, map[string]string{"type": "message", "content": "180"})
	if f := readFrame(t, ws); f.Error != "rate_limited" {
		t.Fatalf("over-limit reply = %+v", f)
	}

	lim.mu.Lock()
	defer lim.mu.Unlock()
	if diff := cmp.Diff([]string{"anon_a", "anon_a"}, lim.calls); diff != "" {
		t.Fatalf("limiter keys (-want +got):\n%s", diff)
	}
}

func TestWebSocketPacingSendsTyping(t *testing.T) {
	reg, _, _, _ := newTestRegistry(t)
	pacer := NewPacer(PacerConfig{Enabled: true, ThinkPause: time.Millisecond}, nil)
	h := NewWebSocketHandler(reg, pacer, nil, true)
	ws := dialWS(t, startWSServer(t, h, "anon_a"))
	readFrame(t, ws)

	sendFrame(t, ws, map[string]string{"type": "message", "content": "metric"})
	frames := readTurn(t, ws)
	if diff := cmp.Diff([]string{"message", "typing", "message", "choices", "state"}, frameTypes(frames)); diff != "" {
		t.Fatalf("frame order (-want +got):\n%s", diff)
	}
}

func TestWebSocketRequiresIdentity(t *testing.T) {
	reg, _, _, _ := newTestRegistry(t)
	h := NewWebSocketHandler(reg, nil, nil, true)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/chat", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCheckOrigin(t *testing.T) {
	reg, _, _, _ := newTestRegistry(t)
	h := NewWebSocketHandler(reg, nil, []string{"https://coach.example.com"}, false)

	tests := []struct {
		origin string
		host   string
		want   bool
	}{
		{"", "api.example.com", true},
		{"https://coach.example.com", "api.example.com", true},
		{"https://evil.example.com", "api.example.com", false},
		{"http://api.example.com", "api.example.com", true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
		r.Host = tt.host
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := h.checkOrigin(r); got != tt.want {
			t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
