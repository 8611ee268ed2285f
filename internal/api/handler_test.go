//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ashureev/fitcoach/internal/domain"
	"github.com/ashureev/fitcoach/internal/identity"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusTeapot, "short and stout")

	if w.Code != http.StatusTeapot {
		t.Fatalf("status = %d", w.Code)
	}
	var got map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["error"] != "short and stout" {
		t.Fatalf("body = %v", got)
	}
}

func TestDecodeJSONRejectsBadBodies(t *testing.T) {
	tests := map[string]string{
		"empty":         "",
		"malformed":     "{",
		"unknown field": `{"message":"hi","extra":1}`,
		"too large":     `{"message":"` + strings.Repeat("a", maxBodyBytes) + `"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			var req messageRequest
			if err := decodeJSON(httptest.NewRecorder(), r, &req); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

// withIdentity wraps h so requests carry the given visitor and session.
func withIdentity(h http.Handler, visitorID, sessionID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), visitorID, sessionID)))
	})
}

type fakeTranscripts struct {
	mu      sync.Mutex
	entries []domain.TranscriptEntry
	filters []domain.TranscriptFilter
	err     error
}

func (f *fakeTranscripts) AppendTranscript(_ context.Context, entries []domain.TranscriptEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *fakeTranscripts) ListTranscript(_ context.Context, filter domain.TranscriptFilter) ([]domain.TranscriptEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.TranscriptEntry
	for _, e := range f.entries {
		if e.VisitorID != filter.VisitorID || e.SessionID != filter.SessionID {
			continue
		}
		if filter.ConversationID != "" && e.ConversationID != filter.ConversationID {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		db     string
	}{
		{"healthy", nil, http.StatusOK, "ok"},
		{"degraded", errors.New("database is locked"), http.StatusServiceUnavailable, "unreachable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(fakePinger{err: tt.err})
			w := httptest.NewRecorder()
			h.Health(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			var body struct {
				Checks map[string]string `json:"checks"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Checks["database"] != tt.db {
				t.Fatalf("database check = %q", body.Checks["database"])
			}
		})
	}
}
