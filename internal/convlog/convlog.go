// Package convlog writes conversation events as NDJSON files, one per
// visitor tab session, plus an optional global file.
package convlog

import (
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls conversation logging.
type Config struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Event is one logged conversation line.
type Event struct {
	Timestamp      string         `json:"ts"`
	VisitorID      string         `json:"visitor_id"`
	SessionID      string         `json:"session_id"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Channel        string         `json:"channel"`
	Direction      string         `json:"direction"`
	EventType      string         `json:"event_type"`
	ContentRaw     string         `json:"content_raw"`
	Content        string         `json:"content"`
	Meta           map[string]any `json:"meta,omitempty"`
}

// Logger accepts events without blocking the caller.
type Logger interface {
	Log(ev Event)
	Close() error
}

// Noop discards every event.
type Noop struct{}

// Log discards ev.
func (Noop) Log(Event) {}

// Close does nothing.
func (Noop) Close() error { return nil }

// FileLogger is the asynchronous NDJSON Logger.
type FileLogger struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	done   chan struct{}

	files   map[string]*os.File
	global  *os.File
	dropped atomic.Int64
}

// New returns a Noop logger when logging is disabled and a FileLogger
// otherwise.
func New(cfg Config, logger *slog.Logger) (Logger, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	return NewFileLogger(cfg, logger)
}

// NewFileLogger creates the log directory and starts the writer goroutine.
func NewFileLogger(cfg Config, logger *slog.Logger) (*FileLogger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}

	l := &FileLogger{
		cfg:    cfg,
		logger: logger,
		queue:  make(chan Event, cfg.QueueSize),
		done:   make(chan struct{}),
		files:  make(map[string]*os.File),
	}

	if cfg.GlobalEnabled && cfg.GlobalPath != "" {
		f, err := openAppend(cfg.GlobalPath)
		if err != nil {
			return nil, fmt.Errorf("open global conversation log: %w", err)
		}
		l.global = f
	}

	go l.run()
	return l, nil
}

// Log enqueues ev. When the queue is full the event is dropped.
func (l *FileLogger) Log(ev Event) {
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if ev.Content == "" {
		ev.Content = CleanForReadability(ev.ContentRaw)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- ev:
	default:
		if n := l.dropped.Add(1); n == 1 || n%100 == 0 {
			l.logger.Warn("conversation log queue full, dropping events", "dropped", n)
		}
	}
}

// Dropped reports how many events were dropped on a full queue.
func (l *FileLogger) Dropped() int64 {
	return l.dropped.Load()
}

// Close drains the queue and closes every file. It is safe to call twice.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	<-l.done

	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if l.global != nil {
		if err := l.global.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (l *FileLogger) run() {
	defer close(l.done)
	for ev := range l.queue {
		line, err := json.Marshal(ev)
		if err != nil {
			l.logger.Warn("failed to encode conversation event", "error", err)
			continue
		}
		line = append(line, '\n')

		if f, err := l.sessionFile(ev.VisitorID, ev.SessionID); err != nil {
			l.logger.Warn("failed to open conversation log", "visitor_id", ev.VisitorID, "error", err)
		} else if _, err := f.Write(line); err != nil {
			l.logger.Warn("failed to write conversation log", "visitor_id", ev.VisitorID, "error", err)
		}

		if l.global != nil {
			if _, err := l.global.Write(line); err != nil {
				l.logger.Warn("failed to write global conversation log", "error", err)
			}
		}
	}
}

func (l *FileLogger) sessionFile(visitorID, sessionID string) (*os.File, error) {
	path := filepath.Join(l.cfg.Dir, safeName(visitorID, "unknown"), safeName(sessionID, "default")+".ndjson")
	if f, ok := l.files[path]; ok {
		return f, nil
	}
	f, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	l.files[path] = f
	return f, nil
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

func safeName(s, fallback string) string {
	s = unsafeNameChars.ReplaceAllString(s, "_")
	s = strings.Trim(s, ".")
	if s == "" {
		return fallback
	}
	return s
}

var (
	ansiPattern  = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	breakPattern = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`[ \t]+`)
)

// CleanForReadability strips ANSI sequences and markup from s, turning line
// breaks into newlines and decoding HTML entities.
func CleanForReadability(s string) string {
	s = ansiPattern.ReplaceAllString(s, "")
	s = breakPattern.ReplaceAllString(s, "\n")
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
