// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port                string
	GRPCPort            string // "" disables the gRPC health listener
	FrontendURL         string
	DBPath              string
	SessionTTL          time.Duration
	TranscriptRetention time.Duration
	Greeting            bool
	HistorySize         int
	Pacing              PacingConfig
	RateLimit           RateLimitConfig
	ConversationLog     ConversationLogConfig
}

// PacingConfig controls staggered delivery of bot messages over websockets.
type PacingConfig struct {
	Enabled    bool
	ThinkPause time.Duration
	PerChar    time.Duration
	JitterMax  time.Duration
	MaxDelay   time.Duration
}

// RateLimitConfig bounds how many turns a visitor may submit per window.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		GRPCPort:            getEnv("GRPC_PORT", "9090"),
		FrontendURL:         getEnv("FRONTEND_URL", ""),
		DBPath:              getEnv("DB_PATH", "./data/fitcoach.db"),
		SessionTTL:          getEnvDuration("SESSION_TTL", 30*time.Minute),
		TranscriptRetention: getEnvDuration("TRANSCRIPT_RETENTION", 7*24*time.Hour),
		Greeting:            getEnvBool("COACH_GREETING", true),
		HistorySize:         getEnvInt("HISTORY_SIZE", 200),
		Pacing: PacingConfig{
			Enabled:    getEnvBool("PACING_ENABLED", true),
			ThinkPause: getEnvDuration("PACING_THINK_PAUSE", 400*time.Millisecond),
			PerChar:    getEnvDuration("PACING_PER_CHAR", 8*time.Millisecond),
			JitterMax:  getEnvDuration("PACING_JITTER", 120*time.Millisecond),
			MaxDelay:   getEnvDuration("PACING_MAX_DELAY", 1500*time.Millisecond),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 30),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.TranscriptRetention <= 0 {
		return fmt.Errorf("TRANSCRIPT_RETENTION must be > 0")
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("HISTORY_SIZE must be > 0")
	}
	if c.Pacing.ThinkPause < 0 || c.Pacing.PerChar < 0 || c.Pacing.JitterMax < 0 || c.Pacing.MaxDelay < 0 {
		return fmt.Errorf("PACING_* durations cannot be negative")
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origins for the configured frontend.
func (c *Config) AllowedOrigins() []string {
	if c.FrontendURL == "" {
		return []string{"*"}
	}
	origins := strings.Split(c.FrontendURL, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
