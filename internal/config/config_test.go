package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8080" || cfg.GRPCPort != "9090" {
		t.Fatalf("ports = %q/%q", cfg.Port, cfg.GRPCPort)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("SessionTTL = %v", cfg.SessionTTL)
	}
	if !cfg.Greeting {
		t.Fatal("greeting should default to on")
	}
	if cfg.RateLimit.Requests != 30 || cfg.RateLimit.Window != time.Minute {
		t.Fatalf("RateLimit = %+v", cfg.RateLimit)
	}
	if !cfg.IsDevelopment() {
		t.Fatal("empty FRONTEND_URL should mean development")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("GRPC_PORT", "")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("COACH_GREETING", "off")
	t.Setenv("PACING_PER_CHAR", "2ms")
	t.Setenv("FRONTEND_URL", "https://coach.example.com, https://www.coach.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "9000" || cfg.GRPCPort != "" {
		t.Fatalf("ports = %q/%q", cfg.Port, cfg.GRPCPort)
	}
	if cfg.SessionTTL != 5*time.Minute {
		t.Fatalf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.Greeting {
		t.Fatal("COACH_GREETING=off should disable the greeting step")
	}
	if cfg.Pacing.PerChar != 2*time.Millisecond {
		t.Fatalf("PerChar = %v", cfg.Pacing.PerChar)
	}
	if cfg.IsDevelopment() {
		t.Fatal("explicit frontend should not be development")
	}
	origins := cfg.AllowedOrigins()
	if len(origins) != 2 || origins[1] != "https://www.coach.example.com" {
		t.Fatalf("AllowedOrigins = %v", origins)
	}
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_TTL", "soon")
	t.Setenv("HISTORY_SIZE", "lots")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SessionTTL != 30*time.Minute || cfg.HistorySize != 200 {
		t.Fatalf("fallbacks not applied: ttl=%v history=%d", cfg.SessionTTL, cfg.HistorySize)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		env  string
		val  string
		want string
	}{
		{"PORT", "", "PORT cannot be empty"},
		{"DB_PATH", "", "DB_PATH cannot be empty"},
		{"SESSION_TTL", "-1m", "SESSION_TTL"},
		{"HISTORY_SIZE", "0", "HISTORY_SIZE"},
		{"RATE_LIMIT_REQUESTS", "0", "RATE_LIMIT_REQUESTS"},
		{"PACING_MAX_DELAY", "-5ms", "PACING_"},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
