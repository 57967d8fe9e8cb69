package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("CONFIRMATION_DELAY", "")
	t.Setenv("CONFIRM_POLICY", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("LLM_MAX_TOKENS", "")
	t.Setenv("LLM_TEMPERATURE", "")
	t.Setenv("MAX_CONNECTIONS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.ConfirmationDelay != time.Minute {
		t.Fatalf("expected 60s confirmation delay, got %s", cfg.ConfirmationDelay)
	}
	if cfg.ConfirmPolicy != "pending_only" {
		t.Fatalf("expected pending_only confirm policy, got %s", cfg.ConfirmPolicy)
	}
	if cfg.OpenAIModel != "gpt-4.1-nano" {
		t.Fatalf("expected default model, got %s", cfg.OpenAIModel)
	}
	if cfg.LLMMaxTokens != 300 {
		t.Fatalf("expected 300 max tokens, got %d", cfg.LLMMaxTokens)
	}
	if cfg.LLMTemperature != 0.7 {
		t.Fatalf("expected temperature 0.7, got %v", cfg.LLMTemperature)
	}
	if cfg.MaxConnections != 1000 {
		t.Fatalf("expected 1000 max connections, got %d", cfg.MaxConnections)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("CONFIRMATION_DELAY", "5s")
	t.Setenv("CONFIRM_POLICY", "Unconditional")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, https://app.example.com ,")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("USE_MEMORY_QUEUE", "false")
	t.Setenv("MAX_CONNECTIONS", "50")

	cfg := Load()
	if cfg.Port != "9090" || cfg.Env != "production" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.ConfirmationDelay != 5*time.Second {
		t.Fatalf("expected 5s delay, got %s", cfg.ConfirmationDelay)
	}
	if cfg.ConfirmPolicy != "unconditional" {
		t.Fatalf("expected normalized policy, got %s", cfg.ConfirmPolicy)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://app.example.com" {
		t.Fatalf("unexpected origins: %#v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected 2.5 rps, got %v", cfg.RateLimitRPS)
	}
	if cfg.UseMemoryQueue {
		t.Fatalf("expected memory queue disabled")
	}
	if cfg.MaxConnections != 50 {
		t.Fatalf("expected 50 max connections, got %d", cfg.MaxConnections)
	}
}

func TestResolvedDoctorStore(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "explicit mongo", cfg: Config{DoctorStore: "mongo"}, want: "mongo"},
		{name: "inferred postgres", cfg: Config{DatabaseURL: "postgres://x"}, want: "postgres"},
		{name: "unknown falls back", cfg: Config{DoctorStore: "sqlite"}, want: "memory"},
		{name: "empty", cfg: Config{}, want: "memory"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.ResolvedDoctorStore(); got != tc.want {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}
