package config

import (
	"testing"
	"time"
)

func validBase() Config {
	return Config{
		App:      AppConfig{Env: "local", Port: 8080, InstanceID: "test-1"},
		DB:       DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "voiceagent", SSLMode: ""},
		Redis:    RedisConfig{Host: "localhost", Port: 6379},
		Realtime: RealtimeConfig{APIKey: "sk-test", BaseURL: "wss://realtime.example.com/v1", Model: "gpt-realtime"},
		Auth:     AuthConfig{JWTSecret: "secret"},
		Provider: ProviderConfig{AcceptURL: "https://provider.example.com/calls/%s/accept"},
	}
}

func TestLoad_ReportsMissingRequired(t *testing.T) {
	// Ensure a clean env by not setting anything and calling validation directly.
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validBase()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "voiceagent"
	c.Auth.JWTAudience = "ops"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_LifecycleDefaults(t *testing.T) {
	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Call.EndedTTL != time.Hour {
		t.Fatalf("expected 1h ended TTL default, got %v", c.Call.EndedTTL)
	}
	if c.Call.TurnSummaryThreshold != 6 {
		t.Fatalf("expected turn threshold 6, got %d", c.Call.TurnSummaryThreshold)
	}
	if c.Breaker.FailureThreshold != 5 || c.Breaker.ResetTimeout != 30*time.Second {
		t.Fatalf("unexpected breaker defaults: %+v", c.Breaker)
	}
}

func TestValidate_RealtimeURLScheme(t *testing.T) {
	c := validBase()
	c.Realtime.BaseURL = "https://realtime.example.com/v1"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for non-websocket realtime URL")
	}
}
