package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:8080/api" {
		t.Fatalf("unexpected default base url %q", cfg.API.BaseURL)
	}
	if cfg.Leaderboard.Size != 6 {
		t.Fatalf("unexpected default leaderboard size %d", cfg.Leaderboard.Size)
	}
	if cfg.API.RequestTimeout != 0 {
		t.Fatalf("request timeout must default to none, got %v", cfg.API.RequestTimeout)
	}
}

func TestLoadFromYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arenasync.yaml")
	yaml := `
api:
  base_url: https://arena.example.com/api
  token: yaml-token
breaker:
  enabled: true
  max_failures: 3
  timeout: 10s
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.API.BaseURL != "https://arena.example.com/api" {
		t.Fatalf("yaml base url not applied: %q", cfg.API.BaseURL)
	}
	if !cfg.Breaker.Enabled || cfg.Breaker.MaxFailures != 3 || cfg.Breaker.Timeout != 10*time.Second {
		t.Fatalf("yaml breaker not applied: %+v", cfg.Breaker)
	}
	// Untouched sections keep defaults.
	if cfg.Logging.Level != "info" {
		t.Fatalf("unexpected log level %q", cfg.Logging.Level)
	}
}

func TestLoadFromEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arenasync.yaml")
	if err := os.WriteFile(path, []byte("api:\n  token: yaml-token\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ARENA_TOKEN", "env-token")
	t.Setenv("ARENA_LOG_LEVEL", "debug")
	t.Setenv("ARENA_REQUEST_TIMEOUT", "5s")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.API.Token != "env-token" {
		t.Fatalf("env token not applied: %q", cfg.API.Token)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("env log level not applied: %q", cfg.Logging.Level)
	}
	if cfg.API.RequestTimeout != 5*time.Second {
		t.Fatalf("env timeout not applied: %v", cfg.API.RequestTimeout)
	}
}

func TestLoadFromInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arenasync.yaml")
	if err := os.WriteFile(path, []byte(":::"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.API.BaseURL = "" }},
		{"non-http base url", func(c *Config) { c.API.BaseURL = "ftp://arena" }},
		{"zero leaderboard", func(c *Config) { c.Leaderboard.Size = 0 }},
		{"async without buffer", func(c *Config) { c.Logging.Async = true; c.Logging.Buffer = 0 }},
		{"breaker without threshold", func(c *Config) { c.Breaker.Enabled = true; c.Breaker.MaxFailures = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			if err := validate(&cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
