// Package config provides hierarchical configuration loading for
// arenasync. Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the arenasync client.
type Config struct {
	API         API         `yaml:"api"`
	Feed        Feed        `yaml:"feed"`
	Logging     Logging     `yaml:"logging"`
	Leaderboard Leaderboard `yaml:"leaderboard"`
	Breaker     Breaker     `yaml:"breaker"`
	Mock        Mock        `yaml:"mock"`
}

// API holds arena backend HTTP settings.
type API struct {
	// BaseURL is the API gateway root, e.g. "https://arena.example.com/api".
	BaseURL string `yaml:"base_url"`

	// Token is the bearer token for authenticated calls. Empty means
	// unauthenticated; the backend degrades, it does not reject.
	Token string `yaml:"token"`

	// RequestTimeout bounds each HTTP call. Zero disables the timeout,
	// matching the dashboard contract where a call either resolves or
	// the consumer is torn down.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Feed holds battle live channel settings.
type Feed struct {
	// URL overrides the WebSocket endpoint. When empty the endpoint is
	// derived from API.BaseURL (http -> ws, https -> wss) plus
	// "/ws/battles".
	URL string `yaml:"url"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
	Buffer  int    `yaml:"buffer"`
	Workers int    `yaml:"workers"`
}

// Leaderboard holds derived-view configuration.
type Leaderboard struct {
	Size int `yaml:"size"`
}

// Breaker holds circuit breaker configuration for backend calls. The
// breaker is off by default; enabling it makes the service adapter
// reject calls fast while the backend is down.
type Breaker struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Mock holds settings for the bundled mock arena backend.
type Mock struct {
	Port string `yaml:"port"`

	// LivenessTTL is how long a liveness probe result stays cached.
	LivenessTTL time.Duration `yaml:"liveness_ttl"`

	// LivenessCacheSize is the maximum number of cached probe results.
	LivenessCacheSize int64 `yaml:"liveness_cache_size"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		API: API{
			BaseURL: "http://localhost:8080/api",
		},
		Logging: Logging{
			Level:   "info",
			Service: "arenasync",
			Buffer:  1024,
			Workers: 1,
		},
		Leaderboard: Leaderboard{
			Size: 6,
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Mock: Mock{
			Port:              "8080",
			LivenessTTL:       30 * time.Second,
			LivenessCacheSize: 4096,
		},
	}
}
