package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "arenasync.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.API.BaseURL, "ARENA_API_URL")
	setString(&cfg.API.Token, "ARENA_TOKEN")
	setDuration(&cfg.API.RequestTimeout, "ARENA_REQUEST_TIMEOUT")
	setString(&cfg.Feed.URL, "ARENA_FEED_URL")
	setString(&cfg.Logging.Level, "ARENA_LOG_LEVEL")
	setString(&cfg.Logging.Service, "ARENA_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "ARENA_LOG_ASYNC")
	setInt(&cfg.Logging.Buffer, "ARENA_LOG_BUFFER")
	setInt(&cfg.Logging.Workers, "ARENA_LOG_WORKERS")
	setInt(&cfg.Leaderboard.Size, "ARENA_LEADERBOARD_SIZE")
	setBool(&cfg.Breaker.Enabled, "ARENA_BREAKER_ENABLED")
	setInt(&cfg.Breaker.MaxFailures, "ARENA_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "ARENA_BREAKER_TIMEOUT")
	setString(&cfg.Mock.Port, "ARENA_MOCK_PORT")
	setDuration(&cfg.Mock.LivenessTTL, "ARENA_MOCK_LIVENESS_TTL")
	setInt64(&cfg.Mock.LivenessCacheSize, "ARENA_MOCK_LIVENESS_CACHE_SIZE")
}

func validate(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if !strings.HasPrefix(cfg.API.BaseURL, "http://") && !strings.HasPrefix(cfg.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be http(s), got %q", cfg.API.BaseURL)
	}
	if cfg.Leaderboard.Size <= 0 {
		return fmt.Errorf("leaderboard.size must be positive, got %d", cfg.Leaderboard.Size)
	}
	if cfg.Logging.Async {
		if cfg.Logging.Buffer <= 0 {
			return fmt.Errorf("logging.buffer must be positive in async mode, got %d", cfg.Logging.Buffer)
		}
		if cfg.Logging.Workers <= 0 {
			return fmt.Errorf("logging.workers must be positive in async mode, got %d", cfg.Logging.Workers)
		}
	}
	if cfg.Breaker.Enabled && cfg.Breaker.MaxFailures <= 0 {
		return fmt.Errorf("breaker.max_failures must be positive, got %d", cfg.Breaker.MaxFailures)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
