// Package config loads service configuration from an optional YAML file,
// a local .env file and environment variables, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider selects and configures the completion backend.
type Provider struct {
	// Vendor is "openai" (any OpenAI-compatible API, including DeepSeek)
	// or "anthropic".
	Vendor  string `yaml:"vendor"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// APIKey comes from the environment only, never from the YAML file.
	APIKey string `yaml:"-"`
}

// History selects the history backend.
type History struct {
	// Backend is "memory", "sqlite" or "redis".
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlite_path"`
	RedisURL   string `yaml:"redis_url"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// Pipeline tunes engine execution.
type Pipeline struct {
	TimeoutSeconds        int `yaml:"timeout_seconds"`
	EventBufferSize       int `yaml:"event_buffer_size"`
	MaxCheckpointSessions int `yaml:"max_checkpoint_sessions"`
}

// Log configures the structured logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full service configuration.
type Config struct {
	Listen   string   `yaml:"listen"`
	Provider Provider `yaml:"provider"`
	History  History  `yaml:"history"`
	Pipeline Pipeline `yaml:"pipeline"`
	Log      Log      `yaml:"log"`
}

// Default returns the baseline configuration: in-memory history, DeepSeek
// defaults, five minute pipeline budget.
func Default() Config {
	return Config{
		Listen: ":8080",
		Provider: Provider{
			Vendor:  "openai",
			BaseURL: "https://api.deepseek.com/v1",
			Model:   "deepseek-chat",
		},
		History: History{
			Backend:    "memory",
			SQLitePath: "rassist.db",
			TTLSeconds: 86400,
		},
		Pipeline: Pipeline{
			TimeoutSeconds:        300,
			EventBufferSize:       64,
			MaxCheckpointSessions: 128,
		},
		Log: Log{Level: "info", Format: "json"},
	}
}

// Load builds the config: defaults, then the YAML file at path (optional,
// missing file is fine), then .env, then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Run on defaults + environment.
		case err != nil:
			return cfg, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	// .env is a developer convenience; absence is not an error.
	_ = godotenv.Load()

	applyEnv(&cfg)
	return cfg, nil
}

// Timeout returns the pipeline budget as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Pipeline.TimeoutSeconds) * time.Second
}

// HistoryTTL returns the redis expiry as a duration.
func (c Config) HistoryTTL() time.Duration {
	return time.Duration(c.History.TTLSeconds) * time.Second
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RASSIST_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("RASSIST_PROVIDER"); v != "" {
		cfg.Provider.Vendor = v
	}
	if v := os.Getenv("RASSIST_MODEL"); v != "" {
		cfg.Provider.Model = v
	}
	if v := os.Getenv("RASSIST_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	for _, key := range []string{"RASSIST_API_KEY", "DEEPSEEK_API_KEY", "ANTHROPIC_API_KEY"} {
		if v := os.Getenv(key); v != "" {
			cfg.Provider.APIKey = v
			break
		}
	}
	if v := os.Getenv("RASSIST_HISTORY_BACKEND"); v != "" {
		cfg.History.Backend = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.History.RedisURL = v
	}
	if v := os.Getenv("RASSIST_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Pipeline.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("RASSIST_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}
