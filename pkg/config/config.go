// Package config defines the immutable process configuration. Configuration
// is loaded once at startup (optionally watched for changes), expanded
// against the environment and validated; components receive it at
// construction and never read the environment at call time.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration object.
type Config struct {
	Agent      AgentConfig      `yaml:"agent"`
	LLM        LLMConfig        `yaml:"llm"`
	Generation GenerationConfig `yaml:"generation"`
	Tasks      TaskConfig       `yaml:"tasks"`
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// AgentConfig describes the agent identity published on the agent card.
type AgentConfig struct {
	// Name is the human-readable agent name.
	Name string `yaml:"name"`

	// Description of what the agent does.
	Description string `yaml:"description"`

	// Version reported on the agent card.
	Version string `yaml:"version"`
}

// LLMConfig configures the generation backend provider.
type LLMConfig struct {
	// Provider type. Only "openai" is supported.
	Provider string `yaml:"provider"`

	// Model name (e.g. "gpt-4o-mini").
	Model string `yaml:"model"`

	// APIKey for authentication. Supports ${VAR} expansion.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Temperature for generation.
	Temperature *float64 `yaml:"temperature"`

	// MaxTokens limits response length.
	MaxTokens int `yaml:"max_tokens"`

	// Timeout per attempt, in seconds.
	Timeout int `yaml:"timeout"`
}

// GenerationConfig configures the retry and fallback policy of the backend
// adapter.
type GenerationConfig struct {
	// MaxRetries after the first attempt. 2 means 3 attempts total.
	MaxRetries int `yaml:"max_retries"`

	// RetryBaseDelay is the delay before the first retry.
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`

	// RetryMultiplier is the factor applied between consecutive delays.
	RetryMultiplier float64 `yaml:"retry_multiplier"`

	// FallbackDisabled surfaces backend failure instead of serving a quote
	// from the offline set. Intended for testing failure paths end to end.
	FallbackDisabled bool `yaml:"fallback_disabled"`
}

// TaskConfig configures task retention and fan-out.
type TaskConfig struct {
	// GracePeriod keeps terminal tasks visible to late subscribers.
	GracePeriod time.Duration `yaml:"grace_period"`

	// SweepInterval is how often expired terminal tasks are collected.
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// ReplayWindow bounds how many past events a late subscriber is replayed.
	ReplayWindow int `yaml:"replay_window"`

	// SubscriberBuffer is the per-subscriber channel capacity. A subscriber
	// that falls this far behind is detached.
	SubscriberBuffer int `yaml:"subscriber_buffer"`
}

// ServerConfig configures the transport listeners.
type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
}

// AuthConfig configures optional bearer JWT validation.
type AuthConfig struct {
	Enabled  bool   `yaml:"enabled"`
	JWKSURL  string `yaml:"jwks_url"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

// IsEnabled reports whether auth should be enforced.
func (c AuthConfig) IsEnabled() bool {
	return c.Enabled && c.JWKSURL != ""
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level"`

	// Format: simple or verbose.
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// SetDefaults fills zero values with working defaults.
func (c *Config) SetDefaults() {
	if c.Agent.Name == "" {
		c.Agent.Name = "Quote Generator Agent"
	}
	if c.Agent.Description == "" {
		c.Agent.Description = "Generates original inspirational quotes on request"
	}
	if c.Agent.Version == "" {
		c.Agent.Version = "1.0.0"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 150
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 10
	}
	if c.Generation.MaxRetries == 0 {
		c.Generation.MaxRetries = 2
	}
	if c.Generation.RetryBaseDelay == 0 {
		c.Generation.RetryBaseDelay = 500 * time.Millisecond
	}
	if c.Generation.RetryMultiplier == 0 {
		c.Generation.RetryMultiplier = 3
	}
	if c.Tasks.GracePeriod == 0 {
		c.Tasks.GracePeriod = 60 * time.Second
	}
	if c.Tasks.SweepInterval == 0 {
		c.Tasks.SweepInterval = 15 * time.Second
	}
	if c.Tasks.ReplayWindow == 0 {
		c.Tasks.ReplayWindow = 16
	}
	if c.Tasks.SubscriberBuffer == 0 {
		c.Tasks.SubscriberBuffer = 32
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "simple"
	}
}

// Validate checks invariants that defaults cannot repair.
func (c *Config) Validate() error {
	if c.LLM.Provider != "openai" {
		return fmt.Errorf("unsupported llm provider: %q", c.LLM.Provider)
	}
	if c.Generation.MaxRetries < 0 {
		return fmt.Errorf("generation.max_retries must be >= 0")
	}
	if c.Tasks.ReplayWindow < 1 {
		return fmt.Errorf("tasks.replay_window must be >= 1")
	}
	if c.Tasks.SubscriberBuffer < 1 {
		return fmt.Errorf("tasks.subscriber_buffer must be >= 1")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Auth.Enabled && c.Auth.JWKSURL == "" {
		return fmt.Errorf("auth.jwks_url is required when auth is enabled")
	}
	return nil
}

// Default returns a configuration with all defaults applied, suitable for
// zero-config startup.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}
