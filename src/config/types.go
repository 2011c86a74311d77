package config

import (
	"time"
)

// Config represents the complete configuration for mydrawer
type Config struct {
	// Version of the configuration format
	Version string `json:"version"`

	// Providers holds credentials and endpoints keyed by provider id
	Providers map[string]ProviderConfig `json:"providers,omitempty" validate:"dive,keys,provider,endkeys"`

	// Chat defaults applied to every generation
	Chat ChatConfig `json:"chat"`

	// Network settings for outbound provider and research calls
	Network NetworkConfig `json:"network"`

	// Data directory configuration
	Data DataConfig `json:"data,omitempty"`

	// Observability configuration
	Observability ObservabilityConfig `json:"observability,omitempty"`

	// Debug enables general debug logging
	Debug bool `json:"debug,omitempty"`
}

// ProviderConfig defines configuration for a model provider
type ProviderConfig struct {
	// APIKey for the provider. Keys saved through the settings store take
	// precedence over this one.
	APIKey string `json:"api_key,omitempty"`

	// APIKeyEnvVar names the environment variable the key is read from
	APIKeyEnvVar string `json:"api_key_env_var,omitempty"`

	// BaseURL overrides the default API endpoint
	BaseURL string `json:"base_url,omitempty" validate:"omitempty,url"`

	// Headers are added to every request to the provider
	Headers map[string]string `json:"headers,omitempty"`
}

// ChatConfig holds generation defaults
type ChatConfig struct {
	DefaultModel string   `json:"default_model"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens    *int     `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
}

// NetworkConfig bounds outbound HTTP traffic
type NetworkConfig struct {
	// Timeout for a whole request, including a streamed response
	Timeout time.Duration `json:"timeout,omitempty" validate:"min=0"`

	// RequestsPerMinute across all providers; zero disables limiting
	RequestsPerMinute int `json:"requests_per_minute" validate:"min=0"`

	// BurstSize of the rate limiter
	BurstSize int `json:"burst_size" validate:"min=0"`

	// MaxResponseBytes caps non-streaming response bodies
	MaxResponseBytes int64 `json:"max_response_bytes,omitempty" validate:"min=0"`
}

// DataConfig defines where state is stored
type DataConfig struct {
	// DatabasePath of the sqlite database
	DatabasePath string `json:"database_path,omitempty"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	// Logging configuration
	Logging LoggingConfig `json:"logging,omitempty"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `json:"level,omitempty" validate:"log_level"`

	// Format is the output format (text, json)
	Format string `json:"format,omitempty" validate:"log_format"`

	// File receives JSON logs instead of stderr when set
	File string `json:"file,omitempty"`
}

// ConfigPrecedence defines the order of configuration loading
type ConfigPrecedence struct {
	// SystemConfig path
	SystemConfig string

	// UserConfig path
	UserConfig string

	// ProjectConfig path
	ProjectConfig string

	// LocalConfig path
	LocalConfig string

	// DotEnvFiles are loaded into the environment before overrides apply
	DotEnvFiles []string

	// EnvironmentPrefix for env var overrides
	EnvironmentPrefix string
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ConfigSource indicates where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"
	SourceUser        ConfigSource = "user"
	SourceProject     ConfigSource = "project"
	SourceLocal       ConfigSource = "local"
	SourceEnvironment ConfigSource = "environment"
	SourceCLI         ConfigSource = "cli"
)

// APIKeys returns the non-empty provider keys.
func (c *Config) APIKeys() map[string]string {
	out := make(map[string]string, len(c.Providers))
	for id, p := range c.Providers {
		if p.APIKey != "" {
			out[id] = p.APIKey
		}
	}
	return out
}

// BaseURLs returns the provider endpoint overrides.
func (c *Config) BaseURLs() map[string]string {
	out := make(map[string]string, len(c.Providers))
	for id, p := range c.Providers {
		if p.BaseURL != "" {
			out[id] = p.BaseURL
		}
	}
	return out
}

// Headers returns the extra request headers per provider.
func (c *Config) Headers() map[string]map[string]string {
	out := make(map[string]map[string]string, len(c.Providers))
	for id, p := range c.Providers {
		if len(p.Headers) > 0 {
			out[id] = p.Headers
		}
	}
	return out
}

// Redacted returns a copy with every API key masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Providers = make(map[string]ProviderConfig, len(c.Providers))
	for id, p := range c.Providers {
		if p.APIKey != "" {
			p.APIKey = MaskKey(p.APIKey)
		}
		out.Providers[id] = p
	}
	return &out
}

// MaskKey keeps the first and last four characters of key.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
