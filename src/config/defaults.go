package config

import (
	"time"

	"github.com/elee1766/mydrawer/src/models"
)

// Default network limits
const (
	DefaultTimeout           = 5 * time.Minute
	DefaultRequestsPerMinute = 60
	DefaultBurstSize         = 10
	DefaultMaxResponseBytes  = 5 * 1024 * 1024
)

// providerEnvVars maps provider ids to the environment variable holding
// their API key.
var providerEnvVars = map[string]string{
	models.ProviderOpenAI:    "OPENAI_API_KEY",
	models.ProviderAnthropic: "ANTHROPIC_API_KEY",
	models.ProviderGoogle:    "GOOGLE_API_KEY",
	models.ProviderMistral:   "MISTRAL_API_KEY",
	models.ProviderGroq:      "GROQ_API_KEY",
}

// DefaultConfig returns a default configuration with sensible defaults
func DefaultConfig() *Config {
	providers := make(map[string]ProviderConfig, len(providerEnvVars))
	for id, env := range providerEnvVars {
		providers[id] = ProviderConfig{APIKeyEnvVar: env}
	}

	return &Config{
		Version:   "1.0",
		Providers: providers,
		Chat: ChatConfig{
			DefaultModel: models.DefaultModelID,
		},
		Network: NetworkConfig{
			Timeout:           DefaultTimeout,
			RequestsPerMinute: DefaultRequestsPerMinute,
			BurstSize:         DefaultBurstSize,
			MaxResponseBytes:  DefaultMaxResponseBytes,
		},
		Data: DataConfig{
			DatabasePath: GetDefaultStoragePaths().DatabasePath,
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "text",
			},
		},
	}
}

// MergeWithDefaults merges a partial configuration with defaults
func MergeWithDefaults(partial *Config) *Config {
	defaults := DefaultConfig()
	loader := &Loader{}
	return loader.mergeConfigs(defaults, partial)
}
