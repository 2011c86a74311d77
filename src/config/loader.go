package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Loader handles loading and merging configurations from multiple sources
type Loader struct {
	precedence ConfigPrecedence
	validator  *Validator
}

// NewLoader creates a new configuration loader
func NewLoader(precedence ConfigPrecedence) *Loader {
	return &Loader{
		precedence: precedence,
		validator:  NewValidator(),
	}
}

// Load loads configuration from all sources and merges them
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	sources := []struct {
		path   string
		source ConfigSource
	}{
		{l.precedence.SystemConfig, SourceSystem},
		{l.precedence.UserConfig, SourceUser},
		{l.precedence.ProjectConfig, SourceProject},
		{l.precedence.LocalConfig, SourceLocal},
	}

	for _, src := range sources {
		if src.path == "" {
			continue
		}

		if cfg, err := l.loadFile(src.path); err == nil {
			config = l.mergeConfigs(config, cfg)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s config from %s: %w", src.source, src.path, err)
		}
	}

	if err := l.loadDotEnv(); err != nil {
		return nil, err
	}
	l.applyEnvironmentOverrides(config)

	if err := l.validator.Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFile loads a single configuration file
func (l *Loader) loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &config, nil
}

// loadDotEnv loads the configured .env files that exist. Variables already
// in the environment win.
func (l *Loader) loadDotEnv() error {
	var files []string
	for _, f := range l.precedence.DotEnvFiles {
		if _, err := os.Stat(f); err == nil {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// SaveFile saves configuration to a file
func (l *Loader) SaveFile(config *Config, path string) error {
	if err := l.validator.Validate(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// may hold API keys
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// mergeConfigs merges two configurations with the second taking precedence
func (l *Loader) mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Version != "" {
		result.Version = override.Version
	}

	result.Providers = make(map[string]ProviderConfig, len(base.Providers))
	for id, p := range base.Providers {
		result.Providers[id] = p
	}
	for id, p := range override.Providers {
		result.Providers[id] = l.mergeProvider(result.Providers[id], p)
	}

	result.Chat = l.mergeChat(result.Chat, override.Chat)

	if override.Network.Timeout != 0 {
		result.Network.Timeout = override.Network.Timeout
	}
	if override.Network.RequestsPerMinute != 0 {
		result.Network.RequestsPerMinute = override.Network.RequestsPerMinute
	}
	if override.Network.BurstSize != 0 {
		result.Network.BurstSize = override.Network.BurstSize
	}
	if override.Network.MaxResponseBytes != 0 {
		result.Network.MaxResponseBytes = override.Network.MaxResponseBytes
	}

	if override.Data.DatabasePath != "" {
		result.Data.DatabasePath = override.Data.DatabasePath
	}

	if override.Observability.Logging.Level != "" {
		result.Observability.Logging.Level = override.Observability.Logging.Level
	}
	if override.Observability.Logging.Format != "" {
		result.Observability.Logging.Format = override.Observability.Logging.Format
	}
	if override.Observability.Logging.File != "" {
		result.Observability.Logging.File = override.Observability.Logging.File
	}

	if override.Debug {
		result.Debug = true
	}

	return &result
}

func (l *Loader) mergeProvider(base, override ProviderConfig) ProviderConfig {
	result := base

	if override.APIKey != "" {
		result.APIKey = override.APIKey
	}
	if override.APIKeyEnvVar != "" {
		result.APIKeyEnvVar = override.APIKeyEnvVar
	}
	if override.BaseURL != "" {
		result.BaseURL = override.BaseURL
	}
	if len(override.Headers) > 0 {
		headers := make(map[string]string, len(base.Headers)+len(override.Headers))
		for k, v := range base.Headers {
			headers[k] = v
		}
		for k, v := range override.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	return result
}

func (l *Loader) mergeChat(base, override ChatConfig) ChatConfig {
	result := base

	if override.DefaultModel != "" {
		result.DefaultModel = override.DefaultModel
	}
	if override.SystemPrompt != "" {
		result.SystemPrompt = override.SystemPrompt
	}
	if override.Temperature != nil {
		result.Temperature = override.Temperature
	}
	if override.MaxTokens != nil {
		result.MaxTokens = override.MaxTokens
	}

	return result
}

// applyEnvironmentOverrides applies environment variable overrides to config
func (l *Loader) applyEnvironmentOverrides(config *Config) {
	// Provider keys come from each provider's env var
	for id, p := range config.Providers {
		if p.APIKeyEnvVar == "" {
			continue
		}
		if key := os.Getenv(p.APIKeyEnvVar); key != "" {
			p.APIKey = key
			config.Providers[id] = p
		}
	}

	prefix := l.precedence.EnvironmentPrefix
	if prefix == "" {
		return
	}

	if model := os.Getenv(prefix + "_MODEL"); model != "" {
		config.Chat.DefaultModel = model
	}
	if prompt := os.Getenv(prefix + "_SYSTEM_PROMPT"); prompt != "" {
		config.Chat.SystemPrompt = prompt
	}
	if db := os.Getenv(prefix + "_DB"); db != "" {
		config.Data.DatabasePath = db
	}
	if level := os.Getenv(prefix + "_LOG_LEVEL"); level != "" {
		config.Observability.Logging.Level = strings.ToLower(level)
	}
	if format := os.Getenv(prefix + "_LOG_FORMAT"); format != "" {
		config.Observability.Logging.Format = strings.ToLower(format)
	}
	if timeout := os.Getenv(prefix + "_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Network.Timeout = d
		}
	}
	if rpm := os.Getenv(prefix + "_REQUESTS_PER_MINUTE"); rpm != "" {
		if n, err := strconv.Atoi(rpm); err == nil {
			config.Network.RequestsPerMinute = n
		}
	}
	if debug := os.Getenv(prefix + "_DEBUG"); strings.ToLower(debug) == "true" {
		config.Debug = true
	}
}

// GetConfigPaths returns the configuration file paths to check
func GetConfigPaths() ConfigPrecedence {
	systemConfigPath := filepath.Join("/etc", AppName, "config.json")
	if runtime.GOOS == "windows" {
		systemConfigPath = filepath.Join(os.Getenv("PROGRAMDATA"), AppName, "config.json")
	}

	return ConfigPrecedence{
		SystemConfig:      systemConfigPath,
		UserConfig:        GetUserConfigPath(),
		ProjectConfig:     filepath.Join("."+AppName, "config.json"),
		LocalConfig:       filepath.Join("."+AppName, "config.local.json"),
		DotEnvFiles:       []string{".env"},
		EnvironmentPrefix: "MYDRAWER",
	}
}

// FindConfigFile searches for a configuration file in standard locations
func FindConfigFile() (string, error) {
	paths := GetConfigPaths()

	// Check in order of precedence (reversed for finding)
	checkPaths := []string{
		paths.LocalConfig,
		paths.ProjectConfig,
		paths.UserConfig,
		paths.SystemConfig,
	}

	for _, path := range checkPaths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found")
}
