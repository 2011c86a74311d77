// Package providers maps provider ids to streaming chat clients. Every client
// shares the factory's HTTP client and therefore its host transport.
package providers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elee1766/mydrawer/src/aisdk"
	"github.com/elee1766/mydrawer/src/models"
)

// Default upstream endpoints.
const (
	DefaultOpenAIBaseURL    = "https://api.openai.com/v1"
	DefaultGroqBaseURL      = "https://api.groq.com/openai/v1"
	DefaultMistralBaseURL   = "https://api.mistral.ai/v1"
	DefaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	DefaultGoogleBaseURL    = "https://generativelanguage.googleapis.com"

	customKeyPlaceholder = "not-needed"
	defaultTimeout       = 5 * time.Minute
)

// Config holds configuration for the provider factory
type Config struct {
	// HTTPClient is shared by every provider. When nil a client around
	// NewTransport(nil, nil, Logger) is built.
	HTTPClient *http.Client
	Logger     *slog.Logger
	// BaseURLs overrides the default endpoint per provider id.
	BaseURLs map[string]string
	// Headers are extra request headers per provider id.
	Headers map[string]map[string]string
}

// Options are the per-call provider options.
type Options struct {
	BaseURL string
	Headers map[string]string
}

// Factory builds aisdk.Provider values.
type Factory struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURLs   map[string]string
	headers    map[string]map[string]string
	errors     *ErrorHandler
}

// NewFactory creates a factory.
func NewFactory(config Config) *Factory {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: NewTransport(nil, nil, logger),
			Timeout:   defaultTimeout,
		}
	}
	return &Factory{
		httpClient: httpClient,
		logger:     logger.With("component", "provider_factory"),
		baseURLs:   config.BaseURLs,
		headers:    config.Headers,
		errors:     NewErrorHandler(logger),
	}
}

// HTTPClient returns the shared client.
func (f *Factory) HTTPClient() *http.Client {
	return f.httpClient
}

// Get returns the provider for providerID bound to apiKey.
func (f *Factory) Get(providerID, apiKey string, opts Options) (aisdk.Provider, error) {
	p, err := f.get(providerID, apiKey, opts)
	if err != nil {
		return nil, f.errors.Handle(err, "get_provider", slog.String("provider", providerID))
	}
	f.logger.Debug("provider ready", "provider", providerID)
	return p, nil
}

func (f *Factory) get(providerID, apiKey string, opts Options) (aisdk.Provider, error) {
	if providerID != models.ProviderCustom && !knownProvider(providerID) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, providerID)
	}
	if providerID != models.ProviderCustom && apiKey == "" {
		return nil, fmt.Errorf("%w for %s", ErrNoAPIKey, providerID)
	}

	headers := make(map[string]string, len(f.headers[providerID])+len(opts.Headers))
	for k, v := range f.headers[providerID] {
		headers[k] = v
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}
	client := withHeaders(f.httpClient, headers)

	switch providerID {
	case models.ProviderOpenAI:
		return newOpenAIProvider(providerID, apiKey, f.baseURL(providerID, opts.BaseURL, DefaultOpenAIBaseURL), client, f.logger), nil
	case models.ProviderGroq:
		return newOpenAIProvider(providerID, apiKey, f.baseURL(providerID, opts.BaseURL, DefaultGroqBaseURL), client, f.logger), nil
	case models.ProviderMistral:
		return newOpenAIProvider(providerID, apiKey, f.baseURL(providerID, opts.BaseURL, DefaultMistralBaseURL), client, f.logger), nil
	case models.ProviderAnthropic:
		return newAnthropicProvider(apiKey, f.baseURL(providerID, opts.BaseURL, DefaultAnthropicBaseURL), client, f.logger), nil
	case models.ProviderGoogle:
		return newGoogleProvider(apiKey, f.baseURL(providerID, opts.BaseURL, DefaultGoogleBaseURL), client, f.logger), nil
	case models.ProviderCustom:
		if strings.TrimSpace(opts.BaseURL) == "" {
			return nil, ErrBaseURLRequired
		}
		if apiKey == "" {
			apiKey = customKeyPlaceholder
		}
		return newOpenAIProvider(providerID, apiKey, NormalizeBaseURL(opts.BaseURL), client, f.logger), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, providerID)
}

// baseURL picks the per-call override, then the configured endpoint, then
// fallback.
func (f *Factory) baseURL(providerID, override, fallback string) string {
	if strings.TrimSpace(override) != "" {
		return NormalizeBaseURL(override)
	}
	if u, ok := f.baseURLs[providerID]; ok && u != "" {
		return strings.TrimRight(u, "/")
	}
	return fallback
}

func knownProvider(id string) bool {
	for _, p := range models.Providers {
		if p == id {
			return true
		}
	}
	return false
}

// NormalizeBaseURL trims trailing slashes and a trailing /chat/completions,
// so that both the API root and the full endpoint URL are accepted.
func NormalizeBaseURL(u string) string {
	u = strings.TrimRight(strings.TrimSpace(u), "/")
	u = strings.TrimSuffix(u, "/chat/completions")
	return strings.TrimRight(u, "/")
}
