// Package settings persists user preferences (provider credentials, custom
// models, the model picker selection) as JSON values in the settings table.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/elee1766/mydrawer/src/models"
	"github.com/elee1766/mydrawer/src/storage"
	"github.com/go-playground/validator/v10"
)

// Setting keys.
const (
	KeyAIConfigurations = "ai_configurations"
	KeyCustomModels     = "custom_models"
	KeyEnabledModels    = "enabled_models"
	KeyActiveProvider   = "active_provider"
)

const customKeyPlaceholder = "not-needed"

var (
	ErrMissingAPIKey        = errors.New("API key is missing")
	ErrUnknownProvider      = errors.New("unknown provider")
	ErrDuplicateCustomModel = errors.New("custom model id already exists")
	ErrCustomModelNotFound  = errors.New("custom model not found")
)

// MissingKeyError names the provider whose key could not be found.
type MissingKeyError struct {
	Provider string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("API key for %s is missing", e.Provider)
}

// Is matches ErrMissingAPIKey.
func (e *MissingKeyError) Is(target error) bool {
	return target == ErrMissingAPIKey
}

// Parameters are sampling overrides for one provider.
type Parameters struct {
	Temperature *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   *int     `json:"maxTokens,omitempty" validate:"omitempty,gt=0"`
	TopP        *float64 `json:"topP,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// ProviderSettings is the stored configuration of one provider.
type ProviderSettings struct {
	APIKey       string      `json:"apiKey,omitempty"`
	Model        string      `json:"model,omitempty"`
	Parameters   *Parameters `json:"parameters,omitempty"`
	SystemPrompt string      `json:"systemPrompt,omitempty"`
	BaseURL      string      `json:"baseUrl,omitempty" validate:"omitempty,url"`
}

// Store is the persistence the manager needs.
type Store interface {
	GetSetting(ctx context.Context, key string) (*storage.Setting, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Manager reads and writes settings.
type Manager struct {
	store        Store
	validate     *validator.Validate
	fallbackKeys map[string]string
	logger       *slog.Logger
}

// NewManager creates a manager. fallbackKeys are provider keys from the
// config file or environment, consulted after stored settings.
func NewManager(store Store, fallbackKeys map[string]string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:        store,
		validate:     validator.New(),
		fallbackKeys: fallbackKeys,
		logger:       logger.With("component", "settings"),
	}
}

func (m *Manager) load(ctx context.Context, key string, dst any) (bool, error) {
	s, err := m.store.GetSetting(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	if s == nil || s.Value == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(s.Value), dst); err != nil {
		return false, fmt.Errorf("failed to decode setting %s: %w", key, err)
	}
	return true, nil
}

func (m *Manager) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", key, err)
	}
	if err := m.store.SetSetting(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	m.logger.Debug("setting saved", "key", key)
	return nil
}

// ProviderConfigs returns every stored provider configuration.
func (m *Manager) ProviderConfigs(ctx context.Context) (map[string]ProviderSettings, error) {
	configs := map[string]ProviderSettings{}
	if _, err := m.load(ctx, KeyAIConfigurations, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

// ProviderConfig returns the configuration of provider (zero value if unset).
func (m *Manager) ProviderConfig(ctx context.Context, provider string) (ProviderSettings, error) {
	configs, err := m.ProviderConfigs(ctx)
	if err != nil {
		return ProviderSettings{}, err
	}
	return configs[provider], nil
}

// SetProviderConfig validates and stores the configuration of provider.
func (m *Manager) SetProviderConfig(ctx context.Context, provider string, cfg ProviderSettings) error {
	if !slices.Contains(models.Providers, provider) {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	if err := m.validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid %s settings: %w", provider, err)
	}
	configs, err := m.ProviderConfigs(ctx)
	if err != nil {
		return err
	}
	configs[provider] = cfg
	return m.save(ctx, KeyAIConfigurations, configs)
}

// SetAPIKey updates only the key of provider.
func (m *Manager) SetAPIKey(ctx context.Context, provider, apiKey string) error {
	cfg, err := m.ProviderConfig(ctx, provider)
	if err != nil {
		return err
	}
	cfg.APIKey = apiKey
	return m.SetProviderConfig(ctx, provider, cfg)
}

// ActiveProvider returns the provider selected in settings, openai by default.
func (m *Manager) ActiveProvider(ctx context.Context) (string, error) {
	var p string
	found, err := m.load(ctx, KeyActiveProvider, &p)
	if err != nil {
		return "", err
	}
	if !found || p == "" {
		return models.ProviderOpenAI, nil
	}
	return p, nil
}

func (m *Manager) SetActiveProvider(ctx context.Context, provider string) error {
	if !slices.Contains(models.Providers, provider) {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	return m.save(ctx, KeyActiveProvider, provider)
}

// CustomModels returns the user's custom models.
func (m *Manager) CustomModels(ctx context.Context) ([]models.CustomModel, error) {
	var out []models.CustomModel
	if _, err := m.load(ctx, KeyCustomModels, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddCustomModel validates cm and appends it.
func (m *Manager) AddCustomModel(ctx context.Context, cm models.CustomModel) error {
	if err := m.validate.Struct(cm); err != nil {
		return fmt.Errorf("invalid custom model: %w", err)
	}
	list, err := m.CustomModels(ctx)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if existing.ID == cm.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateCustomModel, cm.ID)
		}
	}
	return m.save(ctx, KeyCustomModels, append(list, cm))
}

// UpdateCustomModel replaces the custom model with the same id.
func (m *Manager) UpdateCustomModel(ctx context.Context, cm models.CustomModel) error {
	if err := m.validate.Struct(cm); err != nil {
		return fmt.Errorf("invalid custom model: %w", err)
	}
	list, err := m.CustomModels(ctx)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(list, func(c models.CustomModel) bool { return c.ID == cm.ID })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrCustomModelNotFound, cm.ID)
	}
	list[i] = cm
	return m.save(ctx, KeyCustomModels, list)
}

func (m *Manager) DeleteCustomModel(ctx context.Context, id string) error {
	list, err := m.CustomModels(ctx)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(list, func(c models.CustomModel) bool { return c.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrCustomModelNotFound, id)
	}
	return m.save(ctx, KeyCustomModels, slices.Delete(list, i, i+1))
}

// EnabledModels returns the model picker selection.
func (m *Manager) EnabledModels(ctx context.Context) ([]string, error) {
	var ids []string
	found, err := m.load(ctx, KeyEnabledModels, &ids)
	if err != nil {
		return nil, err
	}
	if !found {
		return slices.Clone(models.DefaultEnabledModels), nil
	}
	return ids, nil
}

func (m *Manager) SetEnabledModels(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	return m.save(ctx, KeyEnabledModels, ids)
}

// ToggleModel flips id in the enabled list and returns the new list.
func (m *Manager) ToggleModel(ctx context.Context, id string) ([]string, error) {
	ids, err := m.EnabledModels(ctx)
	if err != nil {
		return nil, err
	}
	if i := slices.Index(ids, id); i >= 0 {
		ids = slices.Delete(ids, i, i+1)
	} else {
		ids = append(ids, id)
	}
	if err := m.SetEnabledModels(ctx, ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// APIKey resolves the credential for res: the custom model's own key, the
// stored provider key, then the fallback keys. Custom endpoints without any
// key get a placeholder.
func (m *Manager) APIKey(ctx context.Context, res models.Resolution) (string, error) {
	provider := res.Model.Provider
	if res.Custom != nil && res.Custom.APIKey != "" {
		return res.Custom.APIKey, nil
	}
	cfg, err := m.ProviderConfig(ctx, provider)
	if err != nil {
		return "", err
	}
	if cfg.APIKey != "" {
		return cfg.APIKey, nil
	}
	if k := m.fallbackKeys[provider]; k != "" {
		return k, nil
	}
	if provider == models.ProviderCustom {
		return customKeyPlaceholder, nil
	}
	return "", &MissingKeyError{Provider: provider}
}
