package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/elee1766/mydrawer/src/models"
	"github.com/elee1766/mydrawer/src/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, fallback map[string]string) *Manager {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewManager(storage.NewRepository(db), fallback, nil)
}

func TestProviderConfig(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, nil)

	cfg, err := m.ProviderConfig(ctx, models.ProviderOpenAI)
	require.NoError(t, err)
	assert.Empty(t, cfg.APIKey)

	temp := 0.3
	require.NoError(t, m.SetProviderConfig(ctx, models.ProviderOpenAI, ProviderSettings{
		APIKey:     "sk-1",
		Parameters: &Parameters{Temperature: &temp},
	}))
	require.NoError(t, m.SetAPIKey(ctx, models.ProviderGroq, "gsk"))

	cfg, err = m.ProviderConfig(ctx, models.ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, "sk-1", cfg.APIKey)
	require.NotNil(t, cfg.Parameters)
	assert.InDelta(t, 0.3, *cfg.Parameters.Temperature, 1e-9)

	all, err := m.ProviderConfigs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	err = m.SetProviderConfig(ctx, "cohere", ProviderSettings{})
	assert.ErrorIs(t, err, ErrUnknownProvider)

	bad := 3.0
	err = m.SetProviderConfig(ctx, models.ProviderOpenAI, ProviderSettings{Parameters: &Parameters{Temperature: &bad}})
	assert.Error(t, err)

	err = m.SetProviderConfig(ctx, models.ProviderCustom, ProviderSettings{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestActiveProvider(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, nil)

	p, err := m.ActiveProvider(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ProviderOpenAI, p)

	require.NoError(t, m.SetActiveProvider(ctx, models.ProviderMistral))
	p, err = m.ActiveProvider(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ProviderMistral, p)

	assert.ErrorIs(t, m.SetActiveProvider(ctx, "nope"), ErrUnknownProvider)
}

func TestCustomModels(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, nil)

	cm := models.CustomModel{ID: "lm", Name: "LM Studio", BaseURL: "http://localhost:1234/v1", ModelID: "qwen"}
	require.NoError(t, m.AddCustomModel(ctx, cm))
	assert.ErrorIs(t, m.AddCustomModel(ctx, cm), ErrDuplicateCustomModel)
	assert.Error(t, m.AddCustomModel(ctx, models.CustomModel{ID: "x", Name: "x", BaseURL: "nope", ModelID: "y"}))

	cm.ModelID = "llama"
	require.NoError(t, m.UpdateCustomModel(ctx, cm))
	list, err := m.CustomModels(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "llama", list[0].ModelID)

	assert.ErrorIs(t, m.UpdateCustomModel(ctx, models.CustomModel{ID: "ghost", Name: "g", BaseURL: "http://a", ModelID: "m"}), ErrCustomModelNotFound)
	require.NoError(t, m.DeleteCustomModel(ctx, "lm"))
	assert.ErrorIs(t, m.DeleteCustomModel(ctx, "lm"), ErrCustomModelNotFound)

	list, err = m.CustomModels(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEnabledModels(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, nil)

	ids, err := m.EnabledModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultEnabledModels, ids)

	ids, err = m.ToggleModel(ctx, "gpt-4o")
	require.NoError(t, err)
	assert.NotContains(t, ids, "gpt-4o")

	ids, err = m.ToggleModel(ctx, "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", ids[len(ids)-1])

	require.NoError(t, m.SetEnabledModels(ctx, nil))
	ids, err = m.EnabledModels(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NotNil(t, ids)
}

func TestAPIKeyResolution(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, map[string]string{models.ProviderGoogle: "env-google"})
	reg := models.Default()

	gpt, err := reg.Resolve("gpt-4o", nil)
	require.NoError(t, err)
	_, err = m.APIKey(ctx, gpt)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.EqualError(t, err, "API key for openai is missing")

	require.NoError(t, m.SetAPIKey(ctx, models.ProviderOpenAI, "stored"))
	key, err := m.APIKey(ctx, gpt)
	require.NoError(t, err)
	assert.Equal(t, "stored", key)

	gem, err := reg.Resolve("gemini-2.5-flash", nil)
	require.NoError(t, err)
	key, err = m.APIKey(ctx, gem)
	require.NoError(t, err)
	assert.Equal(t, "env-google", key)

	custom := []models.CustomModel{
		{ID: "withkey", Name: "a", BaseURL: "http://a", APIKey: "own", ModelID: "m"},
		{ID: "nokey", Name: "b", BaseURL: "http://b", ModelID: "m"},
	}
	res, err := reg.Resolve("withkey", custom)
	require.NoError(t, err)
	key, err = m.APIKey(ctx, res)
	require.NoError(t, err)
	assert.Equal(t, "own", key)

	res, err = reg.Resolve("nokey", custom)
	require.NoError(t, err)
	key, err = m.APIKey(ctx, res)
	require.NoError(t, err)
	assert.Equal(t, "not-needed", key)
}
