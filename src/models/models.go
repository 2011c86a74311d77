// Package models holds the static model catalog and resolves model ids,
// including user-defined custom endpoints.
package models

import (
	"errors"
	"fmt"

	"github.com/elee1766/mydrawer/src/aisdk"
)

// Provider identifiers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderMistral   = "mistral"
	ProviderGroq      = "groq"
	ProviderCustom    = "custom"
)

// Providers lists every provider id with a built-in adapter.
var Providers = []string{
	ProviderOpenAI,
	ProviderAnthropic,
	ProviderGoogle,
	ProviderMistral,
	ProviderGroq,
	ProviderCustom,
}

// DefaultModelID is selected when nothing else is configured.
const DefaultModelID = "gpt-5.2"

// ErrModelNotFound is returned when an id is neither in the catalog nor
// among the custom models.
var ErrModelNotFound = errors.New("model not found")

// Descriptor describes one selectable model.
type Descriptor struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Provider     string             `json:"provider"`
	Capabilities aisdk.Capabilities `json:"capabilities"`
}

// CustomModel is a user-defined OpenAI-compatible endpoint.
type CustomModel struct {
	ID      string `json:"id" validate:"required"`
	Name    string `json:"name" validate:"required"`
	BaseURL string `json:"baseUrl" validate:"required,url"`
	APIKey  string `json:"apiKey,omitempty"`
	ModelID string `json:"modelId" validate:"required"`
}

// Descriptor synthesizes the descriptor of a custom model. Capabilities are
// unknown and therefore all false.
func (c CustomModel) Descriptor() Descriptor {
	name := c.Name
	if name == "" {
		name = c.ID
	}
	return Descriptor{
		ID:       c.ID,
		Name:     name,
		Provider: ProviderCustom,
	}
}

// Resolution is the outcome of resolving a model id.
type Resolution struct {
	Model  Descriptor
	Custom *CustomModel
}

// Upstream is the model string sent to the provider.
func (r Resolution) Upstream() string {
	if r.Custom != nil && r.Custom.ModelID != "" {
		return r.Custom.ModelID
	}
	return r.Model.ID
}

// Registry is an immutable model catalog.
type Registry struct {
	models []Descriptor
	byID   map[string]int
}

// NewRegistry builds a registry over the given catalog. Later duplicates of an
// id are ignored.
func NewRegistry(catalog []Descriptor) *Registry {
	r := &Registry{
		models: make([]Descriptor, 0, len(catalog)),
		byID:   make(map[string]int, len(catalog)),
	}
	for _, m := range catalog {
		if _, ok := r.byID[m.ID]; ok {
			continue
		}
		r.byID[m.ID] = len(r.models)
		r.models = append(r.models, m)
	}
	return r
}

// Default returns a registry over the built-in catalog.
func Default() *Registry {
	return NewRegistry(Catalog)
}

// Models returns the catalog in display order.
func (r *Registry) Models() []Descriptor {
	out := make([]Descriptor, len(r.models))
	copy(out, r.models)
	return out
}

// ByProvider returns the catalog entries owned by provider.
func (r *Registry) ByProvider(provider string) []Descriptor {
	var out []Descriptor
	for _, m := range r.models {
		if m.Provider == provider {
			out = append(out, m)
		}
	}
	return out
}

// Lookup finds id in the static catalog only.
func (r *Registry) Lookup(id string) (Descriptor, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Descriptor{}, false
	}
	return r.models[i], true
}

// Resolve looks id up in the catalog, then among custom.
func (r *Registry) Resolve(id string, custom []CustomModel) (Resolution, error) {
	if m, ok := r.Lookup(id); ok {
		return Resolution{Model: m}, nil
	}
	for i := range custom {
		if custom[i].ID == id {
			cm := custom[i]
			return Resolution{Model: cm.Descriptor(), Custom: &cm}, nil
		}
	}
	return Resolution{}, fmt.Errorf("%w: %s", ErrModelNotFound, id)
}
