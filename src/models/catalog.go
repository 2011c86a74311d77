package models

import "github.com/elee1766/mydrawer/src/aisdk"

var (
	full   = aisdk.Capabilities{Image: true, Audio: true, Tools: true}
	vision = aisdk.Capabilities{Image: true, Tools: true}
	tools  = aisdk.Capabilities{Tools: true}
	gemini = aisdk.Capabilities{Image: true, Audio: true, Tools: true, WebSearch: true}
)

// Catalog is the built-in model list.
var Catalog = []Descriptor{
	{ID: "gpt-5.3", Name: "GPT-5.3", Provider: ProviderOpenAI, Capabilities: full},
	{ID: "gpt-5.2", Name: "GPT-5.2", Provider: ProviderOpenAI, Capabilities: full},
	{ID: "gpt-5-mini", Name: "GPT-5 Mini", Provider: ProviderOpenAI, Capabilities: full},
	{ID: "gpt-4o", Name: "GPT-4o", Provider: ProviderOpenAI, Capabilities: full},
	{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Provider: ProviderOpenAI, Capabilities: full},

	{ID: "claude-opus-4-6", Name: "Claude Opus 4.6", Provider: ProviderAnthropic, Capabilities: vision},
	{ID: "claude-sonnet-4-5-20250929", Name: "Claude Sonnet 4.5", Provider: ProviderAnthropic, Capabilities: vision},
	{ID: "claude-haiku-4-5-20251001", Name: "Claude Haiku 4.5", Provider: ProviderAnthropic, Capabilities: tools},
	{ID: "claude-opus-4-1", Name: "Claude Opus 4.1", Provider: ProviderAnthropic, Capabilities: vision},

	{ID: "gemini-3-pro-preview", Name: "Gemini 3 Pro", Provider: ProviderGoogle, Capabilities: gemini},
	{ID: "gemini-3-flash-preview", Name: "Gemini 3 Flash", Provider: ProviderGoogle, Capabilities: gemini},
	{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", Provider: ProviderGoogle, Capabilities: gemini},
	{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", Provider: ProviderGoogle, Capabilities: gemini},

	{ID: "llama-3.3-70b-versatile", Name: "Llama 3.3 70B", Provider: ProviderGroq, Capabilities: tools},
	{ID: "llama-3.1-8b-instant", Name: "Llama 3.1 8B", Provider: ProviderGroq, Capabilities: tools},
	{ID: "qwen/qwen3-32b", Name: "Qwen 3 32B", Provider: ProviderGroq, Capabilities: tools},
	{ID: "moonshotai/kimi-k2-instruct-0905", Name: "Kimi K2 Instruct", Provider: ProviderGroq, Capabilities: tools},
	{ID: "openai/gpt-oss-120b", Name: "GPT OSS 120B", Provider: ProviderGroq, Capabilities: tools},
	{ID: "openai/gpt-oss-20b", Name: "GPT OSS 20B", Provider: ProviderGroq, Capabilities: tools},

	{ID: "mistral-large-latest", Name: "Mistral Large 3", Provider: ProviderMistral, Capabilities: vision},
	{ID: "mistral-medium-latest", Name: "Mistral Medium 3.1", Provider: ProviderMistral, Capabilities: vision},
	{ID: "mistral-small-latest", Name: "Mistral Small 3.2", Provider: ProviderMistral, Capabilities: tools},
	{ID: "ministral-3-latest", Name: "Ministral 3", Provider: ProviderMistral, Capabilities: vision},
	{ID: "codestral-latest", Name: "Codestral 25.01", Provider: ProviderMistral, Capabilities: tools},
	{ID: "pixtral-large-latest", Name: "Pixtral Large", Provider: ProviderMistral, Capabilities: vision},
}

// DefaultEnabledModels is the model picker selection for a fresh install.
var DefaultEnabledModels = []string{
	"gpt-5.2", "gpt-5-mini", "gpt-4o",
	"claude-opus-4-6", "claude-sonnet-4-5-20250929",
	"gemini-3-pro-preview", "gemini-2.5-flash",
	"mistral-large-latest", "mistral-small-latest",
	"llama-3.3-70b-versatile", "llama-3.1-8b-instant",
}
