// Package aisdk provides the provider-neutral message, content and streaming
// types shared by the chat store and the provider adapters.
package aisdk

import (
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single provider-bound message.
type Message struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

// Capabilities is the explicit capability record of a model.
type Capabilities struct {
	Image     bool `json:"image"`
	Audio     bool `json:"audio"`
	Tools     bool `json:"tools"`
	WebSearch bool `json:"web_search"`
}

// Attachment describes a file the user attached to a message.
type Attachment struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Type string `json:"type"` // mime type
	Size int64  `json:"size"`
}

// ChatCompletionRequest is a streaming completion request.
type ChatCompletionRequest struct {
	Model       string     `json:"model"`
	Messages    []*Message `json:"messages"`
	Temperature *float64   `json:"temperature,omitempty"`
	MaxTokens   *int       `json:"max_tokens,omitempty"`
	TopP        *float64   `json:"top_p,omitempty"`
	Stop        []string   `json:"stop,omitempty"`
}

// SystemPrompt joins the text of every system message in the request.
func (r *ChatCompletionRequest) SystemPrompt() string {
	var out string
	for _, m := range r.Messages {
		if m == nil || m.Role != RoleSystem {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += m.Content.PlainText()
	}
	return out
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamChunk is a single increment of a streamed completion.
type StreamChunk struct {
	ID           string    `json:"id,omitempty"`
	Model        string    `json:"model,omitempty"`
	Delta        string    `json:"delta"`
	FinishReason string    `json:"finish_reason,omitempty"`
	Usage        *Usage    `json:"usage,omitempty"`
	ReceivedAt   time.Time `json:"received_at"`
}

// StreamInterface defines the interface for reading streaming responses.
type StreamInterface interface {
	// Read reads the next chunk from the stream. It returns io.EOF once the
	// stream is exhausted.
	Read() (*StreamChunk, error)

	// Close closes the stream.
	Close() error
}
