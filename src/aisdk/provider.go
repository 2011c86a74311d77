package aisdk

import (
	"context"
)

// Provider represents an AI provider bound to a credential.
type Provider interface {
	ID() string
	Model(ctx context.Context, modelName string) (ModelClient, error)
}

// ModelClient represents a client for a specific model
type ModelClient interface {
	CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest) (StreamInterface, error)
	ModelName() string
}
