package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/elee1766/mydrawer/src/aisdk"
	"github.com/elee1766/mydrawer/src/models"
	openai "github.com/sashabaranov/go-openai"
)

// openAIProvider serves openai, groq, mistral and custom endpoints, which all
// speak the OpenAI chat completions protocol.
type openAIProvider struct {
	id     string
	client *openai.Client
	logger *slog.Logger
}

var _ aisdk.Provider = (*openAIProvider)(nil)

func newOpenAIProvider(id, apiKey, baseURL string, httpClient *http.Client, logger *slog.Logger) *openAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = httpClient
	return &openAIProvider{
		id:     id,
		client: openai.NewClientWithConfig(cfg),
		logger: logger.With("provider", id),
	}
}

func (p *openAIProvider) ID() string { return p.id }

func (p *openAIProvider) Model(ctx context.Context, modelName string) (aisdk.ModelClient, error) {
	if modelName == "" {
		return nil, fmt.Errorf("%s: model name is required", p.id)
	}
	return &openAIModel{provider: p, model: modelName}, nil
}

type openAIModel struct {
	provider *openAIProvider
	model    string
}

func (m *openAIModel) ModelName() string { return m.model }

func (m *openAIModel) CreateChatCompletionStream(ctx context.Context, req *aisdk.ChatCompletionRequest) (aisdk.StreamInterface, error) {
	logger := m.provider.logger.With("method", "CreateChatCompletionStream", "model", m.model)

	oreq := openai.ChatCompletionRequest{
		Model:    m.model,
		Messages: toOpenAIMessages(req.Messages),
		Stream:   true,
		Stop:     req.Stop,
	}
	if req.Temperature != nil {
		oreq.Temperature = float32(*req.Temperature)
	}
	if req.TopP != nil {
		oreq.TopP = float32(*req.TopP)
	}
	if req.MaxTokens != nil {
		if m.provider.id == models.ProviderOpenAI {
			oreq.MaxCompletionTokens = *req.MaxTokens
		} else {
			oreq.MaxTokens = *req.MaxTokens
		}
	}
	if m.provider.id == models.ProviderOpenAI {
		oreq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}

	logger.Debug("opening stream", "messages", len(oreq.Messages))
	stream, err := m.provider.client.CreateChatCompletionStream(ctx, oreq)
	if err != nil {
		return nil, convertOpenAIError(m.provider.id, err)
	}
	return &openAIStream{stream: stream, provider: m.provider.id}, nil
}

func toOpenAIMessages(msgs []*aisdk.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		om := openai.ChatCompletionMessage{Role: string(msg.Role)}
		if !msg.Content.IsStructured() {
			om.Content = msg.Content.String()
			out = append(out, om)
			continue
		}
		for _, part := range msg.Content.Parts() {
			switch part.Type {
			case aisdk.PartTypeText:
				om.MultiContent = append(om.MultiContent, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: part.Text,
				})
			case aisdk.PartTypeImage:
				om.MultiContent = append(om.MultiContent, openai.ChatMessagePart{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: part.DataURL()},
				})
			}
		}
		out = append(out, om)
	}
	return out
}

type openAIStream struct {
	stream   *openai.ChatCompletionStream
	provider string
	closed   bool
}

func (s *openAIStream) Read() (*aisdk.StreamChunk, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}
	resp, err := s.stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, convertOpenAIError(s.provider, err)
	}

	chunk := &aisdk.StreamChunk{
		ID:         resp.ID,
		Model:      resp.Model,
		ReceivedAt: time.Now(),
	}
	if len(resp.Choices) > 0 {
		chunk.Delta = resp.Choices[0].Delta.Content
		chunk.FinishReason = string(resp.Choices[0].FinishReason)
	}
	if resp.Usage != nil {
		chunk.Usage = &aisdk.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return chunk, nil
}

func (s *openAIStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.stream.Close()
	return nil
}

// convertOpenAIError maps go-openai errors onto *APIError.
func convertOpenAIError(provider string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if apiErr.Code != nil {
			code = fmt.Sprint(apiErr.Code)
		}
		return &APIError{
			Provider:   provider,
			StatusCode: apiErr.HTTPStatusCode,
			Type:       apiErr.Type,
			Message:    apiErr.Message,
			Code:       code,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &APIError{
			Provider:   provider,
			StatusCode: reqErr.HTTPStatusCode,
			Message:    msg,
		}
	}
	return err
}
