package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/elee1766/mydrawer/src/aisdk"
	"github.com/elee1766/mydrawer/src/models"
)

const (
	anthropicVersion          = "2023-06-01"
	anthropicDefaultMaxTokens = 4096
)

type anthropicProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ aisdk.Provider = (*anthropicProvider)(nil)

func newAnthropicProvider(apiKey, baseURL string, httpClient *http.Client, logger *slog.Logger) *anthropicProvider {
	return &anthropicProvider{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger.With("provider", models.ProviderAnthropic),
	}
}

func (p *anthropicProvider) ID() string { return models.ProviderAnthropic }

func (p *anthropicProvider) Model(ctx context.Context, modelName string) (aisdk.ModelClient, error) {
	if modelName == "" {
		return nil, fmt.Errorf("anthropic: model name is required")
	}
	return &anthropicModel{provider: p, model: modelName}, nil
}

type anthropicModel struct {
	provider *anthropicProvider
	model    string
}

func (m *anthropicModel) ModelName() string { return m.model }

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicBlock struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicRequest struct {
	Model         string             `json:"model"`
	Messages      []anthropicMessage `json:"messages"`
	System        string             `json:"system,omitempty"`
	MaxTokens     int                `json:"max_tokens"`
	Temperature   *float64           `json:"temperature,omitempty"`
	TopP          *float64           `json:"top_p,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
	Stream        bool               `json:"stream"`
}

func (m *anthropicModel) buildRequest(req *aisdk.ChatCompletionRequest) anthropicRequest {
	areq := anthropicRequest{
		Model:         m.model,
		System:        req.SystemPrompt(),
		MaxTokens:     anthropicDefaultMaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		StopSequences: req.Stop,
		Stream:        true,
	}
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		areq.MaxTokens = *req.MaxTokens
	}

	for _, msg := range req.Messages {
		if msg == nil || msg.Role == aisdk.RoleSystem {
			continue
		}
		am := anthropicMessage{Role: string(msg.Role)}
		if !msg.Content.IsStructured() {
			am.Content = []anthropicBlock{{Type: "text", Text: msg.Content.String()}}
		} else {
			for _, part := range msg.Content.Parts() {
				switch part.Type {
				case aisdk.PartTypeText:
					if part.Text == "" {
						continue
					}
					am.Content = append(am.Content, anthropicBlock{Type: "text", Text: part.Text})
				case aisdk.PartTypeImage:
					mime := part.MimeType
					if mime == "" {
						mime = "image/png"
					}
					am.Content = append(am.Content, anthropicBlock{
						Type:   "image",
						Source: &anthropicSource{Type: "base64", MediaType: mime, Data: part.Image},
					})
				}
			}
		}
		areq.Messages = append(areq.Messages, am)
	}
	return areq
}

func (m *anthropicModel) CreateChatCompletionStream(ctx context.Context, req *aisdk.ChatCompletionRequest) (aisdk.StreamInterface, error) {
	logger := m.provider.logger.With("method", "CreateChatCompletionStream", "model", m.model)

	body, err := json.Marshal(m.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := m.provider.newRequest(ctx, http.MethodPost, "/messages", body)
	if err != nil {
		return nil, err
	}

	logger.Debug("opening stream", "messages", len(req.Messages))
	resp, err := m.provider.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, newAPIError(models.ProviderAnthropic, resp)
	}

	return &anthropicStream{
		body:   resp.Body,
		reader: newSSEReader(resp.Body),
		model:  m.model,
	}, nil
}

// newRequest creates a new HTTP request with the appropriate headers.
func (p *anthropicProvider) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	return req, nil
}

type anthropicEvent struct {
	Type    string `json:"type"`
	Message struct {
		ID    string `json:"id"`
		Model string `json:"model"`
		Usage struct {
			InputTokens int `json:"input_tokens"`
		} `json:"usage"`
	} `json:"message"`
	Delta struct {
		Type       string `json:"type"`
		Text       string `json:"text"`
		StopReason string `json:"stop_reason"`
	} `json:"delta"`
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type anthropicStream struct {
	body        io.ReadCloser
	reader      *sseReader
	id          string
	model       string
	inputTokens int
	done        bool
	closed      bool
}

func (s *anthropicStream) Read() (*aisdk.StreamChunk, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}
	for {
		if s.done {
			return nil, io.EOF
		}
		eventType, data, err := s.reader.ReadEvent()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("anthropic: stream ended before message_stop: %w", io.ErrUnexpectedEOF)
		}
		if err != nil {
			return nil, err
		}

		var ev anthropicEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("anthropic: malformed %s event: %w", eventType, err)
		}
		if ev.Type == "" {
			ev.Type = eventType
		}

		switch ev.Type {
		case "message_start":
			s.id = ev.Message.ID
			if ev.Message.Model != "" {
				s.model = ev.Message.Model
			}
			s.inputTokens = ev.Message.Usage.InputTokens
		case "content_block_delta":
			if ev.Delta.Type != "text_delta" || ev.Delta.Text == "" {
				continue
			}
			return s.chunk(ev.Delta.Text), nil
		case "message_delta":
			c := s.chunk("")
			c.FinishReason = ev.Delta.StopReason
			c.Usage = &aisdk.Usage{
				PromptTokens:     s.inputTokens,
				CompletionTokens: ev.Usage.OutputTokens,
				TotalTokens:      s.inputTokens + ev.Usage.OutputTokens,
			}
			return c, nil
		case "message_stop":
			s.done = true
		case "error":
			return nil, &APIError{
				Provider: models.ProviderAnthropic,
				Type:     ev.Error.Type,
				Message:  ev.Error.Message,
			}
		}
	}
}

func (s *anthropicStream) chunk(delta string) *aisdk.StreamChunk {
	return &aisdk.StreamChunk{
		ID:         s.id,
		Model:      s.model,
		Delta:      delta,
		ReceivedAt: time.Now(),
	}
}

func (s *anthropicStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
