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
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type googleProvider struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ aisdk.Provider = (*googleProvider)(nil)

func newGoogleProvider(apiKey, endpoint string, httpClient *http.Client, logger *slog.Logger) *googleProvider {
	// option.WithHTTPClient bypasses WithAPIKey, so the key travels as a header.
	return &googleProvider{
		apiKey:     apiKey,
		endpoint:   endpoint,
		httpClient: withHeaders(httpClient, map[string]string{"x-goog-api-key": apiKey}),
		logger:     logger.With("provider", models.ProviderGoogle),
	}
}

func (p *googleProvider) ID() string { return models.ProviderGoogle }

func (p *googleProvider) Model(ctx context.Context, modelName string) (aisdk.ModelClient, error) {
	if modelName == "" {
		return nil, fmt.Errorf("google: model name is required")
	}
	return &googleModel{provider: p, model: modelName}, nil
}

type googleModel struct {
	provider *googleProvider
	model    string
}

func (m *googleModel) ModelName() string { return m.model }

func (m *googleModel) CreateChatCompletionStream(ctx context.Context, req *aisdk.ChatCompletionRequest) (aisdk.StreamInterface, error) {
	logger := m.provider.logger.With("method", "CreateChatCompletionStream", "model", m.model)

	history, last, err := toGenaiHistory(req.Messages)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	client, err := genai.NewClient(streamCtx,
		option.WithAPIKey(m.provider.apiKey),
		option.WithHTTPClient(m.provider.httpClient),
		option.WithEndpoint(m.provider.endpoint),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	gm := client.GenerativeModel(m.model)
	if system := req.SystemPrompt(); system != "" {
		gm.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}
	if req.Temperature != nil {
		gm.SetTemperature(float32(*req.Temperature))
	}
	if req.TopP != nil {
		gm.SetTopP(float32(*req.TopP))
	}
	if req.MaxTokens != nil {
		gm.SetMaxOutputTokens(int32(*req.MaxTokens))
	}
	if len(req.Stop) > 0 {
		gm.StopSequences = req.Stop
	}

	cs := gm.StartChat()
	cs.History = history

	logger.Debug("opening stream", "history", len(history))
	return &googleStream{
		iter:   cs.SendMessageStream(streamCtx, last...),
		client: client,
		cancel: cancel,
		model:  m.model,
	}, nil
}

// toGenaiHistory splits messages into chat history and the parts of the
// final message. System messages are skipped; they travel as the system
// instruction.
func toGenaiHistory(msgs []*aisdk.Message) ([]*genai.Content, []genai.Part, error) {
	var contents []*genai.Content
	for _, msg := range msgs {
		if msg == nil || msg.Role == aisdk.RoleSystem {
			continue
		}
		role := "user"
		if msg.Role == aisdk.RoleAssistant {
			role = "model"
		}
		parts, err := toGenaiParts(msg.Content)
		if err != nil {
			return nil, nil, err
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	if len(contents) == 0 {
		return nil, nil, errors.New("google: no messages to send")
	}
	last := contents[len(contents)-1]
	return contents[:len(contents)-1], last.Parts, nil
}

func toGenaiParts(c aisdk.Content) ([]genai.Part, error) {
	if !c.IsStructured() {
		if c.String() == "" {
			return nil, nil
		}
		return []genai.Part{genai.Text(c.String())}, nil
	}
	var parts []genai.Part
	for _, p := range c.Parts() {
		switch p.Type {
		case aisdk.PartTypeText:
			parts = append(parts, genai.Text(p.Text))
		case aisdk.PartTypeImage:
			data, err := p.ImageBytes()
			if err != nil {
				return nil, fmt.Errorf("google: decode image: %w", err)
			}
			mime := p.MimeType
			if mime == "" {
				mime = "image/png"
			}
			parts = append(parts, genai.Blob{MIMEType: mime, Data: data})
		}
	}
	return parts, nil
}

type googleStream struct {
	iter   *genai.GenerateContentResponseIterator
	client *genai.Client
	cancel context.CancelFunc
	model  string
	closed bool
}

func (s *googleStream) Read() (*aisdk.StreamChunk, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}
	resp, err := s.iter.Next()
	if err != nil {
		if errors.Is(err, iterator.Done) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("google stream: %w", err)
	}

	chunk := &aisdk.StreamChunk{
		Model:      s.model,
		ReceivedAt: time.Now(),
	}
	if len(resp.Candidates) > 0 {
		cand := resp.Candidates[0]
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					chunk.Delta += string(t)
				}
			}
		}
		if cand.FinishReason != genai.FinishReasonUnspecified {
			chunk.FinishReason = cand.FinishReason.String()
		}
	}
	if resp.UsageMetadata != nil {
		chunk.Usage = &aisdk.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return chunk, nil
}

func (s *googleStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	return s.client.Close()
}
