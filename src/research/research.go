// Package research fetches a web page and answers a question about it with
// a chat model.
package research

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/elee1766/mydrawer/src/aisdk"
	"github.com/elee1766/mydrawer/src/models"
	"github.com/elee1766/mydrawer/src/providers"
)

const (
	// MinContentChars is the shortest page accepted as content.
	MinContentChars = 50
	// MaxContentChars caps the page text placed in the prompt.
	MaxContentChars = 100000

	maxPageBytes   = 5 * 1024 * 1024
	defaultTimeout = 30 * time.Second
	userAgent      = "mydrawer/1.0"
)

var (
	ErrInvalidURL = errors.New("invalid URL provided")
	ErrNoContent  = errors.New("failed to retrieve meaningful content from the URL")
)

const systemPromptTemplate = `You are a helpful research assistant.
You have been provided with the text content of a webpage located at: %s

--- START OF WEBPAGE CONTENT ---
%s
--- END OF WEBPAGE CONTENT ---

Answer the user's request based PRIMARILY on the content provided above.
If the answer is not in the content, state that clearly.
`

// Request is one research question.
type Request struct {
	URL     string
	Prompt  string
	ModelID string
}

// Credentials resolves custom models and API keys.
type Credentials interface {
	CustomModels(ctx context.Context) ([]models.CustomModel, error)
	APIKey(ctx context.Context, res models.Resolution) (string, error)
}

// ProviderFactory builds providers from credentials.
type ProviderFactory interface {
	Get(providerID, apiKey string, opts providers.Options) (aisdk.Provider, error)
}

type Config struct {
	HTTPClient  *http.Client
	Registry    *models.Registry
	Credentials Credentials
	Providers   ProviderFactory
	Logger      *slog.Logger
}

// Service answers questions about web pages.
type Service struct {
	client      *http.Client
	registry    *models.Registry
	credentials Credentials
	providers   ProviderFactory
	logger      *slog.Logger
}

func New(config Config) *Service {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	registry := config.Registry
	if registry == nil {
		registry = models.Default()
	}
	return &Service{
		client:      client,
		registry:    registry,
		credentials: config.Credentials,
		providers:   config.Providers,
		logger:      logger.With("component", "research"),
	}
}

// Analyze fetches req.URL and streams the model's answer to req.Prompt.
// Every delta is passed to onToken; the full answer is returned.
func (s *Service) Analyze(ctx context.Context, req Request, onToken func(string)) (string, error) {
	content, err := s.Fetch(ctx, req.URL)
	if err != nil {
		return "", err
	}

	custom, err := s.credentials.CustomModels(ctx)
	if err != nil {
		return "", err
	}
	res, err := s.registry.Resolve(req.ModelID, custom)
	if err != nil {
		return "", err
	}
	key, err := s.credentials.APIKey(ctx, res)
	if err != nil {
		return "", err
	}
	var opts providers.Options
	if res.Custom != nil {
		opts.BaseURL = res.Custom.BaseURL
	}
	provider, err := s.providers.Get(res.Model.Provider, key, opts)
	if err != nil {
		return "", err
	}
	client, err := provider.Model(ctx, res.Upstream())
	if err != nil {
		return "", err
	}

	stream, err := client.CreateChatCompletionStream(ctx, &aisdk.ChatCompletionRequest{
		Model: res.Upstream(),
		Messages: []*aisdk.Message{
			{Role: aisdk.RoleSystem, Content: aisdk.Text(BuildSystemPrompt(req.URL, content))},
			{Role: aisdk.RoleUser, Content: aisdk.Text(req.Prompt)},
		},
	})
	if err != nil {
		return "", err
	}
	defer stream.Close()

	agg := aisdk.NewStreamAggregator()
	err = aisdk.StreamToCallback(stream, func(chunk *aisdk.StreamChunk) error {
		agg.AddChunk(chunk)
		if onToken != nil && chunk.Delta != "" {
			onToken(chunk.Delta)
		}
		return nil
	})
	if err != nil {
		return agg.Content(), &aisdk.StreamError{Partial: agg.Content(), Err: err}
	}
	s.logger.Info("research answered", "url", req.URL, "model", res.Model.ID, "chars", len(agg.Content()))
	return agg.Content(), nil
}

// BuildSystemPrompt embeds at most MaxContentChars characters of content.
func BuildSystemPrompt(pageURL, content string) string {
	if r := []rune(content); len(r) > MaxContentChars {
		content = string(r[:MaxContentChars])
	}
	return fmt.Sprintf(systemPromptTemplate, pageURL, content)
}

// Fetch downloads rawURL and returns its readable content as markdown.
func (s *Service) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request failed with status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	content := string(body)
	if ct := resp.Header.Get("Content-Type"); ct == "" || strings.Contains(ct, "html") {
		content, err = htmlToMarkdown(content)
		if err != nil {
			return "", err
		}
	}
	content = strings.TrimSpace(content)
	if len([]rune(content)) < MinContentChars {
		return "", ErrNoContent
	}
	s.logger.Debug("fetched page", "url", rawURL, "bytes", len(body), "chars", len(content))
	return content, nil
}

func htmlToMarkdown(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script, style, nav, noscript, iframe").Remove()

	selection := doc.Find("body")
	if selection.Length() == 0 {
		selection = doc.Selection
	}
	converter := md.NewConverter("", true, nil)
	markdown := converter.Convert(selection)
	for strings.Contains(markdown, "\n\n\n") {
		markdown = strings.ReplaceAll(markdown, "\n\n\n", "\n\n")
	}
	return markdown, nil
}
