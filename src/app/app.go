package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/elee1766/mydrawer/src/attach"
	"github.com/elee1766/mydrawer/src/chat"
	"github.com/elee1766/mydrawer/src/config"
	"github.com/elee1766/mydrawer/src/models"
	"github.com/elee1766/mydrawer/src/providers"
	"github.com/elee1766/mydrawer/src/research"
	"github.com/elee1766/mydrawer/src/settings"
	"github.com/elee1766/mydrawer/src/storage"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"
)

// App represents the main application with all services
type App struct {
	Config      *config.Config
	Store       *storage.DB
	Repository  *storage.Repository
	Settings    *settings.Manager
	Registry    *models.Registry
	Providers   *providers.Factory
	Chat        *chat.Store
	Research    *research.Service
	Attachments *attach.Loader
	Logger      *slog.Logger
}

// AppConfig holds configuration for creating a new App instance
type AppConfig struct {
	Config *config.Config
	// Events receives store events. May be nil.
	Events chat.EventSink
	Logger *slog.Logger
	// Fs backs attachment loading. Defaults to the OS filesystem.
	Fs afero.Fs
}

// New opens storage, builds every service and loads the conversation tree.
func New(ctx context.Context, cfg AppConfig) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	conf := cfg.Config
	if conf == nil {
		conf = config.DefaultConfig()
	}

	store, err := storage.Open(conf.Data.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	repo := storage.NewRepository(store)

	transport := providers.NewTransport(nil, newLimiter(conf.Network), logger)
	transport.MaxBytes = conf.Network.MaxResponseBytes
	httpClient := &http.Client{
		Transport: transport,
		Timeout:   conf.Network.Timeout,
	}

	registry := models.Default()
	settingsManager := settings.NewManager(repo, conf.APIKeys(), logger)
	factory := providers.NewFactory(providers.Config{
		HTTPClient: httpClient,
		Logger:     logger,
		BaseURLs:   conf.BaseURLs(),
		Headers:    conf.Headers(),
	})

	chatStore := chat.New(chat.Config{
		Repository:   repo,
		Providers:    factory,
		Settings:     settingsManager,
		Registry:     registry,
		Events:       cfg.Events,
		Logger:       logger,
		DefaultModel: conf.Chat.DefaultModel,
		SystemPrompt: conf.Chat.SystemPrompt,
		Temperature:  conf.Chat.Temperature,
		MaxTokens:    conf.Chat.MaxTokens,
	})
	if err := chatStore.Sync(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}

	researcher := research.New(research.Config{
		HTTPClient:  httpClient,
		Registry:    registry,
		Credentials: settingsManager,
		Providers:   factory,
		Logger:      logger,
	})

	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	logger.Debug("app initialized", "database", store.Path(), "model", conf.Chat.DefaultModel)

	return &App{
		Config:      conf,
		Store:       store,
		Repository:  repo,
		Settings:    settingsManager,
		Registry:    registry,
		Providers:   factory,
		Chat:        chatStore,
		Research:    researcher,
		Attachments: attach.NewLoader(fs, logger),
		Logger:      logger,
	}, nil
}

// newLimiter returns nil when outbound calls are not rate limited.
func newLimiter(n config.NetworkConfig) *rate.Limiter {
	if n.RequestsPerMinute <= 0 {
		return nil
	}
	burst := n.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n.RequestsPerMinute)), burst)
}

// Close stops any running generation and closes the database.
func (a *App) Close() error {
	if a.Chat != nil {
		a.Chat.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
