package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/elee1766/mydrawer/src/app"
	"github.com/elee1766/mydrawer/src/chat"
	"github.com/elee1766/mydrawer/src/config"
)

// CLI represents the main CLI structure
type CLI struct {
	ConfigFile string `name:"config" short:"c" help:"Config file path" type:"path"`
	DB         string `help:"Database path (defaults to config)" type:"path"`
	ModelID    string `name:"model" short:"m" help:"Default model id"`
	LogLevel   string `help:"Log level (debug, info, warn, error)"`

	Chat     ChatCmd     `cmd:"" help:"Send messages and manage conversations"`
	Folder   FolderCmd   `cmd:"" help:"Manage folders"`
	Model    ModelCmd    `cmd:"" help:"Model catalog and custom models"`
	Settings SettingsCmd `cmd:"" help:"Provider settings"`
	Research ResearchCmd `cmd:"" help:"Ask a question about a web page"`
	Migrate  MigrateCmd  `cmd:"" help:"Database migrations"`
	Config   ConfigCmd   `cmd:"" help:"Show configuration"`
}

// loadConfig loads the layered configuration and applies global flags.
func (c *CLI) loadConfig() (*config.Config, error) {
	precedence := config.GetConfigPaths()
	if c.ConfigFile != "" {
		precedence.UserConfig = c.ConfigFile
	}

	cfg, err := config.NewLoader(precedence).Load()
	if err != nil {
		return nil, err
	}
	if c.DB != "" {
		cfg.Data.DatabasePath = c.DB
	}
	if c.ModelID != "" {
		cfg.Chat.DefaultModel = c.ModelID
	}
	if c.LogLevel != "" {
		cfg.Observability.Logging.Level = c.LogLevel
	}
	return cfg, nil
}

// open loads config, sets up logging and builds the app.
func (c *CLI) open(ctx context.Context, events chat.EventSink) (*app.App, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := createCLILogger(cfg.Observability.Logging, cfg.Debug)
	slog.SetDefault(logger)

	return app.New(ctx, app.AppConfig{
		Config: cfg,
		Events: events,
		Logger: logger,
	})
}

func main() {
	// Ctrl-C cancels the running command; generations end as stopped.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("drawer"),
		kong.Description("Multi-provider chat with folders, streaming and history editing"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	if err := kctx.Run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", styles.Error.Render("Error:"), err)
		stop()
		os.Exit(exitCode(err))
	}
}
