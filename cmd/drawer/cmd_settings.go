package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/elee1766/mydrawer/src/app"
	"github.com/elee1766/mydrawer/src/config"
	"github.com/elee1766/mydrawer/src/settings"
)

// SettingsCmd manages stored provider settings
type SettingsCmd struct {
	SetKey   SettingsSetKeyCmd   `cmd:"" help:"Store the API key of a provider"`
	Provider SettingsProviderCmd `cmd:"" help:"Update the stored settings of a provider"`
	Show     SettingsShowCmd     `cmd:"" help:"Show stored provider settings"`
}

// SettingsSetKeyCmd stores an API key
type SettingsSetKeyCmd struct {
	Provider string `arg:"" help:"Provider id"`
	Key      string `arg:"" help:"API key"`
}

func (c *SettingsSetKeyCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		if err := a.Settings.SetAPIKey(ctx, c.Provider, c.Key); err != nil {
			return err
		}
		fmt.Printf("%s key set to %s\n", c.Provider, config.MaskKey(c.Key))
		return nil
	})
}

// SettingsProviderCmd updates provider settings. Unset flags keep their value.
type SettingsProviderCmd struct {
	Provider     string   `arg:"" help:"Provider id"`
	BaseURL      *string  `help:"Endpoint override"`
	SystemPrompt *string  `help:"System prompt for this provider"`
	Temperature  *float64 `help:"Sampling temperature"`
	MaxTokens    *int     `help:"Maximum reply tokens"`
}

func (c *SettingsProviderCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		cfg, err := a.Settings.ProviderConfig(ctx, c.Provider)
		if err != nil {
			return err
		}
		if c.BaseURL != nil {
			cfg.BaseURL = *c.BaseURL
		}
		if c.SystemPrompt != nil {
			cfg.SystemPrompt = *c.SystemPrompt
		}
		if c.Temperature != nil || c.MaxTokens != nil {
			if cfg.Parameters == nil {
				cfg.Parameters = &settings.Parameters{}
			}
			if c.Temperature != nil {
				cfg.Parameters.Temperature = c.Temperature
			}
			if c.MaxTokens != nil {
				cfg.Parameters.MaxTokens = c.MaxTokens
			}
		}
		return a.Settings.SetProviderConfig(ctx, c.Provider, cfg)
	})
}

// SettingsShowCmd prints stored settings with masked keys
type SettingsShowCmd struct{}

func (c *SettingsShowCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		configs, err := a.Settings.ProviderConfigs(ctx)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(configs))
		for id := range configs {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PROVIDER\tKEY\tBASE URL")
		for _, id := range ids {
			p := configs[id]
			key := "-"
			if p.APIKey != "" {
				key = config.MaskKey(p.APIKey)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", id, key, p.BaseURL)
		}
		return w.Flush()
	})
}
