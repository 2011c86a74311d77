package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/elee1766/mydrawer/src/aisdk"
	"github.com/elee1766/mydrawer/src/app"
	"github.com/elee1766/mydrawer/src/models"
)

// ModelCmd manages model operations
type ModelCmd struct {
	List    ModelListCmd    `cmd:"" help:"List available models"`
	Resolve ModelResolveCmd `cmd:"" help:"Show how a model id resolves"`
	Custom  ModelCustomCmd  `cmd:"" help:"Manage custom OpenAI-compatible models"`
	Toggle  ModelToggleCmd  `cmd:"" help:"Enable or disable a model in the picker"`
}

// ModelListCmd lists available models
type ModelListCmd struct {
	Provider string `help:"Only list models of this provider"`
	Format   string `help:"Output format (table, json)" default:"table" enum:"table,json"`
}

// Run executes the model list command
func (c *ModelListCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		list := a.Registry.Models()
		if c.Provider != "" {
			list = a.Registry.ByProvider(c.Provider)
		}
		custom, err := a.Settings.CustomModels(ctx)
		if err != nil {
			return err
		}
		if c.Provider == "" || c.Provider == models.ProviderCustom {
			for _, cm := range custom {
				list = append(list, cm.Descriptor())
			}
		}
		enabled, err := a.Settings.EnabledModels(ctx)
		if err != nil {
			return err
		}

		if c.Format == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}
		printModelsTable(list, enabled)
		return nil
	})
}

func printModelsTable(list []models.Descriptor, enabled []string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tCAPABILITIES\tENABLED")
	for _, d := range list {
		mark := ""
		if slices.Contains(enabled, d.ID) {
			mark = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Name, d.Provider, capabilities(d.Capabilities), mark)
	}
	w.Flush()
}

func capabilities(c aisdk.Capabilities) string {
	var out []string
	if c.Image {
		out = append(out, "image")
	}
	if c.Audio {
		out = append(out, "audio")
	}
	if c.Tools {
		out = append(out, "tools")
	}
	if c.WebSearch {
		out = append(out, "web_search")
	}
	if len(out) == 0 {
		return "-"
	}
	return strings.Join(out, ",")
}

// ModelResolveCmd resolves a model id
type ModelResolveCmd struct {
	Model string `arg:"" help:"Model id"`
}

func (c *ModelResolveCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		custom, err := a.Settings.CustomModels(ctx)
		if err != nil {
			return err
		}
		res, err := a.Registry.Resolve(c.Model, custom)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", styles.Title.Render(res.Model.Name), styles.Muted.Render(res.Model.ID))
		fmt.Printf("provider:     %s\n", res.Model.Provider)
		fmt.Printf("upstream:     %s\n", res.Upstream())
		fmt.Printf("capabilities: %s\n", capabilities(res.Model.Capabilities))
		if res.Custom != nil {
			fmt.Printf("base url:     %s\n", res.Custom.BaseURL)
		}
		return nil
	})
}

// ModelCustomCmd manages custom models
type ModelCustomCmd struct {
	Add    ModelCustomAddCmd    `cmd:"" help:"Add a custom model"`
	List   ModelCustomListCmd   `cmd:"" help:"List custom models"`
	Remove ModelCustomRemoveCmd `cmd:"" help:"Remove a custom model"`
}

// ModelCustomAddCmd adds a custom model
type ModelCustomAddCmd struct {
	ID      string `arg:"" help:"Local id of the model"`
	Name    string `help:"Display name" required:""`
	BaseURL string `help:"OpenAI-compatible endpoint" required:""`
	ModelID string `help:"Upstream model id" required:""`
	APIKey  string `help:"API key for the endpoint" env:"MYDRAWER_CUSTOM_API_KEY"`
}

func (c *ModelCustomAddCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		return a.Settings.AddCustomModel(ctx, models.CustomModel{
			ID:      c.ID,
			Name:    c.Name,
			BaseURL: c.BaseURL,
			APIKey:  c.APIKey,
			ModelID: c.ModelID,
		})
	})
}

// ModelCustomListCmd lists custom models
type ModelCustomListCmd struct{}

func (c *ModelCustomListCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		custom, err := a.Settings.CustomModels(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tMODEL\tBASE URL")
		for _, cm := range custom {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", cm.ID, cm.Name, cm.ModelID, cm.BaseURL)
		}
		return w.Flush()
	})
}

// ModelCustomRemoveCmd removes a custom model
type ModelCustomRemoveCmd struct {
	ID string `arg:"" help:"Custom model id"`
}

func (c *ModelCustomRemoveCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		return a.Settings.DeleteCustomModel(ctx, c.ID)
	})
}

// ModelToggleCmd toggles a model in the picker
type ModelToggleCmd struct {
	ID string `arg:"" help:"Model id"`
}

func (c *ModelToggleCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		enabled, err := a.Settings.ToggleModel(ctx, c.ID)
		if err != nil {
			return err
		}
		state := "disabled"
		if slices.Contains(enabled, c.ID) {
			state = "enabled"
		}
		fmt.Printf("%s %s\n", c.ID, state)
		return nil
	})
}
