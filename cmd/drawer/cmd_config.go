package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/elee1766/mydrawer/src/config"
)

// ConfigCmd inspects configuration
type ConfigCmd struct {
	Show   ConfigShowCmd   `cmd:"" help:"Print the effective configuration with keys masked"`
	Schema ConfigSchemaCmd `cmd:"" help:"Print the JSON Schema of the config file"`
	Path   ConfigPathCmd   `cmd:"" help:"Print the config file in use"`
	Init   ConfigInitCmd   `cmd:"" help:"Write the default configuration to the user config file"`
}

// ConfigShowCmd prints the merged configuration
type ConfigShowCmd struct{}

func (c *ConfigShowCmd) Run(ctx context.Context, cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg.Redacted())
}

// ConfigSchemaCmd prints the schema
type ConfigSchemaCmd struct{}

func (c *ConfigSchemaCmd) Run(ctx context.Context, cli *CLI) error {
	data, err := config.Schema()
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// ConfigPathCmd prints the config file location
type ConfigPathCmd struct{}

func (c *ConfigPathCmd) Run(ctx context.Context, cli *CLI) error {
	if cli.ConfigFile != "" {
		fmt.Println(cli.ConfigFile)
		return nil
	}
	path, err := config.FindConfigFile()
	if err != nil {
		fmt.Println(styles.Muted.Render("no config file, defaults in use; user config goes to " + config.GetUserConfigPath()))
		return nil
	}
	fmt.Println(path)
	return nil
}

// ConfigInitCmd writes a default config file
type ConfigInitCmd struct {
	Force bool `help:"Overwrite an existing file"`
}

func (c *ConfigInitCmd) Run(ctx context.Context, cli *CLI) error {
	path := cli.ConfigFile
	if path == "" {
		path = config.GetUserConfigPath()
	}
	if _, err := os.Stat(path); err == nil && !c.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	loader := config.NewLoader(config.ConfigPrecedence{UserConfig: path})
	if err := loader.SaveFile(config.DefaultConfig(), path); err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
