package main

import (
	"context"
	"fmt"
	"os"

	"github.com/elee1766/mydrawer/src/app"
	"github.com/elee1766/mydrawer/src/research"
)

// ResearchCmd answers a question about a web page with the --model model
type ResearchCmd struct {
	URL    string   `arg:"" help:"Page to read"`
	Prompt []string `arg:"" help:"Question about the page"`
}

func (c *ResearchCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		fmt.Fprintln(os.Stderr, styles.Muted.Render("reading "+c.URL))

		_, err := a.Research.Analyze(ctx, research.Request{
			URL:     c.URL,
			Prompt:  joinArgs(c.Prompt),
			ModelID: a.Config.Chat.DefaultModel,
		}, func(delta string) {
			fmt.Print(delta)
		})
		fmt.Println()
		return err
	})
}
