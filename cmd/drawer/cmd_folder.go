package main

import (
	"context"
	"fmt"
	"os"

	"github.com/elee1766/mydrawer/src/app"
)

// FolderCmd manages folders
type FolderCmd struct {
	Create  FolderCreateCmd  `cmd:"" help:"Create a folder"`
	Rename  FolderRenameCmd  `cmd:"" help:"Rename a folder"`
	Delete  FolderDeleteCmd  `cmd:"" help:"Delete a folder, moving its conversations to the root"`
	List    FolderListCmd    `cmd:"" help:"List folders"`
	Reorder FolderReorderCmd `cmd:"" help:"Reorder folders"`
}

// FolderCreateCmd creates a folder
type FolderCreateCmd struct {
	Name []string `arg:"" help:"Folder name"`
}

func (c *FolderCreateCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		f, err := a.Chat.CreateFolder(ctx, joinArgs(c.Name))
		if err != nil {
			return err
		}
		fmt.Println(f.ID)
		return nil
	})
}

// FolderRenameCmd renames a folder
type FolderRenameCmd struct {
	ID   string   `arg:"" help:"Folder id"`
	Name []string `arg:"" help:"New name"`
}

func (c *FolderRenameCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		return a.Chat.RenameFolder(ctx, c.ID, joinArgs(c.Name))
	})
}

// FolderDeleteCmd deletes a folder
type FolderDeleteCmd struct {
	ID string `arg:"" help:"Folder id"`
}

func (c *FolderDeleteCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		return a.Chat.DeleteFolder(ctx, c.ID)
	})
}

// FolderListCmd lists folders
type FolderListCmd struct{}

func (c *FolderListCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		for _, f := range a.Chat.Snapshot().OrderedFolders() {
			fmt.Fprintf(os.Stdout, "%s  %s %s\n", styles.Title.Render(f.Name),
				styles.Muted.Render(f.ID), styles.Muted.Render(fmt.Sprintf("(%d)", len(f.ConversationIDs))))
		}
		return nil
	})
}

// FolderReorderCmd reorders folders
type FolderReorderCmd struct {
	IDs []string `arg:"" help:"Folder ids in the new order"`
}

func (c *FolderReorderCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		return a.Chat.ReorderFolders(ctx, c.IDs)
	})
}
