package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/elee1766/mydrawer/src/app"
	"github.com/elee1766/mydrawer/src/chat"
)

// ChatCmd manages conversations
type ChatCmd struct {
	Send       ChatSendCmd       `cmd:"" help:"Send a message and stream the reply"`
	List       ChatListCmd       `cmd:"" help:"List folders and conversations"`
	Show       ChatShowCmd       `cmd:"" help:"Print the messages of a conversation"`
	Edit       ChatEditCmd       `cmd:"" help:"Edit a user message and regenerate from it"`
	Regenerate ChatRegenerateCmd `cmd:"" help:"Regenerate the reply to a message"`
	Rewind     ChatRewindCmd     `cmd:"" help:"Delete a message and everything after it"`
	Rename     ChatRenameCmd     `cmd:"" help:"Rename a conversation"`
	Delete     ChatDeleteCmd     `cmd:"" help:"Delete a conversation"`
	Move       ChatMoveCmd       `cmd:"" help:"Move a conversation into a folder or back to the root"`
	Reorder    ChatReorderCmd    `cmd:"" help:"Reorder the conversations of the root or a folder"`
	Compact    ChatCompactCmd    `cmd:"" help:"Replace the history with a summary"`
	Model      ChatModelCmd      `cmd:"" help:"Change the model of a conversation"`
}

// withApp opens the app for the duration of fn.
func withApp(ctx context.Context, cli *CLI, events chat.EventSink, fn func(a *app.App) error) error {
	a, err := cli.open(ctx, events)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// activate makes id the active conversation when set.
func activate(ctx context.Context, a *app.App, id string) error {
	if id == "" {
		return nil
	}
	return a.Chat.SetActiveConversation(ctx, id)
}

// finished turns an interrupted or failed reply into an error for the exit code.
func finished(ctx context.Context, msg chat.Message) error {
	switch msg.Status {
	case chat.StatusAborted:
		if err := ctx.Err(); err != nil {
			return err
		}
		return context.Canceled
	case chat.StatusError:
		return errors.New(msg.Content.PlainText())
	}
	return nil
}

// ChatSendCmd sends one message
type ChatSendCmd struct {
	Text   []string `arg:"" help:"Message text"`
	Chat   string   `help:"Conversation to continue (a new one is created when empty)"`
	Title  string   `help:"Title of the new conversation"`
	Folder string   `help:"Folder for the new conversation"`
	Image  []string `short:"i" help:"Attach an image" type:"path"`
}

func (c *ChatSendCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, newStreamPrinter(), func(a *app.App) error {
		if err := activate(ctx, a, c.Chat); err != nil {
			return err
		}

		req := chat.SendRequest{
			Text:     joinArgs(c.Text),
			Title:    c.Title,
			FolderID: c.Folder,
		}
		if len(c.Image) > 0 {
			loaded, err := a.Attachments.LoadAll(c.Image)
			if err != nil {
				return err
			}
			for _, l := range loaded {
				req.Attachments = append(req.Attachments, l.Attachment)
				req.Images = append(req.Images, l.Part)
			}
		}

		msg, err := a.Chat.SendMessage(ctx, req)
		if err != nil {
			return err
		}
		if c.Chat == "" {
			fmt.Fprintln(os.Stderr, styles.Muted.Render("conversation "+msg.ConversationID))
		}
		return finished(ctx, msg)
	})
}

// ChatListCmd prints the conversation tree
type ChatListCmd struct{}

func (c *ChatListCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		printTree(os.Stdout, a.Chat.Snapshot())
		return nil
	})
}

// ChatShowCmd prints a conversation
type ChatShowCmd struct {
	ID string `arg:"" help:"Conversation id"`
}

func (c *ChatShowCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		if err := a.Chat.SetActiveConversation(ctx, c.ID); err != nil {
			return err
		}
		snap := a.Chat.Snapshot()
		conv, _ := snap.Conversation(c.ID)
		fmt.Println(styles.Title.Render(conv.Title))
		fmt.Println(styles.Muted.Render(conv.ModelID))
		fmt.Println()
		printMessages(os.Stdout, snap.Messages)
		return nil
	})
}

// ChatEditCmd edits a user message
type ChatEditCmd struct {
	Chat    string   `arg:"" help:"Conversation id"`
	Message string   `arg:"" help:"Message id"`
	Text    []string `arg:"" help:"New text"`
}

func (c *ChatEditCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, newStreamPrinter(), func(a *app.App) error {
		if err := activate(ctx, a, c.Chat); err != nil {
			return err
		}
		msg, err := a.Chat.EditMessage(ctx, c.Message, joinArgs(c.Text))
		if err != nil {
			return err
		}
		return finished(ctx, msg)
	})
}

// ChatRegenerateCmd regenerates a reply
type ChatRegenerateCmd struct {
	Chat    string `arg:"" help:"Conversation id"`
	Message string `arg:"" help:"Message id (user message or its reply)"`
}

func (c *ChatRegenerateCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, newStreamPrinter(), func(a *app.App) error {
		if err := activate(ctx, a, c.Chat); err != nil {
			return err
		}
		msg, err := a.Chat.Regenerate(ctx, c.Message)
		if err != nil {
			return err
		}
		return finished(ctx, msg)
	})
}

// ChatRewindCmd truncates a conversation
type ChatRewindCmd struct {
	Chat    string `arg:"" help:"Conversation id"`
	Message string `arg:"" help:"First message to delete"`
}

func (c *ChatRewindCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		if err := activate(ctx, a, c.Chat); err != nil {
			return err
		}
		if err := a.Chat.Rewind(ctx, c.Message); err != nil {
			return err
		}
		fmt.Printf("%d messages left\n", len(a.Chat.Snapshot().Messages))
		return nil
	})
}

// ChatRenameCmd renames a conversation
type ChatRenameCmd struct {
	ID    string   `arg:"" help:"Conversation id"`
	Title []string `arg:"" help:"New title"`
}

func (c *ChatRenameCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		return a.Chat.RenameConversation(ctx, c.ID, joinArgs(c.Title))
	})
}

// ChatDeleteCmd deletes a conversation
type ChatDeleteCmd struct {
	ID string `arg:"" help:"Conversation id"`
}

func (c *ChatDeleteCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		return a.Chat.DeleteConversation(ctx, c.ID)
	})
}

// ChatMoveCmd moves a conversation
type ChatMoveCmd struct {
	ID     string `arg:"" help:"Conversation id"`
	Folder string `help:"Target folder (root when empty)"`
}

func (c *ChatMoveCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		if c.Folder == "" {
			return a.Chat.MoveChatToRoot(ctx, c.ID)
		}
		return a.Chat.MoveChatToFolder(ctx, c.ID, c.Folder)
	})
}

// ChatReorderCmd reorders conversations
type ChatReorderCmd struct {
	IDs    []string `arg:"" help:"Conversation ids in the new order"`
	Folder string   `help:"Folder whose conversations are reordered (root when empty)"`
}

func (c *ChatReorderCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		if c.Folder == "" {
			return a.Chat.ReorderRootChats(ctx, c.IDs)
		}
		return a.Chat.ReorderFolderChats(ctx, c.Folder, c.IDs)
	})
}

// ChatCompactCmd summarizes a conversation
type ChatCompactCmd struct {
	ID string `arg:"" help:"Conversation id"`
}

func (c *ChatCompactCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		if err := a.Chat.SetActiveConversation(ctx, c.ID); err != nil {
			return err
		}
		summary, err := a.Chat.Compact(ctx)
		if err != nil {
			return err
		}
		printMessages(os.Stdout, []chat.Message{summary})
		return nil
	})
}

// ChatModelCmd switches the model of a conversation
type ChatModelCmd struct {
	ID    string `arg:"" help:"Conversation id"`
	Model string `arg:"" help:"Model id"`
}

func (c *ChatModelCmd) Run(ctx context.Context, cli *CLI) error {
	return withApp(ctx, cli, nil, func(a *app.App) error {
		if err := a.Chat.SetActiveConversation(ctx, c.ID); err != nil {
			return err
		}
		return a.Chat.SetSelectedModel(ctx, c.Model)
	})
}
