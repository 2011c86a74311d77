package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/elee1766/mydrawer/src/aisdk"
	"github.com/elee1766/mydrawer/src/chat"
	"github.com/elee1766/mydrawer/src/theme"
)

var styles = theme.NewStyles()

// streamPrinter renders store events as they arrive.
type streamPrinter struct {
	out io.Writer
}

func newStreamPrinter() chat.FuncEventSink {
	p := &streamPrinter{out: os.Stdout}
	return p.handle
}

func (p *streamPrinter) handle(ev chat.Event) {
	switch e := ev.(type) {
	case *chat.StreamStartEvent:
		fmt.Fprintf(p.out, "%s %s\n", styles.Assistant.Render("assistant"), styles.Muted.Render("("+e.Model+")"))
	case *chat.StreamChunkEvent:
		fmt.Fprint(p.out, e.Delta)
	case *chat.StreamEndEvent:
		switch e.Message.Status {
		case chat.StatusAborted:
			fmt.Fprintf(p.out, "\n%s\n", styles.Warning.Render("[stopped]"))
		case chat.StatusError:
			fmt.Fprintf(p.out, "\n%s\n", styles.Error.Render(e.Message.Content.PlainText()))
		default:
			fmt.Fprintln(p.out)
		}
	}
}

func roleStyle(role aisdk.Role) string {
	switch role {
	case aisdk.RoleUser:
		return styles.User.Render(string(role))
	case aisdk.RoleSystem:
		return styles.System.Render(string(role))
	default:
		return styles.Assistant.Render(string(role))
	}
}

func printMessages(w io.Writer, msgs []chat.Message) {
	for _, m := range msgs {
		header := fmt.Sprintf("%s %s", roleStyle(m.Role), styles.Muted.Render(m.ID))
		if m.Status != chat.StatusCompleted {
			header += " " + styles.Warning.Render("["+string(m.Status)+"]")
		}
		fmt.Fprintln(w, header)
		text := m.Content.PlainText()
		if m.Role == aisdk.RoleSystem {
			text = styles.System.Render(text)
		}
		fmt.Fprintln(w, text)
		for _, a := range m.Attachments {
			fmt.Fprintf(w, "%s %s\n", styles.Muted.Render("attachment:"), a.Name)
		}
		fmt.Fprintln(w)
	}
}

func printTree(w io.Writer, snap chat.Snapshot) {
	line := func(indent string, c chat.Conversation) {
		title := c.Title
		if c.ID == snap.ActiveConversationID {
			title = styles.Active.Render(title)
		}
		fmt.Fprintf(w, "%s%s  %s %s\n", indent, title, styles.Muted.Render(c.ID), styles.Muted.Render(c.ModelID))
	}

	for _, f := range snap.OrderedFolders() {
		fmt.Fprintf(w, "%s %s\n", styles.Title.Render(f.Name+"/"), styles.Muted.Render(f.ID))
		for _, c := range snap.FolderConversations(f.ID) {
			line("  ", c)
		}
	}
	for _, c := range snap.RootConversations() {
		line("", c)
	}
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
