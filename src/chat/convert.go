package chat

import (
	"encoding/json"
	"fmt"

	"github.com/elee1766/mydrawer/src/aisdk"
	"github.com/elee1766/mydrawer/src/storage"
)

func conversationFromRow(row storage.Conversation) Conversation {
	c := Conversation{
		ID:         row.ID,
		Title:      row.Title,
		ModelID:    row.ModelID,
		ProviderID: row.ProviderID,
		OrderIndex: row.OrderIndex,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
	if row.FolderID != nil {
		fid := *row.FolderID
		c.FolderID = &fid
	}
	return c
}

func conversationToRow(c Conversation) *storage.Conversation {
	return &storage.Conversation{
		ID:         c.ID,
		Title:      c.Title,
		ModelID:    c.ModelID,
		ProviderID: c.ProviderID,
		FolderID:   c.FolderID,
		OrderIndex: c.OrderIndex,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func messageFromRow(row storage.Message) (Message, error) {
	var content aisdk.Content
	switch row.ContentKind {
	case storage.ContentKindParts:
		if err := json.Unmarshal([]byte(row.Content), &content); err != nil {
			return Message{}, fmt.Errorf("message %s: %w", row.ID, err)
		}
	default:
		content = aisdk.Text(row.Content)
	}
	status := Status(row.Status)
	if status == "" {
		status = StatusCompleted
	}
	return Message{
		ID:             row.ID,
		ConversationID: row.ConversationID,
		Role:           aisdk.Role(row.Role),
		Content:        content,
		Attachments:    []aisdk.Attachment(row.Attachments),
		Timestamp:      row.Timestamp,
		Status:         status,
		Metadata: Metadata{
			TokenCount: row.Metadata.TokenCount,
			Model:      row.Metadata.Model,
			Cost:       row.Metadata.Cost,
		},
		Position: row.Position,
	}, nil
}

// encodeContent returns the stored text and content kind of c.
func encodeContent(c aisdk.Content) (string, string, error) {
	if !c.IsStructured() {
		return c.String(), storage.ContentKindText, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", "", err
	}
	return string(b), storage.ContentKindParts, nil
}

func messageToRow(m Message) (*storage.Message, error) {
	content, kind, err := encodeContent(m.Content)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", m.ID, err)
	}
	return &storage.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           string(m.Role),
		Content:        content,
		ContentKind:    kind,
		Attachments:    storage.JSONAttachments(m.Attachments),
		Status:         string(m.Status),
		Metadata: storage.MessageMetadata{
			Model:      m.Metadata.Model,
			TokenCount: m.Metadata.TokenCount,
			Cost:       m.Metadata.Cost,
		},
		Position:  m.Position,
		Timestamp: m.Timestamp,
	}, nil
}

func toProviderMessages(msgs []Message) []aisdk.Message {
	out := make([]aisdk.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, aisdk.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

func folderToRow(f Folder, index int) *storage.Folder {
	return &storage.Folder{ID: f.ID, Name: f.Name, OrderIndex: index, CreatedAt: f.CreatedAt}
}
