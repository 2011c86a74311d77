package chat

import (
	"slices"
	"time"

	"github.com/elee1766/mydrawer/src/aisdk"
)

// Status is the lifecycle state of a message.
type Status string

const (
	StatusPending   Status = "pending"
	StatusStreaming Status = "streaming"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusAborted   Status = "aborted"
)

// Terminal reports whether content may no longer change.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusAborted:
		return true
	}
	return false
}

// Conversation sits in the root list when FolderID is nil.
type Conversation struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	FolderID   *string   `json:"folderId,omitempty"`
	ModelID    string    `json:"modelId"`
	ProviderID string    `json:"providerId"`
	OrderIndex int       `json:"orderIndex"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Folder holds an ordered list of conversation ids.
type Folder struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	ConversationIDs []string  `json:"conversationIds"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Metadata is optional per-message bookkeeping.
type Metadata struct {
	TokenCount int     `json:"tokenCount"`
	Model      string  `json:"model,omitempty"`
	Cost       float64 `json:"cost,omitempty"`
}

// Message is one entry of a conversation.
type Message struct {
	ID             string             `json:"id"`
	ConversationID string             `json:"conversationId"`
	Role           aisdk.Role         `json:"role"`
	Content        aisdk.Content      `json:"content"`
	Attachments    []aisdk.Attachment `json:"attachments"`
	Timestamp      time.Time          `json:"timestamp"`
	Status         Status             `json:"status"`
	Metadata       Metadata           `json:"metadata"`
	Position       int                `json:"position"`
}

// Images returns the image parts of the message content.
func (m Message) Images() []aisdk.Part {
	var out []aisdk.Part
	for _, p := range m.Content.Parts() {
		if p.Type == aisdk.PartTypeImage {
			out = append(out, p)
		}
	}
	return out
}

// Snapshot is a copy of the store state.
type Snapshot struct {
	Conversations        map[string]Conversation `json:"conversations"`
	Folders              map[string]Folder       `json:"folders"`
	FolderOrder          []string                `json:"folderOrder"`
	RootChatOrder        []string                `json:"rootChatOrder"`
	ActiveConversationID string                  `json:"activeConversationId,omitempty"`
	Messages             []Message               `json:"messages"`
	SelectedModelID      string                  `json:"selectedModelId"`
	Streaming            bool                    `json:"streaming"`
}

func newSnapshot(selectedModel string) Snapshot {
	return Snapshot{
		Conversations:   map[string]Conversation{},
		Folders:         map[string]Folder{},
		FolderOrder:     []string{},
		RootChatOrder:   []string{},
		Messages:        []Message{},
		SelectedModelID: selectedModel,
	}
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Conversations = make(map[string]Conversation, len(s.Conversations))
	for id, c := range s.Conversations {
		if c.FolderID != nil {
			fid := *c.FolderID
			c.FolderID = &fid
		}
		out.Conversations[id] = c
	}
	out.Folders = make(map[string]Folder, len(s.Folders))
	for id, f := range s.Folders {
		f.ConversationIDs = slices.Clone(f.ConversationIDs)
		out.Folders[id] = f
	}
	out.FolderOrder = slices.Clone(s.FolderOrder)
	out.RootChatOrder = slices.Clone(s.RootChatOrder)
	out.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		m.Attachments = slices.Clone(m.Attachments)
		out.Messages[i] = m
	}
	return out
}

// Conversation returns the conversation with id.
func (s Snapshot) Conversation(id string) (Conversation, bool) {
	c, ok := s.Conversations[id]
	return c, ok
}

// OrderedFolders returns the folders in display order.
func (s Snapshot) OrderedFolders() []Folder {
	out := make([]Folder, 0, len(s.FolderOrder))
	for _, id := range s.FolderOrder {
		if f, ok := s.Folders[id]; ok {
			out = append(out, f)
		}
	}
	return out
}

// RootConversations returns the root conversations in display order.
func (s Snapshot) RootConversations() []Conversation {
	return s.pick(s.RootChatOrder)
}

// FolderConversations returns the conversations of folderID in display order.
func (s Snapshot) FolderConversations(folderID string) []Conversation {
	return s.pick(s.Folders[folderID].ConversationIDs)
}

func (s Snapshot) pick(ids []string) []Conversation {
	out := make([]Conversation, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.Conversations[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// SendRequest is the input of SendMessage.
type SendRequest struct {
	Text        string
	Attachments []aisdk.Attachment
	// Images holds one image part per attachment.
	Images []aisdk.Part

	// Title and FolderID apply when no conversation is active and one is
	// created for the message.
	Title    string
	FolderID string
}
