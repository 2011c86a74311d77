package storage

import "time"

// Content kinds stored in messages.content_kind.
const (
	ContentKindText  = "text"
	ContentKindParts = "parts"
)

// Message lifecycle statuses stored in messages.status.
const (
	StatusPending   = "pending"
	StatusStreaming = "streaming"
	StatusCompleted = "completed"
	StatusError     = "error"
	StatusAborted   = "aborted"
)

type Folder struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	OrderIndex int       `json:"order_index" db:"order_index"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Conversation lives at the root when FolderID is nil.
type Conversation struct {
	ID         string    `json:"id" db:"id"`
	Title      string    `json:"title" db:"title"`
	ModelID    string    `json:"model_id" db:"model_id"`
	ProviderID string    `json:"provider_id" db:"provider_id"`
	FolderID   *string   `json:"folder_id,omitempty" db:"folder_id"`
	OrderIndex int       `json:"order_index" db:"order_index"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Message content is either raw text or a JSON part list, per ContentKind.
type Message struct {
	ID             string          `json:"id" db:"id"`
	ConversationID string          `json:"conversation_id" db:"conversation_id"`
	Role           string          `json:"role" db:"role"`
	Content        string          `json:"content" db:"content"`
	ContentKind    string          `json:"content_kind" db:"content_kind"`
	Attachments    JSONAttachments `json:"attachments" db:"attachments"`
	Status         string          `json:"status" db:"status"`
	Metadata       MessageMetadata `json:"metadata" db:"metadata"`
	Position       int             `json:"position" db:"position"`
	Timestamp      time.Time       `json:"timestamp" db:"timestamp"`
}

type Setting struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
