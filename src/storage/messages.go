package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
)

const messageColumns = `id, conversation_id, role, content, content_kind, attachments, status, metadata, position, timestamp`

// GetMessagesByConversationID retrieves all messages for a conversation ordered by position
func GetMessagesByConversationID(ctx context.Context, db sqlscan.Querier, conversationID string) ([]Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE conversation_id = ? ORDER BY position ASC, timestamp ASC`
	var messages []Message
	err := sqlscan.Select(ctx, db, &messages, query, conversationID)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// GetMessageByID retrieves a message by its ID
func GetMessageByID(ctx context.Context, db sqlscan.Querier, messageID string) (*Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = ?`
	var m Message
	err := sqlscan.Get(ctx, db, &m, query, messageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// CreateMessage creates a new message in the database
func CreateMessage(ctx context.Context, db Execer, message *Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}
	if message.ContentKind == "" {
		message.ContentKind = ContentKindText
	}
	if message.Status == "" {
		message.Status = StatusCompleted
	}

	query := `INSERT INTO messages (` + messageColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		message.ID,
		message.ConversationID,
		message.Role,
		message.Content,
		message.ContentKind,
		message.Attachments,
		message.Status,
		message.Metadata,
		message.Position,
		message.Timestamp,
	)
	return err
}

// UpdateMessageContent replaces the content of a message
func UpdateMessageContent(ctx context.Context, db Execer, messageID, content, kind string) error {
	_, err := db.ExecContext(ctx, `UPDATE messages SET content = ?, content_kind = ? WHERE id = ?`, content, kind, messageID)
	return err
}

// DeleteMessagesAfter deletes every message positioned strictly after position
func DeleteMessagesAfter(ctx context.Context, db Execer, conversationID string, position int) error {
	_, err := db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ? AND position > ?`, conversationID, position)
	return err
}

// DeleteMessagesFrom deletes the message at position and everything after it
func DeleteMessagesFrom(ctx context.Context, db Execer, conversationID string, position int) error {
	_, err := db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ? AND position >= ?`, conversationID, position)
	return err
}
