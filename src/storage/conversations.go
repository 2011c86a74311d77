package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
)

const conversationColumns = `id, title, model_id, provider_id, folder_id, order_index, created_at, updated_at`

// ListConversations returns every conversation ordered for display
func ListConversations(ctx context.Context, db sqlscan.Querier) ([]Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations ORDER BY order_index ASC, updated_at DESC`
	var convs []Conversation
	if err := sqlscan.Select(ctx, db, &convs, query); err != nil {
		return nil, err
	}
	return convs, nil
}

// GetConversationByID retrieves a conversation by its ID
func GetConversationByID(ctx context.Context, db sqlscan.Querier, conversationID string) (*Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = ?`
	var conv Conversation
	err := sqlscan.Get(ctx, db, &conv, query, conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}
	return &conv, nil
}

// CreateConversation creates a new conversation in the database
func CreateConversation(ctx context.Context, db Execer, conversation *Conversation) error {
	if conversation.ID == "" {
		conversation.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if conversation.CreatedAt.IsZero() {
		conversation.CreatedAt = now
	}
	if conversation.UpdatedAt.IsZero() {
		conversation.UpdatedAt = now
	}

	query := `INSERT INTO conversations (` + conversationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		conversation.ID,
		conversation.Title,
		conversation.ModelID,
		conversation.ProviderID,
		conversation.FolderID,
		conversation.OrderIndex,
		conversation.CreatedAt,
		conversation.UpdatedAt,
	)
	return err
}

// UpdateConversationTitle renames a conversation
func UpdateConversationTitle(ctx context.Context, db Execer, conversationID, title string) error {
	_, err := db.ExecContext(ctx, `UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?`, title, time.Now().UTC(), conversationID)
	return err
}

// UpdateConversationModel switches the model a conversation talks to
func UpdateConversationModel(ctx context.Context, db Execer, conversationID, modelID, providerID string) error {
	_, err := db.ExecContext(ctx, `UPDATE conversations SET model_id = ?, provider_id = ?, updated_at = ? WHERE id = ?`,
		modelID, providerID, time.Now().UTC(), conversationID)
	return err
}

// UpdateConversationPlacement sets the container and order index of a
// conversation. A nil folderID means root.
func UpdateConversationPlacement(ctx context.Context, db Execer, conversationID string, folderID *string, orderIndex int) error {
	_, err := db.ExecContext(ctx, `UPDATE conversations SET folder_id = ?, order_index = ? WHERE id = ?`, folderID, orderIndex, conversationID)
	return err
}

// TouchConversation bumps updated_at
func TouchConversation(ctx context.Context, db Execer, conversationID string, at time.Time) error {
	_, err := db.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, at, conversationID)
	return err
}

// DeleteConversation removes a conversation and its messages
func DeleteConversation(ctx context.Context, db Execer, conversationID string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conversationID); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, conversationID)
	return err
}
