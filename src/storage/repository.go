package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository exposes the entity functions bound to one database, with
// multi-row updates wrapped in transactions.
type Repository struct {
	db *DB
}

// NewRepository wraps db.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListFolders(ctx context.Context) ([]Folder, error) {
	return ListFolders(ctx, r.db.db)
}

func (r *Repository) CreateFolder(ctx context.Context, folder *Folder) error {
	return CreateFolder(ctx, r.db.db, folder)
}

func (r *Repository) RenameFolder(ctx context.Context, folderID, name string) error {
	return RenameFolder(ctx, r.db.db, folderID, name)
}

func (r *Repository) DeleteFolder(ctx context.Context, folderID string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return DeleteFolder(ctx, tx, folderID)
	})
}

// ReorderFolders writes order_index = position for every id.
func (r *Repository) ReorderFolders(ctx context.Context, ids []string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for i, id := range ids {
			if err := UpdateFolderOrder(ctx, tx, id, i); err != nil {
				return fmt.Errorf("folder %s: %w", id, err)
			}
		}
		return nil
	})
}

func (r *Repository) ListConversations(ctx context.Context) ([]Conversation, error) {
	return ListConversations(ctx, r.db.db)
}

func (r *Repository) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	return GetConversationByID(ctx, r.db.db, id)
}

func (r *Repository) CreateConversation(ctx context.Context, conv *Conversation) error {
	return CreateConversation(ctx, r.db.db, conv)
}

func (r *Repository) RenameConversation(ctx context.Context, id, title string) error {
	return UpdateConversationTitle(ctx, r.db.db, id, title)
}

func (r *Repository) UpdateConversationModel(ctx context.Context, id, modelID, providerID string) error {
	return UpdateConversationModel(ctx, r.db.db, id, modelID, providerID)
}

func (r *Repository) TouchConversation(ctx context.Context, id string, at time.Time) error {
	return TouchConversation(ctx, r.db.db, id, at)
}

func (r *Repository) DeleteConversation(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return DeleteConversation(ctx, tx, id)
	})
}

// PlaceConversations puts every id into the container folderID (nil for
// root) with order_index = position.
func (r *Repository) PlaceConversations(ctx context.Context, folderID *string, ids []string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for i, id := range ids {
			if err := UpdateConversationPlacement(ctx, tx, id, folderID, i); err != nil {
				return fmt.Errorf("conversation %s: %w", id, err)
			}
		}
		return nil
	})
}

func (r *Repository) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	return GetMessagesByConversationID(ctx, r.db.db, conversationID)
}

func (r *Repository) GetMessage(ctx context.Context, id string) (*Message, error) {
	return GetMessageByID(ctx, r.db.db, id)
}

func (r *Repository) CreateMessage(ctx context.Context, msg *Message) error {
	return CreateMessage(ctx, r.db.db, msg)
}

func (r *Repository) UpdateMessageContent(ctx context.Context, id, content, kind string) error {
	return UpdateMessageContent(ctx, r.db.db, id, content, kind)
}

func (r *Repository) DeleteMessagesAfter(ctx context.Context, conversationID string, position int) error {
	return DeleteMessagesAfter(ctx, r.db.db, conversationID, position)
}

func (r *Repository) DeleteMessagesFrom(ctx context.Context, conversationID string, position int) error {
	return DeleteMessagesFrom(ctx, r.db.db, conversationID, position)
}

func (r *Repository) GetSetting(ctx context.Context, key string) (*Setting, error) {
	return GetSetting(ctx, r.db.db, key)
}

func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	return SetSetting(ctx, r.db.db, key, value)
}

func (r *Repository) DeleteSetting(ctx context.Context, key string) error {
	return DeleteSetting(ctx, r.db.db, key)
}

func (r *Repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
