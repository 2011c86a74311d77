package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
)

// ListFolders returns all folders in display order
func ListFolders(ctx context.Context, db sqlscan.Querier) ([]Folder, error) {
	query := `SELECT id, name, order_index, created_at FROM folders ORDER BY order_index ASC, created_at DESC`
	var folders []Folder
	if err := sqlscan.Select(ctx, db, &folders, query); err != nil {
		return nil, err
	}
	return folders, nil
}

// GetFolderByID retrieves a folder by its ID
func GetFolderByID(ctx context.Context, db sqlscan.Querier, folderID string) (*Folder, error) {
	query := `SELECT id, name, order_index, created_at FROM folders WHERE id = ?`
	var f Folder
	err := sqlscan.Get(ctx, db, &f, query, folderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

// CreateFolder creates a new folder in the database
func CreateFolder(ctx context.Context, db Execer, folder *Folder) error {
	if folder.ID == "" {
		folder.ID = uuid.New().String()
	}
	if folder.CreatedAt.IsZero() {
		folder.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO folders (id, name, order_index, created_at) VALUES (?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query, folder.ID, folder.Name, folder.OrderIndex, folder.CreatedAt)
	return err
}

// RenameFolder changes a folder's display name
func RenameFolder(ctx context.Context, db Execer, folderID, name string) error {
	_, err := db.ExecContext(ctx, `UPDATE folders SET name = ? WHERE id = ?`, name, folderID)
	return err
}

// UpdateFolderOrder sets a folder's order index
func UpdateFolderOrder(ctx context.Context, db Execer, folderID string, orderIndex int) error {
	_, err := db.ExecContext(ctx, `UPDATE folders SET order_index = ? WHERE id = ?`, orderIndex, folderID)
	return err
}

// DeleteFolder removes a folder. Member conversations are detached first so
// they survive even without foreign key enforcement.
func DeleteFolder(ctx context.Context, db Execer, folderID string) error {
	if _, err := db.ExecContext(ctx, `UPDATE conversations SET folder_id = NULL WHERE folder_id = ?`, folderID); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, folderID)
	return err
}
