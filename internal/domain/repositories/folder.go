package repositories

import (
	"context"

	"notevault/internal/domain/models"
)

// FolderRepository defines data access operations for folders.
// Every lookup is scoped by owner: a folder owned by someone else is
// reported as domain.ErrNotFound.
type FolderRepository interface {
	// LockOwnerTree serializes tree mutations for one owner until the
	// surrounding transaction ends. Must be called inside ExecTx.
	LockOwnerTree(ctx context.Context, ownerID string) error

	// GetRoot retrieves the owner's root folder
	GetRoot(ctx context.Context, ownerID string) (*models.Folder, error)

	// CreateRoot inserts a root folder. Returns domain.ErrConflict when the
	// owner already has one (unique constraint on owner_id where is_root).
	CreateRoot(ctx context.Context, folder *models.Folder) error

	// Create creates a new non-root folder
	Create(ctx context.Context, folder *models.Folder) error

	// GetByID retrieves a folder by ID
	GetByID(ctx context.Context, id, ownerID string) (*models.Folder, error)

	// GetParentID returns the parent folder ID (nil for the root)
	GetParentID(ctx context.Context, id, ownerID string) (*string, error)

	// Update persists name, parent and updated_at
	Update(ctx context.Context, folder *models.Folder) error

	// Delete deletes a folder and, through cascading foreign keys, its subtree.
	// Returns the deleted record.
	Delete(ctx context.Context, id, ownerID string) (*models.Folder, error)

	// ListChildren lists immediate child folders with their has-children flag
	ListChildren(ctx context.Context, parentID, ownerID string) ([]models.FolderEntry, error)

	// GetPath computes the display path for a folder ("root/Work/Drafts")
	GetPath(ctx context.Context, id, ownerID string) (string, error)
}
