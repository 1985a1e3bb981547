package services

import (
	"context"

	"notevault/internal/domain/models"
)

// FolderService handles folder tree business logic.
// userID is the authenticated owner resolved by the identity layer.
type FolderService interface {
	// EnsureRootFolder returns the owner's root folder, creating it on first
	// access. created reports whether this call provisioned it.
	EnsureRootFolder(ctx context.Context, userID string) (folder *models.Folder, created bool, err error)

	// CreateFolder creates a folder under the given parent (root when omitted)
	CreateFolder(ctx context.Context, req *CreateFolderRequest) (*models.Folder, error)

	// UpdateFolder renames a folder
	UpdateFolder(ctx context.Context, userID, folderID string, req *UpdateFolderRequest) (*models.Folder, error)

	// MoveFolder re-parents a folder, rejecting root moves and cycles
	MoveFolder(ctx context.Context, userID, folderID, newParentID string) (*models.Folder, error)

	// DeleteFolder deletes a folder with its whole subtree (folders and notes)
	DeleteFolder(ctx context.Context, userID, folderID string) (*models.Folder, error)

	// GetChildren lists direct child folders and notes
	GetChildren(ctx context.Context, userID, folderID string) (*models.FolderChildren, error)

	// GetWithItems returns a folder with its direct items; nil means the root
	GetWithItems(ctx context.Context, userID string, folderID *string) (*models.FolderWithItems, error)
}

// CreateFolderRequest represents a folder creation request
type CreateFolderRequest struct {
	UserID         string  `json:"-"` // Set by handler from auth context
	Name           string  `json:"name"`
	ParentFolderID *string `json:"parent_folder_id,omitempty"` // Defaults to the root
}

// UpdateFolderRequest represents a folder rename request
type UpdateFolderRequest struct {
	Name string `json:"name"`
}

// MoveFolderRequest represents a folder move request
type MoveFolderRequest struct {
	ParentFolderID string `json:"parent_folder_id"`
}
