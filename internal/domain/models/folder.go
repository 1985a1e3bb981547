package models

import (
	"time"
)

// RootFolderName is the name given to a lazily provisioned root folder
const RootFolderName = "root"

type Folder struct {
	ID             string    `json:"id" db:"id"`
	OwnerID        string    `json:"owner_id" db:"owner_id"`
	Name           string    `json:"name" db:"name"`
	ParentFolderID *string   `json:"parent_folder_id" db:"parent_folder_id"` // NULL only for the root
	IsRoot         bool      `json:"is_root" db:"is_root"`
	Path           string    `json:"path,omitempty"` // Computed display path, not stored in DB
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// FolderEntry is a direct child folder as listed for lazy-loading trees
type FolderEntry struct {
	Folder
	HasChildren bool `json:"has_children"`
}

// FolderChildren holds the direct children (one level) of a folder
type FolderChildren struct {
	Folders []FolderEntry  `json:"folders"`
	Notes   []NoteMetadata `json:"notes"`
}

// FolderWithItems is a folder plus its direct items (no subtree expansion)
type FolderWithItems struct {
	Folder
	Folders []FolderEntry  `json:"folders"`
	Notes   []NoteMetadata `json:"notes"`
}
