package services

import (
	"context"

	"notevault/internal/domain/models"
)

// NoteService handles note business logic
type NoteService interface {
	// CreateNote creates a note in the given folder (root when omitted)
	CreateNote(ctx context.Context, req *CreateNoteRequest) (*models.Note, error)

	// GetNote retrieves a note with decrypted content. When knownVersion
	// matches the stored version it returns domain.ErrNotModified instead.
	GetNote(ctx context.Context, userID, noteID string, knownVersion *int64) (*models.Note, error)

	// ListNotes lists metadata of all the user's notes
	ListNotes(ctx context.Context, userID string) ([]models.NoteMetadata, error)

	// UpdateNoteContent updates title/content/tags under optimistic concurrency
	UpdateNoteContent(ctx context.Context, userID, noteID string, req *UpdateNoteRequest) (*models.Note, error)

	// ToggleFavorite sets the favorite flag
	ToggleFavorite(ctx context.Context, userID, noteID string, favorite bool) (*models.Note, error)

	// MoveNote moves a note into another folder
	MoveNote(ctx context.Context, userID, noteID, folderID string) (*models.Note, error)

	// CopyNote duplicates a note into the same folder
	CopyNote(ctx context.Context, userID, noteID string) (*models.Note, error)

	// DeleteNote deletes a note and returns the deleted record
	DeleteNote(ctx context.Context, userID, noteID string) (*models.Note, error)
}

// CreateNoteRequest represents a note creation request
type CreateNoteRequest struct {
	UserID     string   `json:"-"` // Set by handler from auth context
	FolderID   *string  `json:"folder_id,omitempty"` // Defaults to the root
	Title      string   `json:"title"`
	Content    *string  `json:"content,omitempty"`
	Compressed bool     `json:"_compressed,omitempty"`
	IsFavorite bool     `json:"is_favorite,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// UpdateNoteRequest represents a note content update.
// Title, Content and Tags are left unchanged when nil.
type UpdateNoteRequest struct {
	Title           *string   `json:"title,omitempty"`
	Content         *string   `json:"content,omitempty"`
	Compressed      bool      `json:"_compressed,omitempty"`
	Tags            *[]string `json:"tags,omitempty"`
	ExpectedVersion *int64    `json:"expected_version,omitempty"` // Handler may fill it from If-Match
}

// FavoriteNoteRequest represents a favorite toggle request
type FavoriteNoteRequest struct {
	Favorite *bool `json:"favorite"`
}

// MoveNoteRequest represents a note move request
type MoveNoteRequest struct {
	FolderID string `json:"folder_id"`
}
