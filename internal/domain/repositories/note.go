package repositories

import (
	"context"

	"notevault/internal/domain/models"
)

// NoteRepository defines data access operations for notes.
// Content is handled as opaque encrypted bytes (Note.EncryptedContent).
type NoteRepository interface {
	// Create inserts a note. Returns domain.ErrNotFound if the folder
	// disappeared (foreign key violation).
	Create(ctx context.Context, note *models.Note) error

	// GetByID retrieves a note including its encrypted content
	GetByID(ctx context.Context, id, ownerID string) (*models.Note, error)

	// ListByOwner lists metadata of every note owned by the user, newest first
	ListByOwner(ctx context.Context, ownerID string) ([]models.NoteMetadata, error)

	// ListByFolder lists metadata of the notes directly inside a folder
	ListByFolder(ctx context.Context, folderID, ownerID string) ([]models.NoteMetadata, error)

	// UpdateContent writes title, content and tags only if the stored version
	// equals expectedVersion, advancing the version by one. This is a single
	// conditional UPDATE. On success note.Version and note.UpdatedAt are
	// refreshed. Returns domain.ErrNotFound or a *domain.PreconditionFailedError.
	UpdateContent(ctx context.Context, note *models.Note, expectedVersion int64) error

	// SetFavorite sets the favorite flag without touching the version
	SetFavorite(ctx context.Context, id, ownerID string, favorite bool) (*models.Note, error)

	// Move reassigns the note to another folder
	Move(ctx context.Context, id, ownerID, folderID string) (*models.Note, error)

	// Delete deletes a note and returns the deleted record
	Delete(ctx context.Context, id, ownerID string) (*models.Note, error)
}
