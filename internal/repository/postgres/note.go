package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"notevault/internal/domain"
	"notevault/internal/domain/models"
	"notevault/internal/domain/repositories"
)

const (
	noteColumns     = "id, owner_id, folder_id, title, content, is_favorite, tags, version, created_at, updated_at"
	metadataColumns = "id, owner_id, folder_id, title, is_favorite, tags, version, created_at, updated_at"
)

// PostgresNoteRepository implements the NoteRepository interface
type PostgresNoteRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(config *RepositoryConfig) repositories.NoteRepository {
	return &PostgresNoteRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts a new note
func (r *PostgresNoteRepository) Create(ctx context.Context, note *models.Note) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, folder_id, title, content, is_favorite, tags, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.tables.Notes)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		note.ID,
		note.OwnerID,
		note.FolderID,
		note.Title,
		note.EncryptedContent,
		note.IsFavorite,
		nonNilTags(note.Tags),
		note.Version,
		note.CreatedAt,
		note.UpdatedAt,
	)
	if err != nil {
		if isPgForeignKeyError(err) {
			return folderNotFound(note.FolderID)
		}
		if isPgDuplicateError(err) {
			return fmt.Errorf("note %s: %w", note.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create note: %w", err)
	}

	return nil
}

// GetByID retrieves a note by ID
func (r *PostgresNoteRepository) GetByID(ctx context.Context, id, ownerID string) (*models.Note, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND owner_id = $2
	`, noteColumns, r.tables.Notes)

	executor := GetExecutor(ctx, r.pool)
	note, err := scanNote(executor.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, noteNotFound(id)
		}
		return nil, fmt.Errorf("get note: %w", err)
	}
	return note, nil
}

// ListByOwner lists every note of the owner, most recently updated first
func (r *PostgresNoteRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.NoteMetadata, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE owner_id = $1
		ORDER BY updated_at DESC, id ASC
	`, metadataColumns, r.tables.Notes)

	return r.listMetadata(ctx, query, ownerID)
}

// ListByFolder lists the notes directly inside a folder
func (r *PostgresNoteRepository) ListByFolder(ctx context.Context, folderID, ownerID string) ([]models.NoteMetadata, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE owner_id = $1 AND folder_id = $2
		ORDER BY title ASC, created_at ASC
	`, metadataColumns, r.tables.Notes)

	return r.listMetadata(ctx, query, ownerID, folderID)
}

// UpdateContent performs the compare-and-swap on the version column
func (r *PostgresNoteRepository) UpdateContent(ctx context.Context, note *models.Note, expectedVersion int64) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, content = $2, tags = $3, version = version + 1, updated_at = $4
		WHERE id = $5 AND owner_id = $6 AND version = $7
		RETURNING version, updated_at
	`, r.tables.Notes)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		note.Title,
		note.EncryptedContent,
		nonNilTags(note.Tags),
		note.UpdatedAt,
		note.ID,
		note.OwnerID,
		expectedVersion,
	).Scan(&note.Version, &note.UpdatedAt)
	if err == nil {
		return nil
	}
	if !isPgNoRowsError(err) {
		return fmt.Errorf("update note content: %w", err)
	}

	// Nothing matched: either the note is gone or the version moved on
	current, err := r.currentVersion(ctx, note.ID, note.OwnerID)
	if err != nil {
		return err
	}
	return &domain.PreconditionFailedError{
		Message:        fmt.Sprintf("note %s is at version %d, expected %d", note.ID, current, expectedVersion),
		CurrentVersion: current,
	}
}

// SetFavorite sets the favorite flag
func (r *PostgresNoteRepository) SetFavorite(ctx context.Context, id, ownerID string, favorite bool) (*models.Note, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_favorite = $1, updated_at = $2
		WHERE id = $3 AND owner_id = $4
		RETURNING %s
	`, r.tables.Notes, noteColumns)

	executor := GetExecutor(ctx, r.pool)
	note, err := scanNote(executor.QueryRow(ctx, query, favorite, time.Now(), id, ownerID))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, noteNotFound(id)
		}
		return nil, fmt.Errorf("set note favorite: %w", err)
	}
	return note, nil
}

// Move reassigns a note to another folder
func (r *PostgresNoteRepository) Move(ctx context.Context, id, ownerID, folderID string) (*models.Note, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET folder_id = $1, updated_at = $2
		WHERE id = $3 AND owner_id = $4
		RETURNING %s
	`, r.tables.Notes, noteColumns)

	executor := GetExecutor(ctx, r.pool)
	note, err := scanNote(executor.QueryRow(ctx, query, folderID, time.Now(), id, ownerID))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, noteNotFound(id)
		}
		if isPgForeignKeyError(err) {
			return nil, folderNotFound(folderID)
		}
		return nil, fmt.Errorf("move note: %w", err)
	}
	return note, nil
}

// Delete deletes a note and returns it
func (r *PostgresNoteRepository) Delete(ctx context.Context, id, ownerID string) (*models.Note, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1 AND owner_id = $2
		RETURNING %s
	`, r.tables.Notes, noteColumns)

	executor := GetExecutor(ctx, r.pool)
	note, err := scanNote(executor.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, noteNotFound(id)
		}
		return nil, fmt.Errorf("delete note: %w", err)
	}
	return note, nil
}

func (r *PostgresNoteRepository) currentVersion(ctx context.Context, id, ownerID string) (int64, error) {
	query := fmt.Sprintf(`SELECT version FROM %s WHERE id = $1 AND owner_id = $2`, r.tables.Notes)

	var version int64
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id, ownerID).Scan(&version); err != nil {
		if isPgNoRowsError(err) {
			return 0, noteNotFound(id)
		}
		return 0, fmt.Errorf("get note version: %w", err)
	}
	return version, nil
}

func (r *PostgresNoteRepository) listMetadata(ctx context.Context, query string, args ...interface{}) ([]models.NoteMetadata, error) {
	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := []models.NoteMetadata{}
	for rows.Next() {
		var meta models.NoteMetadata
		err := rows.Scan(
			&meta.ID,
			&meta.OwnerID,
			&meta.FolderID,
			&meta.Title,
			&meta.IsFavorite,
			&meta.Tags,
			&meta.Version,
			&meta.CreatedAt,
			&meta.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, meta)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}

	return notes, nil
}

func scanNote(row pgx.Row) (*models.Note, error) {
	var note models.Note
	err := row.Scan(
		&note.ID,
		&note.OwnerID,
		&note.FolderID,
		&note.Title,
		&note.EncryptedContent,
		&note.IsFavorite,
		&note.Tags,
		&note.Version,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func noteNotFound(id string) error {
	return &domain.NotFoundError{Message: fmt.Sprintf("note %s not found", id)}
}
