package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"notevault/internal/domain"
	"notevault/internal/domain/models"
	"notevault/internal/domain/repositories"
)

const (
	noteColumns     = "id, owner_id, folder_id, title, content, is_favorite, tags, version, created_at, updated_at"
	metadataColumns = "id, owner_id, folder_id, title, is_favorite, tags, version, created_at, updated_at"
)

// SQLiteNoteRepository implements the NoteRepository interface
type SQLiteNoteRepository struct {
	db     *sql.DB
	tables *TableNames
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(config *RepositoryConfig) repositories.NoteRepository {
	return &SQLiteNoteRepository{
		db:     config.DB,
		tables: config.Tables,
	}
}

// Create inserts a new note
func (r *SQLiteNoteRepository) Create(ctx context.Context, note *models.Note) error {
	tags, err := encodeTags(note.Tags)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, folder_id, title, content, is_favorite, tags, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.tables.Notes)

	_, err = GetExecutor(ctx, r.db).ExecContext(ctx, query,
		note.ID,
		note.OwnerID,
		note.FolderID,
		note.Title,
		note.EncryptedContent,
		note.IsFavorite,
		tags,
		note.Version,
		note.CreatedAt.UnixNano(),
		note.UpdatedAt.UnixNano(),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return folderNotFound(note.FolderID)
		}
		if isDuplicateError(err) {
			return fmt.Errorf("note %s: %w", note.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create note: %w", err)
	}

	return nil
}

// GetByID retrieves a note by ID
func (r *SQLiteNoteRepository) GetByID(ctx context.Context, id, ownerID string) (*models.Note, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ? AND owner_id = ?`, noteColumns, r.tables.Notes)

	note, err := scanNote(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if isNoRowsError(err) {
			return nil, noteNotFound(id)
		}
		return nil, fmt.Errorf("get note: %w", err)
	}
	return note, nil
}

// ListByOwner lists every note of the owner, most recently updated first
func (r *SQLiteNoteRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.NoteMetadata, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE owner_id = ?
		ORDER BY updated_at DESC, id ASC
	`, metadataColumns, r.tables.Notes)

	return r.listMetadata(ctx, query, ownerID)
}

// ListByFolder lists the notes directly inside a folder
func (r *SQLiteNoteRepository) ListByFolder(ctx context.Context, folderID, ownerID string) ([]models.NoteMetadata, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE owner_id = ? AND folder_id = ?
		ORDER BY title ASC, created_at ASC
	`, metadataColumns, r.tables.Notes)

	return r.listMetadata(ctx, query, ownerID, folderID)
}

// UpdateContent performs the compare-and-swap on the version column
func (r *SQLiteNoteRepository) UpdateContent(ctx context.Context, note *models.Note, expectedVersion int64) error {
	tags, err := encodeTags(note.Tags)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET title = ?, content = ?, tags = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND owner_id = ? AND version = ?
		RETURNING version, updated_at
	`, r.tables.Notes)

	var updatedAt int64
	err = GetExecutor(ctx, r.db).QueryRowContext(ctx, query,
		note.Title,
		note.EncryptedContent,
		tags,
		note.UpdatedAt.UnixNano(),
		note.ID,
		note.OwnerID,
		expectedVersion,
	).Scan(&note.Version, &updatedAt)
	if err == nil {
		note.UpdatedAt = fromUnixNano(updatedAt)
		return nil
	}
	if !isNoRowsError(err) {
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
func (r *SQLiteNoteRepository) SetFavorite(ctx context.Context, id, ownerID string, favorite bool) (*models.Note, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET is_favorite = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
		RETURNING %s
	`, r.tables.Notes, noteColumns)

	note, err := scanNote(GetExecutor(ctx, r.db).QueryRowContext(ctx, query,
		favorite, time.Now().UnixNano(), id, ownerID))
	if err != nil {
		if isNoRowsError(err) {
			return nil, noteNotFound(id)
		}
		return nil, fmt.Errorf("set note favorite: %w", err)
	}
	return note, nil
}

// Move reassigns a note to another folder
func (r *SQLiteNoteRepository) Move(ctx context.Context, id, ownerID, folderID string) (*models.Note, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET folder_id = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
		RETURNING %s
	`, r.tables.Notes, noteColumns)

	note, err := scanNote(GetExecutor(ctx, r.db).QueryRowContext(ctx, query,
		folderID, time.Now().UnixNano(), id, ownerID))
	if err != nil {
		if isNoRowsError(err) {
			return nil, noteNotFound(id)
		}
		if isForeignKeyError(err) {
			return nil, folderNotFound(folderID)
		}
		return nil, fmt.Errorf("move note: %w", err)
	}
	return note, nil
}

// Delete deletes a note and returns it
func (r *SQLiteNoteRepository) Delete(ctx context.Context, id, ownerID string) (*models.Note, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND owner_id = ? RETURNING %s`, r.tables.Notes, noteColumns)

	note, err := scanNote(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if isNoRowsError(err) {
			return nil, noteNotFound(id)
		}
		return nil, fmt.Errorf("delete note: %w", err)
	}
	return note, nil
}

func (r *SQLiteNoteRepository) currentVersion(ctx context.Context, id, ownerID string) (int64, error) {
	query := fmt.Sprintf(`SELECT version FROM %s WHERE id = ? AND owner_id = ?`, r.tables.Notes)

	var version int64
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id, ownerID).Scan(&version); err != nil {
		if isNoRowsError(err) {
			return 0, noteNotFound(id)
		}
		return 0, fmt.Errorf("get note version: %w", err)
	}
	return version, nil
}

func (r *SQLiteNoteRepository) listMetadata(ctx context.Context, query string, args ...interface{}) ([]models.NoteMetadata, error) {
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := []models.NoteMetadata{}
	for rows.Next() {
		var (
			meta      models.NoteMetadata
			tags      string
			createdAt int64
			updatedAt int64
		)
		err := rows.Scan(
			&meta.ID,
			&meta.OwnerID,
			&meta.FolderID,
			&meta.Title,
			&meta.IsFavorite,
			&tags,
			&meta.Version,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		if meta.Tags, err = decodeTags(tags); err != nil {
			return nil, err
		}
		meta.CreatedAt = fromUnixNano(createdAt)
		meta.UpdatedAt = fromUnixNano(updatedAt)
		notes = append(notes, meta)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}

	return notes, nil
}

func scanNote(row rowScanner) (*models.Note, error) {
	var (
		note      models.Note
		tags      string
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(
		&note.ID,
		&note.OwnerID,
		&note.FolderID,
		&note.Title,
		&note.EncryptedContent,
		&note.IsFavorite,
		&tags,
		&note.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if note.Tags, err = decodeTags(tags); err != nil {
		return nil, err
	}
	note.CreatedAt = fromUnixNano(createdAt)
	note.UpdatedAt = fromUnixNano(updatedAt)
	return &note, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(data), nil
}

func decodeTags(raw string) ([]string, error) {
	tags := []string{}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return tags, nil
}

func noteNotFound(id string) error {
	return &domain.NotFoundError{Message: fmt.Sprintf("note %s not found", id)}
}
