package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"notevault/internal/config"
	"notevault/internal/domain"
	"notevault/internal/domain/models"
	"notevault/internal/domain/repositories"
)

const folderColumns = "id, owner_id, name, parent_folder_id, is_root, created_at, updated_at"

// SQLiteFolderRepository implements the FolderRepository interface
type SQLiteFolderRepository struct {
	db     *sql.DB
	tables *TableNames
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(config *RepositoryConfig) repositories.FolderRepository {
	return &SQLiteFolderRepository{
		db:     config.DB,
		tables: config.Tables,
	}
}

// LockOwnerTree only checks that a transaction is open. Transactions begin
// IMMEDIATE on the single connection, which already excludes other writers.
func (r *SQLiteFolderRepository) LockOwnerTree(ctx context.Context, ownerID string) error {
	if txFromContext(ctx) == nil {
		return fmt.Errorf("lock owner tree: no transaction in context")
	}
	return nil
}

// GetRoot retrieves the owner's root folder
func (r *SQLiteFolderRepository) GetRoot(ctx context.Context, ownerID string) (*models.Folder, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE owner_id = ? AND is_root = 1`, folderColumns, r.tables.Folders)

	folder, err := scanFolder(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, ownerID))
	if err != nil {
		if isNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: "root folder not found"}
		}
		return nil, fmt.Errorf("get root folder: %w", err)
	}
	return folder, nil
}

// CreateRoot inserts the owner's root folder
func (r *SQLiteFolderRepository) CreateRoot(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, name, parent_folder_id, is_root, created_at, updated_at)
		VALUES (?, ?, ?, NULL, 1, ?, ?)
	`, r.tables.Folders)

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		folder.ID,
		folder.OwnerID,
		folder.Name,
		folder.CreatedAt.UnixNano(),
		folder.UpdatedAt.UnixNano(),
	)
	if err != nil {
		if isDuplicateError(err) {
			return &domain.ConflictError{
				Message:      "root folder already exists",
				ResourceType: "folder",
			}
		}
		return fmt.Errorf("create root folder: %w", err)
	}

	folder.ParentFolderID = nil
	folder.IsRoot = true
	return nil
}

// Create creates a new non-root folder
func (r *SQLiteFolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, name, parent_folder_id, is_root, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)
	`, r.tables.Folders)

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		folder.ID,
		folder.OwnerID,
		folder.Name,
		folder.ParentFolderID,
		folder.CreatedAt.UnixNano(),
		folder.UpdatedAt.UnixNano(),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return &domain.NotFoundError{Message: "parent folder not found"}
		}
		if isDuplicateError(err) {
			return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create folder: %w", err)
	}

	return nil
}

// GetByID retrieves a folder by ID
func (r *SQLiteFolderRepository) GetByID(ctx context.Context, id, ownerID string) (*models.Folder, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ? AND owner_id = ?`, folderColumns, r.tables.Folders)

	folder, err := scanFolder(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if isNoRowsError(err) {
			return nil, folderNotFound(id)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}
	return folder, nil
}

// GetParentID returns the parent of a folder, nil for the root
func (r *SQLiteFolderRepository) GetParentID(ctx context.Context, id, ownerID string) (*string, error) {
	query := fmt.Sprintf(`SELECT parent_folder_id FROM %s WHERE id = ? AND owner_id = ?`, r.tables.Folders)

	var parentID sql.NullString
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id, ownerID).Scan(&parentID); err != nil {
		if isNoRowsError(err) {
			return nil, folderNotFound(id)
		}
		return nil, fmt.Errorf("get folder parent: %w", err)
	}
	return nullableString(parentID), nil
}

// Update updates a folder's name and parent
func (r *SQLiteFolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET parent_folder_id = ?, name = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`, r.tables.Folders)

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		folder.ParentFolderID,
		folder.Name,
		folder.UpdatedAt.UnixNano(),
		folder.ID,
		folder.OwnerID,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return &domain.NotFoundError{Message: "parent folder not found"}
		}
		return fmt.Errorf("update folder: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update folder: %w", err)
	}
	if affected == 0 {
		return folderNotFound(folder.ID)
	}

	return nil
}

// Delete deletes a folder; descendants and their notes go with it
func (r *SQLiteFolderRepository) Delete(ctx context.Context, id, ownerID string) (*models.Folder, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND owner_id = ? RETURNING %s`, r.tables.Folders, folderColumns)

	folder, err := scanFolder(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if isNoRowsError(err) {
			return nil, folderNotFound(id)
		}
		return nil, fmt.Errorf("delete folder: %w", err)
	}
	return folder, nil
}

// ListChildren lists immediate child folders
func (r *SQLiteFolderRepository) ListChildren(ctx context.Context, parentID, ownerID string) ([]models.FolderEntry, error) {
	query := fmt.Sprintf(`
		SELECT f.id, f.owner_id, f.name, f.parent_folder_id, f.is_root, f.created_at, f.updated_at,
			EXISTS (SELECT 1 FROM %[1]s c WHERE c.parent_folder_id = f.id)
				OR EXISTS (SELECT 1 FROM %[2]s n WHERE n.folder_id = f.id) AS has_children
		FROM %[1]s f
		WHERE f.owner_id = ? AND f.parent_folder_id = ?
		ORDER BY f.name ASC, f.created_at ASC
	`, r.tables.Folders, r.tables.Notes)

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, ownerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("list folder children: %w", err)
	}
	defer rows.Close()

	entries := []models.FolderEntry{}
	for rows.Next() {
		var entry models.FolderEntry
		folder, err := scanFolder(rows, &entry.HasChildren)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		entry.Folder = *folder
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	return entries, nil
}

// GetPath computes the path for a folder using recursive CTE
func (r *SQLiteFolderRepository) GetPath(ctx context.Context, id, ownerID string) (string, error) {
	query := fmt.Sprintf(`
		WITH RECURSIVE folder_path(id, parent_folder_id, path, depth) AS (
			SELECT id, parent_folder_id, name, 1
			FROM %[1]s
			WHERE id = ? AND owner_id = ?
			UNION ALL
			SELECT f.id, f.parent_folder_id, f.name || '/' || fp.path, fp.depth + 1
			FROM %[1]s f
			JOIN folder_path fp ON f.id = fp.parent_folder_id
			WHERE fp.depth < ?
		)
		SELECT path FROM folder_path WHERE parent_folder_id IS NULL
	`, r.tables.Folders)

	var path string
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id, ownerID, config.MaxFolderDepth).Scan(&path)
	if err != nil {
		if isNoRowsError(err) {
			return "", folderNotFound(id)
		}
		return "", fmt.Errorf("get folder path: %w", err)
	}

	return path, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanFolder reads folderColumns followed by any extra destinations
func scanFolder(row rowScanner, extra ...interface{}) (*models.Folder, error) {
	var (
		folder    models.Folder
		parentID  sql.NullString
		createdAt int64
		updatedAt int64
	)

	dest := append([]interface{}{
		&folder.ID,
		&folder.OwnerID,
		&folder.Name,
		&parentID,
		&folder.IsRoot,
		&createdAt,
		&updatedAt,
	}, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	folder.ParentFolderID = nullableString(parentID)
	folder.CreatedAt = fromUnixNano(createdAt)
	folder.UpdatedAt = fromUnixNano(updatedAt)
	return &folder, nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func folderNotFound(id string) error {
	return &domain.NotFoundError{Message: fmt.Sprintf("folder %s not found", id)}
}
