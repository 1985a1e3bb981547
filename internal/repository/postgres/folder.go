package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"notevault/internal/config"
	"notevault/internal/domain"
	"notevault/internal/domain/models"
	"notevault/internal/domain/repositories"
)

const folderColumns = "id, owner_id, name, parent_folder_id, is_root, created_at, updated_at"

// PostgresFolderRepository implements the FolderRepository interface
type PostgresFolderRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(config *RepositoryConfig) repositories.FolderRepository {
	return &PostgresFolderRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// LockOwnerTree takes a transaction-scoped advisory lock keyed by owner.
// The lock is released by commit or rollback.
func (r *PostgresFolderRepository) LockOwnerTree(ctx context.Context, ownerID string) error {
	if txFromContext(ctx) == nil {
		return fmt.Errorf("lock owner tree: no transaction in context")
	}

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		r.tables.Folders+":"+ownerID)
	if err != nil {
		return fmt.Errorf("lock owner tree: %w", err)
	}
	return nil
}

// GetRoot retrieves the owner's root folder
func (r *PostgresFolderRepository) GetRoot(ctx context.Context, ownerID string) (*models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE owner_id = $1 AND is_root
	`, folderColumns, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, ownerID))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: "root folder not found"}
		}
		return nil, fmt.Errorf("get root folder: %w", err)
	}
	return folder, nil
}

// CreateRoot inserts the owner's root folder
func (r *PostgresFolderRepository) CreateRoot(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, name, parent_folder_id, is_root, created_at, updated_at)
		VALUES ($1, $2, $3, NULL, TRUE, $4, $5)
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		folder.ID,
		folder.OwnerID,
		folder.Name,
		folder.CreatedAt,
		folder.UpdatedAt,
	)
	if err != nil {
		if isPgDuplicateError(err) {
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
func (r *PostgresFolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, name, parent_folder_id, is_root, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, $6)
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		folder.ID,
		folder.OwnerID,
		folder.Name,
		folder.ParentFolderID,
		folder.CreatedAt,
		folder.UpdatedAt,
	)
	if err != nil {
		if isPgForeignKeyError(err) {
			return &domain.NotFoundError{Message: "parent folder not found"}
		}
		if isPgDuplicateError(err) {
			return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create folder: %w", err)
	}

	return nil
}

// GetByID retrieves a folder by ID
func (r *PostgresFolderRepository) GetByID(ctx context.Context, id, ownerID string) (*models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND owner_id = $2
	`, folderColumns, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, folderNotFound(id)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}
	return folder, nil
}

// GetParentID returns the parent of a folder, nil for the root
func (r *PostgresFolderRepository) GetParentID(ctx context.Context, id, ownerID string) (*string, error) {
	query := fmt.Sprintf(`
		SELECT parent_folder_id
		FROM %s
		WHERE id = $1 AND owner_id = $2
	`, r.tables.Folders)

	var parentID *string
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id, ownerID).Scan(&parentID); err != nil {
		if isPgNoRowsError(err) {
			return nil, folderNotFound(id)
		}
		return nil, fmt.Errorf("get folder parent: %w", err)
	}
	return parentID, nil
}

// Update updates a folder's name and parent
func (r *PostgresFolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET parent_folder_id = $1, name = $2, updated_at = $3
		WHERE id = $4 AND owner_id = $5
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		folder.ParentFolderID,
		folder.Name,
		folder.UpdatedAt,
		folder.ID,
		folder.OwnerID,
	)
	if err != nil {
		if isPgForeignKeyError(err) {
			return &domain.NotFoundError{Message: "parent folder not found"}
		}
		return fmt.Errorf("update folder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return folderNotFound(folder.ID)
	}

	return nil
}

// Delete deletes a folder; descendants and their notes go with it
func (r *PostgresFolderRepository) Delete(ctx context.Context, id, ownerID string) (*models.Folder, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1 AND owner_id = $2
		RETURNING %s
	`, r.tables.Folders, folderColumns)

	executor := GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, folderNotFound(id)
		}
		return nil, fmt.Errorf("delete folder: %w", err)
	}
	return folder, nil
}

// ListChildren lists immediate child folders
func (r *PostgresFolderRepository) ListChildren(ctx context.Context, parentID, ownerID string) ([]models.FolderEntry, error) {
	query := fmt.Sprintf(`
		SELECT f.id, f.owner_id, f.name, f.parent_folder_id, f.is_root, f.created_at, f.updated_at,
			EXISTS (SELECT 1 FROM %s c WHERE c.parent_folder_id = f.id)
				OR EXISTS (SELECT 1 FROM %s n WHERE n.folder_id = f.id) AS has_children
		FROM %s f
		WHERE f.owner_id = $1 AND f.parent_folder_id = $2
		ORDER BY f.name ASC, f.created_at ASC
	`, r.tables.Folders, r.tables.Notes, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ownerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("list folder children: %w", err)
	}
	defer rows.Close()

	entries := []models.FolderEntry{}
	for rows.Next() {
		var entry models.FolderEntry
		err := rows.Scan(
			&entry.ID,
			&entry.OwnerID,
			&entry.Name,
			&entry.ParentFolderID,
			&entry.IsRoot,
			&entry.CreatedAt,
			&entry.UpdatedAt,
			&entry.HasChildren,
		)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	return entries, nil
}

// GetPath computes the path for a folder using recursive CTE
func (r *PostgresFolderRepository) GetPath(ctx context.Context, id, ownerID string) (string, error) {
	query := fmt.Sprintf(`
		WITH RECURSIVE folder_path AS (
			SELECT id, parent_folder_id, name::text AS path, 1 AS depth
			FROM %s
			WHERE id = $1 AND owner_id = $2
			UNION ALL
			SELECT f.id, f.parent_folder_id, f.name || '/' || fp.path, fp.depth + 1
			FROM %s f
			JOIN folder_path fp ON f.id = fp.parent_folder_id
			WHERE fp.depth < $3
		)
		SELECT path FROM folder_path WHERE parent_folder_id IS NULL
	`, r.tables.Folders, r.tables.Folders)

	var path string
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id, ownerID, config.MaxFolderDepth).Scan(&path)
	if err != nil {
		if isPgNoRowsError(err) {
			return "", folderNotFound(id)
		}
		return "", fmt.Errorf("get folder path: %w", err)
	}

	return path, nil
}

func scanFolder(row pgx.Row) (*models.Folder, error) {
	var folder models.Folder
	err := row.Scan(
		&folder.ID,
		&folder.OwnerID,
		&folder.Name,
		&folder.ParentFolderID,
		&folder.IsRoot,
		&folder.CreatedAt,
		&folder.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

func folderNotFound(id string) error {
	return &domain.NotFoundError{Message: fmt.Sprintf("folder %s not found", id)}
}
