package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"notevault/internal/config"
	"notevault/internal/domain"
	"notevault/internal/domain/models"
	"notevault/internal/domain/repositories"
	"notevault/internal/domain/services"
	"notevault/internal/metrics"
)

type folderService struct {
	folderRepo repositories.FolderRepository
	noteRepo   repositories.NoteRepository
	txManager  repositories.TransactionManager
	logger     *slog.Logger
}

// NewFolderService creates a new folder service
func NewFolderService(
	folderRepo repositories.FolderRepository,
	noteRepo repositories.NoteRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.FolderService {
	return &folderService{
		folderRepo: folderRepo,
		noteRepo:   noteRepo,
		txManager:  txManager,
		logger:     logger,
	}
}

// EnsureRootFolder returns the owner's root, creating it on first access.
// Runs outside any transaction: a failed insert would abort a postgres
// transaction, and the re-read below must still work.
func (s *folderService) EnsureRootFolder(ctx context.Context, userID string) (*models.Folder, bool, error) {
	if err := requireUser(userID); err != nil {
		return nil, false, err
	}

	root, err := s.folderRepo.GetRoot(ctx, userID)
	if err == nil {
		root.Path = root.Name
		return root, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	ts := now()
	root = &models.Folder{
		ID:        uuid.NewString(),
		OwnerID:   userID,
		Name:      models.RootFolderName,
		IsRoot:    true,
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	if err := s.folderRepo.CreateRoot(ctx, root); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return nil, false, err
		}

		// A concurrent request created it first
		s.logger.Debug("root folder created concurrently, re-reading", "user_id", userID)
		existing, err := s.folderRepo.GetRoot(ctx, userID)
		if err != nil {
			return nil, false, fmt.Errorf("re-read root folder: %w", err)
		}
		existing.Path = existing.Name
		return existing, false, nil
	}

	root.Path = root.Name
	metrics.TrackFolderOperation("root")
	s.logger.Info("root folder created",
		"id", root.ID,
		"user_id", userID,
	)

	return root, true, nil
}

// CreateFolder creates a new folder
func (s *folderService) CreateFolder(ctx context.Context, req *services.CreateFolderRequest) (*models.Folder, error) {
	if err := requireUser(req.UserID); err != nil {
		return nil, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.ParentFolderID != nil && *req.ParentFolderID == "" {
		req.ParentFolderID = nil
	}

	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}
	canonicalOptionalID(req.ParentFolderID)

	var parentID string
	if req.ParentFolderID != nil {
		parentID = *req.ParentFolderID
	} else {
		root, _, err := s.EnsureRootFolder(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		parentID = root.ID
	}

	ts := now()
	folder := &models.Folder{
		ID:             uuid.NewString(),
		OwnerID:        req.UserID,
		Name:           req.Name,
		ParentFolderID: &parentID,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.folderRepo.LockOwnerTree(txCtx, req.UserID); err != nil {
			return err
		}

		if _, err := s.folderRepo.GetByID(txCtx, parentID, req.UserID); err != nil {
			return err
		}

		if err := s.folderRepo.Create(txCtx, folder); err != nil {
			return err
		}

		s.setPath(txCtx, folder)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TrackFolderOperation("create")
	s.logger.Info("folder created",
		"id", folder.ID,
		"name", folder.Name,
		"user_id", req.UserID,
		"parent_id", parentID,
		"path", folder.Path,
	)

	return folder, nil
}

// UpdateFolder renames a folder
func (s *folderService) UpdateFolder(ctx context.Context, userID, folderID string, req *services.UpdateFolderRequest) (*models.Folder, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validateID("id", &folderID); err != nil {
		return nil, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, err
	}

	var folder *models.Folder
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.folderRepo.LockOwnerTree(txCtx, userID); err != nil {
			return err
		}

		var err error
		folder, err = s.folderRepo.GetByID(txCtx, folderID, userID)
		if err != nil {
			return err
		}
		if folder.IsRoot {
			return domain.NewRootFolderError("renamed")
		}

		folder.Name = req.Name
		folder.UpdatedAt = now()
		if err := s.folderRepo.Update(txCtx, folder); err != nil {
			return err
		}

		s.setPath(txCtx, folder)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TrackFolderOperation("rename")
	s.logger.Info("folder renamed",
		"id", folder.ID,
		"name", folder.Name,
		"user_id", userID,
	)

	return folder, nil
}

// MoveFolder re-parents a folder. The ancestor walk and the update share one
// transaction holding the owner's tree lock, so two concurrent moves cannot
// both pass the cycle check.
func (s *folderService) MoveFolder(ctx context.Context, userID, folderID, newParentID string) (*models.Folder, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validateID("id", &folderID); err != nil {
		return nil, err
	}
	if err := validateID("parent_folder_id", &newParentID); err != nil {
		return nil, err
	}

	var folder *models.Folder
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.folderRepo.LockOwnerTree(txCtx, userID); err != nil {
			return err
		}

		var err error
		folder, err = s.folderRepo.GetByID(txCtx, folderID, userID)
		if err != nil {
			return err
		}
		if _, err := s.folderRepo.GetByID(txCtx, newParentID, userID); err != nil {
			return err
		}

		if folder.IsRoot {
			return domain.NewRootFolderError("moved")
		}
		if err := s.checkNoCycle(txCtx, userID, folder.ID, newParentID); err != nil {
			return err
		}

		folder.ParentFolderID = &newParentID
		folder.UpdatedAt = now()
		if err := s.folderRepo.Update(txCtx, folder); err != nil {
			return err
		}

		s.setPath(txCtx, folder)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TrackFolderOperation("move")
	s.logger.Info("folder moved",
		"id", folder.ID,
		"user_id", userID,
		"new_parent_id", newParentID,
		"path", folder.Path,
	)

	return folder, nil
}

// DeleteFolder deletes a folder together with its subtree and notes
func (s *folderService) DeleteFolder(ctx context.Context, userID, folderID string) (*models.Folder, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validateID("id", &folderID); err != nil {
		return nil, err
	}

	var deleted *models.Folder
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.folderRepo.LockOwnerTree(txCtx, userID); err != nil {
			return err
		}

		folder, err := s.folderRepo.GetByID(txCtx, folderID, userID)
		if err != nil {
			return err
		}
		if folder.IsRoot {
			return domain.NewRootFolderError("deleted")
		}

		s.setPath(txCtx, folder)
		deleted, err = s.folderRepo.Delete(txCtx, folderID, userID)
		if err != nil {
			return err
		}
		deleted.Path = folder.Path
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TrackFolderOperation("delete")
	s.logger.Info("folder deleted",
		"id", deleted.ID,
		"name", deleted.Name,
		"user_id", userID,
	)

	return deleted, nil
}

// GetChildren lists the direct child folders and notes of a folder
func (s *folderService) GetChildren(ctx context.Context, userID, folderID string) (*models.FolderChildren, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validateID("id", &folderID); err != nil {
		return nil, err
	}

	if _, err := s.folderRepo.GetByID(ctx, folderID, userID); err != nil {
		return nil, err
	}

	return s.listItems(ctx, userID, folderID)
}

// GetWithItems returns folder metadata with its direct items. A nil folder
// ID addresses the owner's root, provisioning it if needed.
func (s *folderService) GetWithItems(ctx context.Context, userID string, folderID *string) (*models.FolderWithItems, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var folder *models.Folder
	if folderID == nil || *folderID == "" {
		root, _, err := s.EnsureRootFolder(ctx, userID)
		if err != nil {
			return nil, err
		}
		folder = root
	} else {
		if err := validateID("folder_id", folderID); err != nil {
			return nil, err
		}

		var err error
		folder, err = s.folderRepo.GetByID(ctx, *folderID, userID)
		if err != nil {
			return nil, err
		}
		s.setPath(ctx, folder)
	}

	items, err := s.listItems(ctx, userID, folder.ID)
	if err != nil {
		return nil, err
	}

	return &models.FolderWithItems{
		Folder:  *folder,
		Folders: items.Folders,
		Notes:   items.Notes,
	}, nil
}

func (s *folderService) listItems(ctx context.Context, userID, folderID string) (*models.FolderChildren, error) {
	folders, err := s.folderRepo.ListChildren(ctx, folderID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list child folders: %w", err)
	}

	notes, err := s.noteRepo.ListByFolder(ctx, folderID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	return &models.FolderChildren{
		Folders: folders,
		Notes:   notes,
	}, nil
}

// checkNoCycle walks parent pointers upward from newParentID. Reaching
// folderID means the move would make the folder its own ancestor. Both IDs
// must be canonical; parent IDs read back from the store always are.
func (s *folderService) checkNoCycle(ctx context.Context, userID, folderID, newParentID string) error {
	current := &newParentID
	for depth := 0; current != nil; depth++ {
		if *current == folderID {
			return domain.NewFolderCycleError()
		}
		if depth >= config.MaxFolderDepth {
			return fmt.Errorf("folder %s: ancestor chain exceeds %d levels", newParentID, config.MaxFolderDepth)
		}

		parentID, err := s.folderRepo.GetParentID(ctx, *current, userID)
		if err != nil {
			return err
		}
		current = parentID
	}
	return nil
}

// setPath fills the display path, falling back to the bare name
func (s *folderService) setPath(ctx context.Context, folder *models.Folder) {
	path, err := s.folderRepo.GetPath(ctx, folder.ID, folder.OwnerID)
	if err != nil {
		s.logger.Warn("failed to compute path", "folder_id", folder.ID, "error", err)
		folder.Path = folder.Name
		return
	}
	folder.Path = path
}

// validateCreateRequest validates a folder creation request
func (s *folderService) validateCreateRequest(req *services.CreateFolderRequest) error {
	return toValidationError(validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, config.MaxFolderNameLength),
			noSlashes,
		),
		validation.Field(&req.ParentFolderID, isUUID),
	))
}

// validateUpdateRequest validates a folder rename request
func (s *folderService) validateUpdateRequest(req *services.UpdateFolderRequest) error {
	return toValidationError(validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, config.MaxFolderNameLength),
			noSlashes,
		),
	))
}
