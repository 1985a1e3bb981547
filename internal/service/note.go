package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"notevault/internal/config"
	"notevault/internal/domain"
	"notevault/internal/domain/models"
	"notevault/internal/domain/repositories"
	"notevault/internal/domain/services"
	"notevault/internal/metrics"
)

const copySuffix = " (copy)"

type noteService struct {
	noteRepo   repositories.NoteRepository
	folderRepo repositories.FolderRepository
	folders    services.FolderService
	txManager  repositories.TransactionManager
	codec      services.ContentCodec
	cipher     services.ContentCipher
	logger     *slog.Logger
}

// NewNoteService creates a new note service
func NewNoteService(
	noteRepo repositories.NoteRepository,
	folderRepo repositories.FolderRepository,
	folders services.FolderService,
	txManager repositories.TransactionManager,
	codec services.ContentCodec,
	cipher services.ContentCipher,
	logger *slog.Logger,
) services.NoteService {
	return &noteService{
		noteRepo:   noteRepo,
		folderRepo: folderRepo,
		folders:    folders,
		txManager:  txManager,
		codec:      codec,
		cipher:     cipher,
		logger:     logger,
	}
}

// CreateNote creates a note, defaulting to the owner's root folder
func (s *noteService) CreateNote(ctx context.Context, req *services.CreateNoteRequest) (*models.Note, error) {
	if err := requireUser(req.UserID); err != nil {
		return nil, err
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Tags = normalizeTags(req.Tags)
	if req.FolderID != nil && *req.FolderID == "" {
		req.FolderID = nil
	}

	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}
	canonicalOptionalID(req.FolderID)

	var content string
	if req.Content != nil {
		decoded, err := s.codec.Decode(services.WirePayload{Content: *req.Content, Compressed: req.Compressed})
		if err != nil {
			return nil, err
		}
		content = decoded
	}

	var folderID string
	if req.FolderID != nil {
		folderID = *req.FolderID
	} else {
		root, _, err := s.folders.EnsureRootFolder(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		folderID = root.ID
	}

	ts := now()
	note := &models.Note{
		ID:         uuid.NewString(),
		OwnerID:    req.UserID,
		FolderID:   folderID,
		Title:      req.Title,
		Content:    content,
		IsFavorite: req.IsFavorite,
		Tags:       req.Tags,
		Version:    1,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}

	if err := s.seal(note); err != nil {
		return nil, err
	}

	if err := s.insertIntoFolder(ctx, note); err != nil {
		return nil, err
	}

	metrics.TrackNoteOperation("create")
	s.logger.Info("note created",
		"id", note.ID,
		"user_id", note.OwnerID,
		"folder_id", note.FolderID,
		"size", len(content),
	)

	return note, nil
}

// GetNote retrieves a note. A knownVersion equal to the stored version
// yields domain.ErrNotModified and skips decryption.
func (s *noteService) GetNote(ctx context.Context, userID, noteID string, knownVersion *int64) (*models.Note, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validateID("id", &noteID); err != nil {
		return nil, err
	}

	note, err := s.noteRepo.GetByID(ctx, noteID, userID)
	if err != nil {
		return nil, err
	}

	if knownVersion != nil && *knownVersion == note.Version {
		return nil, domain.ErrNotModified
	}

	if err := s.open(note); err != nil {
		return nil, err
	}
	return note, nil
}

// ListNotes lists metadata of all the owner's notes, most recent first
func (s *noteService) ListNotes(ctx context.Context, userID string) ([]models.NoteMetadata, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.noteRepo.ListByOwner(ctx, userID)
}

// UpdateNoteContent applies title/content/tags changes when the stored
// version still equals req.ExpectedVersion. A stale version is rejected before
// any content is sealed; the conditional UPDATE settles races with writers
// that land after the read.
func (s *noteService) UpdateNoteContent(ctx context.Context, userID, noteID string, req *services.UpdateNoteRequest) (*models.Note, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validateID("id", &noteID); err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		req.Title = &title
	}
	if req.Tags != nil {
		tags := normalizeTags(*req.Tags)
		req.Tags = &tags
	}

	if err := s.validateUpdateRequest(req); err != nil {
		return nil, err
	}

	var newContent *string
	if req.Content != nil {
		decoded, err := s.codec.Decode(services.WirePayload{Content: *req.Content, Compressed: req.Compressed})
		if err != nil {
			return nil, err
		}
		newContent = &decoded
	}

	note, err := s.noteRepo.GetByID(ctx, noteID, userID)
	if err != nil {
		return nil, err
	}
	if note.Version != *req.ExpectedVersion {
		return nil, s.versionConflict(noteID, userID, *req.ExpectedVersion, &domain.PreconditionFailedError{
			Message:        fmt.Sprintf("note %s is at version %d, expected %d", noteID, note.Version, *req.ExpectedVersion),
			CurrentVersion: note.Version,
		})
	}

	if req.Title != nil {
		note.Title = *req.Title
	}
	if req.Tags != nil {
		note.Tags = *req.Tags
	}
	if newContent != nil {
		note.Content = *newContent
		if err := s.seal(note); err != nil {
			return nil, err
		}
	} else if err := s.open(note); err != nil {
		return nil, err
	}
	note.UpdatedAt = now()

	// Authoritative check; a writer may have landed since the read above
	if err := s.noteRepo.UpdateContent(ctx, note, *req.ExpectedVersion); err != nil {
		if errors.Is(err, domain.ErrPreconditionFailed) {
			return nil, s.versionConflict(noteID, userID, *req.ExpectedVersion, err)
		}
		return nil, err
	}

	metrics.TrackNoteOperation("update")
	s.logger.Info("note updated",
		"id", note.ID,
		"user_id", userID,
		"version", note.Version,
	)

	return note, nil
}

func (s *noteService) versionConflict(noteID, userID string, expected int64, err error) error {
	metrics.TrackVersionConflict()
	s.logger.Info("note version conflict",
		"id", noteID,
		"user_id", userID,
		"expected_version", expected,
	)
	return err
}

// ToggleFavorite sets the favorite flag; the version is not involved
func (s *noteService) ToggleFavorite(ctx context.Context, userID, noteID string, favorite bool) (*models.Note, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validateID("id", &noteID); err != nil {
		return nil, err
	}

	note, err := s.noteRepo.SetFavorite(ctx, noteID, userID, favorite)
	if err != nil {
		return nil, err
	}

	if err := s.open(note); err != nil {
		return nil, err
	}

	metrics.TrackNoteOperation("favorite")
	s.logger.Debug("note favorite toggled", "id", noteID, "favorite", favorite)

	return note, nil
}

// MoveNote moves a note into another folder of the same owner
func (s *noteService) MoveNote(ctx context.Context, userID, noteID, folderID string) (*models.Note, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validateID("id", &noteID); err != nil {
		return nil, err
	}
	if err := validateID("folder_id", &folderID); err != nil {
		return nil, err
	}

	var note *models.Note
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.folderRepo.LockOwnerTree(txCtx, userID); err != nil {
			return err
		}

		if _, err := s.noteRepo.GetByID(txCtx, noteID, userID); err != nil {
			return err
		}
		if _, err := s.folderRepo.GetByID(txCtx, folderID, userID); err != nil {
			return err
		}

		var err error
		note, err = s.noteRepo.Move(txCtx, noteID, userID, folderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.open(note); err != nil {
		return nil, err
	}

	metrics.TrackNoteOperation("move")
	s.logger.Info("note moved",
		"id", noteID,
		"user_id", userID,
		"folder_id", folderID,
	)

	return note, nil
}

// CopyNote duplicates a note into the same folder. The copy gets a new ID,
// the title suffix " (copy)", the same content and tags, is not a favorite
// and starts at version 1.
func (s *noteService) CopyNote(ctx context.Context, userID, noteID string) (*models.Note, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validateID("id", &noteID); err != nil {
		return nil, err
	}

	source, err := s.noteRepo.GetByID(ctx, noteID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.open(source); err != nil {
		return nil, err
	}

	ts := now()
	copied := &models.Note{
		ID:        uuid.NewString(),
		OwnerID:   userID,
		FolderID:  source.FolderID,
		Title:     copyTitle(source.Title),
		Content:   source.Content,
		Tags:      append([]string{}, source.Tags...),
		Version:   1,
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	// Ciphertexts are bound to the note ID, so the copy is sealed afresh
	if err := s.seal(copied); err != nil {
		return nil, err
	}

	if err := s.insertIntoFolder(ctx, copied); err != nil {
		return nil, err
	}

	metrics.TrackNoteOperation("copy")
	s.logger.Info("note copied",
		"id", copied.ID,
		"source_id", source.ID,
		"user_id", userID,
	)

	return copied, nil
}

// DeleteNote deletes a note and returns the deleted record
func (s *noteService) DeleteNote(ctx context.Context, userID, noteID string) (*models.Note, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validateID("id", &noteID); err != nil {
		return nil, err
	}

	note, err := s.noteRepo.Delete(ctx, noteID, userID)
	if err != nil {
		return nil, err
	}

	// The row is gone either way; a record without content is still useful
	if err := s.open(note); err != nil {
		s.logger.Warn("failed to decrypt deleted note", "id", noteID, "error", err)
	}

	metrics.TrackNoteOperation("delete")
	s.logger.Info("note deleted",
		"id", noteID,
		"user_id", userID,
	)

	return note, nil
}

// insertIntoFolder creates the note under the owner's tree lock so the
// target folder cannot be deleted between the check and the insert
func (s *noteService) insertIntoFolder(ctx context.Context, note *models.Note) error {
	return s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.folderRepo.LockOwnerTree(txCtx, note.OwnerID); err != nil {
			return err
		}
		if _, err := s.folderRepo.GetByID(txCtx, note.FolderID, note.OwnerID); err != nil {
			return err
		}
		return s.noteRepo.Create(txCtx, note)
	})
}

func (s *noteService) seal(note *models.Note) error {
	sealed, err := s.cipher.Seal([]byte(note.Content), []byte(note.ID))
	if err != nil {
		return fmt.Errorf("encrypt note %s: %w", note.ID, err)
	}
	note.EncryptedContent = sealed
	return nil
}

func (s *noteService) open(note *models.Note) error {
	plaintext, err := s.cipher.Open(note.EncryptedContent, []byte(note.ID))
	if err != nil {
		return fmt.Errorf("decrypt note %s: %w", note.ID, err)
	}
	note.Content = string(plaintext)
	return nil
}

// copyTitle appends the copy suffix, trimming the original title so the
// result stays within the title limit
func copyTitle(title string) string {
	maxRunes := config.MaxNoteTitleLength - utf8.RuneCountInString(copySuffix)
	if utf8.RuneCountInString(title) > maxRunes {
		title = strings.TrimSpace(string([]rune(title)[:maxRunes]))
	}
	return title + copySuffix
}

// validateCreateRequest validates a note creation request
func (s *noteService) validateCreateRequest(req *services.CreateNoteRequest) error {
	return toValidationError(validation.ValidateStruct(req,
		validation.Field(&req.Title,
			validation.Required,
			validation.Length(1, config.MaxNoteTitleLength),
		),
		validation.Field(&req.FolderID, isUUID),
		validation.Field(&req.Tags, validTags),
	))
}

// validateUpdateRequest validates a note update request
func (s *noteService) validateUpdateRequest(req *services.UpdateNoteRequest) error {
	return toValidationError(validation.ValidateStruct(req,
		validation.Field(&req.Title,
			validation.NilOrNotEmpty,
			validation.Length(1, config.MaxNoteTitleLength),
		),
		validation.Field(&req.Tags, validTags),
		validation.Field(&req.ExpectedVersion,
			validation.Required.Error("is required for optimistic concurrency"),
			validation.Min(int64(1)),
		),
	))
}
