package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"notevault/internal/domain"
	"notevault/internal/domain/models"
	"notevault/internal/domain/services"
	"notevault/internal/httputil"
)

// NoteHandler handles note HTTP requests
type NoteHandler struct {
	noteService services.NoteService
	codec       services.ContentCodec
	logger      *slog.Logger
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(noteService services.NoteService, codec services.ContentCodec, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{
		noteService: noteService,
		codec:       codec,
		logger:      logger,
	}
}

// noteResponse is a note with its content in wire form
type noteResponse struct {
	models.NoteMetadata
	services.WirePayload
}

func (h *NoteHandler) respondNote(w http.ResponseWriter, status int, note *models.Note) {
	w.Header().Set("ETag", httputil.FormatETag(note.Version))
	httputil.RespondJSON(w, status, noteResponse{
		NoteMetadata: note.Metadata(),
		WirePayload:  h.codec.Encode(note.Content),
	})
}

// ListNotes lists the caller's notes without content
// GET /api/notes
func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.noteService.ListNotes(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, notes)
}

// CreateNote creates a note
// POST /api/notes
func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req services.CreateNoteRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}
	req.UserID = httputil.GetUserID(r)

	note, err := h.noteService.CreateNote(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	h.respondNote(w, http.StatusCreated, note)
}

// GetNote returns a note with its content
// GET /api/notes/{id}
// Returns 304 when If-None-Match carries the current version
func (h *NoteHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	noteID, ok := PathParam(w, r, "id", "Note ID")
	if !ok {
		return
	}

	var knownVersion *int64
	if v, ok := httputil.ParseETag(r.Header.Get("If-None-Match")); ok {
		knownVersion = &v
	}

	note, err := h.noteService.GetNote(r.Context(), httputil.GetUserID(r), noteID, knownVersion)
	if errors.Is(err, domain.ErrNotModified) {
		w.Header().Set("ETag", httputil.FormatETag(*knownVersion))
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if err != nil {
		handleError(w, err)
		return
	}

	h.respondNote(w, http.StatusOK, note)
}

// UpdateNote updates title, content and tags under optimistic concurrency
// PUT /api/notes/{id}
// The expected version comes from the body, or from If-Match when the body omits it
func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	noteID, ok := PathParam(w, r, "id", "Note ID")
	if !ok {
		return
	}

	var req services.UpdateNoteRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}
	if req.ExpectedVersion == nil {
		if v, ok := httputil.ParseETag(r.Header.Get("If-Match")); ok {
			req.ExpectedVersion = &v
		}
	}

	note, err := h.noteService.UpdateNoteContent(r.Context(), httputil.GetUserID(r), noteID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	h.respondNote(w, http.StatusOK, note)
}

// ToggleFavorite sets the favorite flag
// PATCH /api/notes/{id}/favorite
func (h *NoteHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	noteID, ok := PathParam(w, r, "id", "Note ID")
	if !ok {
		return
	}

	var req services.FavoriteNoteRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}
	if req.Favorite == nil {
		handleError(w, &domain.ValidationError{
			Message: "favorite is required",
			Fields:  map[string]string{"favorite": "cannot be blank"},
		})
		return
	}

	note, err := h.noteService.ToggleFavorite(r.Context(), httputil.GetUserID(r), noteID, *req.Favorite)
	if err != nil {
		handleError(w, err)
		return
	}

	h.respondNote(w, http.StatusOK, note)
}

// MoveNote moves a note into another folder
// PATCH /api/notes/{id}/move
func (h *NoteHandler) MoveNote(w http.ResponseWriter, r *http.Request) {
	noteID, ok := PathParam(w, r, "id", "Note ID")
	if !ok {
		return
	}

	var req services.MoveNoteRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	note, err := h.noteService.MoveNote(r.Context(), httputil.GetUserID(r), noteID, req.FolderID)
	if err != nil {
		handleError(w, err)
		return
	}

	h.respondNote(w, http.StatusOK, note)
}

// CopyNote duplicates a note into the same folder
// POST /api/notes/{id}/copy
func (h *NoteHandler) CopyNote(w http.ResponseWriter, r *http.Request) {
	noteID, ok := PathParam(w, r, "id", "Note ID")
	if !ok {
		return
	}

	note, err := h.noteService.CopyNote(r.Context(), httputil.GetUserID(r), noteID)
	if err != nil {
		handleError(w, err)
		return
	}

	h.respondNote(w, http.StatusCreated, note)
}

// DeleteNote deletes a note
// DELETE /api/notes/{id}
// Returns the deleted note
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	noteID, ok := PathParam(w, r, "id", "Note ID")
	if !ok {
		return
	}

	note, err := h.noteService.DeleteNote(r.Context(), httputil.GetUserID(r), noteID)
	if err != nil {
		handleError(w, err)
		return
	}

	h.respondNote(w, http.StatusOK, note)
}
