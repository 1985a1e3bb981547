package handler

import "net/http"

// RegisterRoutes mounts the folder and note API on mux (Go 1.22+ patterns)
func RegisterRoutes(mux *http.ServeMux, folders *FolderHandler, notes *NoteHandler) {
	// Folder routes
	mux.HandleFunc("POST /api/folders/root", folders.EnsureRoot)
	mux.HandleFunc("GET /api/folders", folders.GetFolder)
	mux.HandleFunc("POST /api/folders", folders.CreateFolder)
	mux.HandleFunc("GET /api/folders/{id}/children", folders.GetChildren)
	mux.HandleFunc("PUT /api/folders/{id}", folders.UpdateFolder)
	mux.HandleFunc("PATCH /api/folders/{id}/move", folders.MoveFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", folders.DeleteFolder)

	// Note routes
	mux.HandleFunc("GET /api/notes", notes.ListNotes)
	mux.HandleFunc("POST /api/notes", notes.CreateNote)
	mux.HandleFunc("GET /api/notes/{id}", notes.GetNote)
	mux.HandleFunc("PUT /api/notes/{id}", notes.UpdateNote)
	mux.HandleFunc("PATCH /api/notes/{id}/favorite", notes.ToggleFavorite)
	mux.HandleFunc("PATCH /api/notes/{id}/move", notes.MoveNote)
	mux.HandleFunc("POST /api/notes/{id}/copy", notes.CopyNote)
	mux.HandleFunc("DELETE /api/notes/{id}", notes.DeleteNote)
}
