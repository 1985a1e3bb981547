package models

import (
	"time"
)

// Note is a user's note bound to exactly one folder.
// Content holds decrypted text; EncryptedContent is what storage sees.
type Note struct {
	ID               string    `json:"id" db:"id"`
	OwnerID          string    `json:"owner_id" db:"owner_id"`
	FolderID         string    `json:"folder_id" db:"folder_id"`
	Title            string    `json:"title" db:"title"`
	Content          string    `json:"content"`
	EncryptedContent []byte    `json:"-" db:"content"`
	IsFavorite       bool      `json:"is_favorite" db:"is_favorite"`
	Tags             []string  `json:"tags" db:"tags"`
	Version          int64     `json:"version" db:"version"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// NoteMetadata is a note without its content, used in listings
type NoteMetadata struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	FolderID   string    `json:"folder_id"`
	Title      string    `json:"title"`
	IsFavorite bool      `json:"is_favorite"`
	Tags       []string  `json:"tags"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Metadata strips the content from a note
func (n *Note) Metadata() NoteMetadata {
	return NoteMetadata{
		ID:         n.ID,
		OwnerID:    n.OwnerID,
		FolderID:   n.FolderID,
		Title:      n.Title,
		IsFavorite: n.IsFavorite,
		Tags:       n.Tags,
		Version:    n.Version,
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
	}
}
