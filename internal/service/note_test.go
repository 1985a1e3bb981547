package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"notevault/internal/config"
	"notevault/internal/domain"
	"notevault/internal/domain/services"
)

func TestNoteVersionScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	work := createFolder(t, f, "alice", "Work", nil)
	draft, err := f.notes.CreateNote(ctx, &services.CreateNoteRequest{
		UserID:   "alice",
		FolderID: &work.ID,
		Title:    "Draft",
		Content:  strPtr("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), draft.Version)
	assert.Equal(t, "hello", draft.Content)

	req := &services.UpdateNoteRequest{
		Content:         strPtr("hello world"),
		ExpectedVersion: int64Ptr(draft.Version),
	}
	updated, err := f.notes.UpdateNoteContent(ctx, "alice", draft.ID, req)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, "hello world", updated.Content)
	assert.Equal(t, "Draft", updated.Title)

	// Same call again with the now stale version
	req = &services.UpdateNoteRequest{
		Content:         strPtr("overwrite attempt"),
		ExpectedVersion: int64Ptr(draft.Version),
	}
	_, err = f.notes.UpdateNoteContent(ctx, "alice", draft.ID, req)
	require.ErrorIs(t, err, domain.ErrPreconditionFailed)

	var pfErr *domain.PreconditionFailedError
	require.ErrorAs(t, err, &pfErr)
	assert.Equal(t, int64(2), pfErr.CurrentVersion)

	stored, err := f.notes.GetNote(ctx, "alice", draft.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world", stored.Content)
	assert.Equal(t, int64(2), stored.Version)
}

// countingCipher records how many times content was sealed
type countingCipher struct {
	services.ContentCipher
	seals int
}

func (c *countingCipher) Seal(plaintext, associatedData []byte) ([]byte, error) {
	c.seals++
	return c.ContentCipher.Seal(plaintext, associatedData)
}

func TestStaleUpdateRejectedBeforeSealing(t *testing.T) {
	inner, err := NewXChaChaCipher("test-secret")
	require.NoError(t, err)
	cipher := &countingCipher{ContentCipher: inner}
	f := newFixtureWithCipher(t, cipher)
	ctx := context.Background()

	note, err := f.notes.CreateNote(ctx, &services.CreateNoteRequest{
		UserID:  "alice",
		Title:   "Draft",
		Content: strPtr("v1"),
	})
	require.NoError(t, err)
	_, err = f.notes.UpdateNoteContent(ctx, "alice", note.ID, &services.UpdateNoteRequest{
		Content:         strPtr("v2"),
		ExpectedVersion: int64Ptr(1),
	})
	require.NoError(t, err)

	sealsBefore := cipher.seals
	_, err = f.notes.UpdateNoteContent(ctx, "alice", note.ID, &services.UpdateNoteRequest{
		Content:         strPtr("stale write"),
		ExpectedVersion: int64Ptr(1),
	})

	var pfErr *domain.PreconditionFailedError
	require.ErrorAs(t, err, &pfErr)
	assert.Equal(t, int64(2), pfErr.CurrentVersion)
	assert.Equal(t, sealsBefore, cipher.seals)
}

func TestCreateNote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	note, err := f.notes.CreateNote(ctx, &services.CreateNoteRequest{
		UserID:     "alice",
		Title:      " Ideas ",
		IsFavorite: true,
		Tags:       []string{"work", " work ", "later"},
	})
	require.NoError(t, err)

	root, _, err := f.folders.EnsureRootFolder(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, root.ID, note.FolderID)
	assert.Equal(t, "Ideas", note.Title)
	assert.Equal(t, "", note.Content)
	assert.True(t, note.IsFavorite)
	assert.Equal(t, []string{"work", "later"}, note.Tags)

	bobFolder := createFolder(t, f, "bob", "Private", nil)

	tests := []struct {
		name    string
		req     *services.CreateNoteRequest
		wantErr error
		field   string
	}{
		{
			name:    "blank title",
			req:     &services.CreateNoteRequest{UserID: "alice", Title: " "},
			wantErr: domain.ErrValidation,
			field:   "title",
		},
		{
			name:    "title too long",
			req:     &services.CreateNoteRequest{UserID: "alice", Title: strings.Repeat("t", config.MaxNoteTitleLength+1)},
			wantErr: domain.ErrValidation,
			field:   "title",
		},
		{
			name:    "too many tags",
			req:     &services.CreateNoteRequest{UserID: "alice", Title: "t", Tags: manyTags(config.MaxTags + 1)},
			wantErr: domain.ErrValidation,
			field:   "tags",
		},
		{
			name:    "folder of another owner",
			req:     &services.CreateNoteRequest{UserID: "alice", Title: "t", FolderID: &bobFolder.ID},
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "missing folder",
			req:     &services.CreateNoteRequest{UserID: "alice", Title: "t", FolderID: strPtr(uuid.NewString())},
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "content too large",
			req:     &services.CreateNoteRequest{UserID: "alice", Title: "t", Content: strPtr(strings.Repeat("a", config.MaxContentBytes+1))},
			wantErr: domain.ErrPayloadTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.notes.CreateNote(ctx, tt.req)
			require.ErrorIs(t, err, tt.wantErr)

			if tt.field != "" {
				var valErr *domain.ValidationError
				require.ErrorAs(t, err, &valErr)
				assert.Contains(t, valErr.Fields, tt.field)
			}
		})
	}
}

func TestUpdateNoteContentLimits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	note, err := f.notes.CreateNote(ctx, &services.CreateNoteRequest{UserID: "alice", Title: "big", Content: strPtr("v1")})
	require.NoError(t, err)

	exact := strings.Repeat("a", config.MaxContentBytes)
	oversized := exact + "a"
	compressedOversized := f.codec.Encode(oversized)
	require.True(t, compressedOversized.Compressed)

	tests := []struct {
		name       string
		content    string
		compressed bool
	}{
		{name: "raw over limit", content: oversized},
		{name: "compressed over limit", content: compressedOversized.Content, compressed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.notes.UpdateNoteContent(ctx, "alice", note.ID, &services.UpdateNoteRequest{
				Content:         &tt.content,
				Compressed:      tt.compressed,
				ExpectedVersion: int64Ptr(1),
			})
			require.ErrorIs(t, err, domain.ErrPayloadTooLarge)
		})
	}

	stored, err := f.notes.GetNote(ctx, "alice", note.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "v1", stored.Content)
	assert.Equal(t, int64(1), stored.Version)

	// Exactly at the limit is accepted, also when sent compressed
	wire := f.codec.Encode(exact)
	updated, err := f.notes.UpdateNoteContent(ctx, "alice", note.ID, &services.UpdateNoteRequest{
		Content:         &wire.Content,
		Compressed:      wire.Compressed,
		ExpectedVersion: int64Ptr(1),
	})
	require.NoError(t, err)
	assert.Len(t, updated.Content, config.MaxContentBytes)
	assert.Equal(t, int64(2), updated.Version)
}

func TestUpdateNoteContentFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	note, err := f.notes.CreateNote(ctx, &services.CreateNoteRequest{
		UserID:  "alice",
		Title:   "Title",
		Content: strPtr("body"),
		Tags:    []string{"a"},
	})
	require.NoError(t, err)

	// Title and tags only, content kept
	updated, err := f.notes.UpdateNoteContent(ctx, "alice", note.ID, &services.UpdateNoteRequest{
		Title:           strPtr("Renamed"),
		Tags:            &[]string{"b", "c"},
		ExpectedVersion: int64Ptr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "body", updated.Content)
	assert.Equal(t, []string{"b", "c"}, updated.Tags)
	assert.Equal(t, int64(2), updated.Version)

	_, err = f.notes.UpdateNoteContent(ctx, "alice", note.ID, &services.UpdateNoteRequest{Content: strPtr("x")})
	require.ErrorIs(t, err, domain.ErrValidation)
	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields, "expected_version")

	_, err = f.notes.UpdateNoteContent(ctx, "alice", note.ID, &services.UpdateNoteRequest{
		Title:           strPtr(""),
		ExpectedVersion: int64Ptr(2),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.notes.UpdateNoteContent(ctx, "bob", note.ID, &services.UpdateNoteRequest{
		Content:         strPtr("stolen"),
		ExpectedVersion: int64Ptr(2),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.notes.UpdateNoteContent(ctx, "alice", uuid.NewString(), &services.UpdateNoteRequest{
		Content:         strPtr("x"),
		ExpectedVersion: int64Ptr(1),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetNote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	note, err := f.notes.CreateNote(ctx, &services.CreateNoteRequest{UserID: "alice", Title: "t", Content: strPtr("secret")})
	require.NoError(t, err)

	got, err := f.notes.GetNote(ctx, "alice", note.ID, int64Ptr(0))
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Content)

	_, err = f.notes.GetNote(ctx, "alice", note.ID, int64Ptr(note.Version))
	assert.ErrorIs(t, err, domain.ErrNotModified)

	_, err = f.notes.GetNote(ctx, "bob", note.ID, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.notes.GetNote(ctx, "alice", "42", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestToggleFavoriteKeepsVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	note, err := f.notes.CreateNote(ctx, &services.CreateNoteRequest{UserID: "alice", Title: "t", Content: strPtr("c")})
	require.NoError(t, err)

	fav, err := f.notes.ToggleFavorite(ctx, "alice", note.ID, true)
	require.NoError(t, err)
	assert.True(t, fav.IsFavorite)
	assert.Equal(t, note.Version, fav.Version)
	assert.Equal(t, "c", fav.Content)

	unfav, err := f.notes.ToggleFavorite(ctx, "alice", note.ID, false)
	require.NoError(t, err)
	assert.False(t, unfav.IsFavorite)

	_, err = f.notes.ToggleFavorite(ctx, "bob", note.ID, true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMoveNote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	work := createFolder(t, f, "alice", "Work", nil)
	bobFolder := createFolder(t, f, "bob", "Bob", nil)
	note, err := f.notes.CreateNote(ctx, &services.CreateNoteRequest{UserID: "alice", Title: "t", Content: strPtr("c")})
	require.NoError(t, err)

	moved, err := f.notes.MoveNote(ctx, "alice", note.ID, work.ID)
	require.NoError(t, err)
	assert.Equal(t, work.ID, moved.FolderID)
	assert.Equal(t, "c", moved.Content)

	_, err = f.notes.MoveNote(ctx, "alice", note.ID, bobFolder.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.notes.MoveNote(ctx, "alice", uuid.NewString(), work.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.notes.MoveNote(ctx, "alice", note.ID, "bad")
	assert.ErrorIs(t, err, domain.ErrValidation)

	children, err := f.folders.GetChildren(ctx, "alice", work.ID)
	require.NoError(t, err)
	require.Len(t, children.Notes, 1)
	assert.Equal(t, note.ID, children.Notes[0].ID)
}

func TestCopyNote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	work := createFolder(t, f, "alice", "Work", nil)
	source, err := f.notes.CreateNote(ctx, &services.CreateNoteRequest{
		UserID:     "alice",
		FolderID:   &work.ID,
		Title:      "Plan",
		Content:    strPtr("steps"),
		IsFavorite: true,
		Tags:       []string{"x"},
	})
	require.NoError(t, err)
	_, err = f.notes.UpdateNoteContent(ctx, "alice", source.ID, &services.UpdateNoteRequest{
		Content:         strPtr("steps v2"),
		ExpectedVersion: int64Ptr(1),
	})
	require.NoError(t, err)

	copied, err := f.notes.CopyNote(ctx, "alice", source.ID)
	require.NoError(t, err)
	assert.NotEqual(t, source.ID, copied.ID)
	assert.Equal(t, "Plan (copy)", copied.Title)
	assert.Equal(t, "steps v2", copied.Content)
	assert.Equal(t, work.ID, copied.FolderID)
	assert.Equal(t, []string{"x"}, copied.Tags)
	assert.False(t, copied.IsFavorite)
	assert.Equal(t, int64(1), copied.Version)

	// The copy decrypts under its own ID
	got, err := f.notes.GetNote(ctx, "alice", copied.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "steps v2", got.Content)

	_, err = f.notes.CopyNote(ctx, "bob", source.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCopyTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "short", title: "Plan", want: "Plan (copy)"},
		{name: "already a copy", title: "Plan (copy)", want: "Plan (copy) (copy)"},
		{
			name:  "at limit is truncated",
			title: strings.Repeat("é", config.MaxNoteTitleLength),
			want:  strings.Repeat("é", config.MaxNoteTitleLength-utf8.RuneCountInString(copySuffix)) + copySuffix,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := copyTitle(tt.title)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, utf8.RuneCountInString(got), config.MaxNoteTitleLength)
		})
	}
}

func TestDeleteAndListNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.notes.CreateNote(ctx, &services.CreateNoteRequest{UserID: "alice", Title: "first", Content: strPtr("1")})
	require.NoError(t, err)
	second, err := f.notes.CreateNote(ctx, &services.CreateNoteRequest{UserID: "alice", Title: "second"})
	require.NoError(t, err)
	_, err = f.notes.CreateNote(ctx, &services.CreateNoteRequest{UserID: "bob", Title: "bob's"})
	require.NoError(t, err)

	list, err := f.notes.ListNotes(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	deleted, err := f.notes.DeleteNote(ctx, "alice", first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, deleted.ID)
	assert.Equal(t, "1", deleted.Content)

	_, err = f.notes.DeleteNote(ctx, "alice", first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.notes.DeleteNote(ctx, "bob", second.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err = f.notes.ListNotes(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)
}

func manyTags(n int) []string {
	tags := make([]string, n)
	for i := range tags {
		tags[i] = uuid.NewString()[:8]
	}
	return tags
}
