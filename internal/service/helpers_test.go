package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"notevault/internal/config"
	"notevault/internal/domain/services"
	"notevault/internal/repository/sqlite"
)

type fixture struct {
	folders services.FolderService
	notes   services.NoteService
	codec   *GzipCodec
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cipher, err := NewXChaChaCipher("test-secret")
	require.NoError(t, err)
	return newFixtureWithCipher(t, cipher)
}

func newFixtureWithCipher(t *testing.T, cipher services.ContentCipher) *fixture {
	t.Helper()

	tables := sqlite.NewTableNames("test_")
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "notes.db"), tables)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repoCfg := &sqlite.RepositoryConfig{DB: db, Tables: tables, Logger: logger}
	folderRepo := sqlite.NewFolderRepository(repoCfg)
	noteRepo := sqlite.NewNoteRepository(repoCfg)
	txManager := sqlite.NewTransactionManager(db, logger)

	codec := NewGzipCodec(config.CompressionThreshold, config.MaxContentBytes, logger)

	folders := NewFolderService(folderRepo, noteRepo, txManager, logger)
	return &fixture{
		folders: folders,
		notes:   NewNoteService(noteRepo, folderRepo, folders, txManager, codec, cipher, logger),
		codec:   codec,
	}
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }
