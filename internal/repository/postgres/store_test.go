package postgres

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"notevault/internal/domain"
	"notevault/internal/domain/models"
	"notevault/internal/domain/repositories"
	"notevault/internal/domain/services"
	"notevault/internal/service"
)

// testDatabaseEnv names a disposable database; tests in this file skip without it
const testDatabaseEnv = "NOTEVAULT_TEST_DATABASE_URL"

type testStore struct {
	url     string
	prefix  string
	pool    *pgxpool.Pool
	folders repositories.FolderRepository
	notes   repositories.NoteRepository
	tx      repositories.TransactionManager
	logger  *slog.Logger
}

// newTestStore migrates a uniquely prefixed schema and drops it on cleanup
func newTestStore(t *testing.T) *testStore {
	t.Helper()

	databaseURL := os.Getenv(testDatabaseEnv)
	if databaseURL == "" {
		t.Skipf("%s not set", testDatabaseEnv)
	}

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	prefix := fmt.Sprintf("it_%s_", uuid.NewString()[:8])

	require.NoError(t, MigrateUp(databaseURL, prefix, logger))

	pool, err := CreateConnectionPool(ctx, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		m, err := NewMigrator(databaseURL, prefix)
		if err == nil {
			_ = m.Down()
			m.Close()
		}
		_, _ = pool.Exec(context.Background(), fmt.Sprintf("DROP TABLE IF EXISTS %sschema_migrations", prefix))
		pool.Close()
	})

	cfg := &RepositoryConfig{Pool: pool, Tables: NewTableNames(prefix), Logger: logger}
	return &testStore{
		url:     databaseURL,
		prefix:  prefix,
		pool:    pool,
		folders: NewFolderRepository(cfg),
		notes:   NewNoteRepository(cfg),
		tx:      NewTransactionManager(pool, logger),
		logger:  logger,
	}
}

func (s *testStore) root(t *testing.T, owner string) *models.Folder {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	folder := &models.Folder{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		Name:      models.RootFolderName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.folders.CreateRoot(context.Background(), folder))
	return folder
}

func (s *testStore) folder(t *testing.T, owner, name, parentID string) *models.Folder {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	folder := &models.Folder{
		ID:             uuid.NewString(),
		OwnerID:        owner,
		Name:           name,
		ParentFolderID: &parentID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, s.folders.Create(context.Background(), folder))
	return folder
}

func (s *testStore) folderService() services.FolderService {
	return service.NewFolderService(s.folders, s.notes, s.tx, s.logger)
}

func TestPostgresMigrateUpLeavesCleanVersion(t *testing.T) {
	s := newTestStore(t)

	// Already applied: no change is not an error
	require.NoError(t, MigrateUp(s.url, s.prefix, s.logger))

	m, err := NewMigrator(s.url, s.prefix)
	require.NoError(t, err)
	defer m.Close()

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)
}

func TestPostgresFolderErrorsAndPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	root := s.root(t, "alice")
	a := s.folder(t, "alice", "A", root.ID)
	b := s.folder(t, "alice", "B", a.ID)

	path, err := s.folders.GetPath(ctx, b.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "root/A/B", path)

	dup := *root
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, s.folders.CreateRoot(ctx, &dup), domain.ErrConflict)

	orphan := &models.Folder{
		ID:             uuid.NewString(),
		OwnerID:        "alice",
		Name:           "orphan",
		ParentFolderID: func() *string { id := uuid.NewString(); return &id }(),
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	assert.ErrorIs(t, s.folders.Create(ctx, orphan), domain.ErrNotFound)

	_, err = s.folders.GetByID(ctx, a.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresUpdateContentCompareAndSwap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	root := s.root(t, "alice")
	now := time.Now().UTC().Truncate(time.Microsecond)
	note := &models.Note{
		ID:               uuid.NewString(),
		OwnerID:          "alice",
		FolderID:         root.ID,
		Title:            "draft",
		EncryptedContent: []byte("sealed"),
		Tags:             []string{"a"},
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, s.notes.Create(ctx, note))

	update := *note
	update.Title = "v2"
	update.EncryptedContent = []byte("sealed-2")
	require.NoError(t, s.notes.UpdateContent(ctx, &update, 1))
	assert.Equal(t, int64(2), update.Version)

	stale := *note
	stale.Title = "lost"
	err := s.notes.UpdateContent(ctx, &stale, 1)
	var pfErr *domain.PreconditionFailedError
	require.ErrorAs(t, err, &pfErr)
	assert.Equal(t, int64(2), pfErr.CurrentVersion)

	missing := *note
	missing.ID = uuid.NewString()
	assert.ErrorIs(t, s.notes.UpdateContent(ctx, &missing, 1), domain.ErrNotFound)

	got, err := s.notes.GetByID(ctx, note.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Title)
	assert.Equal(t, int64(2), got.Version)
}

func TestPostgresConcurrentUpdatesOneWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	root := s.root(t, "alice")
	now := time.Now().UTC().Truncate(time.Microsecond)
	note := &models.Note{
		ID:               uuid.NewString(),
		OwnerID:          "alice",
		FolderID:         root.ID,
		Title:            "draft",
		EncryptedContent: []byte("sealed"),
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, s.notes.Create(ctx, note))

	const writers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			attempt := *note
			attempt.Title = fmt.Sprintf("writer %d", i)
			err := s.notes.UpdateContent(ctx, &attempt, 1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	got, err := s.notes.GetByID(ctx, note.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
}

func TestPostgresConcurrentOppositeMoves(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	folders := s.folderService()

	root, _, err := folders.EnsureRootFolder(ctx, "alice")
	require.NoError(t, err)

	for round := 0; round < 10; round++ {
		a := s.folder(t, "alice", fmt.Sprintf("A%d", round), root.ID)
		b := s.folder(t, "alice", fmt.Sprintf("B%d", round), root.ID)

		var wg sync.WaitGroup
		results := make([]error, 2)
		moves := [][2]string{{a.ID, b.ID}, {b.ID, a.ID}}
		for i, move := range moves {
			wg.Add(1)
			go func(i int, folderID, parentID string) {
				defer wg.Done()
				_, results[i] = folders.MoveFolder(ctx, "alice", folderID, parentID)
			}(i, move[0], move[1])
		}
		wg.Wait()

		succeeded := 0
		for _, err := range results {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, domain.ErrInvalidOperation)
		}
		assert.Equal(t, 1, succeeded, "round %d", round)

		for _, id := range []string{a.ID, b.ID} {
			path, err := s.folders.GetPath(ctx, id, "alice")
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(path, models.RootFolderName+"/"), path)
		}
	}
}

func TestPostgresMoveRejectsCycleWithUppercaseID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	folders := s.folderService()

	root, _, err := folders.EnsureRootFolder(ctx, "alice")
	require.NoError(t, err)
	a := s.folder(t, "alice", "A", root.ID)
	b := s.folder(t, "alice", "B", a.ID)

	_, err = folders.MoveFolder(ctx, "alice", strings.ToUpper(a.ID), b.ID)
	var opErr *domain.InvalidOperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, domain.ReasonFolderCycle, opErr.Reason)

	_, err = folders.MoveFolder(ctx, "alice", strings.ToUpper(b.ID), b.ID)
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, domain.ReasonFolderCycle, opErr.Reason)

	parentID, err := s.folders.GetParentID(ctx, a.ID, "alice")
	require.NoError(t, err)
	require.NotNil(t, parentID)
	assert.Equal(t, root.ID, *parentID)
}
