// Package repository selects and opens the configured storage backend.
package repository

import (
	"context"
	"fmt"
	"log/slog"

	"notevault/internal/config"
	"notevault/internal/domain/repositories"
	"notevault/internal/repository/postgres"
	"notevault/internal/repository/sqlite"
)

// Storage bundles the repositories of one backend
type Storage struct {
	Folders   repositories.FolderRepository
	Notes     repositories.NoteRepository
	TxManager repositories.TransactionManager

	ping  func(ctx context.Context) error
	close func()
}

// Ping checks that the backend is reachable
func (s *Storage) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the connection pool or database handle
func (s *Storage) Close() {
	s.close()
}

// Open connects to the backend named by cfg.StorageDriver. Postgres schemas
// are migrated first when cfg.MigrateOnStart is set; the sqlite schema is
// always applied on open.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Storage, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	case config.DriverSQLite:
		return openSQLite(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Storage, error) {
	if cfg.MigrateOnStart {
		if err := postgres.MigrateUp(cfg.DatabaseURL, cfg.TablePrefix, logger); err != nil {
			return nil, err
		}
	}

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	logger.Info("database connected",
		"driver", config.DriverPostgres,
		"max_conns", pool.Config().MaxConns,
		"min_conns", pool.Config().MinConns,
	)

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	}

	return &Storage{
		Folders:   postgres.NewFolderRepository(repoConfig),
		Notes:     postgres.NewNoteRepository(repoConfig),
		TxManager: postgres.NewTransactionManager(pool, logger),
		ping:      pool.Ping,
		close:     pool.Close,
	}, nil
}

func openSQLite(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Storage, error) {
	tables := sqlite.NewTableNames(cfg.TablePrefix)
	db, err := sqlite.Open(ctx, cfg.SQLitePath, tables)
	if err != nil {
		return nil, err
	}

	logger.Info("database connected",
		"driver", config.DriverSQLite,
		"path", cfg.SQLitePath,
	)

	repoConfig := &sqlite.RepositoryConfig{
		DB:     db,
		Tables: tables,
		Logger: logger,
	}

	return &Storage{
		Folders:   sqlite.NewFolderRepository(repoConfig),
		Notes:     sqlite.NewNoteRepository(repoConfig),
		TxManager: sqlite.NewTransactionManager(db, logger),
		ping:      db.PingContext,
		close:     func() { db.Close() },
	}, nil
}
