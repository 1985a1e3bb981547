// Package sqlite provides the single-file storage backend.
// It uses ncruces/go-sqlite3/driver through database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	DB     *sql.DB
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Folders string
	Notes   string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Folders: prefix + "folders",
		Notes:   prefix + "notes",
	}
}

// Open opens (creating if needed) the database file and applies the schema.
//
// The pool is limited to one connection: SQLite allows a single writer, and
// every transaction starts with BEGIN IMMEDIATE (_txlock=immediate), so tree
// mutations for all owners are serialized. Repositories must run through
// GetExecutor(ctx) while a transaction is open or they would wait on the
// connection the transaction holds.
func Open(ctx context.Context, path string, tables *TableNames) (*sql.DB, error) {
	dsn := "file:" + path + "?" + url.Values{
		"_txlock": {"immediate"},
		"_pragma": {"foreign_keys(1)", "busy_timeout(5000)", "journal_mode(wal)"},
	}.Encode()

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema(tables)); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return db, nil
}

// schema mirrors the postgres migrations. Timestamps are unix nanoseconds,
// tags a JSON array.
func schema(t *TableNames) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    name TEXT NOT NULL,
    parent_folder_id TEXT REFERENCES %[1]s(id) ON DELETE CASCADE,
    is_root INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    CHECK (is_root = (parent_folder_id IS NULL))
);

CREATE UNIQUE INDEX IF NOT EXISTS %[1]s_owner_root_idx ON %[1]s(owner_id) WHERE is_root = 1;
CREATE INDEX IF NOT EXISTS %[1]s_owner_parent_idx ON %[1]s(owner_id, parent_folder_id);

CREATE TABLE IF NOT EXISTS %[2]s (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    folder_id TEXT NOT NULL REFERENCES %[1]s(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    content BLOB NOT NULL,
    is_favorite INTEGER NOT NULL DEFAULT 0,
    tags TEXT NOT NULL DEFAULT '[]',
    version INTEGER NOT NULL DEFAULT 1 CHECK (version >= 1),
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS %[2]s_owner_updated_idx ON %[2]s(owner_id, updated_at DESC);
CREATE INDEX IF NOT EXISTS %[2]s_folder_idx ON %[2]s(folder_id);
`, t.Folders, t.Notes)
}

// DBTX is satisfied by both *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txContextKey struct{}

func withTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txContextKey{}).(*sql.Tx)
	return tx
}

// GetExecutor returns the transaction stored in ctx, or db outside a transaction
func GetExecutor(ctx context.Context, db *sql.DB) DBTX {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db
}
