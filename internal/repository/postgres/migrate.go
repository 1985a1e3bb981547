package postgres

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"text/template"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// NewMigrator returns a migrate instance for the schema of one table prefix.
// Each prefix keeps its own version table, so dev/test/prod schemas can
// share a database.
func NewMigrator(databaseURL, prefix string) (*migrate.Migrate, error) {
	src, err := iofs.New(&prefixedFS{base: migrationFiles, prefix: prefix}, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}

	target, err := migrateURL(databaseURL, prefix)
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, target)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// MigrateUp applies every pending migration
func MigrateUp(databaseURL, prefix string, logger *slog.Logger) error {
	m, err := NewMigrator(databaseURL, prefix)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug("schema up to date", "prefix", prefix)
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema %s left dirty at version %d", prefix, version)
	}
	logger.Info("schema migrated", "prefix", prefix, "version", version)
	return nil
}

// migrateURL rewrites a postgres:// URL for the pgx/v5 migrate driver
func migrateURL(databaseURL, prefix string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}

	switch u.Scheme {
	case "postgres", "postgresql", "pgx5":
		u.Scheme = "pgx5"
	default:
		return "", fmt.Errorf("unsupported database url scheme %q", u.Scheme)
	}

	q := u.Query()
	q.Set("x-migrations-table", prefix+"schema_migrations")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// prefixedFS renders {{.Prefix}} placeholders in .sql files
type prefixedFS struct {
	base   fs.FS
	prefix string
}

func (p *prefixedFS) Open(name string) (fs.File, error) {
	f, err := p.base.Open(name)
	if err != nil || path.Ext(name) != ".sql" {
		return f, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read migration %s: %w", name, err)
	}

	rendered, err := p.render(name, raw)
	if err != nil {
		return nil, err
	}

	return &renderedFile{
		Reader: bytes.NewReader(rendered),
		info:   renderedInfo{FileInfo: info, size: int64(len(rendered))},
	}, nil
}

func (p *prefixedFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return fs.ReadDir(p.base, name)
}

func (p *prefixedFS) render(name string, raw []byte) ([]byte, error) {
	if strings.ContainsAny(p.prefix, "\"'; \t\n") {
		return nil, fmt.Errorf("invalid table prefix %q", p.prefix)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse migration %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Prefix string }{Prefix: p.prefix}); err != nil {
		return nil, fmt.Errorf("render migration %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

type renderedFile struct {
	*bytes.Reader
	info fs.FileInfo
}

func (f *renderedFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *renderedFile) Close() error               { return nil }

type renderedInfo struct {
	fs.FileInfo
	size int64
}

func (i renderedInfo) Size() int64 { return i.size }
