// Package sqlite owns the writable local state under ~/.n8n-cli: the
// workflow-version snapshot store. The bundled read-only catalog lives in
// engine/catalog; this database is the only one the CLI writes to.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"

	// Register modernc SQLite driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/n8n-cli/n8nctl/engine/core"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// dataDirMode keeps the state directory private to the invoking user.
const dataDirMode = 0o700

// Store is the writable local database. A single process owns it; WAL
// keeps readers from blocking the writer within that process.
type Store struct {
	db   *sql.DB
	path string
}

// DefaultPath resolves the local database location under the user's state
// directory.
func DefaultPath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data.db"), nil
}

// StateDir returns ~/.n8n-cli, creating it with owner-only permissions.
func StateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", core.NewError(err, "STATE_DIR_UNAVAILABLE", nil)
	}
	dir := filepath.Join(home, ".n8n-cli")
	if err := os.MkdirAll(dir, dataDirMode); err != nil {
		return "", core.NewError(err, "STATE_DIR_CREATE_FAILED", map[string]any{"dir": dir})
	}
	return dir, nil
}

// Open opens (creating if needed) the local database, verifies its
// integrity, and applies pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), dataDirMode); err != nil {
		return nil, core.NewError(err, "STATE_DIR_CREATE_FAILED", map[string]any{"dir": filepath.Dir(path)})
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, core.NewError(err, "STORE_OPEN_FAILED", map[string]any{"path": path})
	}
	// One connection avoids writer contention under WAL.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.verify(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// verify runs the integrity check. A corrupt store is an invariant
// violation, not a user error.
func (s *Store) verify(ctx context.Context) error {
	var result string
	if err := s.db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return core.NewKindError(core.KindInternal, err, "STORE_INTEGRITY_CHECK_FAILED",
			"local store integrity check could not run", map[string]any{"path": s.path})
	}
	if result != "ok" {
		return core.NewKindError(core.KindInternal, errors.New(result), "STORE_CORRUPT",
			"local store failed its integrity check", map[string]any{"path": s.path})
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return core.NewError(err, "MIGRATION_DIALECT_FAILED", nil)
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return core.NewError(err, "MIGRATION_FAILED", map[string]any{"path": s.path})
	}
	return nil
}

// Close checkpoints the WAL and releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}
