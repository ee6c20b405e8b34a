// Package catalog keeps per-index bookkeeping in a small SQLite database
// next to the indexes: when each index was first opened, when it last
// committed, and how many documents have gone in and out.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
)

// FileName is the catalog file created under an index root.
const FileName = "catalog.db"

// Memory opens a private in-memory catalog.
const Memory = ":memory:"

// ErrNotFound is returned by Get for an index the catalog has never seen.
var ErrNotFound = errors.New("index not in catalog")

// Entry describes one index.
type Entry struct {
	Name       string
	CreatedAt  time.Time
	LastCommit time.Time // zero until the first commit
	Commits    int64
	Inserted   int64
	Deleted    int64
}

// Catalog is safe for concurrent use.
type Catalog struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool
	now    func() time.Time
}

// Open opens or creates the catalog at path. Use Memory for tests.
func Open(path string) (*Catalog, error) {
	dsn := path
	if path != Memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, amerrors.DirectoryUnavailable(filepath.Dir(path), err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	// One connection: an in-memory database exists per connection, and a
	// single writer avoids lock contention on disk.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	c := &Catalog{db: db, path: path, now: time.Now}
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}
	return c, nil
}

func (c *Catalog) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS indexes (
		name        TEXT PRIMARY KEY,
		created_at  INTEGER NOT NULL,
		last_commit INTEGER NOT NULL DEFAULT 0,
		commits     INTEGER NOT NULL DEFAULT 0,
		inserted    INTEGER NOT NULL DEFAULT 0,
		deleted     INTEGER NOT NULL DEFAULT 0
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Path returns the location the catalog was opened at.
func (c *Catalog) Path() string { return c.path }

// Touch records name if it is not known yet. Existing entries are unchanged.
func (c *Catalog) Touch(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return amerrors.Disposed("catalog")
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO indexes (name, created_at) VALUES (?, ?)`,
		name, c.now().UnixMicro())
	if err != nil {
		return fmt.Errorf("failed to record index %s: %w", name, err)
	}
	return nil
}

// RecordCommit adds one commit and its counts to name, creating the entry
// when needed.
func (c *Catalog) RecordCommit(ctx context.Context, name string, inserted, deleted int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return amerrors.Disposed("catalog")
	}

	now := c.now().UnixMicro()
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO indexes (name, created_at, last_commit, commits, inserted, deleted)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			last_commit = excluded.last_commit,
			commits     = commits + 1,
			inserted    = inserted + excluded.inserted,
			deleted     = deleted + excluded.deleted`,
		name, now, now, inserted, deleted)
	if err != nil {
		return fmt.Errorf("failed to record commit for %s: %w", name, err)
	}
	return nil
}

// Get returns the entry for name, or ErrNotFound.
func (c *Catalog) Get(ctx context.Context, name string) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Entry{}, amerrors.Disposed("catalog")
	}

	row := c.db.QueryRowContext(ctx, `
		SELECT name, created_at, last_commit, commits, inserted, deleted
		FROM indexes WHERE name = ?`, name)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read catalog entry %s: %w", name, err)
	}
	return e, nil
}

// List returns every entry ordered by name.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, amerrors.Disposed("catalog")
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT name, created_at, last_commit, commits, inserted, deleted
		FROM indexes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e                   Entry
		created, lastCommit int64
	)
	if err := s.Scan(&e.Name, &created, &lastCommit, &e.Commits, &e.Inserted, &e.Deleted); err != nil {
		return Entry{}, err
	}
	e.CreatedAt = time.UnixMicro(created)
	if lastCommit > 0 {
		e.LastCommit = time.UnixMicro(lastCommit)
	}
	return e, nil
}

// Close checkpoints the WAL and closes the database. Idempotent.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.path != Memory {
		_, _ = c.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return c.db.Close()
}
