// Package cache stores photo attributes in SQLite so queries can be
// planned and autocompleted without reading every file.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/trylock/viewer-sub003/internal/entity"
	"github.com/trylock/viewer-sub003/internal/fsys"
	"github.com/trylock/viewer-sub003/internal/logging"
	"github.com/trylock/viewer-sub003/internal/sqlutil"
	"github.com/trylock/viewer-sub003/internal/value"
)

var (
	// ErrAttributeNotFound indicates the custom attribute is not set on the file.
	ErrAttributeNotFound = errors.New("attribute not found in cache")
	// ErrLocked indicates another process is indexing into the same cache.
	ErrLocked = errors.New("cache is locked by another indexer")
)

// CurrentVersion is the schema version written to the meta table.
// v2: attributes keep their source so reindexing preserves custom values
const CurrentVersion = 2

// Store is the SQLite attribute cache.
type Store struct {
	db   *sql.DB
	path string
	log  *zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger overrides the package logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open opens or creates the cache database at path.
func Open(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	s := &Store{db: db, path: path}
	for _, opt := range opts {
		opt(s)
	}

	if !isSchemaCompatible(db) {
		if _, err := db.Exec(dropSchema); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to drop outdated cache schema: %w", err)
		}
		s.logger().Info().Str("path", path).Msg("rebuilt outdated attribute cache")
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenInMemory opens a private in-memory cache (for testing).
func OpenInMemory(opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path is the database file, or "" for an in-memory cache.
func (s *Store) Path() string { return s.path }

func (s *Store) logger() *zerolog.Logger {
	if s.log != nil {
		return s.log
	}
	l := logging.GetLogger()
	return &l
}

const dropSchema = `
	DROP TABLE IF EXISTS attributes;
	DROP TABLE IF EXISTS files;
	DROP TABLE IF EXISTS meta;
`

func (s *Store) initialize() error {
	schema := `
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;

		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		-- One row per known photo
		CREATE TABLE IF NOT EXISTS files (
			path TEXT PRIMARY KEY,
			dir TEXT NOT NULL,
			file_mtime INTEGER,         -- Unix seconds when the attributes were read
			indexed_at INTEGER
		);

		CREATE TABLE IF NOT EXISTS attributes (
			path TEXT NOT NULL,
			name TEXT NOT NULL,
			source INTEGER NOT NULL,    -- entity.Source
			kind INTEGER NOT NULL,      -- value.Kind
			value TEXT NOT NULL,
			PRIMARY KEY (path, name)
		);

		CREATE INDEX IF NOT EXISTS idx_files_dir ON files(dir);
		CREATE INDEX IF NOT EXISTS idx_attributes_name ON attributes(name, kind, value);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	_, err := s.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('version', ?)`,
		fmt.Sprintf("%d", CurrentVersion))
	if err != nil {
		return fmt.Errorf("failed to set cache version: %w", err)
	}
	return nil
}

// isSchemaCompatible reports whether db is empty or written by this version.
func isSchemaCompatible(db *sql.DB) bool {
	var name string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='meta'").Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	if err != nil {
		return false
	}

	var version string
	if err := db.QueryRow("SELECT value FROM meta WHERE key = 'version'").Scan(&version); err != nil {
		return false
	}
	return version == fmt.Sprintf("%d", CurrentVersion)
}

// encode stores a value as its kind and a lossless text form.
func encode(v value.Value) (value.Kind, string) {
	if v.Kind() == value.KindDateTime {
		return v.Kind(), v.AsTime().Format(time.RFC3339Nano)
	}
	return v.Kind(), v.String()
}

func decode(kind value.Kind, text string) (value.Value, error) {
	return value.Parse(kind, text)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func ensureFile(e execer, path string) error {
	_, err := e.Exec(`INSERT OR IGNORE INTO files (path, dir) VALUES (?, ?)`, path, fsys.Dir(path))
	return err
}

// Put replaces the computed and metadata attributes of a file. Custom
// attributes already stored for the file are kept.
func (s *Store) Put(path string, mtime time.Time, attrs []entity.Attribute) error {
	path = fsys.Normalize(path)

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO files (path, dir, file_mtime, indexed_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET file_mtime = excluded.file_mtime, indexed_at = excluded.indexed_at
	`, path, fsys.Dir(path), mtime.Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store file %s: %w", path, err)
	}
	if _, err := tx.Exec(`DELETE FROM attributes WHERE path = ? AND source <> ?`, path, int(entity.SourceCustom)); err != nil {
		return fmt.Errorf("clear attributes of %s: %w", path, err)
	}

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO attributes (path, name, source, kind, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range attrs {
		if a.Source == entity.SourceCustom || a.Value.IsNull() {
			continue
		}
		kind, text := encode(a.Value)
		if _, err := stmt.Exec(path, a.Name, int(a.Source), int(kind), text); err != nil {
			return fmt.Errorf("store attribute %s of %s: %w", a.Name, path, err)
		}
	}
	return tx.Commit()
}

// Remove forgets a file and all of its attributes.
func (s *Store) Remove(path string) error {
	path = fsys.Normalize(path)

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"attributes", "files"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE path = ?", path); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// SetAttribute sets a custom attribute, replacing any attribute of the same
// name. Setting Null removes it.
func (s *Store) SetAttribute(path, name string, v value.Value) error {
	if v.IsNull() {
		err := s.RemoveAttribute(path, name)
		if errors.Is(err, ErrAttributeNotFound) {
			return nil
		}
		return err
	}
	path = fsys.Normalize(path)

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := ensureFile(tx, path); err != nil {
		return fmt.Errorf("store file %s: %w", path, err)
	}
	kind, text := encode(v)
	_, err = tx.Exec(`INSERT OR REPLACE INTO attributes (path, name, source, kind, value) VALUES (?, ?, ?, ?, ?)`,
		path, name, int(entity.SourceCustom), int(kind), text)
	if err != nil {
		return fmt.Errorf("store attribute %s of %s: %w", name, path, err)
	}
	return tx.Commit()
}

// RemoveAttribute removes a custom attribute.
func (s *Store) RemoveAttribute(path, name string) error {
	res, err := s.db.Exec(`DELETE FROM attributes WHERE path = ? AND name = ? AND source = ?`,
		fsys.Normalize(path), name, int(entity.SourceCustom))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s on %s: %w", name, path, ErrAttributeNotFound)
	}
	return nil
}

// CustomAttributes implements entity.CustomSource.
func (s *Store) CustomAttributes(path string) ([]entity.Attribute, error) {
	return s.attributes(fsys.Normalize(path), `AND source = ?`, int(entity.SourceCustom))
}

// Attributes returns every cached attribute of a file sorted by name.
func (s *Store) Attributes(path string) ([]entity.Attribute, error) {
	return s.attributes(fsys.Normalize(path), "")
}

func (s *Store) attributes(path, filter string, args ...any) ([]entity.Attribute, error) {
	rows, err := s.db.Query(`SELECT name, source, kind, value FROM attributes WHERE path = ? `+filter+` ORDER BY name`,
		append([]any{path}, args...)...)
	if err != nil {
		return nil, err
	}
	return sqlutil.ScanRows(rows, func(rows *sql.Rows) (entity.Attribute, error) {
		var name, text string
		var source, kind int
		if err := rows.Scan(&name, &source, &kind, &text); err != nil {
			return entity.Attribute{}, err
		}
		v, err := decode(value.Kind(kind), text)
		if err != nil {
			s.logger().Debug().Err(err).Str("path", path).Str("attribute", name).Msg("skipping undecodable cached value")
			return entity.Attribute{}, sqlutil.ErrSkip
		}
		return entity.Attribute{Name: name, Value: v, Source: entity.Source(source)}, nil
	})
}

// FileMtime returns the modification time recorded for a file and whether
// the file is in the cache.
func (s *Store) FileMtime(path string) (time.Time, bool, error) {
	var mtime sql.NullInt64
	err := s.db.QueryRow(`SELECT file_mtime FROM files WHERE path = ?`, fsys.Normalize(path)).Scan(&mtime)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	if !mtime.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(mtime.Int64, 0), true, nil
}

// AttributeNames lists distinct attribute names starting with prefix,
// case-insensitively, in sorted order.
func (s *Store) AttributeNames(prefix string) ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT name FROM attributes WHERE lower(substr(name, 1, ?)) = lower(?) ORDER BY name`,
		len([]rune(prefix)), prefix)
	if err != nil {
		return nil, err
	}
	return sqlutil.ScanRows(rows, sqlutil.String)
}

// Values lists the distinct values stored for an attribute in value order.
func (s *Store) Values(name string) ([]value.Value, error) {
	rows, err := s.db.Query(`SELECT DISTINCT kind, value FROM attributes WHERE name = ?`, name)
	if err != nil {
		return nil, err
	}
	out, err := sqlutil.ScanRows(rows, func(rows *sql.Rows) (value.Value, error) {
		var kind int
		var text string
		if err := rows.Scan(&kind, &text); err != nil {
			return value.Value{}, err
		}
		v, err := decode(value.Kind(kind), text)
		if err != nil {
			return value.Value{}, sqlutil.ErrSkip
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, value.Order)
	return out, nil
}

// Stats summarizes the cache contents.
type Stats struct {
	FileCount      int
	AttributeCount int
	NameCount      int
}

// Stats counts cached files and attributes.
func (s *Store) Stats() (*Stats, error) {
	var st Stats
	if err := s.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&st.FileCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM attributes").Scan(&st.AttributeCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow("SELECT COUNT(DISTINCT name) FROM attributes").Scan(&st.NameCount); err != nil {
		return nil, err
	}
	return &st, nil
}

// RemoveMissing drops cached files below root that exist is false for.
// It returns the removed paths.
func (s *Store) RemoveMissing(root string, exists func(path string) bool) ([]string, error) {
	where, args := underRoot("dir", root)
	rows, err := s.db.Query(`SELECT path FROM files WHERE `+where, args...)
	if err != nil {
		return nil, err
	}
	paths, err := sqlutil.ScanRows(rows, sqlutil.String)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, p := range paths {
		if exists(p) {
			continue
		}
		if err := s.Remove(p); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", p, err)
		}
		removed = append(removed, p)
	}
	return removed, nil
}

// underRoot returns a condition selecting directories at or below root.
// SQLite's substr counts characters, not bytes.
func underRoot(column, root string) (string, []any) {
	root = fsys.Normalize(root)
	if root == "" {
		return "1 = 1", nil
	}
	prefix := root
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	cond := fmt.Sprintf("(%s = ? OR substr(%s, 1, ?) = ?)", column, column)
	return cond, []any{root, len([]rune(prefix)), prefix}
}
