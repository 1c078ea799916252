package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// ErrSchemaTooNew is returned by Open for a database migrated by a newer cdrc.
var ErrSchemaTooNew = errors.New("record store schema is newer than this cdrc")

// Store is the append-only log of compiled model specs kept in one SQLite
// file. It holds a single connection, so WriteRecord's seq allocation and
// insert never interleave with another writer in the same process.
type Store struct {
	db *sql.DB
}

// connSetting is a go-sqlite3 DSN parameter together with the pragma that
// reports it and the value that pragma reads back once it took effect.
type connSetting struct {
	param  string
	value  string
	pragma string
	want   string
}

var connSettings = []connSetting{
	{"_journal_mode", "WAL", "journal_mode", "wal"},
	{"_synchronous", "NORMAL", "synchronous", "1"},
	{"_busy_timeout", "5000", "busy_timeout", "5000"},
}

// dsn builds the go-sqlite3 data source name for path. Transactions begin
// IMMEDIATE so a second process writing the same log waits on busy_timeout
// instead of failing at commit.
func dsn(path string) string {
	q := url.Values{}
	for _, c := range connSettings {
		q.Set(c.param, c.value)
	}
	q.Set("_txlock", "immediate")
	return path + "?" + q.Encode()
}

// migration is one step of the records schema. Its statements and the
// user_version bump commit together.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{1, "spec hash lookup", []string{
		`CREATE INDEX IF NOT EXISTS idx_records_hash ON records(spec_hash, seq)`,
	}},
	{2, "append-only records", []string{
		`CREATE TRIGGER IF NOT EXISTS records_no_update BEFORE UPDATE ON records
		BEGIN SELECT RAISE(ABORT, 'records are append-only'); END`,
		`CREATE TRIGGER IF NOT EXISTS records_no_delete BEFORE DELETE ON records
		BEGIN SELECT RAISE(ABORT, 'records are append-only'); END`,
	}},
}

// schemaVersion is the version the last migration leaves the database at.
var schemaVersion = migrations[len(migrations)-1].version

// Open opens the record log at path, creating it if needed, and brings its
// schema up to date. The parent directory must exist.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open record store %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open record store %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for _, c := range connSettings {
		got, err := s.pragma(c.pragma)
		if err != nil {
			return err
		}
		if got != c.want {
			return fmt.Errorf("pragma %s = %q, want %q", c.pragma, got, c.want)
		}
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}
	return s.migrate()
}

// migrate applies every migration above the database's user_version in order.
func (s *Store) migrate() error {
	current, err := s.userVersion()
	if err != nil {
		return err
	}
	if current > schemaVersion {
		return fmt.Errorf("%w: database is at v%d, this build knows v%d", ErrSchemaTooNew, current, schemaVersion)
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.apply(m); err != nil {
			return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

func (s *Store) apply(m migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) userVersion() (int, error) {
	var v int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

func (s *Store) pragma(name string) (string, error) {
	var v string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&v); err != nil {
		return "", fmt.Errorf("read pragma %s: %w", name, err)
	}
	return v, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
