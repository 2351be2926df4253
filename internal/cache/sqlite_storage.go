package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
		CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);
		CREATE TABLE IF NOT EXISTS messages (
			account      TEXT    NOT NULL,
			folder       TEXT    NOT NULL,
			uid_validity INTEGER NOT NULL,
			uid          INTEGER NOT NULL,
			raw          BLOB    NOT NULL,
			cached_at    TIMESTAMP NOT NULL,
			PRIMARY KEY (account, folder, uid_validity, uid)
		);
		CREATE INDEX IF NOT EXISTS idx_messages_cached_at ON messages (cached_at);
		INSERT INTO schema_version (version) VALUES (1);`,
	},
}

// SQLiteStorage keeps raw messages in a SQLite database file named
// messages.db below the storage path.
type SQLiteStorage struct {
	path string
	db   *sqlx.DB
}

// NewSQLiteStorage creates a storage backed by dir/messages.db. The
// database is opened by Initialize.
func NewSQLiteStorage(dir string) (*SQLiteStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	return &SQLiteStorage{path: filepath.Join(dir, "messages.db")}, nil
}

// Initialize opens the database, enables WAL mode and applies pending
// migrations.
func (s *SQLiteStorage) Initialize() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	// A single connection keeps writes from the parse pool serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s.db = db
	if err := s.runMigrations(); err != nil {
		db.Close()
		s.db = nil
		return fmt.Errorf("failed to run cache migrations: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) runMigrations() error {
	currentVersion := 0

	var tableCount int
	if err := s.db.Get(&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'"); err != nil {
		return fmt.Errorf("failed to check schema_version table: %w", err)
	}
	if tableCount > 0 {
		if err := s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("failed to apply migration v%d: %w", m.version, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStorage) Get(ctx context.Context, key Key) ([]byte, error) {
	if s.db == nil {
		return nil, ErrStorageNotInitialized
	}

	var raw []byte
	err := s.db.GetContext(ctx, &raw,
		"SELECT raw FROM messages WHERE account = ? AND folder = ? AND uid_validity = ? AND uid = ?",
		key.Account, key.Folder, key.UIDValidity, key.UID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached message %s: %w", key, err)
	}
	return raw, nil
}

func (s *SQLiteStorage) Put(ctx context.Context, key Key, raw []byte) error {
	if s.db == nil {
		return ErrStorageNotInitialized
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO messages (account, folder, uid_validity, uid, raw, cached_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		key.Account, key.Folder, key.UIDValidity, key.UID, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to cache message %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) CleanupOldRecords(ctx context.Context, retentionDays int) error {
	if s.db == nil {
		return ErrStorageNotInitialized
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	if _, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE cached_at < ?", cutoff); err != nil {
		return fmt.Errorf("failed to clean up cache: %w", err)
	}
	return nil
}
