package cache

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/altafino/consultation-report/internal/utility/u_io"
)

// FileStorage keeps one .eml file per message under
// base/<account>/<folder>/<uidvalidity>/<uid>.eml.
type FileStorage struct {
	basePath    string
	mu          sync.RWMutex
	initialized bool
}

// NewFileStorage creates a new file-based storage
func NewFileStorage(basePath string) (*FileStorage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	return &FileStorage{basePath: basePath}, nil
}

// Initialize prepares the storage for use
func (s *FileStorage) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	s.initialized = true
	return nil
}

func (s *FileStorage) Close() error {
	return nil
}

func (s *FileStorage) path(key Key) string {
	return filepath.Join(s.basePath,
		u_io.CleanFilename(key.Account),
		u_io.CleanFilename(key.Folder),
		strconv.FormatUint(uint64(key.UIDValidity), 10),
		strconv.FormatUint(uint64(key.UID), 10)+".eml")
}

func (s *FileStorage) Get(ctx context.Context, key Key) ([]byte, error) {
	if !s.initialized {
		return nil, ErrStorageNotInitialized
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached message %s: %w", key, err)
	}
	return raw, nil
}

func (s *FileStorage) Put(ctx context.Context, key Key, raw []byte) error {
	if !s.initialized {
		return ErrStorageNotInitialized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	// Write to a temp file first so a crash never leaves a truncated entry.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("failed to write cached message %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to store cached message %s: %w", key, err)
	}
	return nil
}

// CleanupOldRecords removes entries whose modification time is older than
// the retention period.
func (s *FileStorage) CleanupOldRecords(ctx context.Context, retentionDays int) error {
	if !s.initialized {
		return ErrStorageNotInitialized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || filepath.Ext(path) != ".eml" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove %s: %w", path, err)
			}
		}
		return nil
	})
}
