package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/altafino/consultation-report/internal/utility/u_io"
)

// FileStorage writes reports below a local directory.
type FileStorage struct {
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// NewFileStorage creates a new FileStorage instance
func NewFileStorage(config Config, logger *slog.Logger) *FileStorage {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStorage{config: config, logger: logger, now: time.Now}
}

// Save writes content to a new file. An existing file is never overwritten;
// a numeric suffix is added instead.
func (fs *FileStorage) Save(ctx context.Context, filename string, content []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := resolvePath(fs.config.Path, fs.now(), fs.config.Account, fs.config.PreserveStructure)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	path := u_io.EnsureUniqueFilename(filepath.Join(dir, filepath.Base(filename)))
	if err := writeFile(path, content); err != nil {
		return "", err
	}

	fs.logger.Debug("report stored",
		"path", path,
		"content_type", contentType,
		"size", len(content))
	return path, nil
}

func writeFile(path string, content []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write file content: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}
