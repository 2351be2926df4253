// Package storage persists finished reports to a local directory or a
// Google Drive folder.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

var ErrUnsupportedStorageType = errors.New("unsupported storage type")

// ReportStorage stores a rendered report and returns its final path or
// remote identifier.
type ReportStorage interface {
	Save(ctx context.Context, filename string, content []byte, contentType string) (string, error)
}

// StorageType represents the type of storage backend
type StorageType string

const (
	StorageTypeFile   StorageType = "file"
	StorageTypeGDrive StorageType = "gdrive"
)

// Config holds configuration for creating storage instances.
type Config struct {
	Type StorageType
	// Path is the local directory or the Drive sub-folder path. It may
	// contain ${YYYY}, ${MM}, ${DD} and ${account} placeholders.
	Path string
	// PreserveStructure adds year/month sub-folders when Path has no
	// placeholders.
	PreserveStructure bool
	Account           string
	CredentialsFile   string // Google Drive service account JSON
	ParentFolderID    string // Google Drive folder ID where reports go
}

// NewStorage creates a new storage instance based on the configuration
func NewStorage(ctx context.Context, config Config, logger *slog.Logger) (ReportStorage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch config.Type {
	case StorageTypeFile, "":
		return NewFileStorage(config, logger), nil
	case StorageTypeGDrive:
		return NewGDriveStorage(ctx, config, logger)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStorageType, config.Type)
	}
}

// resolvePath expands placeholders in path, or appends year/month folders
// when preserveStructure is set and path has none.
func resolvePath(path string, now time.Time, account string, preserveStructure bool) string {
	if !strings.Contains(path, "${") {
		if preserveStructure {
			return strings.TrimSuffix(path, "/") + "/" + now.Format("2006/01")
		}
		return path
	}

	replacements := map[string]string{
		"${YYYY}":    now.Format("2006"),
		"${YY}":      now.Format("06"),
		"${MM}":      now.Format("01"),
		"${DD}":      now.Format("02"),
		"${account}": account,
	}
	for pattern, replacement := range replacements {
		path = strings.ReplaceAll(path, pattern, replacement)
	}
	return path
}
