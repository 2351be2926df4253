// Package cache keeps raw messages already fetched from a mailbox so that
// repeated runs over overlapping ranges skip downloading them again.
package cache

import (
	"context"
	"errors"
	"fmt"
)

// Common errors
var (
	ErrUnsupportedStorageType = errors.New("unsupported storage type")
	ErrStorageNotInitialized  = errors.New("storage not initialized")
	ErrCacheMiss              = errors.New("cache miss")
)

// Key identifies a message on an IMAP server. A UID is only stable while
// the folder's UIDVALIDITY is unchanged, so both are part of the key.
type Key struct {
	Account     string
	Folder      string
	UIDValidity uint32
	UID         uint32
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d/%d", k.Account, k.Folder, k.UIDValidity, k.UID)
}

// Storage defines the interface for cached raw messages
type Storage interface {
	// Initialize prepares the storage for use
	Initialize() error

	// Close cleans up any resources used by the storage
	Close() error

	// Get returns the raw message for key or ErrCacheMiss.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Put stores raw under key, replacing an existing entry.
	Put(ctx context.Context, key Key, raw []byte) error

	// CleanupOldRecords removes entries cached more than retentionDays ago.
	CleanupOldRecords(ctx context.Context, retentionDays int) error
}

// NewStorage creates a new storage implementation based on the specified type
func NewStorage(storageType, storagePath string) (Storage, error) {
	switch storageType {
	case "sqlite", "":
		return NewSQLiteStorage(storagePath)
	case "file":
		return NewFileStorage(storagePath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStorageType, storageType)
	}
}
