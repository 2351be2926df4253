package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/altafino/consultation-report/internal/types"
)

// Manager wraps a Storage for the mailbox clients. Cache failures are
// logged and never fail a fetch.
type Manager struct {
	logger        *slog.Logger
	storage       Storage
	retentionDays int

	hits   atomic.Int64
	misses atomic.Int64
}

// NewManager creates a cache manager. A disabled cache yields a manager
// whose lookups always miss.
func NewManager(cfg *types.Config, logger *slog.Logger) (*Manager, error) {
	if !cfg.Cache.Enabled {
		logger.Debug("message cache is disabled")
		return &Manager{logger: logger}, nil
	}

	storage, err := NewStorage(cfg.Cache.StorageType, cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache storage: %w", err)
	}
	if err := storage.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize cache storage: %w", err)
	}

	logger.Debug("initialized message cache",
		"storage_type", cfg.Cache.StorageType,
		"path", cfg.Cache.Path)

	return NewManagerWithStorage(storage, cfg.Cache.RetentionDays, logger), nil
}

// NewManagerWithStorage wraps an initialized storage.
func NewManagerWithStorage(storage Storage, retentionDays int, logger *slog.Logger) *Manager {
	return &Manager{logger: logger, storage: storage, retentionDays: retentionDays}
}

// Enabled reports whether lookups can hit.
func (m *Manager) Enabled() bool {
	return m != nil && m.storage != nil
}

// Lookup returns the cached raw message for key, if any.
func (m *Manager) Lookup(ctx context.Context, key Key) ([]byte, bool) {
	if !m.Enabled() {
		return nil, false
	}

	raw, err := m.storage.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			m.logger.Warn("failed to read message cache", "key", key.String(), "error", err)
		}
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)
	return raw, true
}

// Store caches raw under key.
func (m *Manager) Store(ctx context.Context, key Key, raw []byte) {
	if !m.Enabled() {
		return
	}
	if err := m.storage.Put(ctx, key, raw); err != nil {
		m.logger.Warn("failed to write message cache", "key", key.String(), "error", err)
	}
}

// Stats returns the number of hits and misses since creation.
func (m *Manager) Stats() (hits, misses int64) {
	if m == nil {
		return 0, 0
	}
	return m.hits.Load(), m.misses.Load()
}

// Cleanup removes entries older than the retention period.
func (m *Manager) Cleanup(ctx context.Context) error {
	if !m.Enabled() || m.retentionDays <= 0 {
		return nil
	}
	if err := m.storage.CleanupOldRecords(ctx, m.retentionDays); err != nil {
		return err
	}
	m.logger.Info("cleaned up message cache", "retention_days", m.retentionDays)
	return nil
}

// Close cleans up resources
func (m *Manager) Close() error {
	if !m.Enabled() {
		return nil
	}
	return m.storage.Close()
}
