package errorlog

import (
	"fmt"
	"log/slog"

	"github.com/altafino/consultation-report/internal/types"
)

// Manager handles message error logging for one configuration.
type Manager struct {
	cfg    *types.Config
	logger *slog.Logger
	impl   Logger
}

// NewManager creates a new error logging manager
func NewManager(cfg *types.Config, logger *slog.Logger) (*Manager, error) {
	if !cfg.ErrorLogging.Enabled {
		logger.Debug("message error logging is disabled")
		return &Manager{
			cfg:    cfg,
			logger: logger,
			impl:   noopLogger{},
		}, nil
	}

	impl, err := NewFileLogger(cfg.ErrorLogging.StoragePath, cfg.ErrorLogging.RetentionDays, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize error logger: %w", err)
	}

	return &Manager{
		cfg:    cfg,
		logger: logger,
		impl:   impl,
	}, nil
}

// LogError records a message processing error
func (m *Manager) LogError(err MessageError) error {
	if err.ConfigID == "" {
		err.ConfigID = m.cfg.Meta.ID
	}

	m.logger.Debug("recording message error",
		"error_type", err.ErrorType,
		"folder", err.Folder,
		"uid", err.UID,
		"config_id", err.ConfigID)

	return m.impl.LogError(err)
}

// GetErrors retrieves errors based on filters
func (m *Manager) GetErrors(filters map[string]string) ([]MessageError, error) {
	return m.impl.GetErrors(filters)
}

// CleanupOldErrors removes errors older than the retention period
func (m *Manager) CleanupOldErrors() error {
	return m.impl.CleanupOldErrors()
}

// Close releases any resources used by the logger
func (m *Manager) Close() error {
	return m.impl.Close()
}

// noopLogger is used when error logging is disabled.
type noopLogger struct{}

func (noopLogger) LogError(MessageError) error                         { return nil }
func (noopLogger) GetErrors(map[string]string) ([]MessageError, error) { return nil, nil }
func (noopLogger) CleanupOldErrors() error                             { return nil }
func (noopLogger) Close() error                                        { return nil }
