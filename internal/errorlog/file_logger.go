package errorlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileLogger stores errors as JSON arrays, one file per config and day.
type FileLogger struct {
	logger        *slog.Logger
	storagePath   string
	retentionDays int
	mu            sync.Mutex
	now           func() time.Time
}

// NewFileLogger creates a new file-based error logger
func NewFileLogger(storagePath string, retentionDays int, logger *slog.Logger) (*FileLogger, error) {
	if storagePath == "" {
		return nil, fmt.Errorf("error log storage path cannot be empty")
	}
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create error log directory: %w", err)
	}
	if retentionDays <= 0 {
		retentionDays = 30
	}

	return &FileLogger{
		logger:        logger,
		storagePath:   storagePath,
		retentionDays: retentionDays,
		now:           time.Now,
	}, nil
}

// LogError appends err to today's file.
func (f *FileLogger) LogError(err MessageError) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err.ID == "" {
		err.ID = uuid.New().String()
	}
	if err.ErrorTime.IsZero() {
		err.ErrorTime = f.now().UTC()
	}

	filename := fmt.Sprintf("errors_%s_%s.json", err.ConfigID, f.now().UTC().Format("2006-01-02"))
	filePath := filepath.Join(f.storagePath, filename)

	var entries []MessageError
	if data, readErr := os.ReadFile(filePath); readErr == nil {
		if jsonErr := json.Unmarshal(data, &entries); jsonErr != nil {
			f.logger.Warn("error log file exists but couldn't be parsed, starting over",
				"file", filePath,
				"error", jsonErr)
			entries = nil
		}
	} else if !os.IsNotExist(readErr) {
		return fmt.Errorf("failed to read error log file: %w", readErr)
	}

	entries = append(entries, err)

	data, jsonErr := json.MarshalIndent(entries, "", "  ")
	if jsonErr != nil {
		return fmt.Errorf("failed to marshal error log: %w", jsonErr)
	}
	if writeErr := os.WriteFile(filePath, data, 0644); writeErr != nil {
		return fmt.Errorf("failed to write error log file: %w", writeErr)
	}

	f.logger.Info("logged message error",
		"error_id", err.ID,
		"error_type", err.ErrorType,
		"folder", err.Folder,
		"uid", err.UID,
		"file", filePath)

	return nil
}

// GetErrors reads every error file and returns the entries matching all
// filters. Supported keys: config_id, protocol, username, folder,
// message_id, error_type.
func (f *FileLogger) GetErrors(filters map[string]string) ([]MessageError, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	files, err := os.ReadDir(f.storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read error log directory: %w", err)
	}

	var result []MessageError
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		filePath := filepath.Join(f.storagePath, file.Name())
		data, err := os.ReadFile(filePath)
		if err != nil {
			f.logger.Warn("failed to read error log file", "file", filePath, "error", err)
			continue
		}

		var entries []MessageError
		if err := json.Unmarshal(data, &entries); err != nil {
			f.logger.Warn("failed to parse error log file", "file", filePath, "error", err)
			continue
		}

		for _, e := range entries {
			if matches(e, filters) {
				result = append(result, e)
			}
		}
	}

	return result, nil
}

func matches(e MessageError, filters map[string]string) bool {
	for key, value := range filters {
		var field string
		switch key {
		case "config_id":
			field = e.ConfigID
		case "protocol":
			field = e.Protocol
		case "username":
			field = e.Username
		case "folder":
			field = e.Folder
		case "uid":
			field = strconv.FormatUint(uint64(e.UID), 10)
		case "message_id":
			field = e.MessageID
		case "error_type":
			field = e.ErrorType
		default:
			continue
		}
		if field != value {
			return false
		}
	}
	return true
}

// CleanupOldErrors deletes files whose date is older than the retention
// period. Files without a date in their name fall back to the mtime.
func (f *FileLogger) CleanupOldErrors() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := f.now().UTC().AddDate(0, 0, -f.retentionDays)

	files, err := os.ReadDir(f.storagePath)
	if err != nil {
		return fmt.Errorf("failed to read error log directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		fileDate, ok := dateFromFilename(file.Name())
		if !ok {
			info, statErr := file.Info()
			if statErr != nil {
				f.logger.Warn("failed to get file info", "file", file.Name(), "error", statErr)
				continue
			}
			fileDate = info.ModTime()
		}

		if fileDate.Before(cutoff) {
			filePath := filepath.Join(f.storagePath, file.Name())
			if err := os.Remove(filePath); err != nil {
				f.logger.Warn("failed to delete old error log file", "file", filePath, "error", err)
				continue
			}
			f.logger.Debug("deleted old error log file", "file", filePath)
		}
	}

	return nil
}

// dateFromFilename parses the trailing date of errors_<config>_YYYY-MM-DD.json.
func dateFromFilename(name string) (time.Time, bool) {
	base := strings.TrimSuffix(name, ".json")
	if len(base) < 10 {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", base[len(base)-10:])
	return t, err == nil
}

func (f *FileLogger) Close() error {
	return nil
}
