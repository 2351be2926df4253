package validation

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/altafino/consultation-report/internal/types"
)

// ValidateConfig performs validation on a single configuration
func ValidateConfig(cfg *types.Config) error {
	if err := validateMeta(cfg); err != nil {
		return fmt.Errorf("meta validation failed: %w", err)
	}

	if err := validateMailbox(cfg); err != nil {
		return fmt.Errorf("mailbox validation failed: %w", err)
	}

	if err := validateReport(cfg); err != nil {
		return fmt.Errorf("report validation failed: %w", err)
	}

	if err := validateCache(cfg); err != nil {
		return fmt.Errorf("cache validation failed: %w", err)
	}

	if err := validateLogging(cfg); err != nil {
		return fmt.Errorf("logging validation failed: %w", err)
	}

	if err := validateScheduling(cfg); err != nil {
		return fmt.Errorf("scheduling validation failed: %w", err)
	}

	return nil
}

func validateMeta(cfg *types.Config) error {
	if cfg.Meta.ID == "" {
		return fmt.Errorf("meta.id is required")
	}

	if !isValidID(cfg.Meta.ID) {
		return fmt.Errorf("meta.id contains invalid characters (use only alphanumeric, dash, underscore)")
	}

	return nil
}

func validateMailbox(cfg *types.Config) error {
	mb := cfg.Mailbox
	if mb.Account == "" {
		return fmt.Errorf("mailbox.account is required")
	}

	if mb.DefaultTimeout <= 0 {
		return fmt.Errorf("mailbox.default_timeout must be positive")
	}

	if mb.MaxConcurrent <= 0 {
		return fmt.Errorf("mailbox.max_concurrent must be positive")
	}

	switch mb.Protocol {
	case "imap":
		if mb.Protocols.IMAP.Server == "" {
			return fmt.Errorf("mailbox.protocols.imap.server is required")
		}
		if err := validatePort("mailbox.protocols.imap.port", mb.Protocols.IMAP.Port); err != nil {
			return err
		}
		if mb.Protocols.IMAP.BatchSize <= 0 {
			return fmt.Errorf("mailbox.protocols.imap.batch_size must be positive")
		}
	case "pop3":
		if mb.Protocols.POP3.Server == "" {
			return fmt.Errorf("mailbox.protocols.pop3.server is required")
		}
		if err := validatePort("mailbox.protocols.pop3.port", mb.Protocols.POP3.Port); err != nil {
			return err
		}
	case "mbox":
		if len(mb.Protocols.Mbox.Files) == 0 {
			return fmt.Errorf("mailbox.protocols.mbox.files must not be empty")
		}
	default:
		return fmt.Errorf("mailbox.protocol must be one of: imap, pop3, mbox")
	}

	if mb.Security.OAuth2.Enabled {
		switch mb.Security.OAuth2.Provider {
		case "google", "microsoft":
		default:
			return fmt.Errorf("mailbox.security.oauth2.provider must be 'google' or 'microsoft'")
		}
		if mb.Security.OAuth2.ClientID == "" {
			return fmt.Errorf("mailbox.security.oauth2.client_id is required when oauth2 is enabled")
		}
	}

	return nil
}

func validatePort(field string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535", field)
	}
	return nil
}

func validateReport(cfg *types.Config) error {
	r := cfg.Report
	if r.IdentifierLength != nil && *r.IdentifierLength < 0 {
		return fmt.Errorf("report.identifier_length must not be negative")
	}

	if r.MaxTextLength <= 0 {
		return fmt.Errorf("report.max_text_length must be positive")
	}

	switch r.Pairing.Strategy {
	case "auto", "primary", "extended":
	default:
		return fmt.Errorf("report.pairing.strategy must be one of: auto, primary, extended")
	}

	if r.Pairing.SubjectMaxGap < 0 {
		return fmt.Errorf("report.pairing.subject_max_gap must not be negative")
	}

	tw := r.TimeWindow
	if tw.EarliestHour != nil && (*tw.EarliestHour < 0 || *tw.EarliestHour > 23) {
		return fmt.Errorf("report.time_window.earliest_hour must be between 0 and 23")
	}
	if tw.Granularity < 0 || tw.Granularity > 60 {
		return fmt.Errorf("report.time_window.granularity must be between 0 and 60")
	}
	if tw.DurationMinutes <= 0 {
		return fmt.Errorf("report.time_window.duration_minutes must be positive")
	}
	if tw.Timezone != "" {
		if _, err := time.LoadLocation(tw.Timezone); err != nil {
			return fmt.Errorf("report.time_window.timezone is not a known location: %w", err)
		}
	}

	switch r.Format {
	case "xlsx", "csv":
	default:
		return fmt.Errorf("report.format must be 'xlsx' or 'csv'")
	}

	switch r.Storage.Type {
	case "file":
		if r.Storage.Path == "" {
			return fmt.Errorf("report.storage.path is required when storage type is 'file'")
		}
	case "gdrive":
		if r.Storage.CredentialsFile == "" {
			return fmt.Errorf("report.storage.credentials_file is required when storage type is 'gdrive'")
		}
	default:
		return fmt.Errorf("report.storage.type must be 'file' or 'gdrive'")
	}

	if strings.ContainsAny(r.NamingPattern, `/\`) {
		return fmt.Errorf("report.naming_pattern must not contain path separators")
	}

	return nil
}

func validateCache(cfg *types.Config) error {
	if !cfg.Cache.Enabled {
		return nil
	}

	switch cfg.Cache.StorageType {
	case "sqlite", "file":
	default:
		return fmt.Errorf("cache.storage_type must be 'sqlite' or 'file'")
	}

	if cfg.Cache.Path == "" {
		return fmt.Errorf("cache.path is required when the cache is enabled")
	}
	if !filepath.IsAbs(cfg.Cache.Path) {
		return fmt.Errorf("cache.path must be absolute")
	}

	return nil
}

func validateLogging(cfg *types.Config) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
		"dev":  true,
	}

	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: text, json, dev")
	}

	return nil
}

func validateScheduling(cfg *types.Config) error {
	if !cfg.Scheduling.Enabled {
		return nil // Skip validation if scheduling is disabled
	}

	// Validate frequency_every
	validFrequencies := map[string]bool{
		"minute": true,
		"hour":   true,
		"day":    true,
		"week":   true,
		"month":  true,
	}

	if !validFrequencies[cfg.Scheduling.FrequencyEvery] {
		return fmt.Errorf("scheduling.frequency_every must be one of: minute, hour, day, week, month")
	}

	// Validate frequency_amount
	if cfg.Scheduling.FrequencyAmount < 1 {
		return fmt.Errorf("scheduling.frequency_amount must be greater than 0")
	}

	if cfg.Scheduling.WindowDays < 1 {
		return fmt.Errorf("scheduling.window_days must be greater than 0")
	}

	// Validate start and stop times if provided
	if !cfg.Scheduling.StartNow {
		if cfg.Scheduling.StartAt == "" {
			return fmt.Errorf("scheduling.start_at is required when start_now is false")
		}
		if _, err := time.Parse(time.RFC3339, cfg.Scheduling.StartAt); err != nil {
			return fmt.Errorf("scheduling.start_at must be in RFC3339 format (e.g., 2006-01-02T15:04:05Z)")
		}
	}

	if cfg.Scheduling.StopAt != "" {
		stopAt, err := time.Parse(time.RFC3339, cfg.Scheduling.StopAt)
		if err != nil {
			return fmt.Errorf("scheduling.stop_at must be in RFC3339 format (e.g., 2006-01-02T15:04:05Z)")
		}

		// If start_at is provided, validate stop_at is after start_at
		if cfg.Scheduling.StartAt != "" {
			startAt, _ := time.Parse(time.RFC3339, cfg.Scheduling.StartAt)
			if stopAt.Before(startAt) {
				return fmt.Errorf("scheduling.stop_at must be after start_at")
			}
		}

		// If start_now is true, validate stop_at is in the future
		if cfg.Scheduling.StartNow {
			if stopAt.Before(time.Now().UTC()) {
				return fmt.Errorf("scheduling.stop_at must be in the future when start_now is true")
			}
		}
	}

	// Additional frequency-specific validations
	switch cfg.Scheduling.FrequencyEvery {
	case "minute":
		if cfg.Scheduling.FrequencyAmount > 60 {
			return fmt.Errorf("scheduling.frequency_amount must not exceed 60 for minute frequency")
		}
	case "hour":
		if cfg.Scheduling.FrequencyAmount > 24 {
			return fmt.Errorf("scheduling.frequency_amount must not exceed 24 for hour frequency")
		}
	case "day":
		if cfg.Scheduling.FrequencyAmount > 31 {
			return fmt.Errorf("scheduling.frequency_amount must not exceed 31 for day frequency")
		}
	case "week":
		if cfg.Scheduling.FrequencyAmount > 52 {
			return fmt.Errorf("scheduling.frequency_amount must not exceed 52 for week frequency")
		}
	case "month":
		if cfg.Scheduling.FrequencyAmount > 12 {
			return fmt.Errorf("scheduling.frequency_amount must not exceed 12 for month frequency")
		}
	}

	return nil
}

func isValidID(id string) bool {
	for _, r := range id {
		if !isValidIDChar(r) {
			return false
		}
	}
	return true
}

func isValidIDChar(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '-' ||
		r == '_'
}
