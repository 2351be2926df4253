package config

import (
	"os"
	"path/filepath"

	"github.com/altafino/consultation-report/internal/types"
)

const (
	DefaultIdentifierLength = 8
	DefaultEarliestHour     = 9
	DefaultMaxTextLength    = 490
	DefaultNamingPattern    = "consultation_report_{date}_{time}"
)

// DefaultKeywords are the phrases a consultation request is expected to contain.
var DefaultKeywords = []string{"교수님", "안녕하세요", "입니다"}

// ApplyDefaults fills every unset field with its default value.
func ApplyDefaults(cfg *types.Config) {
	mb := &cfg.Mailbox
	if mb.Protocol == "" {
		mb.Protocol = "imap"
	}
	if mb.Username == "" {
		mb.Username = mb.Account
	}
	if mb.DefaultTimeout == 0 {
		mb.DefaultTimeout = 30
	}
	if mb.MaxConcurrent == 0 {
		mb.MaxConcurrent = 4
	}

	imap := &mb.Protocols.IMAP
	if imap.Server == "" && mb.Protocol == "imap" {
		imap.Server = "imap.gmail.com"
	}
	if imap.Port == 0 {
		imap.Port = 993
	}
	if imap.BatchSize == 0 {
		imap.BatchSize = 50
	}
	if imap.Inbox == "" {
		imap.Inbox = "INBOX"
	}
	if imap.DefaultSentFolder == "" {
		imap.DefaultSentFolder = "[Gmail]/Sent Mail"
	}
	if mb.Protocols.POP3.Port == 0 {
		mb.Protocols.POP3.Port = 995
	}
	if mb.Security.OAuth2.TokenDir == "" {
		mb.Security.OAuth2.TokenDir = filepath.Join(userConfigDir(), "tokens")
	}
	if mb.Keyring.Service == "" {
		mb.Keyring.Service = "consultation-report"
	}
	if mb.Keyring.FileDir == "" {
		mb.Keyring.FileDir = filepath.Join(userConfigDir(), "credentials")
	}

	r := &cfg.Report
	if r.Keywords == nil {
		r.Keywords = append([]string(nil), DefaultKeywords...)
	}
	if r.IdentifierLength == nil {
		n := DefaultIdentifierLength
		r.IdentifierLength = &n
	}
	if r.Strict == nil {
		strict := true
		r.Strict = &strict
	}
	if r.MaxTextLength == 0 {
		r.MaxTextLength = DefaultMaxTextLength
	}
	if r.Pairing.Strategy == "" {
		r.Pairing.Strategy = "auto"
	}
	if r.TimeWindow.EarliestHour == nil {
		h := DefaultEarliestHour
		r.TimeWindow.EarliestHour = &h
	}
	if r.TimeWindow.Granularity == 0 {
		r.TimeWindow.Granularity = 5
	}
	if r.TimeWindow.DurationMinutes == 0 {
		r.TimeWindow.DurationMinutes = 30
	}
	if r.ConsultationType == "" {
		r.ConsultationType = "01"
	}
	if r.Location == "" {
		r.Location = "연구실"
	}
	if r.Visibility == "" {
		r.Visibility = "N"
	}
	if r.Format == "" {
		r.Format = "xlsx"
	}
	if r.NamingPattern == "" {
		r.NamingPattern = DefaultNamingPattern
	}
	if r.Storage.Type == "" {
		r.Storage.Type = "file"
	}
	if r.Storage.Path == "" && r.Storage.Type == "file" {
		r.Storage.Path = "reports"
	}

	if cfg.Cache.StorageType == "" {
		cfg.Cache.StorageType = "sqlite"
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = filepath.Join(userConfigDir(), "cache")
	}
	if cfg.Cache.RetentionDays == 0 {
		cfg.Cache.RetentionDays = 90
	}
	if cfg.ErrorLogging.StoragePath == "" {
		cfg.ErrorLogging.StoragePath = filepath.Join(userConfigDir(), "errors")
	}
	if cfg.ErrorLogging.RetentionDays == 0 {
		cfg.ErrorLogging.RetentionDays = 30
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.Scheduling.FrequencyEvery == "" {
		cfg.Scheduling.FrequencyEvery = "day"
	}
	if cfg.Scheduling.FrequencyAmount == 0 {
		cfg.Scheduling.FrequencyAmount = 1
	}
	if cfg.Scheduling.WindowDays == 0 {
		cfg.Scheduling.WindowDays = 7
	}
}

func userConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "consultation-report")
}
