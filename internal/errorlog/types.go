package errorlog

import (
	"time"
)

// Failure stages recorded by the mailbox clients.
const (
	StageFetch = "fetch_message"
	StageRead  = "read_body"
	StageParse = "parse_message"
	StageCache = "cache"
)

// MessageError represents a message that could not be turned into a
// parsed message and was skipped.
type MessageError struct {
	ID         string    `json:"id"`
	ConfigID   string    `json:"config_id"`
	Protocol   string    `json:"protocol"`
	Server     string    `json:"server"`
	Username   string    `json:"username"`
	Folder     string    `json:"folder"`
	UID        uint32    `json:"uid,omitempty"`
	MessageID  string    `json:"message_id,omitempty"`
	Sender     string    `json:"sender,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	ErrorTime  time.Time `json:"error_time"`
	ErrorType  string    `json:"error_type"`
	ErrorMsg   string    `json:"error_message"`
	RawMessage string    `json:"raw_message,omitempty"`
}

// Logger defines the interface for message error logging
type Logger interface {
	// LogError records a message processing error
	LogError(err MessageError) error

	// GetErrors retrieves errors based on filters
	GetErrors(filters map[string]string) ([]MessageError, error)

	// CleanupOldErrors removes errors older than the retention period
	CleanupOldErrors() error

	// Close releases any resources used by the logger
	Close() error
}

// RawSample returns at most n bytes of raw, cut on a rune boundary.
func RawSample(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	cut := n
	for cut > 0 && raw[cut]&0xC0 == 0x80 {
		cut--
	}
	return string(raw[:cut])
}
