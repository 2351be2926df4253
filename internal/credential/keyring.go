// Package credential stores mailbox passwords in the OS keyring.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"

	"github.com/altafino/consultation-report/internal/types"
)

// ErrNoCredential is returned when neither the configuration nor the
// keyring holds a password for the account.
var ErrNoCredential = errors.New("no mailbox password configured or stored in the keyring")

// Store reads and writes passwords keyed by account.
type Store struct {
	ring keyring.Keyring
}

// Open opens the keyring for service. fileDir is used by the encrypted file
// backend on systems without a native keyring.
func Open(service, fileDir string) (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: service,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(service + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return &Store{ring: ring}, nil
}

// NewStore wraps an existing keyring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Get returns the password stored for account or ErrNoCredential.
func (s *Store) Get(account string) (string, error) {
	item, err := s.ring.Get(account)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("failed to get credential for %q: %w", account, err)
	}
	return string(item.Data), nil
}

// Set stores password for account.
func (s *Store) Set(account, password string) error {
	err := s.ring.Set(keyring.Item{
		Key:         account,
		Data:        []byte(password),
		Label:       "mailbox password for " + account,
		Description: "consultation report mailbox password",
	})
	if err != nil {
		return fmt.Errorf("failed to store credential for %q: %w", account, err)
	}
	return nil
}

// Delete removes the password for account. A missing entry is not an error.
func (s *Store) Delete(account string) error {
	if err := s.ring.Remove(account); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete credential for %q: %w", account, err)
	}
	return nil
}

// OpenFor opens the keyring configured for cfg.
func OpenFor(cfg *types.Config) (*Store, error) {
	return Open(cfg.Mailbox.Keyring.Service, cfg.Mailbox.Keyring.FileDir)
}

// Resolve returns the mailbox password of cfg: the configured value, else
// the keyring entry for the username when the keyring is enabled. OAuth2
// logins need no password and resolve to "". store may be nil when the
// keyring is disabled.
func Resolve(cfg *types.Config, store *Store) (string, error) {
	if cfg.Mailbox.Password != "" {
		return cfg.Mailbox.Password, nil
	}
	if cfg.Mailbox.Protocol == "mbox" || cfg.Mailbox.Security.OAuth2.Enabled {
		return "", nil
	}
	if !cfg.Mailbox.Keyring.Enabled || store == nil {
		return "", ErrNoCredential
	}
	return store.Get(cfg.Mailbox.Username)
}
