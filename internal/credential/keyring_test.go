package credential

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"

	"github.com/altafino/consultation-report/internal/types"
)

func TestStore(t *testing.T) {
	s := NewStore(keyring.NewArrayKeyring(nil))

	if _, err := s.Get("prof@example.ac.kr"); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("Get() on empty keyring error = %v", err)
	}
	if err := s.Set("prof@example.ac.kr", "secret"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := s.Get("prof@example.ac.kr")
	if err != nil || got != "secret" {
		t.Fatalf("Get() = %q, %v", got, err)
	}
	if err := s.Delete("prof@example.ac.kr"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete("prof@example.ac.kr"); err != nil {
		t.Errorf("Delete() of missing entry error = %v", err)
	}
}

func TestResolve(t *testing.T) {
	store := NewStore(keyring.NewArrayKeyring([]keyring.Item{
		{Key: "prof@example.ac.kr", Data: []byte("from-keyring")},
	}))

	newCfg := func(mod func(*types.Config)) *types.Config {
		cfg := &types.Config{}
		cfg.Mailbox.Protocol = "imap"
		cfg.Mailbox.Username = "prof@example.ac.kr"
		mod(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		cfg     *types.Config
		store   *Store
		want    string
		wantErr error
	}{
		{"configured password wins", newCfg(func(c *types.Config) {
			c.Mailbox.Password = "inline"
			c.Mailbox.Keyring.Enabled = true
		}), store, "inline", nil},
		{"keyring", newCfg(func(c *types.Config) { c.Mailbox.Keyring.Enabled = true }), store, "from-keyring", nil},
		{"keyring disabled", newCfg(func(c *types.Config) {}), store, "", ErrNoCredential},
		{"oauth2", newCfg(func(c *types.Config) { c.Mailbox.Security.OAuth2.Enabled = true }), nil, "", nil},
		{"mbox", newCfg(func(c *types.Config) { c.Mailbox.Protocol = "mbox" }), nil, "", nil},
		{"missing entry", newCfg(func(c *types.Config) {
			c.Mailbox.Keyring.Enabled = true
			c.Mailbox.Username = "other@example.ac.kr"
		}), store, "", ErrNoCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.cfg, tt.store)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}
