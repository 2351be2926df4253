// Package oauth2 obtains and refreshes OAuth2 tokens for XOAUTH2 mailbox
// logins.
package oauth2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned when no token has been stored for the account.
var ErrNoToken = errors.New("no OAuth2 token stored; run the oauth2 generate command first")

// TokenManager handles OAuth2 token persistence and refresh for one
// account. Tokens are stored as JSON in <tokenDir>/<accountID>.json.
type TokenManager struct {
	config    *oauth2.Config
	token     *oauth2.Token
	logger    *slog.Logger
	mu        sync.Mutex
	tokenFile string
}

// NewTokenManager creates a new OAuth2 token manager
func NewTokenManager(config *oauth2.Config, tokenDir, accountID string, logger *slog.Logger) (*TokenManager, error) {
	if err := os.MkdirAll(tokenDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create token directory: %w", err)
	}

	tm := &TokenManager{
		config:    config,
		logger:    logger,
		tokenFile: filepath.Join(tokenDir, accountID+".json"),
	}

	token, err := tm.loadToken()
	if err != nil {
		logger.Warn("failed to load OAuth2 token", "error", err)
	} else if token != nil {
		tm.token = token
		logger.Debug("loaded existing OAuth2 token",
			"expires_at", token.Expiry.Format(time.RFC3339))
	}

	return tm, nil
}

// TokenFile is the path the token is stored at.
func (tm *TokenManager) TokenFile() string {
	return tm.tokenFile
}

// Token returns a valid token, refreshing and persisting it when the
// stored one has expired.
func (tm *TokenManager) Token(ctx context.Context) (*oauth2.Token, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.token == nil {
		return nil, ErrNoToken
	}
	if tm.token.Valid() {
		return tm.token, nil
	}
	if tm.token.RefreshToken == "" {
		return nil, fmt.Errorf("OAuth2 token expired and no refresh token available")
	}

	tm.logger.Debug("refreshing OAuth2 token")
	newToken, err := tm.config.TokenSource(ctx, tm.token).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	tm.token = newToken
	if err := tm.saveToken(newToken); err != nil {
		tm.logger.Warn("failed to save refreshed OAuth2 token", "error", err)
	}
	tm.logger.Debug("OAuth2 token refreshed",
		"expires_at", newToken.Expiry.Format(time.RFC3339))

	return newToken, nil
}

// AccessToken returns just the access token string
func (tm *TokenManager) AccessToken(ctx context.Context) (string, error) {
	token, err := tm.Token(ctx)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// SetToken stores token in memory and on disk.
func (tm *TokenManager) SetToken(token *oauth2.Token) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.token = token
	return tm.saveToken(token)
}

// Delete removes the stored token. A missing token is not an error.
func (tm *TokenManager) Delete() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.token = nil
	if err := os.Remove(tm.tokenFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}

func (tm *TokenManager) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(tm.tokenFile)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &token, nil
}

func (tm *TokenManager) saveToken(token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := os.WriteFile(tm.tokenFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}
