package oauth2

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"

	"github.com/altafino/consultation-report/internal/types"
)

// DefaultRedirectURL is served by WaitForCode.
const DefaultRedirectURL = "http://localhost:8085/oauth/callback"

// GetGoogleConfig returns the OAuth2 config for Google
func GetGoogleConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"https://mail.google.com/",
		},
		Endpoint: google.Endpoint,
	}
}

// GetMicrosoftConfig returns the OAuth2 config for Microsoft
func GetMicrosoftConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"https://outlook.office.com/IMAP.AccessAsUser.All",
			"offline_access",
		},
		Endpoint: microsoft.AzureADEndpoint("common"),
	}
}

// GetProviderConfig returns the OAuth2 config for a specific provider
func GetProviderConfig(provider, clientID, clientSecret, redirectURL string) (*oauth2.Config, error) {
	switch provider {
	case "google":
		return GetGoogleConfig(clientID, clientSecret, redirectURL), nil
	case "microsoft":
		return GetMicrosoftConfig(clientID, clientSecret, redirectURL), nil
	default:
		return nil, fmt.Errorf("unsupported OAuth2 provider: %s", provider)
	}
}

// ConfigFor builds the provider config from a mailbox configuration.
func ConfigFor(cfg *types.Config) (*oauth2.Config, error) {
	o := cfg.Mailbox.Security.OAuth2
	redirectURL := o.RedirectURL
	if redirectURL == "" {
		redirectURL = DefaultRedirectURL
	}
	return GetProviderConfig(o.Provider, o.ClientID, o.ClientSecret, redirectURL)
}

// AccountID names the token file of a configuration's mailbox account.
func AccountID(cfg *types.Config) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(cfg.Meta.ID + "_" + cfg.Mailbox.Username)
}

// NewTokenManagerFor creates the token manager of a configuration.
func NewTokenManagerFor(cfg *types.Config, logger *slog.Logger) (*TokenManager, error) {
	config, err := ConfigFor(cfg)
	if err != nil {
		return nil, err
	}
	return NewTokenManager(config, cfg.Mailbox.Security.OAuth2.TokenDir, AccountID(cfg), logger)
}
