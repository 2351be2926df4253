package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	goauth2 "golang.org/x/oauth2"

	"github.com/altafino/consultation-report/internal/oauth2"
	"github.com/altafino/consultation-report/internal/types"
)

func newOAuth2Cmd() *cobra.Command {
	oauth2Cmd := &cobra.Command{
		Use:   "oauth2",
		Short: "OAuth2 token management",
		Long:  `Manage the OAuth2 tokens used for XOAUTH2 mailbox logins`,
	}

	oauth2Cmd.AddCommand(
		&cobra.Command{
			Use:   "generate <config-id>",
			Short: "Generate OAuth2 token",
			Long:  `Authorize the mailbox account of a configuration in the browser and store the token`,
			Args:  cobra.ExactArgs(1),
			RunE:  generateOAuth2Token,
		},
		&cobra.Command{
			Use:   "list",
			Short: "List OAuth2 tokens",
			Args:  cobra.NoArgs,
			RunE:  listOAuth2Tokens,
		},
		&cobra.Command{
			Use:   "delete <config-id>",
			Short: "Delete OAuth2 token",
			Args:  cobra.ExactArgs(1),
			RunE:  deleteOAuth2Token,
		},
	)

	return oauth2Cmd
}

func oauth2Config(id string) (*types.Config, error) {
	store, err := loadStore()
	if err != nil {
		return nil, err
	}
	cfg, err := store.Get(id)
	if err != nil {
		return nil, err
	}
	if !cfg.Mailbox.Security.OAuth2.Enabled {
		return nil, fmt.Errorf("OAuth2 is not enabled for configuration %s", id)
	}
	return cfg, nil
}

func generateOAuth2Token(cmd *cobra.Command, args []string) error {
	cfg, err := oauth2Config(args[0])
	if err != nil {
		return err
	}

	oauth2Cfg, err := oauth2.ConfigFor(cfg)
	if err != nil {
		return err
	}

	state := uuid.NewString()
	authURL := oauth2Cfg.AuthCodeURL(state, goauth2.AccessTypeOffline, goauth2.ApprovalForce)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Please open the following URL in your browser:\n\n%s\n\n", authURL)
	fmt.Fprintln(out, "Waiting for authentication...")

	code, err := oauth2.WaitForCode(cmd.Context(), oauth2Cfg.RedirectURL, state, log)
	if err != nil {
		return fmt.Errorf("failed to get authorization code: %w", err)
	}

	fmt.Fprintln(out, "Authorization code received, exchanging for token...")

	token, err := oauth2Cfg.Exchange(cmd.Context(), code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code for token: %w", err)
	}

	tm, err := oauth2.NewTokenManagerFor(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create token manager: %w", err)
	}
	if err := tm.SetToken(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	fmt.Fprintf(out, "OAuth2 token generated and saved for account %s\n", oauth2.AccountID(cfg))
	fmt.Fprintf(out, "Token expires at: %s\n", token.Expiry.Format("2006-01-02 15:04:05"))
	return nil
}

func listOAuth2Tokens(cmd *cobra.Command, args []string) error {
	store, err := loadStore()
	if err != nil {
		return err
	}

	tokenDirs := make(map[string]bool)
	for _, cfg := range store.List() {
		if cfg.Mailbox.Security.OAuth2.Enabled {
			tokenDirs[cfg.Mailbox.Security.OAuth2.TokenDir] = true
		}
	}

	out := cmd.OutOrStdout()
	found := false
	for tokenDir := range tokenDirs {
		entries, err := os.ReadDir(tokenDir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			fmt.Fprintf(out, "Failed to read token directory %s: %v\n", tokenDir, err)
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			found = true
			accountID := strings.TrimSuffix(entry.Name(), ".json")

			data, err := os.ReadFile(filepath.Join(tokenDir, entry.Name()))
			if err != nil {
				fmt.Fprintf(out, "Account: %s (Error reading token: %v)\n", accountID, err)
				continue
			}
			var token goauth2.Token
			if err := json.Unmarshal(data, &token); err != nil {
				fmt.Fprintf(out, "Account: %s (Error parsing token: %v)\n", accountID, err)
				continue
			}

			fmt.Fprintf(out, "Account: %s\n", accountID)
			fmt.Fprintf(out, "  Expires: %s\n", token.Expiry.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "  Valid: %v\n\n", token.Valid())
		}
	}

	if !found {
		fmt.Fprintln(out, "No OAuth2 tokens found")
	}
	return nil
}

func deleteOAuth2Token(cmd *cobra.Command, args []string) error {
	cfg, err := oauth2Config(args[0])
	if err != nil {
		return err
	}

	tm, err := oauth2.NewTokenManagerFor(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create token manager: %w", err)
	}
	if err := tm.Delete(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "OAuth2 token deleted for account %s\n", oauth2.AccountID(cfg))
	return nil
}
