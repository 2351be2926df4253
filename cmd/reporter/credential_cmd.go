package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/altafino/consultation-report/internal/credential"
	"github.com/altafino/consultation-report/internal/types"
)

func newCredentialCmd() *cobra.Command {
	credentialCmd := &cobra.Command{
		Use:   "credential",
		Short: "Mailbox password management",
		Long:  `Store mailbox app passwords in the OS keyring instead of the configuration file`,
	}

	credentialCmd.AddCommand(
		&cobra.Command{
			Use:   "set <config-id>",
			Short: "Store the mailbox password",
			Long:  `Read the mailbox password from standard input and store it in the keyring`,
			Args:  cobra.ExactArgs(1),
			RunE:  setCredential,
		},
		&cobra.Command{
			Use:   "delete <config-id>",
			Short: "Delete the stored mailbox password",
			Args:  cobra.ExactArgs(1),
			RunE:  deleteCredential,
		},
	)

	return credentialCmd
}

func credentialStore(id string) (*types.Config, *credential.Store, error) {
	store, err := loadStore()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := store.Get(id)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Mailbox.Keyring.Enabled {
		log.Warn("keyring is disabled for this configuration; the stored password is only used once mailbox.keyring.enabled is set",
			"config_id", cfg.Meta.ID)
	}

	ring, err := credential.OpenFor(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, ring, nil
}

func setCredential(cmd *cobra.Command, args []string) error {
	cfg, ring, err := credentialStore(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Password for %s: ", cfg.Mailbox.Username)
	password, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && password == "" {
		return fmt.Errorf("failed to read password: %w", err)
	}
	password = strings.TrimRight(password, "\r\n")
	if password == "" {
		return errors.New("empty password")
	}

	if err := ring.Set(cfg.Mailbox.Username, password); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Password stored for %s\n", cfg.Mailbox.Username)
	return nil
}

func deleteCredential(cmd *cobra.Command, args []string) error {
	cfg, ring, err := credentialStore(args[0])
	if err != nil {
		return err
	}
	if err := ring.Delete(cfg.Mailbox.Username); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Password deleted for %s\n", cfg.Mailbox.Username)
	return nil
}
