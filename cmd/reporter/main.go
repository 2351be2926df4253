package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/altafino/consultation-report/internal/config"
	"github.com/altafino/consultation-report/internal/logger"
)

var log *slog.Logger

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "reporter",
		Short: "Consultation report generator",
		Long: `Reads a mailbox over a date range, pairs consultation requests with
the replies sent to them and writes a consultation report.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log = logger.New(os.Stderr,
				viper.GetString("logging.level"),
				viper.GetString("logging.format"),
				viper.GetBool("logging.include_caller"))
			slog.SetDefault(log)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config-dir", "./config", "config directory")
	flags.String("log-level", "info", "logging level (debug, info, warn, error)")
	flags.String("log-format", "text", "logging format (text, json, dev)")
	flags.Bool("log-caller", false, "include the caller in log records")

	viper.BindPFlag("config_dir", flags.Lookup("config-dir"))
	viper.BindPFlag("logging.level", flags.Lookup("log-level"))
	viper.BindPFlag("logging.format", flags.Lookup("log-format"))
	viper.BindPFlag("logging.include_caller", flags.Lookup("log-caller"))

	viper.SetEnvPrefix("REPORTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(
		newRunCmd(),
		newServeCmd(),
		newConfigsCmd(),
		newOAuth2Cmd(),
		newCredentialCmd(),
	)
	return rootCmd
}

// configDirFlag is --config-dir, or REPORTER_CONFIG_DIR when the flag is
// not given.
func configDirFlag() string {
	return viper.GetString("config_dir")
}

func loadStore() (*config.Store, error) {
	dir := configDirFlag()
	store, err := config.Load(dir, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configs from %s: %w", dir, err)
	}
	return store, nil
}

func newConfigsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configs",
		Short: "List report configurations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}

			configs := store.List()
			if len(configs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No configurations found in %s\n", store.Dir())
				return nil
			}
			for _, cfg := range configs {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s enabled=%-5v protocol=%-5s account=%s scheduled=%v\n",
					cfg.Meta.ID, cfg.Meta.Enabled, cfg.Mailbox.Protocol, cfg.Mailbox.Account, cfg.Scheduling.Enabled)
			}
			return nil
		},
	}
}
