package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/altafino/consultation-report/internal/app"
	"github.com/altafino/consultation-report/internal/models"
	"github.com/altafino/consultation-report/internal/scheduler"
	"github.com/altafino/consultation-report/internal/types"
)

func newRunCmd() *cobra.Command {
	var (
		startDate, endDate string
		ov                 app.Overrides
		keywords, folders  []string
		identifierLength   int
		strict             bool
	)

	cmd := &cobra.Command{
		Use:   "run <config-id>",
		Short: "Create a report for a date range",
		Long: `Create one report for a configuration. Without --start and --end the
range is the configured window ending today.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}
			cfg, err := store.Get(args[0])
			if err != nil {
				return err
			}

			start, end, err := dateRange(cfg, startDate, endDate, time.Now())
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("keywords") {
				ov.Keywords = append([]string{}, keywords...)
			}
			if flags.Changed("folders") {
				ov.Folders = folders
			}
			if flags.Changed("identifier-length") {
				ov.IdentifierLength = &identifierLength
			}
			if flags.Changed("strict") {
				ov.Strict = &strict
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := app.RunConfig(ctx, cfg, start, end, ov, log)
			if err != nil {
				return err
			}
			return printSummary(cmd, summary)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&startDate, "start", "", "first day of the range (YYYY-MM-DD)")
	flags.StringVar(&endDate, "end", "", "last day of the range (YYYY-MM-DD)")
	flags.StringSliceVar(&keywords, "keywords", nil, "request keywords; an empty value disables the keyword filter")
	flags.IntVar(&identifierLength, "identifier-length", 8, "student ID digit count; 0 disables the ID filter")
	flags.BoolVar(&strict, "strict", true, "also accept a student ID found in the subject")
	flags.StringSliceVar(&folders, "folders", nil, "folders to read (default inbox and sent folder)")
	flags.StringVar(&ov.Format, "format", "", "report format (xlsx, csv)")

	return cmd
}

// dateRange parses the requested days in the report timezone. Missing
// bounds fall back to the scheduling window ending on now.
func dateRange(cfg *types.Config, startDate, endDate string, now time.Time) (time.Time, time.Time, error) {
	loc := time.Local
	if tz := cfg.Report.TimeWindow.Timezone; tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
		loc = l
	}

	start, end := scheduler.Window(now.In(loc), cfg.Scheduling.WindowDays)
	var err error
	if startDate != "" {
		if start, err = time.ParseInLocation(time.DateOnly, startDate, loc); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date: %w", err)
		}
	}
	if endDate != "" {
		if end, err = time.ParseInLocation(time.DateOnly, endDate, loc); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date: %w", err)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s is before start date %s",
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return start, end, nil
}

// printSummary reports the run outcome. Credential problems fail the
// command; other empty outcomes are not errors.
func printSummary(cmd *cobra.Command, s models.RunSummary) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %d messages, %d pairs, %d records\n", s.RunID, s.Messages, s.Pairs, s.Records)

	if s.Reason == models.ReasonNone {
		fmt.Fprintf(out, "report stored at %s\n", s.ReportPath)
		return nil
	}

	fmt.Fprintf(out, "%s: %s\n", s.Reason, s.Reason.Guidance())
	if s.Detail != "" {
		fmt.Fprintf(out, "detail: %s\n", s.Detail)
	}
	if s.Reason.IsCredentialProblem() || s.Reason == models.ReasonUnexpectedFailure {
		return fmt.Errorf("report run failed: %s", s.Reason)
	}
	return nil
}

func newServeCmd() *cobra.Command {
	var configID string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled reports",
		Long: `Run the reports of every enabled configuration on their schedules and
reload configurations when files change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(log, configDirFlag(), configID)
			if err != nil {
				return fmt.Errorf("failed to create application: %w", err)
			}
			defer a.Stop()

			if err := a.Start(); err != nil {
				return fmt.Errorf("failed to start application: %w", err)
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			log.Info("shutting down application")
			return nil
		},
	}

	cmd.Flags().StringVar(&configID, "config-id", "", "schedule only this configuration")
	return cmd
}
