package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/altafino/consultation-report/internal/cache"
	"github.com/altafino/consultation-report/internal/credential"
	"github.com/altafino/consultation-report/internal/email"
	"github.com/altafino/consultation-report/internal/errorlog"
	"github.com/altafino/consultation-report/internal/extract"
	"github.com/altafino/consultation-report/internal/models"
	"github.com/altafino/consultation-report/internal/pairing"
	"github.com/altafino/consultation-report/internal/pipeline"
	"github.com/altafino/consultation-report/internal/progress"
	"github.com/altafino/consultation-report/internal/report"
	"github.com/altafino/consultation-report/internal/storage"
	"github.com/altafino/consultation-report/internal/types"
)

// Overrides replace configured report settings for a single run. Nil fields
// keep the configured value; an empty non-nil Keywords disables the
// keyword stage.
type Overrides struct {
	Keywords         []string
	IdentifierLength *int
	Strict           *bool
	Folders          []string
	Format           string
}

// RunConfig runs the report of cfg for the days start to end and stores
// the result. Run outcomes, including failures to log in, are reported in
// the summary; the error is only set when a finished report could not be
// written or stored.
func RunConfig(ctx context.Context, cfg *types.Config, start, end time.Time, ov Overrides, logger *slog.Logger) (models.RunSummary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("config_id", cfg.Meta.ID)

	summary := models.RunSummary{ConfigID: cfg.Meta.ID, StartedAt: time.Now()}
	finish := func(out pipeline.Outcome) models.RunSummary {
		summary.RunID = out.RunID
		summary.Reason = out.Reason
		summary.Detail = out.Detail
		summary.Messages = out.Messages
		summary.Pairs = len(out.Pairs)
		summary.Records = len(out.Records)
		summary.FinishedAt = time.Now()
		return summary
	}

	format := cfg.Report.Format
	if ov.Format != "" {
		format = ov.Format
	}
	writer, err := report.NewWriter(format)
	if err != nil {
		return finish(pipeline.Outcome{Reason: models.ReasonUnexpectedFailure, Detail: err.Error()}), err
	}

	password, err := resolveCredential(cfg)
	if err != nil {
		logger.Error("failed to resolve mailbox credential", "error", err)
		return finish(pipeline.Outcome{Reason: models.ReasonAuthFailed, Detail: err.Error(), Err: err}), nil
	}

	opts, err := extractOptions(cfg)
	if err != nil {
		return finish(pipeline.Outcome{Reason: models.ReasonUnexpectedFailure, Detail: err.Error()}), err
	}

	errMgr, err := errorlog.NewManager(cfg, logger)
	if err != nil {
		logger.Warn("message error logging unavailable", "error", err)
	} else {
		defer errMgr.Close()
		if err := errMgr.CleanupOldErrors(); err != nil {
			logger.Warn("failed to clean up old message errors", "error", err)
		}
	}

	cacheMgr, err := cache.NewManager(cfg, logger)
	if err != nil {
		logger.Warn("message cache unavailable, fetching everything", "error", err)
	} else {
		defer cacheMgr.Close()
		if err := cacheMgr.Cleanup(ctx); err != nil {
			logger.Warn("failed to clean up message cache", "error", err)
		}
	}

	collector := progress.NewCollector()
	sink := progress.Multi(progress.LogSink{Logger: logger}, collector)

	mailboxOpts := email.Options{Cache: cacheMgr, Progress: sink}
	if errMgr != nil {
		mailboxOpts.Errors = errMgr
	}

	runner := &pipeline.Runner{
		NewMailbox: func(req pipeline.Request) (email.Mailbox, error) {
			o := mailboxOpts
			o.Password = req.Credential
			return email.NewMailbox(cfg, o, logger)
		},
		Extract:  opts,
		Pairing:  pairingOptions(cfg),
		Fixed:    fixedValues(cfg),
		Progress: sink,
		Logger:   logger,
	}

	req := pipeline.Request{
		Account:          cfg.Mailbox.Account,
		Credential:       password,
		Start:            start,
		End:              end,
		Keywords:         cfg.Report.Keywords,
		IdentifierLength: cfg.Report.IdentifierLength,
		Strict:           cfg.Report.Strict,
		Folders:          cfg.Mailbox.Folders,
	}
	applyOverrides(&req, ov)

	out := runner.Run(ctx, req)
	logger.Info("run summary", collector.Snapshot().LogAttrs()...)
	if !out.OK() {
		return finish(out), nil
	}

	store, err := storage.NewStorage(ctx, storage.Config{
		Type:              storage.StorageType(cfg.Report.Storage.Type),
		Path:              cfg.Report.Storage.Path,
		PreserveStructure: cfg.Report.Storage.PreserveStructure,
		Account:           cfg.Mailbox.Account,
		CredentialsFile:   cfg.Report.Storage.CredentialsFile,
		ParentFolderID:    cfg.Report.Storage.ParentFolder,
	}, logger)
	if err != nil {
		return finish(out), fmt.Errorf("failed to create report storage: %w", err)
	}

	publisher := &pipeline.Publisher{
		Writer:        writer,
		Storage:       store,
		NamingPattern: cfg.Report.NamingPattern,
		Logger:        logger,
	}
	location, err := publisher.Publish(ctx, cfg.Mailbox.Account, out)
	if err != nil {
		return finish(out), err
	}

	summary.ReportPath = location
	return finish(out), nil
}

func resolveCredential(cfg *types.Config) (string, error) {
	var store *credential.Store
	if cfg.Mailbox.Password == "" && cfg.Mailbox.Keyring.Enabled {
		s, err := credential.OpenFor(cfg)
		if err != nil {
			return "", err
		}
		store = s
	}

	password, err := credential.Resolve(cfg, store)
	if err != nil && !errors.Is(err, credential.ErrNoCredential) {
		return "", fmt.Errorf("failed to read keyring: %w", err)
	}
	return password, err
}

func extractOptions(cfg *types.Config) (extract.Options, error) {
	opts := extract.DefaultOptions()
	tw := cfg.Report.TimeWindow
	if tw.EarliestHour != nil {
		opts.EarliestHour = *tw.EarliestHour
	}
	if tw.Granularity > 0 {
		opts.Granularity = tw.Granularity
	}
	if tw.DurationMinutes > 0 {
		opts.DurationMinutes = tw.DurationMinutes
	}
	if cfg.Report.MaxTextLength > 0 {
		opts.MaxTextLength = cfg.Report.MaxTextLength
	}
	if tw.Timezone != "" {
		loc, err := time.LoadLocation(tw.Timezone)
		if err != nil {
			return opts, fmt.Errorf("invalid timezone %q: %w", tw.Timezone, err)
		}
		opts.Location = loc
	}
	return opts, nil
}

func pairingOptions(cfg *types.Config) []pairing.Option {
	opts := []pairing.Option{}
	if s := cfg.Report.Pairing.Strategy; s != "" {
		opts = append(opts, pairing.WithMode(pairing.Mode(s)))
	}
	if gap := cfg.Report.Pairing.SubjectMaxGap; gap > 0 {
		opts = append(opts, pairing.WithMaxSubjectGap(gap))
	}
	return opts
}

func fixedValues(cfg *types.Config) report.Fixed {
	fixed := report.DefaultFixed()
	if cfg.Report.ConsultationType != "" {
		fixed.ConsultationType = cfg.Report.ConsultationType
	}
	if cfg.Report.Location != "" {
		fixed.Location = cfg.Report.Location
	}
	if cfg.Report.Visibility != "" {
		fixed.Visibility = cfg.Report.Visibility
	}
	return fixed
}

func applyOverrides(req *pipeline.Request, ov Overrides) {
	if ov.Keywords != nil {
		req.Keywords = ov.Keywords
	}
	if ov.IdentifierLength != nil {
		req.IdentifierLength = ov.IdentifierLength
	}
	if ov.Strict != nil {
		req.Strict = ov.Strict
	}
	if ov.Folders != nil {
		req.Folders = ov.Folders
	}
}
