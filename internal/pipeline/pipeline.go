// Package pipeline runs one report from mailbox to records: connect, fetch,
// pair, filter and materialize.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/altafino/consultation-report/internal/config"
	"github.com/altafino/consultation-report/internal/email"
	"github.com/altafino/consultation-report/internal/email/parser"
	"github.com/altafino/consultation-report/internal/extract"
	"github.com/altafino/consultation-report/internal/filter"
	"github.com/altafino/consultation-report/internal/models"
	"github.com/altafino/consultation-report/internal/pairing"
	"github.com/altafino/consultation-report/internal/progress"
	"github.com/altafino/consultation-report/internal/report"
)

// Request describes one run. Nil optional fields take their defaults.
type Request struct {
	// Account is the address whose correspondence is reported.
	Account    string
	Credential string
	// Start and End are inclusive calendar days; End is extended to the
	// end of its day.
	Start time.Time
	End   time.Time

	// Keywords nil means config.DefaultKeywords; an empty slice disables the
	// keyword stage.
	Keywords []string
	// IdentifierLength nil means 8; zero disables the identifier stage.
	IdentifierLength *int
	// Strict nil means true.
	Strict *bool
	// Folders nil means the inbox plus the discovered sent folder.
	Folders []string
}

func (r Request) keywords() []string {
	if r.Keywords == nil {
		return config.DefaultKeywords
	}
	return r.Keywords
}

func (r Request) identifierLength() int {
	if r.IdentifierLength == nil {
		return config.DefaultIdentifierLength
	}
	return *r.IdentifierLength
}

func (r Request) strict() bool {
	return r.Strict == nil || *r.Strict
}

// MailboxFactory opens the mailbox client for a request.
type MailboxFactory func(req Request) (email.Mailbox, error)

// Outcome is the terminal result of a run: records, or a reason why there
// are none.
type Outcome struct {
	RunID   string
	Reason  models.Reason
	Detail  string
	Pairs   []*pairing.EmailPair
	Records []report.Record
	// Messages is the number of messages fetched in range.
	Messages int
	Err      error
}

// OK reports whether the run produced records.
func (o Outcome) OK() bool {
	return o.Reason == models.ReasonNone
}

// Runner executes runs. The zero value is not usable; NewMailbox is
// required.
type Runner struct {
	NewMailbox MailboxFactory
	// Extract controls field derivation; the zero value means
	// extract.DefaultOptions. The identifier length is taken from the
	// request.
	Extract  extract.Options
	Pairing  []pairing.Option
	Fixed    report.Fixed
	Progress progress.Sink
	Logger   *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Runner) sink() progress.Sink {
	if r.Progress == nil {
		return progress.Nop{}
	}
	return r.Progress
}

// Run executes req synchronously. Every failure is reported through the
// outcome; Run never panics.
func (r *Runner) Run(ctx context.Context, req Request) (out Outcome) {
	out.RunID = uuid.NewString()
	logger := r.logger().With("run_id", out.RunID, "account", req.Account)
	sink := r.sink()

	defer func() {
		if p := recover(); p != nil {
			logger.Error("run panicked", "panic", p, "stack", string(debug.Stack()))
			out = Outcome{
				RunID:  out.RunID,
				Reason: models.ReasonUnexpectedFailure,
				Detail: fmt.Sprint(p),
				Err:    fmt.Errorf("unexpected failure: %v", p),
			}
		}
	}()

	start, end := r.bounds(req)
	logger.Info("starting report run",
		"start", start.Format(time.DateOnly),
		"end", end.Format(time.DateOnly),
		"folders", req.Folders)

	messages, fail := r.fetch(ctx, req, start, end, logger)
	if fail != nil {
		fail.RunID = out.RunID
		return *fail
	}
	out.Messages = len(messages)
	if len(messages) == 0 {
		out.Reason = models.ReasonNoMessagesInRange
		out.Detail = fmt.Sprintf("no messages between %s and %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
		logger.Info("no messages in range")
		return out
	}

	opts := r.Extract
	if opts == (extract.Options{}) {
		opts = extract.DefaultOptions()
	}
	opts.IdentifierLength = max(req.identifierLength(), 0)

	sink.Report(progress.Event{Stage: progress.StagePair, Kind: progress.KindStarted, Total: len(messages)})
	pairOpts := append([]pairing.Option{pairing.WithLogger(logger)}, r.Pairing...)
	pairs := pairing.NewEngine(req.Account, opts, pairOpts...).Pair(messages)
	sink.Report(progress.Event{Stage: progress.StagePair, Kind: progress.KindCompleted, Current: len(pairs)})

	stages := []filter.Stage{
		filter.KeywordStage{Keywords: req.keywords()},
		filter.IdentifierStage{Length: req.identifierLength(), Strict: req.strict()},
	}
	result := filter.NewPipeline(logger, stages...).Run(pairs)
	if result.Empty() {
		sink.Report(progress.Event{Stage: progress.StageFilter, Kind: progress.KindCompleted, Detail: string(result.Reason)})
		out.Reason = result.Reason
		out.Detail = result.Detail
		logger.Info("no pairs left", "reason", result.Reason, "detail", result.Detail)
		return out
	}
	sink.Report(progress.Event{Stage: progress.StageFilter, Kind: progress.KindCompleted, Current: len(result.Pairs), Total: len(pairs)})

	fixed := r.Fixed
	if fixed == (report.Fixed{}) {
		fixed = report.DefaultFixed()
	}
	out.Pairs = result.Pairs
	out.Records = report.Materialize(result.Pairs, fixed)
	sink.Report(progress.Event{Stage: progress.StageReport, Kind: progress.KindCompleted, Current: len(out.Records)})

	logger.Info("report run finished",
		"messages", len(messages),
		"pairs", len(pairs),
		"records", len(out.Records))
	return out
}

// bounds extends the request days to [start 00:00, end 23:59:59].
func (r *Runner) bounds(req Request) (time.Time, time.Time) {
	loc := r.Extract.Location
	if loc == nil {
		loc = req.Start.Location()
	}
	return models.DateRange{Start: req.Start, End: req.End}.Bounds(loc)
}

// fetch connects and retrieves the messages in range. A non-nil outcome
// ends the run.
func (r *Runner) fetch(ctx context.Context, req Request, start, end time.Time, logger *slog.Logger) ([]*parser.Message, *Outcome) {
	sink := r.sink()

	sink.Report(progress.Event{Stage: progress.StageConnect, Kind: progress.KindStarted})
	mb, err := r.NewMailbox(req)
	if err != nil {
		sink.Report(progress.Event{Stage: progress.StageConnect, Kind: progress.KindFailed, Err: err})
		logger.Error("failed to create mailbox client", "error", err)
		return nil, &Outcome{Reason: models.ReasonUnexpectedFailure, Detail: err.Error(), Err: err}
	}

	if err := mb.Connect(ctx); err != nil {
		sink.Report(progress.Event{Stage: progress.StageConnect, Kind: progress.KindFailed, Err: err})
		reason := models.ReasonConnectionFailed
		if email.IsAuthError(err) {
			reason = models.ReasonAuthFailed
		}
		logger.Error("failed to connect to mailbox", "reason", reason, "error", err)
		return nil, &Outcome{Reason: reason, Detail: err.Error(), Err: err}
	}
	defer mb.Close()
	sink.Report(progress.Event{Stage: progress.StageConnect, Kind: progress.KindCompleted})

	sink.Report(progress.Event{Stage: progress.StageFetch, Kind: progress.KindStarted})
	messages, err := mb.FetchMessages(ctx, start, end, req.Folders)
	if err != nil {
		sink.Report(progress.Event{Stage: progress.StageFetch, Kind: progress.KindFailed, Err: err})
		logger.Error("failed to fetch messages", "error", err)
		reason := models.ReasonConnectionFailed
		if email.IsAuthError(err) {
			reason = models.ReasonAuthFailed
		}
		return nil, &Outcome{Reason: reason, Detail: err.Error(), Err: err}
	}
	sink.Report(progress.Event{Stage: progress.StageFetch, Kind: progress.KindCompleted, Current: len(messages)})

	return messages, nil
}
