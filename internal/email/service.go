package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/altafino/consultation-report/internal/email/parser"
	"github.com/altafino/consultation-report/internal/errorlog"
	"github.com/altafino/consultation-report/internal/progress"
	"github.com/altafino/consultation-report/internal/types"
)

// rawSampleSize bounds how much of a broken message goes into the error log.
const rawSampleSize = 4096

// NewMailbox creates the client for the configured protocol.
func NewMailbox(cfg *types.Config, opts Options, logger *slog.Logger) (Mailbox, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("creating mailbox client",
		"config_id", cfg.Meta.ID,
		"protocol", cfg.Mailbox.Protocol,
		"username", cfg.Mailbox.Username)

	switch strings.ToLower(cfg.Mailbox.Protocol) {
	case "", "imap":
		return NewIMAPClient(cfg, opts, logger), nil
	case "pop3":
		return NewPOP3Client(cfg, opts, logger), nil
	case "mbox":
		return NewMboxSource(cfg, opts, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, cfg.Mailbox.Protocol)
	}
}

// base holds what the mailbox clients share: configuration, collaborators
// and the per-folder parse step.
type base struct {
	cfg      *types.Config
	opts     Options
	logger   *slog.Logger
	protocol string
	server   string
}

func newBase(cfg *types.Config, opts Options, logger *slog.Logger, protocol, server string) base {
	if opts.Progress == nil {
		opts.Progress = progress.Nop{}
	}
	return base{
		cfg:      cfg,
		opts:     opts,
		logger:   logger.With("protocol", protocol),
		protocol: protocol,
		server:   server,
	}
}

// rawMessage is a message body as retrieved from the server.
type rawMessage struct {
	uid uint32
	raw []byte
}

// recordFailure logs a message that had to be skipped and writes it to the
// error log.
func (b *base) recordFailure(folder string, uid uint32, stage string, raw []byte, err error) {
	b.logger.Warn("skipping message",
		"folder", folder,
		"uid", uid,
		"stage", stage,
		"error", err)

	if b.opts.Errors == nil {
		return
	}
	entry := errorlog.MessageError{
		ConfigID:   b.cfg.Meta.ID,
		Protocol:   b.protocol,
		Server:     b.server,
		Username:   b.cfg.Mailbox.Username,
		Folder:     folder,
		UID:        uid,
		ErrorTime:  time.Now().UTC(),
		ErrorType:  stage,
		ErrorMsg:   err.Error(),
		RawMessage: errorlog.RawSample(raw, rawSampleSize),
	}
	if logErr := b.opts.Errors.LogError(entry); logErr != nil {
		b.logger.Error("failed to record message error", "error", logErr)
	}
}

// parseAll parses raws with at most max_concurrent workers. The result
// keeps the order of raws; messages that fail to parse are left out.
func (b *base) parseAll(raws []rawMessage, folder string, kind parser.FolderKind) []*parser.Message {
	parsed := make([]*parser.Message, len(raws))

	var g errgroup.Group
	if n := b.cfg.Mailbox.MaxConcurrent; n > 0 {
		g.SetLimit(n)
	}
	for i, r := range raws {
		i, r := i, r
		g.Go(func() error {
			msg, err := parser.ParseMessage(r.raw, folder, kind, r.uid, b.logger)
			if err != nil {
				b.recordFailure(folder, r.uid, errorlog.StageParse, r.raw, err)
				return nil
			}
			parsed[i] = msg
			return nil
		})
	}
	_ = g.Wait()

	messages := make([]*parser.Message, 0, len(parsed))
	for _, m := range parsed {
		if m != nil {
			messages = append(messages, m)
		}
	}
	return messages
}

// progressTick reports fetch progress for one folder.
func (b *base) progressTick(folder string, current, total int) {
	b.opts.Progress.Report(progress.Event{
		Stage:   progress.StageFetch,
		Kind:    progress.KindProgress,
		Current: current,
		Total:   total,
		Detail:  folder,
	})
}

// defaultFolders returns the inbox followed by the sent folder when one
// can be found.
func defaultFolders(ctx context.Context, mb Mailbox, inbox string, logger *slog.Logger) []string {
	folders := []string{inbox}
	sent, err := mb.SentFolder(ctx)
	switch {
	case err == nil && sent != "" && sent != inbox:
		folders = append(folders, sent)
	case errors.Is(err, ErrFoldersUnsupported):
	case err != nil:
		logger.Warn("failed to find sent folder, fetching inbox only", "error", err)
	}
	return folders
}

// WithinRange keeps messages dated within [start, end]. Messages without a
// Date header are kept.
func WithinRange(messages []*parser.Message, start, end time.Time) []*parser.Message {
	kept := messages[:0:0]
	for _, m := range messages {
		if !m.HasDate || (!m.Date.Before(start) && !m.Date.After(end)) {
			kept = append(kept, m)
		}
	}
	return kept
}

// searchBounds converts an inclusive range into the dates of an IMAP
// SINCE/BEFORE search, which only compare calendar days.
func searchBounds(start, end time.Time) (since, before time.Time) {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	return time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC), time.Date(ey, em, ed+1, 0, 0, 0, 0, time.UTC)
}

func tlsConfig(server string, cfg *types.Config) *tls.Config {
	tc := &tls.Config{
		ServerName:         server,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !cfg.Mailbox.Security.TLS.VerifyCert,
	}
	if cfg.Mailbox.Security.TLS.MinVersion == "1.3" {
		tc.MinVersion = tls.VersionTLS13
	}
	return tc
}

func addDomainIfNeeded(username, server string) string {
	if username == "" || strings.Contains(username, "@") {
		return username
	}
	// Extract domain from server (remove any pop3/pop/imap prefix)
	domain := strings.TrimPrefix(strings.TrimPrefix(strings.TrimPrefix(server, "pop3."), "pop."), "imap.")
	return username + "@" + domain
}
