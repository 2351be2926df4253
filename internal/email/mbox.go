package email

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-mbox"

	"github.com/altafino/consultation-report/internal/email/parser"
	"github.com/altafino/consultation-report/internal/errorlog"
	"github.com/altafino/consultation-report/internal/types"
)

// MboxSource reads exported mailboxes, one mbox file per logical folder.
// UIDs are the 1-based position of a message within its file.
type MboxSource struct {
	base

	files map[string]string
	sent  string
}

func NewMboxSource(cfg *types.Config, opts Options, logger *slog.Logger) *MboxSource {
	mboxCfg := cfg.Mailbox.Protocols.Mbox
	return &MboxSource{
		base:  newBase(cfg, opts, logger, "mbox", ""),
		files: mboxCfg.Files,
		sent:  mboxCfg.SentFolder,
	}
}

// Connect checks that every configured file can be read.
func (s *MboxSource) Connect(context.Context) error {
	if len(s.files) == 0 {
		return connectionError("no mbox files configured")
	}
	for folder, path := range s.files {
		info, err := os.Stat(path)
		if err != nil {
			return connectionError("failed to open mbox file for %s: %w", folder, err)
		}
		if info.IsDir() {
			return connectionError("mbox path for %s is a directory: %s", folder, path)
		}
	}
	s.logger.Info("opened mbox source", "folders", len(s.files))
	return nil
}

// SentFolder returns the configured sent folder or the folder whose name
// looks like one.
func (s *MboxSource) SentFolder(context.Context) (string, error) {
	if s.sent != "" {
		return s.sent, nil
	}

	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)

	infos := make([]*imap.MailboxInfo, len(names))
	for i, name := range names {
		infos[i] = &imap.MailboxInfo{Name: name}
	}
	if name, ok := DiscoverSentFolder(infos, s.cfg.Mailbox.Protocols.IMAP.SentFolderCandidates); ok {
		s.sent = name
		return name, nil
	}
	return "", ErrNoSentFolder
}

func (s *MboxSource) FetchMessages(ctx context.Context, start, end time.Time, folders []string) ([]*parser.Message, error) {
	if len(folders) == 0 {
		folders = defaultFolders(ctx, s, s.inbox(), s.logger)
	}

	var all []*parser.Message
	for i, folder := range folders {
		path, ok := s.files[folder]
		if !ok {
			if i == 0 {
				return nil, connectionError("no mbox file configured for folder %s", folder)
			}
			s.logger.Warn("skipping folder without mbox file", "folder", folder)
			continue
		}

		raws, err := s.readFile(ctx, folder, path)
		if err != nil {
			if ctx.Err() != nil || i == 0 {
				return nil, err
			}
			s.logger.Warn("skipping folder", "folder", folder, "error", err)
			continue
		}

		kind := folderKind(folder, s.inbox(), s.sent, s.cfg.Mailbox.Protocols.IMAP.SentFolderCandidates)
		msgs := WithinRange(s.parseAll(raws, folder, kind), start, end)
		s.logger.Info("processed folder",
			"folder", folder,
			"kind", kind,
			"retrieved", len(raws),
			"in_range", len(msgs))

		all = append(all, msgs...)
	}
	return all, nil
}

func (s *MboxSource) inbox() string {
	if inbox := s.cfg.Mailbox.Protocols.IMAP.Inbox; inbox != "" {
		return inbox
	}
	return "INBOX"
}

func (s *MboxSource) readFile(ctx context.Context, folder, path string) ([]rawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mbox file: %w", err)
	}
	defer f.Close()

	reader := mbox.NewReader(f)

	var raws []rawMessage
	for uid := uint32(1); ; uid++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch cancelled: %w", err)
		}

		msgReader, err := reader.NextMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read mbox %s: %w", path, err)
		}

		raw, err := io.ReadAll(msgReader)
		if err != nil {
			s.recordFailure(folder, uid, errorlog.StageRead, raw, err)
			continue
		}
		raws = append(raws, rawMessage{uid: uid, raw: raw})
	}

	s.progressTick(folder, len(raws), len(raws))
	return raws, nil
}

// Close is a no-op; files are closed after each read.
func (s *MboxSource) Close() error {
	return nil
}
