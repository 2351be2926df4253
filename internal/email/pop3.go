package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/knadh/go-pop3"

	"github.com/altafino/consultation-report/internal/email/parser"
	"github.com/altafino/consultation-report/internal/errorlog"
	"github.com/altafino/consultation-report/internal/types"
)

// pop3Folder is the only folder a POP3 mailbox exposes.
const pop3Folder = "INBOX"

// POP3Client reads the inbox over POP3. POP3 has no server-side search,
// so every message is retrieved and checked against the range locally.
type POP3Client struct {
	base

	mu     sync.Mutex
	conn   *pop3.Conn
	closed bool
}

func NewPOP3Client(cfg *types.Config, opts Options, logger *slog.Logger) *POP3Client {
	return &POP3Client{
		base: newBase(cfg, opts, logger, "pop3", cfg.Mailbox.Protocols.POP3.Server),
	}
}

func (c *POP3Client) Connect(ctx context.Context) error {
	pop3Cfg := c.cfg.Mailbox.Protocols.POP3
	username := addDomainIfNeeded(c.cfg.Mailbox.Username, pop3Cfg.Server)

	c.logger.Info("connecting to POP3 server",
		"server", pop3Cfg.Server,
		"port", pop3Cfg.Port,
		"tls_enabled", c.cfg.Mailbox.Security.TLS.Enabled,
		"username", username,
		"tls_skip_verify", !c.cfg.Mailbox.Security.TLS.VerifyCert,
	)

	p := pop3.New(pop3.Opt{
		Host:          pop3Cfg.Server,
		Port:          pop3Cfg.Port,
		TLSEnabled:    c.cfg.Mailbox.Security.TLS.Enabled,
		TLSSkipVerify: !c.cfg.Mailbox.Security.TLS.VerifyCert,
	})

	conn, err := p.NewConn()
	if err != nil {
		return connectionError("failed to connect to POP3 server: %w", err)
	}
	if err := ctx.Err(); err != nil {
		conn.Quit()
		return connectionError("connect cancelled: %w", err)
	}

	if err := conn.Auth(username, c.opts.Password); err != nil {
		conn.Quit()
		return loginError("POP3", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.closed = false
	c.mu.Unlock()

	c.logger.Info("successfully connected to POP3 server")
	return nil
}

// SentFolder always fails: POP3 only exposes the inbox.
func (c *POP3Client) SentFolder(context.Context) (string, error) {
	return "", ErrFoldersUnsupported
}

func (c *POP3Client) FetchMessages(ctx context.Context, start, end time.Time, folders []string) ([]*parser.Message, error) {
	c.mu.Lock()
	conn := c.conn
	if c.closed {
		conn = nil
	}
	c.mu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	for _, f := range folders {
		if !strings.EqualFold(f, pop3Folder) {
			c.logger.Warn("skipping folder, POP3 only provides the inbox", "folder", f)
		}
	}

	count, size, err := conn.Stat()
	if err != nil {
		return nil, connectionError("failed to get mailbox stats: %w", err)
	}
	c.logger.Info("mailbox stats",
		"messages", count,
		"total_size", size,
	)

	list, err := conn.List(0)
	if err != nil {
		return nil, connectionError("failed to list messages: %w", err)
	}

	raws := make([]rawMessage, 0, len(list))
	for i, msg := range list {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch cancelled: %w", err)
		}

		buf, err := conn.RetrRaw(msg.ID)
		if err != nil {
			if isTransportError(err) {
				return nil, connectionError("connection lost while retrieving message %d: %w", msg.ID, err)
			}
			c.recordFailure(pop3Folder, uint32(msg.ID), errorlog.StageFetch, nil, fmt.Errorf("failed to retrieve message: %w", err))
			continue
		}
		raws = append(raws, rawMessage{uid: uint32(msg.ID), raw: buf.Bytes()})

		if (i+1)%50 == 0 || i+1 == len(list) {
			c.progressTick(pop3Folder, i+1, len(list))
		}
	}

	messages := WithinRange(c.parseAll(raws, pop3Folder, parser.FolderInbox), start, end)

	c.logger.Info("fetched messages",
		"retrieved", len(raws),
		"in_range", len(messages))

	return messages, nil
}

// Close sends QUIT. Errors are logged and swallowed.
func (c *POP3Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.closed {
		return nil
	}
	c.closed = true

	if err := c.conn.Quit(); err != nil {
		c.logger.Warn("failed to quit POP3 session", "error", err)
	}
	return nil
}
