package email

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/charset"

	"github.com/altafino/consultation-report/internal/cache"
	"github.com/altafino/consultation-report/internal/email/parser"
	"github.com/altafino/consultation-report/internal/errorlog"
	"github.com/altafino/consultation-report/internal/oauth2"
	"github.com/altafino/consultation-report/internal/types"
)

func init() {
	imap.CharsetReader = charset.Reader
}

// IMAPClient reads messages over IMAP.
type IMAPClient struct {
	base

	mu     sync.Mutex
	client *client.Client
	closed bool

	sentFolder string
}

// NewIMAPClient creates a new IMAP client
func NewIMAPClient(cfg *types.Config, opts Options, logger *slog.Logger) *IMAPClient {
	return &IMAPClient{
		base: newBase(cfg, opts, logger, "imap", cfg.Mailbox.Protocols.IMAP.Server),
	}
}

func (c *IMAPClient) timeout() time.Duration {
	return time.Duration(c.cfg.Mailbox.DefaultTimeout) * time.Second
}

// Connect establishes a connection to the IMAP server and logs in.
// Cancelling ctx while connecting closes the connection.
func (c *IMAPClient) Connect(ctx context.Context) error {
	imapCfg := c.cfg.Mailbox.Protocols.IMAP
	tlsEnabled := c.cfg.Mailbox.Security.TLS.Enabled
	addr := net.JoinHostPort(imapCfg.Server, strconv.Itoa(imapCfg.Port))

	c.logger.Info("connecting to IMAP server",
		"server", imapCfg.Server,
		"port", imapCfg.Port,
		"tls_enabled", tlsEnabled,
		"username", c.cfg.Mailbox.Username,
	)

	dialer := &net.Dialer{Timeout: c.timeout()}

	var (
		cl  *client.Client
		err error
	)
	switch {
	case imapCfg.Port == 143:
		// For port 143, always use plain connection first, then STARTTLS
		c.logger.Debug("using port 143, starting with plain connection")
		cl, err = client.DialWithDialer(dialer, addr)
		if err != nil {
			return connectionError("failed to connect to IMAP server: %w", err)
		}
		if tlsEnabled {
			c.logger.Debug("upgrading connection with STARTTLS")
			if err := cl.StartTLS(tlsConfig(imapCfg.Server, c.cfg)); err != nil {
				cl.Terminate()
				return connectionError("STARTTLS failed: %w", err)
			}
		}
	case tlsEnabled:
		c.logger.Debug("using direct TLS connection")
		cl, err = client.DialWithDialerTLS(dialer, addr, tlsConfig(imapCfg.Server, c.cfg))
		if err != nil {
			return connectionError("failed to connect to IMAP server: %w", err)
		}
	default:
		c.logger.Debug("using plain connection")
		cl, err = client.DialWithDialer(dialer, addr)
		if err != nil {
			return connectionError("failed to connect to IMAP server: %w", err)
		}
	}

	cl.Timeout = c.timeout()
	stop := context.AfterFunc(ctx, func() { cl.Terminate() })
	defer stop()

	if err := c.login(ctx, cl); err != nil {
		cl.Terminate()
		return err
	}
	if ctx.Err() != nil {
		cl.Terminate()
		return connectionError("connect cancelled: %w", ctx.Err())
	}

	c.mu.Lock()
	c.client = cl
	c.closed = false
	c.mu.Unlock()

	c.logger.Info("successfully connected to IMAP server and logged in")
	return nil
}

func (c *IMAPClient) login(ctx context.Context, cl *client.Client) error {
	username := c.cfg.Mailbox.Username

	if !c.cfg.Mailbox.Security.OAuth2.Enabled {
		if err := cl.Login(username, c.opts.Password); err != nil {
			return loginError("IMAP", err)
		}
		return nil
	}

	tm, err := oauth2.NewTokenManagerFor(c.cfg, c.logger)
	if err != nil {
		return &ConnectError{Kind: KindAuth, Err: fmt.Errorf("failed to create OAuth2 token manager: %w", err)}
	}
	token, err := tm.AccessToken(ctx)
	if err != nil {
		return &ConnectError{Kind: KindAuth, Err: fmt.Errorf("failed to get OAuth2 token: %w", err)}
	}
	if err := cl.Authenticate(oauth2.NewXOAUTH2Client(username, token)); err != nil {
		return loginError("IMAP XOAUTH2", err)
	}
	return nil
}

func (c *IMAPClient) conn() (*client.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil || c.closed {
		return nil, ErrNotConnected
	}
	return c.client, nil
}

// connectionLost reports whether the client's reader has stopped, which
// happens when the server closes the socket.
func connectionLost(cl *client.Client) bool {
	select {
	case <-cl.LoggedOut():
		return true
	default:
		return false
	}
}

// SentFolder lists the server's mailboxes and picks the sent folder,
// falling back to the configured default.
func (c *IMAPClient) SentFolder(ctx context.Context) (string, error) {
	if c.sentFolder != "" {
		return c.sentFolder, nil
	}
	cl, err := c.conn()
	if err != nil {
		return "", err
	}

	stop := context.AfterFunc(ctx, func() { cl.Terminate() })
	defer stop()

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- cl.List("", "*", mailboxes)
	}()

	var infos []*imap.MailboxInfo
	for m := range mailboxes {
		infos = append(infos, m)
	}
	if err := <-done; err != nil {
		return "", fmt.Errorf("failed to list mailboxes: %w", err)
	}

	imapCfg := c.cfg.Mailbox.Protocols.IMAP
	if name, ok := DiscoverSentFolder(infos, imapCfg.SentFolderCandidates); ok {
		c.logger.Debug("found sent folder", "folder", name)
		c.sentFolder = name
		return name, nil
	}

	c.logger.Warn("no sent folder found, using default",
		"default", imapCfg.DefaultSentFolder,
		"mailboxes", len(infos))
	c.sentFolder = imapCfg.DefaultSentFolder
	return c.sentFolder, nil
}

// FetchMessages retrieves the messages of each folder dated within
// [start, end]. Cancelling ctx closes the connection and the fetch fails.
func (c *IMAPClient) FetchMessages(ctx context.Context, start, end time.Time, folders []string) ([]*parser.Message, error) {
	cl, err := c.conn()
	if err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() { cl.Terminate() })
	defer stop()

	imapCfg := c.cfg.Mailbox.Protocols.IMAP
	if len(folders) == 0 {
		folders = defaultFolders(ctx, c, imapCfg.Inbox, c.logger)
	}

	var all []*parser.Message
	for i, folder := range folders {
		msgs, err := c.fetchFolder(ctx, cl, folder, start, end)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("fetch cancelled: %w", ctx.Err())
			}
			if i == 0 || !errors.Is(err, errFolderUnavailable) {
				return nil, err
			}
			c.logger.Warn("skipping folder", "folder", folder, "error", err)
			continue
		}
		all = append(all, msgs...)
	}

	hits, misses := c.opts.Cache.Stats()
	c.logger.Info("fetched messages",
		"folders", len(folders),
		"messages", len(all),
		"cache_hits", hits,
		"cache_misses", misses)

	return all, nil
}

func (c *IMAPClient) fetchFolder(ctx context.Context, cl *client.Client, folder string, start, end time.Time) ([]*parser.Message, error) {
	status, err := cl.Select(folder, true)
	if err != nil {
		if isTransportError(err) || connectionLost(cl) {
			return nil, connectionError("connection lost while selecting %s: %w", folder, err)
		}
		return nil, connectionError("%w %s: %w", errFolderUnavailable, folder, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since, criteria.Before = searchBounds(start, end)

	uids, err := cl.UidSearch(criteria)
	if err != nil {
		return nil, connectionError("failed to search folder %s: %w", folder, err)
	}

	c.logger.Debug("searched folder",
		"folder", folder,
		"messages", status.Messages,
		"uid_validity", status.UidValidity,
		"matches", len(uids))

	if len(uids) == 0 {
		return nil, nil
	}

	raws, err := c.download(ctx, cl, folder, status.UidValidity, uids)
	if err != nil {
		return nil, err
	}

	kind := folderKind(folder, c.cfg.Mailbox.Protocols.IMAP.Inbox, c.sentFolder, c.cfg.Mailbox.Protocols.IMAP.SentFolderCandidates)
	messages := WithinRange(c.parseAll(raws, folder, kind), start, end)

	c.logger.Info("processed folder",
		"folder", folder,
		"kind", kind,
		"retrieved", len(raws),
		"in_range", len(messages))

	return messages, nil
}

// download returns the raw bodies of uids in search order, taking cached
// bodies from the cache and fetching the rest in batches.
func (c *IMAPClient) download(ctx context.Context, cl *client.Client, folder string, uidValidity uint32, uids []uint32) ([]rawMessage, error) {
	key := func(uid uint32) cache.Key {
		return cache.Key{
			Account:     c.cfg.Mailbox.Username,
			Folder:      folder,
			UIDValidity: uidValidity,
			UID:         uid,
		}
	}

	bodies := make(map[uint32][]byte, len(uids))
	var missing []uint32
	for _, uid := range uids {
		if raw, ok := c.opts.Cache.Lookup(ctx, key(uid)); ok {
			bodies[uid] = raw
			continue
		}
		missing = append(missing, uid)
	}

	batchSize := c.cfg.Mailbox.Protocols.IMAP.BatchSize
	if batchSize <= 0 {
		batchSize = len(missing)
	}

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchUid, imap.FetchInternalDate}

	for from := 0; from < len(missing); from += batchSize {
		batch := missing[from:min(from+batchSize, len(missing))]

		seqSet := new(imap.SeqSet)
		seqSet.AddNum(batch...)

		messages := make(chan *imap.Message, 10)
		done := make(chan error, 1)
		go func() {
			done <- cl.UidFetch(seqSet, items, messages)
		}()

		for msg := range messages {
			literal := msg.GetBody(section)
			if literal == nil {
				c.recordFailure(folder, msg.Uid, errorlog.StageFetch, nil, fmt.Errorf("server returned no body"))
				continue
			}
			raw, err := io.ReadAll(literal)
			if err != nil {
				c.recordFailure(folder, msg.Uid, errorlog.StageRead, raw, fmt.Errorf("failed to read message body: %w", err))
				continue
			}
			bodies[msg.Uid] = raw
			c.opts.Cache.Store(ctx, key(msg.Uid), raw)
		}

		if err := <-done; err != nil {
			return nil, connectionError("failed to fetch messages from %s: %w", folder, err)
		}

		c.progressTick(folder, len(uids)-len(missing)+from+len(batch), len(uids))
	}

	raws := make([]rawMessage, 0, len(bodies))
	for _, uid := range uids {
		if raw, ok := bodies[uid]; ok {
			raws = append(raws, rawMessage{uid: uid, raw: raw})
		}
	}
	return raws, nil
}

// Close logs out. Errors are logged and swallowed.
func (c *IMAPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil || c.closed {
		return nil
	}
	c.closed = true

	if err := c.client.Logout(); err != nil {
		c.logger.Warn("failed to log out from IMAP server", "error", err)
		if err := c.client.Terminate(); err != nil {
			c.logger.Debug("failed to close IMAP connection", "error", err)
		}
	}
	return nil
}
