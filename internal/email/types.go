package email

import (
	"context"
	"time"

	"github.com/altafino/consultation-report/internal/cache"
	"github.com/altafino/consultation-report/internal/email/parser"
	"github.com/altafino/consultation-report/internal/errorlog"
	"github.com/altafino/consultation-report/internal/progress"
)

// Mailbox is a source of messages for one account.
type Mailbox interface {
	// Connect opens the session. Failures are *ConnectError values.
	Connect(ctx context.Context) error

	// FetchMessages returns the messages of folders dated within
	// [start, end], folder by folder in the given order. A nil folders
	// list means the inbox plus the discovered sent folder. Messages
	// without a Date header are kept.
	FetchMessages(ctx context.Context, start, end time.Time, folders []string) ([]*parser.Message, error)

	// SentFolder returns the name of the folder holding sent mail.
	SentFolder(ctx context.Context) (string, error)

	// Close ends the session. It is safe to call more than once and
	// always returns nil; failures are only logged.
	Close() error
}

// Options carries the collaborators shared by every mailbox client. Zero
// values disable the corresponding feature.
type Options struct {
	// Password is the resolved mailbox password. It is ignored for
	// XOAUTH2 logins.
	Password string
	Errors   errorlog.Logger
	Cache    *cache.Manager
	Progress progress.Sink
}
