package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
)

// FolderKind tags where a message was fetched from.
type FolderKind string

const (
	FolderInbox FolderKind = "inbox"
	FolderSent  FolderKind = "sent"
	FolderOther FolderKind = "other"
)

// Message is an immutable view of one fetched email. The body is decoded
// on first use.
type Message struct {
	UID        uint32
	Folder     string
	FolderKind FolderKind

	MessageID  string
	InReplyTo  []string
	References []string
	Subject    string
	From       []*mail.Address
	To         []*mail.Address
	Cc         []*mail.Address
	FromHeader string
	ToHeader   string
	Date       time.Time
	HasDate    bool

	Raw []byte

	// synthesized is set when MessageID was derived from the content.
	synthesized bool

	logger   *slog.Logger
	bodyOnce sync.Once
	body     string
}

// ParseMessage reads the header block of raw and builds a Message. Only a
// header that cannot be read at all is an error; individual malformed
// fields are logged and degrade to their raw text.
func ParseMessage(raw []byte, folder string, kind FolderKind, uid uint32, logger *slog.Logger) (*Message, error) {
	if logger == nil {
		logger = slog.Default()
	}

	h, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header := mail.Header{}
	header.Header.Header = h

	m := &Message{
		UID:        uid,
		Folder:     folder,
		FolderKind: kind,
		Raw:        raw,
		logger:     logger,
	}

	m.MessageID, err = header.MessageID()
	if err != nil {
		m.MessageID = NormalizeMessageID(h.Get("Message-Id"))
	}
	if m.MessageID == "" {
		m.MessageID = FallbackMessageID(raw)
		m.synthesized = true
	}

	m.InReplyTo = msgIDList(header, "In-Reply-To")
	m.References = msgIDList(header, "References")

	m.Subject, err = header.Subject()
	if err != nil {
		logger.Debug("undecodable subject", "message_id", m.MessageID, "error", err)
		m.Subject = h.Get("Subject")
	}

	m.From, m.FromHeader = addressList(header, "From")
	m.To, m.ToHeader = addressList(header, "To")
	m.Cc, _ = addressList(header, "Cc")

	date, source, err := dateFromHeader(h.Get)
	switch {
	case err == nil:
		m.Date = date
		m.HasDate = true
	case err == ErrNoDate:
		logger.Debug("message has no date header", "message_id", m.MessageID)
	default:
		logger.Warn("failed to parse date header",
			"message_id", m.MessageID,
			"header", source,
			"error", err,
		)
	}

	return m, nil
}

func msgIDList(header mail.Header, key string) []string {
	ids, err := header.MsgIDList(key)
	if err == nil {
		return ids
	}
	return splitMessageIDs(header.Get(key))
}

func addressList(header mail.Header, key string) ([]*mail.Address, string) {
	text, err := header.Text(key)
	if err != nil {
		text = header.Get(key)
	}
	if text == "" {
		return nil, ""
	}

	addrs, err := header.AddressList(key)
	if err != nil || len(addrs) == 0 {
		addrs = splitAddressList(text)
	}
	return addrs, text
}

// Body returns the decoded plain-text body.
func (m *Message) Body() string {
	m.bodyOnce.Do(func() {
		m.body = ExtractBody(m.Raw, m.logger)
	})
	return m.body
}

// HasSynthesizedID reports whether MessageID was computed from the content
// because the header was missing.
func (m *Message) HasSynthesizedID() bool {
	return m.synthesized
}

// IsReply reports whether the message carries threading headers.
func (m *Message) IsReply() bool {
	return len(m.InReplyTo) > 0 || len(m.References) > 0
}

// ParentID is the id of the message this one answers: In-Reply-To when
// present, otherwise the first References entry.
func (m *Message) ParentID() string {
	if len(m.InReplyTo) > 0 {
		return m.InReplyTo[0]
	}
	if len(m.References) > 0 {
		return m.References[0]
	}
	return ""
}

// FromContains reports whether the sender mentions account, ignoring case.
func (m *Message) FromContains(account string) bool {
	return headerContains(account, m.FromHeader, m.From)
}

// AddressedTo reports whether account appears among the To or Cc
// recipients, ignoring case.
func (m *Message) AddressedTo(account string) bool {
	return headerContains(account, m.ToHeader, m.To) || headerContains(account, "", m.Cc)
}

// Sender returns the first From address, or the raw header text.
func (m *Message) Sender() string {
	if len(m.From) > 0 {
		return m.From[0].Address
	}
	return strings.TrimSpace(m.FromHeader)
}

func headerContains(account, raw string, addrs []*mail.Address) bool {
	if account == "" {
		return false
	}
	if containsFold(raw, account) {
		return true
	}
	for _, addr := range addrs {
		if containsFold(addr.Address, account) {
			return true
		}
	}
	return false
}
