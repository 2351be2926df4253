package email

import (
	"strings"

	"github.com/emersion/go-imap"

	"github.com/altafino/consultation-report/internal/email/parser"
)

// SentFolderCandidates lists sent folder names in priority order.
var SentFolderCandidates = []string{
	"[Gmail]/Sent Mail",
	"[Gmail]/보낸편지함",
	"[Google Mail]/Sent Mail",
	"Sent",
	"Sent Items",
	"Sent Messages",
	"Sent Mail",
	"보낸편지함",
	"보낸 편지함",
	"INBOX.Sent",
	"INBOX/Sent",
}

// DiscoverSentFolder picks the sent folder among mailboxes: the first
// candidate with an exact name match, then the first with a
// case-insensitive match, then the first mailbox carrying the \Sent
// attribute.
func DiscoverSentFolder(mailboxes []*imap.MailboxInfo, candidates []string) (string, bool) {
	if len(candidates) == 0 {
		candidates = SentFolderCandidates
	}

	for _, c := range candidates {
		for _, m := range mailboxes {
			if m.Name == c {
				return m.Name, true
			}
		}
	}
	for _, c := range candidates {
		for _, m := range mailboxes {
			if strings.EqualFold(m.Name, c) {
				return m.Name, true
			}
		}
	}
	for _, m := range mailboxes {
		for _, attr := range m.Attributes {
			if strings.EqualFold(attr, imap.SentAttr) {
				return m.Name, true
			}
		}
	}
	return "", false
}

// folderKind tags a folder name. sent is the discovered sent folder, if
// known.
func folderKind(folder, inbox, sent string, candidates []string) parser.FolderKind {
	if inbox == "" {
		inbox = "INBOX"
	}
	if strings.EqualFold(folder, inbox) {
		return parser.FolderInbox
	}
	if sent != "" && folder == sent {
		return parser.FolderSent
	}
	if len(candidates) == 0 {
		candidates = SentFolderCandidates
	}
	for _, c := range candidates {
		if strings.EqualFold(folder, c) {
			return parser.FolderSent
		}
	}
	return parser.FolderOther
}
