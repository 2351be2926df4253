package parser

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/DusanKasan/parsemail"
	"github.com/jhillyerd/enmime"
)

// ExtractBody returns the UTF-8 plain-text body of raw. Multipart messages
// contribute every text/plain part that is not an attachment, in document
// order, one per line; a single-part message contributes its only payload. Decoding
// problems are logged and never returned.
func ExtractBody(raw []byte, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}

	body, err := extractWithEnmime(raw, logger)
	if err != nil {
		logger.Warn("enmime could not parse message, trying parsemail", "error", err)

		email, perr := parsemail.Parse(bytes.NewReader(raw))
		if perr != nil {
			logger.Warn("parsemail could not parse message, using raw payload", "error", perr)
			body = rawPayload(raw)
		} else {
			body = email.TextBody
		}
	}

	return strings.TrimSpace(strings.ToValidUTF8(body, "\uFFFD"))
}

func extractWithEnmime(raw []byte, logger *slog.Logger) (string, error) {
	root, err := enmime.ReadParts(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}

	if root.FirstChild == nil {
		logPartErrors(root, logger)
		if isAttachment(root) {
			return "", nil
		}
		return string(root.Content), nil
	}

	parts := root.DepthMatchAll(func(p *enmime.Part) bool {
		return p.FirstChild == nil && !isAttachment(p) && strings.EqualFold(p.ContentType, "text/plain")
	})

	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		logPartErrors(p, logger)
		texts = append(texts, string(p.Content))
	}
	return strings.Join(texts, "\n"), nil
}

func isAttachment(p *enmime.Part) bool {
	if strings.Contains(strings.ToLower(p.Disposition), "attachment") {
		return true
	}
	return p.Header != nil && strings.Contains(strings.ToLower(p.Header.Get("Content-Disposition")), "attachment")
}

func logPartErrors(p *enmime.Part, logger *slog.Logger) {
	for _, perr := range p.Errors {
		logger.Debug("body part decoded with errors",
			"content_type", p.ContentType,
			"error", perr.Error(),
		)
	}
}

// rawPayload is the last resort: everything after the header block.
func rawPayload(raw []byte) string {
	for _, sep := range [][]byte{[]byte("\r\n\r\n"), []byte("\n\n")} {
		if i := bytes.Index(raw, sep); i >= 0 {
			return string(raw[i+len(sep):])
		}
	}
	return ""
}
