package parser

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// NormalizeMessageID trims whitespace and the surrounding angle brackets so
// ids taken from Message-ID, In-Reply-To and References compare equal.
func NormalizeMessageID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")
	return strings.TrimSpace(id)
}

// splitMessageIDs is the lenient fallback for In-Reply-To and References
// values that do not parse as msg-id lists.
func splitMessageIDs(value string) []string {
	var ids []string
	for _, field := range strings.Fields(value) {
		for _, part := range strings.Split(field, "><") {
			if id := NormalizeMessageID(part); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// FallbackMessageID derives a stable id for messages without a Message-ID
// header from their raw content.
func FallbackMessageID(raw []byte) string {
	hash := md5.Sum(raw)
	return "md5:" + hex.EncodeToString(hash[:])
}
