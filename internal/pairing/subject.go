package pairing

import (
	"regexp"
	"strings"
)

// replyPrefix matches one reply or forward marker at the start of a
// subject: "Re:", "FW:", "Fwd[2]:", "회신:", "답장 :", "RE>" and bracketed
// external-mail tags such as "[외부메일]".
var replyPrefix = regexp.MustCompile(`(?i)^\s*(?:(?:re|fw|fwd|aw|sv|답장|회신|전달|답변)\s*(?:\[\d+\]|\(\d+\))?\s*[:：>]|\[(?:외부|외부메일|external|ext)\])\s*`)

// replyIndicators are the subject prefixes that mark a reply, compared
// case-insensitively after trimming.
var replyIndicators = []string{"re:", "re :", "re>", "답장:", "답장 :", "회신:", "회신 :", "답변:", "ㄴre:"}

// countedReply matches indicators carrying a reply counter, "Re[2]:" or
// "RE(3):", on an already lowercased subject.
var countedReply = regexp.MustCompile(`^(?:re|답장|회신|답변)\s*(?:\[\d+\]|\(\d+\))\s*[:：>]`)

// NormalizeSubject strips reply and forward prefixes repeatedly and
// collapses whitespace. It is idempotent.
func NormalizeSubject(subject string) string {
	s := strings.Join(strings.Fields(subject), " ")
	for {
		loc := replyPrefix.FindStringIndex(s)
		if loc == nil || loc[1] == 0 {
			break
		}
		s = s[loc[1]:]
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// LooksLikeReply reports whether subject starts with a reply indicator.
// Bracketed external-mail tags in front of the indicator are ignored.
func LooksLikeReply(subject string) bool {
	s := strings.ToLower(strings.TrimSpace(subject))
	for {
		trimmed := strings.TrimSpace(stripTag(s))
		if trimmed == s {
			break
		}
		s = trimmed
	}
	for _, token := range replyIndicators {
		if strings.HasPrefix(s, token) {
			return true
		}
	}
	return countedReply.MatchString(s)
}

var tagPrefix = regexp.MustCompile(`^\[(?:외부|외부메일|external|ext)\]`)

func stripTag(s string) string {
	return tagPrefix.ReplaceAllString(s, "")
}
